package pagetrans

import (
	"testing"

	"github.com/nerdneilsfield/go-page-translator/pkg/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifierAccept(t *testing.T) {
	doc, err := dom.ParseString(`<body>
<p id="p">Hello</p>
<p id="blank">   </p>
<script>var x = 1;</script>
<style>p { color: red }</style>
<noscript>enable js</noscript>
<code id="code">fmt.Println()</code>
<pre id="pre">ls -la</pre>
<div style="display:none"><span id="hidden">secret</span></div>
<div style="visibility:hidden">ghost</div>
</body>`)
	require.NoError(t, err)

	extract := NewClassifier(ExtractionExclusions...)
	sample := NewClassifier(SamplingExclusions...)

	var extracted, sampled []string
	for _, n := range doc.TextNodes() {
		if extract.Accept(doc, n) {
			extracted = append(extracted, n.Data)
		}
		if sample.Accept(doc, n) {
			sampled = append(sampled, n.Data)
		}
	}

	assert.Equal(t, []string{"Hello"}, extracted)
	// 取样不排除代码
	assert.Equal(t, []string{"Hello", "fmt.Println()", "ls -la"}, sampled)
}

func TestClassifierRejectsNonText(t *testing.T) {
	doc, err := dom.ParseString(`<p id="p">Hello</p>`)
	require.NoError(t, err)

	c := NewClassifier(ExtractionExclusions...)
	assert.False(t, c.Accept(doc, nil))
	assert.False(t, c.Accept(doc, doc.Body()))
}

func TestClassifierCaseInsensitive(t *testing.T) {
	c := NewClassifier("SCRIPT")
	_, ok := c.excluded["script"]
	assert.True(t, ok)
}
