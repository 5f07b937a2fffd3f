package tooltip

import (
	"errors"
	"strings"
	"testing"

	"github.com/nerdneilsfield/go-page-translator/internal/i18n"
	"github.com/nerdneilsfield/go-page-translator/pkg/translation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSelection(t *testing.T) {
	r := NewRenderer(i18n.NewTranslator("en", nil))
	var sb strings.Builder

	err := r.Render(&sb, &translation.Selection{
		Original:       "<i>Hello</i> & bye",
		Translated:     "<script>alert(1)</script>こんにちは",
		SourceLanguage: "en",
		TargetLanguage: "ja",
	}, "en", &Position{Left: 12, Top: 40})
	require.NoError(t, err)

	out := sb.String()
	assert.Contains(t, out, `id="page-translator-tooltip"`)
	assert.Contains(t, out, "left: 12px; top: 40px")
	assert.Contains(t, out, "Translation (English → Japanese)")
	assert.Contains(t, out, "&lt;i&gt;Hello&lt;/i&gt; &amp; bye")
	assert.Contains(t, out, "こんにちは")
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "alert(1)")
}

func TestRenderError(t *testing.T) {
	r := NewRenderer(nil)
	out := r.String(nil, errors.New(`service said <no>`), "ja", nil)

	assert.Contains(t, out, "翻訳エラー")
	assert.Contains(t, out, "service said &lt;no&gt;")
	assert.NotContains(t, out, "style=")
}

func TestStringFallsBackToError(t *testing.T) {
	r := NewRenderer(nil)
	out := r.String(nil, nil, "en", nil)
	assert.Contains(t, out, "Translation Error")
	assert.Contains(t, out, "nil selection")
}
