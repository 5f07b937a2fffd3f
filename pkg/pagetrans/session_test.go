package pagetrans

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/nerdneilsfield/go-page-translator/pkg/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageHTML = `<html><head><title>Title</title></head><body>
<h1 id="h">  Hello  </h1>
<p id="a">First <b id="b">bold</b> line</p>
<pre id="pre">code here</pre>
<p id="far">Far away</p>
</body></html>`

func pageRects() map[string]dom.Rect {
	return map[string]dom.Rect{
		"h":   {Y: 0, Width: 800, Height: 40},
		"a":   {Y: 50, Width: 800, Height: 20},
		"b":   {Y: 50, X: 40, Width: 30, Height: 20},
		"pre": {Y: 80, Width: 800, Height: 20},
		"far": {Y: 2000, Width: 800, Height: 20},
	}
}

func newPage(t *testing.T, opts ...Option) *Session {
	t.Helper()
	return NewSession(boxDoc(t, pageHTML, pageRects()), opts...)
}

func translateAll(t *testing.T, s *Session, prefix string) *Batch {
	t.Helper()
	batch := s.Extract()
	out := make([]string, batch.Len())
	for i, text := range batch.Texts() {
		out[i] = prefix + text
	}
	require.NoError(t, s.Apply(batch, out))
	return batch
}

func TestExtractViewport(t *testing.T) {
	s := newPage(t)

	batch := s.Extract()
	assert.Equal(t, []string{"Hello", "First", "bold", "line"}, batch.Texts())
	assert.Same(t, batch, s.Pending())

	// 视口外的节点也记录了原文
	assert.Equal(t, []string{"  Hello  ", "First ", "bold", " line", "Far away"}, s.OriginalTexts())
}

func TestExtractDocumentScope(t *testing.T) {
	s := newPage(t, WithScope(ScopeDocument))

	batch := s.Extract()
	assert.Equal(t, []string{"Hello", "First", "bold", "line", "Far away"}, batch.Texts())
}

func TestExtractIdempotent(t *testing.T) {
	s := newPage(t)

	first := s.Extract()
	second := s.Extract()
	assert.Equal(t, first.Texts(), second.Texts())
	assert.Equal(t, first.Items, second.Items)
	assert.Len(t, s.OriginalTexts(), 5)
}

func TestApplyPreservesWhitespace(t *testing.T) {
	s := newPage(t)
	batch := s.Extract()

	require.NoError(t, s.Apply(batch, []string{"Bonjour", "Premier", "gras", "ligne"}))

	h := byID(t, s.Document(), "h").FirstChild
	assert.Equal(t, "  Bonjour  ", h.Data)
	assert.True(t, s.IsTranslated())
	assert.True(t, s.IsNodeTranslated(h))

	got := texts(s.Document())
	assert.Contains(t, got, "Premier ")
	assert.Contains(t, got, "gras")
	assert.Contains(t, got, " ligne")
	assert.NotContains(t, got, "First ")
}

func TestPreserveWhitespace(t *testing.T) {
	tests := []struct {
		current, translated, want string
	}{
		{"  Hello  ", "Bonjour", "  Bonjour  "},
		{"Hello", "Bonjour", "Bonjour"},
		{"\n\tHello", "Bonjour", "\n\tBonjour"},
		{"Hello ", "Bonjour", "Bonjour "},
		{"   ", "x", "   x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, preserveWhitespace(tt.current, tt.translated), "current %q", tt.current)
	}
}

func TestApplyCountMismatchWritesNothing(t *testing.T) {
	sink := &recordingSink{}
	s := newPage(t, WithSink(sink))
	before, err := s.HTML()
	require.NoError(t, err)

	batch := s.Extract()
	err = s.Apply(batch, []string{"only one"})

	var mismatch *CountMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 4, mismatch.Want)
	assert.Equal(t, 1, mismatch.Got)

	after, err := s.HTML()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.False(t, s.IsTranslated())
	assert.Zero(t, sink.count())
}

func TestTranslatedNodesNotReextracted(t *testing.T) {
	s := newPage(t)
	translateAll(t, s, "fr:")

	assert.Zero(t, s.Extract().Len())

	// 滚动到远处的段落后只提取新出现的节点
	s.ScrollTo(1800)
	batch := s.Extract()
	assert.Equal(t, []string{"Far away"}, batch.Texts())

	// 原文数组只来自第一次提取
	assert.Equal(t, []string{"  Hello  ", "First ", "bold", " line", "Far away"}, s.OriginalTexts())
}

func TestRestoreRoundTrip(t *testing.T) {
	sink := &recordingSink{}
	s := newPage(t, WithSink(sink), WithScope(ScopeDocument))
	before, err := s.HTML()
	require.NoError(t, err)
	firstTexts := s.Extract().Texts()

	translateAll(t, s, "ja:")
	assert.Equal(t, 5, sink.count())

	restored := s.Restore()
	assert.Equal(t, 5, restored)
	assert.Equal(t, 10, sink.count())

	after, err := s.HTML()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.False(t, s.IsTranslated())
	assert.Nil(t, s.Pending())
	assert.Empty(t, s.OriginalTexts())

	// 还原后重新提取得到同样的结果
	assert.Equal(t, firstTexts, s.Extract().Texts())
}

func TestRestoreHiddenAfterTranslation(t *testing.T) {
	s := newPage(t, WithScope(ScopeDocument))
	translateAll(t, s, "x")

	far := byID(t, s.Document(), "far")
	far.Attr = append(far.Attr, htmlAttr("style", "display:none"))

	s.Restore()
	assert.Equal(t, "Far away", far.FirstChild.Data)
}

func TestRestoreWithoutTranslation(t *testing.T) {
	s := newPage(t)
	assert.Zero(t, s.Restore())
	assert.False(t, s.IsTranslated())
}

func TestApplyStaleBatch(t *testing.T) {
	s := newPage(t)
	batch := s.Extract()
	s.Restore()

	err := s.Apply(batch, []string{"a", "b", "c", "d"})
	assert.ErrorIs(t, err, ErrStaleBatch)
	assert.Equal(t, "  Hello  ", byID(t, s.Document(), "h").FirstChild.Data)
}

func TestApplyConsumesBatchOnce(t *testing.T) {
	s := newPage(t)
	batch := s.Extract()

	require.NoError(t, s.Apply(batch, []string{"A", "B", "C", "D"}))
	assert.Nil(t, s.Pending())

	err := s.Apply(batch, []string{"W", "X", "Y", "Z"})
	assert.ErrorIs(t, err, ErrStaleBatch)
	assert.Equal(t, "  A  ", byID(t, s.Document(), "h").FirstChild.Data)
	assert.ErrorIs(t, s.ApplyPending([]string{"x"}), ErrNoPendingBatch)
}

func TestApplyReplacedBatch(t *testing.T) {
	s := newPage(t)
	older := s.Extract()
	newer := s.Extract()

	err := s.Apply(older, []string{"a", "b", "c", "d"})
	assert.ErrorIs(t, err, ErrStaleBatch)
	assert.False(t, s.IsTranslated())

	require.NoError(t, s.Apply(newer, []string{"a", "b", "c", "d"}))
	assert.True(t, s.IsTranslated())
}

func TestApplyMismatchKeepsBatchPending(t *testing.T) {
	s := newPage(t)
	batch := s.Extract()

	var mismatch *CountMismatchError
	require.ErrorAs(t, s.Apply(batch, []string{"x"}), &mismatch)
	assert.Same(t, batch, s.Pending())
	require.NoError(t, s.Apply(batch, []string{"a", "b", "c", "d"}))
}

func TestApplyPending(t *testing.T) {
	s := newPage(t)
	assert.NoError(t, s.ApplyPending(nil))
	assert.ErrorIs(t, s.ApplyPending([]string{"x"}), ErrNoPendingBatch)

	s.Extract()
	require.NoError(t, s.ApplyPending([]string{"a", "b", "c", "d"}))
	assert.True(t, s.IsTranslated())
}

func TestSampleText(t *testing.T) {
	s := newPage(t)

	sample := s.SampleText(1000)
	assert.Contains(t, sample, "Hello")
	assert.Contains(t, sample, "code here")
	assert.Contains(t, sample, "Far away")
	assert.NotContains(t, sample, "Title")

	short := s.SampleText(5)
	assert.Contains(t, short, "Hello")
	assert.NotContains(t, short, "Far away")
}

func TestSampleTextCountsCharacters(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<body>")
	for i := 0; i < 20; i++ {
		sb.WriteString("<p>日本語のテキストです</p>")
	}
	sb.WriteString("</body>")
	s := NewSession(boxDoc(t, sb.String(), nil))

	// 每段 10 个字符加一个空格，超过 50 个字符后停止
	sample := s.SampleText(50)
	assert.Equal(t, 5, strings.Count(sample, "日本語のテキストです"))
	assert.Equal(t, 54, utf8.RuneCountInString(sample))
}

func TestSessionTranslateUsesCache(t *testing.T) {
	s := newPage(t)
	tr := &upperTranslator{}
	ctx := context.Background()

	out, err := s.Translate(ctx, tr, []string{"a", "b"}, "fr")
	require.NoError(t, err)
	assert.Equal(t, []string{"fr:a", "fr:b"}, out)

	out, err = s.Translate(ctx, tr, []string{"b", "c", "a"}, "fr")
	require.NoError(t, err)
	assert.Equal(t, []string{"fr:b", "fr:c", "fr:a"}, out)
	require.Equal(t, 2, tr.callCount())
	assert.Equal(t, []string{"c"}, tr.calls[1])

	// 还原清空缓存
	s.Restore()
	_, err = s.Translate(ctx, tr, []string{"a"}, "fr")
	require.NoError(t, err)
	assert.Equal(t, 3, tr.callCount())
}

func TestSessionTranslateErrors(t *testing.T) {
	s := newPage(t)
	boom := errors.New("boom")

	_, err := s.Translate(context.Background(), &upperTranslator{err: boom}, []string{"a"}, "fr")
	assert.ErrorIs(t, err, boom)

	_, err = s.Translate(context.Background(), &upperTranslator{short: true}, []string{"a", "b"}, "fr")
	var mismatch *CountMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestParseScope(t *testing.T) {
	assert.Equal(t, ScopeDocument, ParseScope("Document"))
	assert.Equal(t, ScopeDocument, ParseScope("page"))
	assert.Equal(t, ScopeViewport, ParseScope(""))
	assert.Equal(t, "viewport", ScopeViewport.String())
}
