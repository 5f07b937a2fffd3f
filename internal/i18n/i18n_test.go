package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	tr := NewTranslator("en", nil)

	assert.Equal(t, "Translation", tr.T("", "TooltipTitle", nil))
	assert.Equal(t, "翻訳", tr.T("ja", "TooltipTitle", nil))
	assert.Equal(t, "Translated 3 texts to French",
		tr.T("en", "PageTranslated", map[string]any{"Count": 3, "Language": "French"}))

	// 没有的语言回退到默认
	assert.Equal(t, "Translation Error", tr.T("ko", "TooltipErrorTitle", nil))
	assert.Equal(t, "NoSuchMessage", tr.T("en", "NoSuchMessage", nil))
	assert.Empty(t, tr.T("en", "", nil))
}

func TestDefaultLanguage(t *testing.T) {
	assert.Equal(t, "ja", NewTranslator("ja", nil).DefaultLanguage())
	assert.Equal(t, "en", NewTranslator("not a tag!", nil).DefaultLanguage())
	assert.Equal(t, "閉じる", NewTranslator("ja", nil).T("", "TooltipClose", nil))
}
