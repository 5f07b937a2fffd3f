package translation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// DefaultTargetLanguage 未保存设置时的默认目标语言
const DefaultTargetLanguage = "ja"

// Language 可选的目标语言
type Language struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	NativeName string `json:"native_name"`
}

// defaultCodes 弹窗中提供的目标语言
var defaultCodes = []string{"en", "ja", "ko", "zh-Hans", "bn", "hi", "ar", "es", "fr"}

// DefaultLanguages 返回默认语言列表，名称使用 uiLang 显示
func DefaultLanguages(uiLang string) []Language {
	langs := make([]Language, 0, len(defaultCodes))
	for _, code := range defaultCodes {
		langs = append(langs, Language{
			Code:       code,
			Name:       DisplayName(code, uiLang),
			NativeName: NativeName(code),
		})
	}
	return langs
}

// DisplayName 返回语言在 uiLang 下的名称，无法解析时返回代码本身
func DisplayName(code, uiLang string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	ui, err := language.Parse(uiLang)
	if err != nil {
		ui = language.English
	}
	if name := display.Tags(ui).Name(tag); name != "" {
		return name
	}
	return code
}

// NativeName 返回语言的自称
func NativeName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.Self.Name(tag); name != "" {
		return name
	}
	return code
}

// BaseLanguage 返回主语言子标签，如 en-US -> en
func BaseLanguage(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return strings.ToLower(code)
	}
	base, _ := tag.Base()
	return base.String()
}

// ResolveLanguage 把用户输入的代码或名称解析为语言代码。
// 依次尝试列表中的代码、合法的 BCP 47 标签、列表中的名称，最后才做模糊匹配，
// 因此列表之外的合法代码（如 de）不会被模糊匹配成别的语言。
func ResolveLanguage(input string, langs []Language) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrUnknownLanguage
	}

	for _, l := range langs {
		if strings.EqualFold(l.Code, input) {
			return l.Code, nil
		}
	}

	if tag, err := language.Parse(input); err == nil && tag != language.Und {
		return tag.String(), nil
	}

	names := make([]string, 0, len(langs)*2)
	owners := make([]string, 0, len(langs)*2)
	for _, l := range langs {
		if strings.EqualFold(l.Name, input) || strings.EqualFold(l.NativeName, input) {
			return l.Code, nil
		}
		names = append(names, l.Name, l.NativeName)
		owners = append(owners, l.Code, l.Code)
	}

	if ranks := fuzzy.RankFindFold(input, names); len(ranks) > 0 {
		sort.Sort(ranks)
		return owners[ranks[0].OriginalIndex], nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, input)
}
