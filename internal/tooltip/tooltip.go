// Package tooltip 渲染选中文本翻译的提示框
package tooltip

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/microcosm-cc/bluemonday"
	"github.com/nerdneilsfield/go-page-translator/internal/i18n"
	"github.com/nerdneilsfield/go-page-translator/pkg/translation"
)

// ElementID 提示框元素 id，新提示框替换旧的
const ElementID = "page-translator-tooltip"

const tooltipTemplate = `<div id="{{.ID}}" class="page-translator-tooltip"{{if .Positioned}} style="left: {{.Left}}px; top: {{.Top}}px"{{end}}>
{{- if .Error}}
<div class="tooltip-header">{{.ErrorTitle}}</div>
<div class="tooltip-content error">{{.Error}}</div>
{{- else}}
<div class="tooltip-header">{{.Title}} ({{.Languages}})</div>
<div class="tooltip-content">
<div class="original"><strong>{{.OriginalLabel}}</strong> {{.Original}}</div>
<div class="translation"><strong>{{.TranslationLabel}}</strong> {{.Translated}}</div>
</div>
{{- end}}
<button class="tooltip-close" title="{{.Close}}">×</button>
</div>`

// Position 提示框在文档中的位置，通常是选区底部下方 10px
type Position struct {
	Left float64
	Top  float64
}

// Renderer 提示框渲染器
type Renderer struct {
	tmpl   *template.Template
	policy *bluemonday.Policy
	tr     *i18n.Translator
}

// NewRenderer 创建渲染器
func NewRenderer(tr *i18n.Translator) *Renderer {
	if tr == nil {
		tr = i18n.NewTranslator("en", nil)
	}
	return &Renderer{
		tmpl:   template.Must(template.New("tooltip").Parse(tooltipTemplate)),
		policy: bluemonday.StrictPolicy(),
		tr:     tr,
	}
}

type view struct {
	ID         string
	Positioned bool
	Left, Top  float64

	Title, ErrorTitle, Close        string
	OriginalLabel, TranslationLabel string
	Languages                       string

	Original   string
	Translated template.HTML
	Error      string
}

func (r *Renderer) base(uiLang string, pos *Position) view {
	v := view{
		ID:               ElementID,
		Title:            r.tr.T(uiLang, "TooltipTitle", nil),
		ErrorTitle:       r.tr.T(uiLang, "TooltipErrorTitle", nil),
		Close:            r.tr.T(uiLang, "TooltipClose", nil),
		OriginalLabel:    r.tr.T(uiLang, "TooltipOriginal", nil),
		TranslationLabel: r.tr.T(uiLang, "TooltipTranslation", nil),
	}
	if pos != nil {
		v.Positioned = true
		v.Left, v.Top = pos.Left, pos.Top
	}
	return v
}

// Render 渲染翻译结果。译文中服务返回的标记会被去除，其余文本转义输出。
func (r *Renderer) Render(w io.Writer, sel *translation.Selection, uiLang string, pos *Position) error {
	if sel == nil {
		return fmt.Errorf("tooltip: nil selection")
	}
	v := r.base(uiLang, pos)
	v.Languages = r.tr.T(uiLang, "TooltipLanguages", map[string]any{
		"Source": translation.DisplayName(sel.SourceLanguage, uiLang),
		"Target": translation.DisplayName(sel.TargetLanguage, uiLang),
	})
	v.Original = sel.Original
	// StrictPolicy 的输出只含转义后的文本
	v.Translated = template.HTML(r.policy.Sanitize(sel.Translated))
	return r.tmpl.Execute(w, v)
}

// RenderError 渲染错误提示框
func (r *Renderer) RenderError(w io.Writer, cause error, uiLang string, pos *Position) error {
	v := r.base(uiLang, pos)
	v.Error = cause.Error()
	if v.Error == "" {
		v.Error = "unknown error"
	}
	return r.tmpl.Execute(w, v)
}

// String 渲染为字符串，出错时渲染错误提示框
func (r *Renderer) String(sel *translation.Selection, err error, uiLang string, pos *Position) string {
	var buf bytes.Buffer
	if err == nil {
		err = r.Render(&buf, sel, uiLang, pos)
		if err == nil {
			return buf.String()
		}
		buf.Reset()
	}
	_ = r.RenderError(&buf, err, uiLang, pos)
	return buf.String()
}
