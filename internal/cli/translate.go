package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/nerdneilsfield/go-page-translator/internal/i18n"
	"github.com/nerdneilsfield/go-page-translator/pkg/dom"
	"github.com/nerdneilsfield/go-page-translator/pkg/pagetrans"
	"github.com/nerdneilsfield/go-page-translator/pkg/translation"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// translate 命令的标志
	targetLang  string
	outputFile  string
	scopeName   string
	detectFirst bool
)

func newTranslateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate input.html",
		Short: "翻译本地 HTML 文件",
		Long: `读取 HTML 文件（按 meta 声明转换编码），翻译 script、style、code、pre 等
之外所有渲染的文本节点，写出保留原有结构与空白的 HTML。

Examples:
  pagetrans translate page.html --target ja -o page.ja.html
  pagetrans translate page.html --target "Simplified Chinese" --detect`,
		Args: cobra.ExactArgs(1),
		RunE: runTranslate,
	}

	cmd.Flags().StringVarP(&targetLang, "target", "t", "", "目标语言代码或名称")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "输出文件 (默认 <input>.<lang>.html)")
	cmd.Flags().StringVar(&scopeName, "scope", "document", "提取范围: document 或 viewport")
	cmd.Flags().BoolVar(&detectFirst, "detect", false, "翻译前先检测页面语言")
	return cmd
}

func runTranslate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	target, err := a.targetLanguage(ctx, targetLang)
	if err != nil {
		return err
	}

	input := args[0]
	f, err := os.Open(input)
	if err != nil {
		return err
	}
	doc, err := dom.ParseCharset(f, "")
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", input, err)
	}

	session := pagetrans.NewSession(doc,
		pagetrans.WithScope(pagetrans.ParseScope(scopeName)),
		pagetrans.WithLogger(a.log))
	out := cmd.OutOrStdout()
	ui := i18n.NewTranslator(a.cfg.UILanguage, a.log)

	if detectFirst {
		lang, err := a.service.DetectPageLanguage(ctx, session.SampleText(500))
		if err != nil {
			color.New(color.FgYellow).Fprintf(out, "⚠ %v\n", err)
		} else {
			fmt.Fprintln(out, ui.T("", "DetectedLanguage", map[string]any{
				"Language": translation.DisplayName(lang, a.cfg.UILanguage),
			}))
		}
	}

	spinner, _ := pterm.DefaultSpinner.WithWriter(cmd.ErrOrStderr()).
		Start(fmt.Sprintf("Translating %s → %s", filepath.Base(input), target))

	batch := session.Extract()
	translations, err := session.Translate(ctx, a.service, batch.Texts(), target)
	if err == nil {
		err = session.Apply(batch, translations)
	}
	if err != nil {
		spinner.Fail(err.Error())
		a.log.Error("translation failed", zap.String("input", input), zap.Error(err))
		return err
	}
	spinner.Success(ui.T("", "PageTranslated", map[string]any{
		"Count":    batch.Len(),
		"Language": translation.DisplayName(target, a.cfg.UILanguage),
	}))

	if outputFile == "" {
		outputFile = defaultOutputFile(input, target)
	}
	html, err := session.HTML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputFile, []byte(html), 0o644); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(out, "✓ %s\n", outputFile)
	return nil
}

// defaultOutputFile page.html -> page.ja.html
func defaultOutputFile(input, lang string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "." + lang + ext
}
