package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/nerdneilsfield/go-page-translator/pkg/dom"
	"github.com/nerdneilsfield/go-page-translator/pkg/pagetrans"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	browseTarget string
	browseOutput string
	browseSteps  int
)

func newBrowseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse URL",
		Short: "在浏览器中打开页面并翻译可见文本",
		Long: `用无头浏览器打开页面，翻译视口内的文本并写回浏览器。
--steps 大于 0 时按视口高度逐屏滚动，每屏翻译新出现的文本。`,
		Args: cobra.ExactArgs(1),
		RunE: runBrowse,
	}
	cmd.Flags().StringVarP(&browseTarget, "target", "t", "", "目标语言代码或名称")
	cmd.Flags().StringVarP(&browseOutput, "output", "o", "", "把翻译后的 HTML 写入文件")
	cmd.Flags().IntVar(&browseSteps, "steps", 0, "向下滚动的屏数")
	return cmd
}

func runBrowse(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	target, err := a.targetLanguage(ctx, browseTarget)
	if err != nil {
		return err
	}

	b, err := launchBrowser(a)
	if err != nil {
		return err
	}
	defer b.Close()

	page, err := b.Open(ctx, args[0])
	if err != nil {
		return err
	}
	defer page.Close()

	doc, err := page.Snapshot(ctx)
	if err != nil {
		return err
	}

	session := pagetrans.NewSession(doc,
		pagetrans.WithSink(page),
		pagetrans.WithLogger(a.log.Named("session")))

	progress, _ := pterm.DefaultProgressbar.
		WithWriter(cmd.ErrOrStderr()).
		WithTotal(browseSteps + 1).
		WithTitle("翻译进度").
		Start()

	total := 0
	for step := 0; step <= browseSteps; step++ {
		if step > 0 {
			y := doc.Viewport().ScrollY + doc.Viewport().Height
			actual, err := page.ScrollTo(ctx, y)
			if err != nil {
				_, _ = progress.Stop()
				return err
			}
			session.ScrollTo(actual)
		}

		batch := session.Extract()
		if batch.Len() > 0 {
			translations, err := session.Translate(ctx, a.service, batch.Texts(), target)
			if err == nil {
				err = session.Apply(batch, translations)
			}
			if err != nil {
				_, _ = progress.Stop()
				return err
			}
			total += batch.Len()
		}
		a.log.Debug("step translated", zap.Int("step", step), zap.Int("nodes", batch.Len()))
		progress.Increment()
	}
	_, _ = progress.Stop()

	out := cmd.OutOrStdout()
	color.New(color.FgGreen).Fprintf(out, "✓ %d text nodes translated to %s\n", total, target)

	if browseOutput != "" {
		dom.StripStamps(doc.Root())
		html, err := doc.HTML()
		if err != nil {
			return err
		}
		if err := os.WriteFile(browseOutput, []byte(html), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(out, "→ %s\n", browseOutput)
	}
	return nil
}
