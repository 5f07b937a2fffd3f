package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/nerdneilsfield/go-page-translator/pkg/dom"
	"github.com/nerdneilsfield/go-page-translator/pkg/pagetrans"
	"github.com/nerdneilsfield/go-page-translator/pkg/translation"
	"github.com/spf13/cobra"
)

var detectText string

func newDetectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect [input.html]",
		Short: "检测页面或文本的语言",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if detectText == "" && len(args) == 0 {
				return fmt.Errorf("an input file or --text is required")
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			sample := detectText
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				doc, err := dom.ParseCharset(f, "")
				f.Close()
				if err != nil {
					return err
				}
				sample = pagetrans.NewSession(doc).SampleText(500)
			}

			lang, err := a.service.DetectPageLanguage(cmd.Context(), strings.TrimSpace(sample))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", lang, translation.DisplayName(lang, a.cfg.UILanguage))
			return nil
		},
	}
	cmd.Flags().StringVar(&detectText, "text", "", "直接检测这段文本")
	return cmd
}
