package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nerdneilsfield/go-page-translator/internal/config"
	"github.com/nerdneilsfield/go-page-translator/pkg/translation"
	"github.com/spf13/cobra"
)

var languagesUI string

func newLanguagesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "languages",
		Short: "列出可选的目标语言",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ui := languagesUI
			if ui == "" {
				ui = config.NewDefaultConfig().UILanguage
				if cfg, err := loadConfig(cmd); err == nil {
					ui = cfg.UILanguage
				}
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Code", "Name", "Native"})
			for _, lang := range translation.DefaultLanguages(ui) {
				t.AppendRow(table.Row{lang.Code, lang.Name, lang.NativeName})
			}
			t.SetStyle(table.StyleLight)
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&languagesUI, "ui", "", "显示名称使用的界面语言")
	return cmd
}
