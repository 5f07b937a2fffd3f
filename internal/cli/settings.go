package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nerdneilsfield/go-page-translator/internal/settings"
	"github.com/nerdneilsfield/go-page-translator/pkg/translation"
	"github.com/spf13/cobra"
)

func newSettingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "查看和修改保存的翻译设置",
	}
	cmd.AddCommand(newSettingsListCommand(), newSettingsDefaultCommand(), newSettingsClearCommand())
	return cmd
}

func newSettingsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "列出所有保存的设置",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			all, err := a.store.List(cmd.Context())
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(all))
			for k := range all {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Tab", "Enabled", "Target", "Updated"})
			for _, k := range keys {
				s := all[k]
				t.AppendRow(table.Row{k, s.Enabled, s.TargetLanguage, s.UpdatedAt.Local().Format(time.DateTime)})
			}
			t.SetStyle(table.StyleLight)
			t.Render()
			return nil
		},
	}
}

func newSettingsDefaultCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "default [language]",
		Short: "查看或设置默认目标语言",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				lang, err := a.targetLanguage(ctx, "")
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%s\n", lang, translation.DisplayName(lang, a.cfg.UILanguage))
				return nil
			}

			lang, err := translation.ResolveLanguage(args[0], translation.DefaultLanguages(a.cfg.UILanguage))
			if err != nil {
				return err
			}
			if err := settings.SetDefaultLanguage(ctx, a.store, lang); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\t%s\n", lang, translation.DisplayName(lang, a.cfg.UILanguage))
			return nil
		},
	}
}

func newSettingsClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear TAB",
		Short: "删除标签页的保存设置",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			return a.store.Delete(cmd.Context(), args[0])
		},
	}
}
