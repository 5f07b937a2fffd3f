package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nerdneilsfield/go-page-translator/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "管理配置文件",
	}
	cmd.AddCommand(newConfigInitCommand(), newConfigShowCommand())
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "写出默认配置文件",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.SaveConfig(config.NewDefaultConfig(), cfgFile); err != nil {
				return err
			}
			path := cfgFile
			if path == "" {
				path = "~/.pagetrans.yaml"
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ %s\n", path)
			return nil
		},
	}
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "显示生效的配置",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Key", "Value"})
			t.AppendRows([]table.Row{
				{"provider", cfg.Provider},
				{"endpoint", cfg.ProviderSettings().Endpoint},
				{"api_key", maskKey(cfg.ProviderSettings().APIKey)},
				{"default_language", cfg.DefaultLanguage},
				{"ui_language", cfg.UILanguage},
				{"scope", cfg.Scope},
				{"chunk_size", cfg.ChunkSize},
				{"rate_limit", cfg.RateLimit},
				{"settings_dsn", cfg.SettingsDSN},
				{"scroll.debounce", cfg.Scroll.Debounce},
				{"scroll.threshold_ratio", cfg.Scroll.ThresholdRatio},
				{"server.addr", cfg.Server.Addr},
			})
			t.SetStyle(table.StyleLight)
			t.Render()
			return nil
		},
	}
}

// maskKey 只显示密钥末尾四位
func maskKey(key string) string {
	if key == "" {
		return "-"
	}
	if len(key) <= 4 {
		return "****"
	}
	return fmt.Sprintf("****%s", key[len(key)-4:])
}
