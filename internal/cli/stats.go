package cli

import (
	"github.com/nerdneilsfield/go-page-translator/pkg/providers/stats"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "显示翻译服务的调用统计",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			sm := stats.NewStatsManager(cfg.StatsPath, zap.NewNop())
			if err := sm.LoadFromDB(); err != nil {
				return err
			}
			sm.PrintStatsTable(cmd.OutOrStdout())
			return nil
		},
	}
}
