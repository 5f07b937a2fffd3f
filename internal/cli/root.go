// Package cli 实现 pagetrans 命令行
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// 全局标志
	cfgFile      string
	debugMode    bool
	providerName string
	settingsDSN  string
)

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pagetrans",
		Short: "就地翻译网页文本并随时还原",
		Long: `pagetrans 提取网页中可见的文本节点，批量发送给翻译服务，再把译文写回原处，
保留每个节点的首尾空白。已翻译的节点不会被重复翻译，还原时每个节点都恢复到原文。

支持的翻译服务:
  - azure: Azure Translator (默认)
  - google: Google Cloud Translation
  - deepl: DeepL
  - libretranslate: LibreTranslate
  - openai: OpenAI 兼容的对话模型
  - ollama: 本地 Ollama
  - raw: 不翻译，用于调试`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	addGlobalFlags(rootCmd)

	rootCmd.AddCommand(
		newTranslateCommand(),
		newDetectCommand(),
		newServeCommand(),
		newBrowseCommand(),
		newLanguagesCommand(),
		newSettingsCommand(),
		newConfigCommand(),
		newStatsCommand(),
	)
	return rootCmd
}

// addGlobalFlags 添加全局标志
func addGlobalFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径 (默认 ./.pagetrans.yaml 或 ~/.pagetrans.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "启用调试日志")
	rootCmd.PersistentFlags().StringVar(&providerName, "provider", "", "翻译服务")
	rootCmd.PersistentFlags().StringVar(&settingsDSN, "settings", "", "设置存储 DSN (memory://, file://, sqlite://, postgres://)")
}
