package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ccp-p/audio-analyzer/pkg/models"
	"github.com/ccp-p/audio-analyzer/pkg/utils"
)

var (
	configFile string
	logLevel   string
	logFile    string

	// 启动时加载一次，子命令共享
	config *models.Config
)

var rootCmd = &cobra.Command{
	Use:           "audioanalyzer",
	Short:         "音频分析工具：语音转写、情绪识别、环境危险声音检测",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := models.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		if cmd.Flags().Changed("log-level") || cfg.LogLevel == "" {
			cfg.LogLevel = logLevel
		}
		if logFile != "" {
			cfg.LogFile = logFile
		}
		if err := utils.InitLogger(cfg.LogLevel, cfg.LogFile); err != nil {
			return err
		}
		config = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径 (JSON/YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", utils.LogLevelNormal, "日志级别 (VERBOSE, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "日志文件路径")

	rootCmd.AddCommand(newServeCmd(), newAnalyzeCmd(), newWatchCmd(), newConfigCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
