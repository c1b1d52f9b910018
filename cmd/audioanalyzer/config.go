package main

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ccp-p/audio-analyzer/pkg/models"
	"github.com/ccp-p/audio-analyzer/pkg/utils"
)

// 与 LoadConfig 在 CONFIG_ENV=dev 时查找的路径一致
var defaultConfigPath = filepath.Join("config", "dev", "config.yaml")

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "查看或生成配置文件",
	}
	cmd.AddCommand(newConfigShowCmd(), newConfigInitCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "以 YAML 打印当前生效的配置",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.PrintConfig(cmd.OutOrStdout())
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	var (
		force   bool
		current bool
	)

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "生成配置文件（按扩展名写 JSON 或 YAML）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigPath
			if len(args) == 1 {
				path = args[0]
			}

			cfg := models.NewDefaultConfig()
			if current {
				cfg = config
			}
			if err := writeConfigFile(cfg, path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "已写入配置: %s\n", color.GreenString(path))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "覆盖已存在的配置文件")
	cmd.Flags().BoolVar(&current, "current", false, "写出当前生效的配置而不是默认值")
	return cmd
}

func writeConfigFile(cfg *models.Config, path string, force bool) error {
	if utils.CheckDirExists(path) {
		return fmt.Errorf("%s 是一个目录", path)
	}
	if utils.CheckFileExists(path) && !force {
		return fmt.Errorf("配置文件已存在: %s，使用 --force 覆盖", path)
	}
	return cfg.SaveToFile(path)
}
