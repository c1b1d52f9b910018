package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ccp-p/audio-analyzer/internal/watcher"
	"github.com/ccp-p/audio-analyzer/pkg/export"
	"github.com/ccp-p/audio-analyzer/pkg/models"
	"github.com/ccp-p/audio-analyzer/pkg/pipeline"
	"github.com/ccp-p/audio-analyzer/pkg/scanner"
	"github.com/ccp-p/audio-analyzer/pkg/utils"
)

func newWatchCmd() *cobra.Command {
	var (
		taskName string
		language string
		folder   string
		existing bool
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "监控收件箱目录，分析新出现的音频文件",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := pipeline.ParseTask(taskName)
			if err != nil {
				return err
			}
			if folder != "" {
				if err := config.Update(map[string]interface{}{"watch_folder": folder}); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt := bootstrap(ctx, config, nil)
			exporter := export.NewJSONExporter(os.Stdout)
			sink := func(filePath string, res models.TaskResult) {
				if msg := res.Err(); msg != "" {
					res = &models.ErrorResult{Error: msg}
				}
				if err := exporter.Export(res); err != nil {
					utils.Error("输出结果失败: %v", err)
				}
				if env, ok := res.(*models.EnvironmentResult); ok && len(env.Alerts) > 0 {
					color.New(color.FgRed).Fprintf(os.Stderr, "%s: %s %v\n", filePath, env.RiskVerdict, env.Alerts)
				}
			}

			handler := watcher.NewAnalysisHandler(rt.pipeline, pipeline.Request{Task: task, Language: language}, sink)
			audioScanner := scanner.NewAudioScanner()

			stopMonitor, err := watcher.StartFolderMonitoring(ctx, config.WatchFolder, audioScanner.IsSupported, handler, debounce)
			if err != nil {
				return err
			}
			defer stopMonitor()

			if existing {
				files, err := audioScanner.ScanDirectory(config.WatchFolder)
				if err != nil {
					return err
				}
				for _, f := range files {
					handler.OnFileCreated(ctx, f.Path)
				}
			}

			color.New(color.FgGreen).Fprintf(os.Stderr, "正在监控 %s，按 Ctrl+C 退出\n", config.WatchFolder)
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVarP(&taskName, "task", "t", "environment", "任务类型 (transcribe, emotion, environment)")
	cmd.Flags().StringVar(&language, "language", "", "转写语言")
	cmd.Flags().StringVarP(&folder, "folder", "d", "", "监控目录，覆盖配置中的 watch_folder")
	cmd.Flags().BoolVar(&existing, "existing", false, "启动时先分析目录中已有的文件")
	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "文件写入完成的等待时间")
	return cmd
}
