package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ccp-p/audio-analyzer/internal/ui"
	"github.com/ccp-p/audio-analyzer/pkg/export"
	"github.com/ccp-p/audio-analyzer/pkg/models"
	"github.com/ccp-p/audio-analyzer/pkg/pipeline"
	"github.com/ccp-p/audio-analyzer/pkg/scanner"
	"github.com/ccp-p/audio-analyzer/pkg/utils"
)

// 输出格式
const (
	formatJSON = "json"
	formatSRT  = "srt"
)

type analyzeOptions struct {
	task        string
	language    string
	prompt      string
	format      string
	pretty      bool
	concurrency int
	noProgress  bool
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze [文件或目录...]",
		Short: "分析本地音频文件，结果写到标准输出",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.task, "task", "t", "emotion", "任务类型 (transcribe, emotion, environment)")
	cmd.Flags().StringVar(&opts.language, "language", "", "转写语言，例如 es")
	cmd.Flags().StringVar(&opts.prompt, "prompt", "", "转写上下文提示")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatJSON, "输出格式 (json, srt)，srt 只适用于转写")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "使用缩进格式输出 JSON")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "j", 2, "同时处理的文件数")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "不显示进度条")
	return cmd
}

func runAnalyze(opts *analyzeOptions, args []string) error {
	task, err := pipeline.ParseTask(opts.task)
	if err != nil {
		return err
	}
	if opts.format != formatJSON && opts.format != formatSRT {
		return fmt.Errorf("不支持的输出格式: %s", opts.format)
	}
	if opts.format == formatSRT && task != pipeline.TaskTranscribe {
		return fmt.Errorf("srt 格式只适用于转写任务")
	}

	files, err := scanner.NewAudioScanner().Collect(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		utils.Info("没有找到音频文件，程序退出")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt := bootstrap(ctx, config, nil)

	batch := pipeline.NewBatch(rt.pipeline, opts.concurrency, nil)
	if len(files) > 1 && !opts.noProgress {
		defer utils.SuspendConsole()()
		batch.SetProgressManager(ui.NewProgressManager(true))
	}

	template := pipeline.Request{Task: task, Language: opts.language, Prompt: opts.prompt}
	results := batch.Run(ctx, template, files)

	if err := writeResults(os.Stdout, results, opts.format, opts.pretty); err != nil {
		return err
	}
	if failed := printSummary(os.Stderr, results); failed > 0 {
		return fmt.Errorf("%d 个文件处理失败", failed)
	}
	return nil
}

// writeResults 按输入顺序输出结果，失败的结果在 JSON 中只包含 error
func writeResults(w io.Writer, results []pipeline.BatchResult, format string, pretty bool) error {
	if format == formatSRT {
		srt := export.NewSRTExporter(w)
		for i, r := range results {
			tr, ok := r.Result.(*models.TranscriptionResult)
			if !ok || tr.Error != "" {
				continue
			}
			if i > 0 {
				fmt.Fprintln(w)
			}
			if err := srt.Export(tr); err != nil {
				return err
			}
		}
		return nil
	}

	exporter := export.NewJSONExporter(w)
	exporter.Indent = pretty
	for _, r := range results {
		res := r.Result
		if msg := res.Err(); msg != "" {
			res = &models.ErrorResult{Error: msg}
		}
		if err := exporter.Export(res); err != nil {
			return err
		}
	}
	return nil
}

// printSummary 打印每个文件的判定摘要，返回失败的文件数
func printSummary(w io.Writer, results []pipeline.BatchResult) int {
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	failed := 0
	fmt.Fprintln(w, "\n处理结果:")
	fmt.Fprintln(w, "--------------------")
	for i, r := range results {
		name := filepath.Base(r.FilePath)
		elapsed := utils.FormatTimeDuration(r.ProcessTime.Seconds())
		if !r.Success() {
			failed++
			red.Fprintf(w, "%d. %s 失败: %s\n", i+1, name, r.Result.Err())
			continue
		}
		switch res := r.Result.(type) {
		case *models.EnvironmentResult:
			if len(res.Alerts) > 0 {
				yellow.Fprintf(w, "%d. %s %s %v (%s)\n", i+1, name, res.RiskVerdict, res.Alerts, elapsed)
			} else {
				green.Fprintf(w, "%d. %s %s (%s)\n", i+1, name, res.RiskVerdict, elapsed)
			}
		case *models.EmotionResult:
			green.Fprintf(w, "%d. %s %s %s (%s)\n", i+1, name, res.DominantEmotion, res.Confidence, elapsed)
		default:
			green.Fprintf(w, "%d. %s 完成 (%s)\n", i+1, name, elapsed)
		}
	}
	fmt.Fprintln(w, "--------------------")
	fmt.Fprintf(w, "共 %d 个文件，成功 %d，失败 %d\n", len(results), len(results)-failed, failed)
	return failed
}
