package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ccp-p/audio-analyzer/pkg/asr"
	"github.com/ccp-p/audio-analyzer/pkg/classify"
	"github.com/ccp-p/audio-analyzer/pkg/modelserver"
	"github.com/ccp-p/audio-analyzer/pkg/models"
	"github.com/ccp-p/audio-analyzer/pkg/pipeline"
	"github.com/ccp-p/audio-analyzer/pkg/utils"
)

// app 启动阶段构建的进程级对象
type app struct {
	pipeline     *pipeline.Pipeline
	errorHandler *utils.ErrorHandler
}

// bootstrap 检查依赖、选择设备、预热模型服务并构建流水线
// 模型服务不可用时直接终止进程
func bootstrap(ctx context.Context, cfg *models.Config, reg prometheus.Registerer) *app {
	printWelcome()
	if utils.IsVerbose() {
		if err := cfg.PrintConfig(os.Stderr); err != nil {
			utils.Warn("打印配置失败: %v", err)
		}
	}

	if !checkDependencies(cfg) {
		utils.Fatal("缺少必要的依赖项，无法继续")
	}

	device := utils.DetectDevice(cfg.Device)
	fmt.Fprintf(os.Stderr, "计算设备: %s\n", color.CyanString(device))

	timeout := cfg.ModelTimeoutDuration()
	whisper := modelserver.NewClient(cfg.Whisper, device, timeout)
	emotion := modelserver.NewClient(cfg.Emotion, device, timeout)
	environment := modelserver.NewClient(cfg.Environment, device, timeout)

	handler := utils.NewErrorHandler(cfg.MaxRetries, cfg.RetryDelay)
	if err := modelserver.WarmUp(ctx, handler, whisper, emotion, environment); err != nil {
		handler.PrintErrorStats()
		utils.Fatal("模型加载失败: %v", err)
	}

	m, err := pipeline.NewModels(
		asr.NewWhisperASR(whisper, cfg.TempDir),
		classify.NewSingleLabel(classify.NewHTTPLogits(emotion)),
		classify.NewMultiLabel(classify.NewHTTPLogits(environment)),
		device,
	)
	if err != nil {
		utils.Fatal("构建模型上下文失败: %v", err)
	}

	p, err := pipeline.New(cfg, m, pipeline.NewMetrics(reg))
	if err != nil {
		utils.Fatal("创建处理流水线失败: %v", err)
	}

	return &app{pipeline: p, errorHandler: handler}
}

func printWelcome() {
	// 使用彩色输出打印欢迎信息，写到标准错误
	cyan := color.New(color.FgCyan)
	fmt.Fprintln(os.Stderr)
	cyan.Fprintln(os.Stderr, "================================")
	cyan.Fprintln(os.Stderr, "   音频分析工具 - Go 实现版本   ")
	cyan.Fprintln(os.Stderr, "================================")
	fmt.Fprintln(os.Stderr)
}

func checkDependencies(cfg *models.Config) bool {
	fmt.Fprint(os.Stderr, "检查系统依赖... ")

	if !utils.CheckFFmpeg(cfg.FFmpegPath) {
		color.New(color.FgRed).Fprintln(os.Stderr, "失败")
		utils.Error("未检测到FFmpeg，请确保FFmpeg已安装并添加到系统路径")
		return false
	}

	color.New(color.FgGreen).Fprintln(os.Stderr, "通过")
	return true
}
