package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ccp-p/audio-analyzer/pkg/alert"
	"github.com/ccp-p/audio-analyzer/pkg/audio"
	"github.com/ccp-p/audio-analyzer/pkg/models"
	"github.com/ccp-p/audio-analyzer/pkg/utils"
)

// Request 一次分析请求
type Request struct {
	Task     Task
	Path     string // 待分析的音频文件
	Filename string // 展示用的文件名，为空时使用 Path 的文件名
	Owned    bool   // 为 true 时 Path 由流水线负责删除，例如上传的临时文件
	Language string // 转写语言提示
	Prompt   string // 转写上下文提示
}

func (r Request) displayName() string {
	if r.Filename != "" {
		return r.Filename
	}
	return filepath.Base(r.Path)
}

// Pipeline 编排 归一化 -> 分窗 -> 打分 -> 聚合 -> 告警 的处理流程
// 请求之间不共享可变状态，可被多个 goroutine 并发调用
type Pipeline struct {
	config     *models.Config
	models     *Models
	normalizer *audio.Normalizer
	windower   *audio.Windower
	alerts     *alert.Classifier
	metrics    *Metrics
}

// New 创建流水线，metrics 可以为 nil
func New(config *models.Config, m *Models, metrics *Metrics) (*Pipeline, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("模型上下文不能为空")
	}
	classifier, err := alert.NewClassifier(config.HazardLabels, config.AlertThreshold, config.DisplayThreshold)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		config:     config,
		models:     m,
		normalizer: audio.NewNormalizer(config),
		windower:   audio.NewWindower(config.SampleRate),
		alerts:     classifier,
		metrics:    metrics,
	}, nil
}

// Models 返回流水线使用的模型上下文
func (p *Pipeline) Models() *Models {
	return p.models
}

// Handle 处理一次请求，总是返回结构完整的结果
// 任何阶段失败（包括 panic）都会转换为带 error 字段的结果，临时文件在所有路径上都会被删除
func (p *Pipeline) Handle(ctx context.Context, req Request) (res models.TaskResult) {
	st := req.Task.strategy()
	if st == nil {
		if req.Owned {
			if err := utils.RemoveIfExists(req.Path); err != nil {
				utils.Warn("删除上传文件失败 %s: %v", req.Path, err)
			}
		}
		return &models.ErrorResult{Error: fmt.Sprintf("未知的任务类型: %s", req.Task)}
	}

	start := time.Now()
	scope := audio.NewTempScope(p.config.TempDir)
	if req.Owned {
		scope.Track(req.Path)
	}
	log := utils.RequestLogger(scope.ID(), req.Task.String(), req.displayName())
	outcome := utils.KindOf(nil)
	p.metrics.begin()

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("处理请求时发生异常: %v", r)
			res = st.failed(req, fmt.Sprintf("内部错误: %v", r))
			outcome = "internal"
		}
		if err := scope.Close(); err != nil {
			log.Warnf("清理临时文件失败: %v", err)
		}
		p.metrics.observeRequest(req.Task, outcome, time.Since(start))
		log.Debugf("请求结束, 耗时 %s", utils.FormatTimeDuration(time.Since(start).Seconds()))
	}()

	log.Info("开始处理")
	wf, err := p.normalizer.Normalize(ctx, req.Path, scope)
	if err == nil {
		log.Debugf("归一化完成: %d 样本, %.2f 秒", wf.Len(), wf.Duration().Seconds())
		res, err = st.run(ctx, p, wf, req)
	}
	if err != nil {
		outcome = utils.KindOf(err)
		log.WithField("kind", outcome).Warnf("处理失败: %v", err)
		return st.failed(req, err.Error())
	}

	log.Info("处理完成")
	return res
}
