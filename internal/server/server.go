package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ccp-p/audio-analyzer/pkg/models"
	"github.com/ccp-p/audio-analyzer/pkg/pipeline"
	"github.com/ccp-p/audio-analyzer/pkg/utils"
)

// Analyzer 执行一次分析请求，由 pipeline.Pipeline 实现
type Analyzer interface {
	Handle(ctx context.Context, req pipeline.Request) models.TaskResult
}

// Options 服务的可选依赖
type Options struct {
	Device       string              // 启动时选定的计算设备
	ErrorHandler *utils.ErrorHandler // 预热重试统计，出现在健康检查中
	Gatherer     prometheus.Gatherer // 为 nil 时不注册 /metrics
}

// Server 音频分析 HTTP 服务
type Server struct {
	config   *models.Config
	analyzer Analyzer
	opts     Options
	router   *httprouter.Router
}

// New 创建服务并注册路由
func New(config *models.Config, analyzer Analyzer, opts Options) *Server {
	s := &Server{
		config:   config,
		analyzer: analyzer,
		opts:     opts,
		router:   httprouter.New(),
	}

	s.router.POST("/trans", s.handleAnalyze(pipeline.TaskTranscribe))
	s.router.POST("/emotion", s.handleAnalyze(pipeline.TaskEmotion))
	s.router.POST("/environment", s.handleAnalyze(pipeline.TaskEnvironment))
	s.router.GET("/health", s.handleHealth)
	if opts.Gatherer != nil {
		s.router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	s.router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusMethodNotAllowed, "不支持的请求方法: "+r.Method)
	})
	s.router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		utils.Error("处理 %s %s 时发生异常: %v", r.Method, r.URL.Path, v)
		respondWithError(w, http.StatusInternalServerError, "内部服务器错误")
	}
	return s
}

// ServeHTTP 实现 http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run 在 ListenAddr 上启动服务，ctx 结束时优雅关闭
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Info("服务器启动，监听地址 %s", s.config.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		utils.Info("正在关闭服务器...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
