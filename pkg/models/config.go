package models

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ccp-p/audio-analyzer/pkg/utils"
)

// ModelService 描述一个远程模型服务
type ModelService struct {
	URL  string `json:"url" yaml:"url"`   // 服务地址
	Name string `json:"name" yaml:"name"` // 模型名称，仅用于日志和健康检查
}

// Config 表示应用程序的配置
type Config struct {
	// 音频归一化
	SampleRate int    `json:"sample_rate" yaml:"sample_rate"` // 规范采样率 (Hz)
	FFmpegPath string `json:"ffmpeg_path" yaml:"ffmpeg_path"` // ffmpeg 可执行文件
	TempDir    string `json:"temp_dir" yaml:"temp_dir"`       // 临时目录，空表示系统临时目录

	// 分窗与聚合
	WindowSeconds    float64  `json:"window_seconds" yaml:"window_seconds"`       // 情绪分析窗口长度（秒）
	StrideSeconds    float64  `json:"stride_seconds" yaml:"stride_seconds"`       // 情绪分析窗口步长（秒）
	EnvClipSeconds   float64  `json:"env_clip_seconds" yaml:"env_clip_seconds"`   // 环境分析截取的开头时长（秒）
	TopK             int      `json:"top_k" yaml:"top_k"`                         // 环境分析展示的标签数
	DisplayThreshold float64  `json:"display_threshold" yaml:"display_threshold"` // 展示阈值（百分比）
	AlertThreshold   float64  `json:"alert_threshold" yaml:"alert_threshold"`     // 告警阈值（百分比）
	HazardLabels     []string `json:"hazard_labels" yaml:"hazard_labels"`         // 危险声音标签白名单

	// 推理
	MaxWorkers   int          `json:"max_workers" yaml:"max_workers"`     // 单请求内并发打分的窗口数
	Device       string       `json:"device" yaml:"device"`               // auto/cpu/cuda
	ModelTimeout int          `json:"model_timeout" yaml:"model_timeout"` // 模型调用超时（秒）
	MaxRetries   int          `json:"max_retries" yaml:"max_retries"`     // 启动预热最大重试次数
	RetryDelay   float64      `json:"retry_delay" yaml:"retry_delay"`     // 重试延迟（秒）
	Whisper      ModelService `json:"whisper" yaml:"whisper"`             // 语音转写模型
	Emotion      ModelService `json:"emotion" yaml:"emotion"`             // 情绪分类模型（单标签）
	Environment  ModelService `json:"environment" yaml:"environment"`     // 环境声音分类模型（多标签）

	// 服务
	ListenAddr  string `json:"listen_addr" yaml:"listen_addr"`     // HTTP 监听地址
	MaxUploadMB int    `json:"max_upload_mb" yaml:"max_upload_mb"` // 上传文件大小上限
	WatchFolder string `json:"watch_folder" yaml:"watch_folder"`   // watch 模式监听的目录

	// 日志
	LogLevel string `json:"log_level" yaml:"log_level"` // 日志级别
	LogFile  string `json:"log_file" yaml:"log_file"`   // 日志文件
}

// DefaultHazardLabels 默认的危险声音标签（AudioSet 命名）
var DefaultHazardLabels = []string{
	"Siren",
	"Civil defense siren",
	"Police car (siren)",
	"Ambulance (siren)",
	"Fire engine, fire truck (siren)",
	"Gunshot, gunfire",
	"Machine gun",
	"Explosion",
	"Glass",
	"Shatter",
	"Screaming",
	"Fire alarm",
	"Smoke detector, smoke alarm",
}

// ConfigValidationError 表示配置验证错误
type ConfigValidationError struct {
	Field   string
	Message string
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("配置验证错误: %s - %s", e.Field, e.Message)
}

// NewDefaultConfig 创建默认配置
func NewDefaultConfig() *Config {
	return &Config{
		SampleRate:       16000,
		FFmpegPath:       "ffmpeg",
		TempDir:          "",
		WindowSeconds:    3.0,
		StrideSeconds:    2.0,
		EnvClipSeconds:   10.0,
		TopK:             5,
		DisplayThreshold: 5.0,
		AlertThreshold:   15.0,
		HazardLabels:     append([]string(nil), DefaultHazardLabels...),
		MaxWorkers:       4,
		Device:           "auto",
		ModelTimeout:     60,
		MaxRetries:       3,
		RetryDelay:       1.0,
		Whisper:          ModelService{URL: "http://localhost:8001", Name: "whisper-base"},
		Emotion:          ModelService{URL: "http://localhost:8002", Name: "wav2vec2-emotion"},
		Environment:      ModelService{URL: "http://localhost:8003", Name: "ast-audioset"},
		ListenAddr:       ":8000",
		MaxUploadMB:      25,
		WatchFolder:      "./inbox",
		LogLevel:         "INFO",
		LogFile:          "",
	}
}

// Validate 验证配置是否有效
func (c *Config) Validate() error {
	if c.SampleRate < 8000 || c.SampleRate > 48000 {
		return &ConfigValidationError{"SampleRate", "必须在8000-48000之间"}
	}

	if c.WindowSeconds <= 0 || c.WindowSeconds > 60 {
		return &ConfigValidationError{"WindowSeconds", "必须在0-60秒之间"}
	}

	// 步长可以大于窗口，此时窗口之间留有间隙
	if c.StrideSeconds <= 0 {
		return &ConfigValidationError{"StrideSeconds", "必须大于0"}
	}

	if c.EnvClipSeconds <= 0 {
		return &ConfigValidationError{"EnvClipSeconds", "必须大于0"}
	}

	if c.TopK < 1 {
		return &ConfigValidationError{"TopK", "必须大于等于1"}
	}

	if c.DisplayThreshold < 0 || c.DisplayThreshold > 100 {
		return &ConfigValidationError{"DisplayThreshold", "必须在0-100之间"}
	}

	// 告警必须是展示结果的严格子集
	if c.AlertThreshold <= c.DisplayThreshold || c.AlertThreshold > 100 {
		return &ConfigValidationError{"AlertThreshold", "必须大于展示阈值且不超过100"}
	}

	if len(c.HazardLabels) == 0 {
		return &ConfigValidationError{"HazardLabels", "不能为空"}
	}

	if c.MaxWorkers < 1 || c.MaxWorkers > 64 {
		return &ConfigValidationError{"MaxWorkers", "必须在1-64之间"}
	}

	if c.MaxRetries < 1 || c.MaxRetries > 10 {
		return &ConfigValidationError{"MaxRetries", "必须在1-10之间"}
	}

	if c.RetryDelay < 0 || c.RetryDelay > 10.0 {
		return &ConfigValidationError{"RetryDelay", "必须在0-10.0秒之间"}
	}

	if c.ModelTimeout < 1 {
		return &ConfigValidationError{"ModelTimeout", "必须大于等于1秒"}
	}

	if c.MaxUploadMB < 1 {
		return &ConfigValidationError{"MaxUploadMB", "必须大于等于1"}
	}

	if err := utils.EnsureDirExists(c.TempDir); err != nil {
		return &ConfigValidationError{"TempDir", err.Error()}
	}

	return nil
}

// ModelTimeoutDuration 返回模型调用超时时长
func (c *Config) ModelTimeoutDuration() time.Duration {
	return time.Duration(c.ModelTimeout) * time.Second
}

// LoadFromFile 从文件加载配置，按扩展名选择 JSON 或 YAML
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		utils.Error("读取配置文件失败: %v", err)
		return err
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, c)
	} else {
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		utils.Error("解析配置文件失败: %v", err)
		return err
	}

	if err := c.Validate(); err != nil {
		utils.Error("配置验证失败: %v", err)
		return err
	}

	return nil
}

// SaveToFile 保存配置到文件
func (c *Config) SaveToFile(path string) error {
	if err := utils.EnsureDirExists(filepath.Dir(path)); err != nil {
		utils.Error("创建目录失败: %v", err)
		return err
	}

	data, err := c.encode(isYAML(path))
	if err != nil {
		utils.Error("序列化配置失败: %v", err)
		return err
	}

	if err = os.WriteFile(path, data, 0644); err != nil {
		utils.Error("写入配置文件失败: %v", err)
		return err
	}

	return nil
}

// Update 批量更新配置
func (c *Config) Update(updates map[string]interface{}) error {
	// 保存当前配置用于回滚
	tempConfig := *c
	tempConfig.HazardLabels = append([]string(nil), c.HazardLabels...)

	// 将更新序列化为JSON再反序列化到结构体中
	updateBytes, err := json.Marshal(updates)
	if err != nil {
		utils.Error("序列化更新数据失败: %v", err)
		return err
	}

	err = json.Unmarshal(updateBytes, c)
	if err != nil {
		*c = tempConfig
		utils.Error("应用配置更新失败: %v", err)
		return err
	}

	if err := c.Validate(); err != nil {
		*c = tempConfig
		utils.Error("配置验证失败: %v", err)
		return err
	}

	return nil
}

// PrintConfig 以 YAML 打印当前配置
func (c *Config) PrintConfig(w io.Writer) error {
	data, err := c.encode(true)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (c *Config) encode(asYAML bool) ([]byte, error) {
	if asYAML {
		return yaml.Marshal(c)
	}
	return json.MarshalIndent(c, "", "  ")
}

// LoadConfig 加载配置：显式路径优先，否则按 CONFIG_ENV 猜测路径，都不存在时使用默认配置
func LoadConfig(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if path != "" {
		if err := cfg.LoadFromFile(path); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	guess := []string{
		filepath.Join("config", env, "config.yaml"),
		filepath.Join("config", env, "config.json"),
	}
	for _, p := range guess {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := cfg.LoadFromFile(p); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
