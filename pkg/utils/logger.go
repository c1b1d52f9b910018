package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// 日志级别常量
const (
	LogLevelVerbose = "VERBOSE"
	LogLevelNormal  = "INFO"
	LogLevelWarn    = "WARN"
)

var (
	// Log 全局日志实例，InitLogger 之前为 nil
	Log *logrus.Logger
	// 当前日志文件，SuspendConsole 优先写到这里
	logFilePath string
)

// InitLogger 初始化日志系统
// level: 日志级别 (VERBOSE/INFO/WARN/ERROR)，大小写不敏感，也接受 debug
// logFile: 日志文件路径，空字符串表示仅输出到标准错误
func InitLogger(level string, logFile string) error {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	// 标准输出留给分析结果
	l.SetOutput(os.Stderr)
	if logFile != "" {
		if err := EnsureDirExists(filepath.Dir(logFile)); err != nil {
			return fmt.Errorf("创建日志目录失败: %w", err)
		}
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("打开日志文件失败: %w", err)
		}
		l.SetOutput(io.MultiWriter(os.Stderr, file))
	}

	switch strings.ToUpper(level) {
	case LogLevelVerbose, "DEBUG":
		l.SetLevel(logrus.DebugLevel)
	case LogLevelWarn, "WARNING":
		l.SetLevel(logrus.WarnLevel)
	case "ERROR":
		l.SetLevel(logrus.ErrorLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}

	Log = l
	logFilePath = logFile
	return nil
}

// SuspendConsole 在终端进度条显示期间把日志只写到文件
// 未配置日志文件时写到临时目录下的 audio-analyzer.log。返回的函数恢复原输出。
func SuspendConsole() (restore func()) {
	l := logger()
	path := logFilePath
	if path == "" {
		path = filepath.Join(os.TempDir(), "audio-analyzer.log")
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		l.Warnf("无法打开日志文件 %s，日志继续输出到终端: %v", path, err)
		return func() {}
	}

	prev := l.Out
	l.SetOutput(file)
	return func() {
		l.SetOutput(prev)
		file.Close()
	}
}

// logger 返回全局实例，未初始化时退回到 logrus 标准实例
func logger() *logrus.Logger {
	if Log != nil {
		return Log
	}
	return logrus.StandardLogger()
}

func logf(level logrus.Level, format string, args []interface{}) {
	if len(args) == 0 {
		logger().Log(level, format)
		return
	}
	logger().Logf(level, format, args...)
}

// Debug 输出调试日志
func Debug(format string, args ...interface{}) { logf(logrus.DebugLevel, format, args) }

// Info 输出信息日志
func Info(format string, args ...interface{}) { logf(logrus.InfoLevel, format, args) }

// Warn 输出警告日志
func Warn(format string, args ...interface{}) { logf(logrus.WarnLevel, format, args) }

// Error 输出错误日志
func Error(format string, args ...interface{}) { logf(logrus.ErrorLevel, format, args) }

// Fatal 输出致命错误日志并退出
func Fatal(format string, args ...interface{}) {
	logf(logrus.FatalLevel, format, args)
	logger().Exit(1)
}

// IsVerbose 当前是否输出调试日志
func IsVerbose() bool {
	return logger().IsLevelEnabled(logrus.DebugLevel)
}

// WithField 创建带字段的日志条目
func WithField(key string, value interface{}) *logrus.Entry {
	return logger().WithField(key, value)
}

// WithFields 创建带多个字段的日志条目
func WithFields(fields logrus.Fields) *logrus.Entry {
	return logger().WithFields(fields)
}

// RequestLogger 返回携带请求上下文字段的日志条目
func RequestLogger(requestID, task, file string) *logrus.Entry {
	return WithFields(logrus.Fields{
		"request_id": requestID,
		"task":       task,
		"file":       file,
	})
}
