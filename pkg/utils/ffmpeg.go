package utils

import (
	"os"
	"os/exec"
	"strings"
)

// CheckFFmpeg 检查指定路径的 ffmpeg 是否可用，path 为空时使用 PATH 中的 ffmpeg
func CheckFFmpeg(path string) bool {
	if path == "" {
		path = "ffmpeg"
	}
	cmd := exec.Command(path, "-version")
	err := cmd.Run()
	return err == nil
}

// DetectDevice 在进程启动时确定计算设备
// preferred 为 "auto" 或空时根据环境探测，否则原样返回
func DetectDevice(preferred string) string {
	preferred = strings.ToLower(strings.TrimSpace(preferred))
	if preferred != "" && preferred != "auto" {
		return preferred
	}
	if v, ok := os.LookupEnv("CUDA_VISIBLE_DEVICES"); ok && v != "" && v != "-1" {
		return "cuda"
	}
	if _, err := exec.LookPath("nvidia-smi"); err == nil {
		return "cuda"
	}
	return "cpu"
}
