package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ccp-p/audio-analyzer/pkg/models"
	"github.com/ccp-p/audio-analyzer/pkg/utils"
)

// Normalizer 将任意输入音频转换为规范的单声道、固定采样率波形
type Normalizer struct {
	SampleRate int    // 目标采样率
	FFmpegPath string // ffmpeg 可执行文件
}

// NewNormalizer 根据配置创建归一化器
func NewNormalizer(config *models.Config) *Normalizer {
	ffmpeg := config.FFmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &Normalizer{
		SampleRate: config.SampleRate,
		FFmpegPath: ffmpeg,
	}
}

// Normalize 解码 srcPath 指向的音频，输出 SampleRate 采样率的单声道波形
// PCM WAV 直接解码；其他格式用 ffmpeg 转码到 scope 中登记的临时 WAV 文件再解码。
// 解码失败返回 DecodeError，不会把未转换的原始数据交给下游。
func (n *Normalizer) Normalize(ctx context.Context, srcPath string, scope *TempScope) (*models.Waveform, error) {
	if _, err := os.Stat(srcPath); err != nil {
		return nil, utils.IOError(fmt.Sprintf("无法读取音频文件: %s", srcPath), err)
	}

	wf, err := decodeWAVFile(srcPath)
	switch {
	case err == nil:
		if wf.SampleRate != n.SampleRate {
			utils.Debug("重采样 %d Hz -> %d Hz", wf.SampleRate, n.SampleRate)
			samples, rerr := Resample(wf.Samples, wf.SampleRate, n.SampleRate)
			if rerr != nil {
				return nil, utils.DecodeError("重采样失败", rerr)
			}
			wf = &models.Waveform{Samples: samples, SampleRate: n.SampleRate, Channels: 1}
		}
	case errors.Is(err, errNotPCMWAV):
		wf, err = n.transcode(ctx, srcPath, scope)
		if err != nil {
			return nil, err
		}
	default:
		// WAV 头合法但数据损坏，仍尝试让 ffmpeg 处理
		utils.Debug("WAV 解码失败，改用 ffmpeg: %v", err)
		wf, err = n.transcode(ctx, srcPath, scope)
		if err != nil {
			return nil, err
		}
	}

	if err := n.validate(wf); err != nil {
		return nil, err
	}
	return wf, nil
}

// transcode 调用 ffmpeg 输出单声道、目标采样率的 16 位 PCM WAV
func (n *Normalizer) transcode(ctx context.Context, srcPath string, scope *TempScope) (*models.Waveform, error) {
	wavPath := scope.NewPath(".wav")

	cmd := exec.CommandContext(ctx,
		n.FFmpegPath,
		"-nostdin",
		"-v", "error",
		"-y",
		"-i", srcPath,
		"-ac", "1", // 单声道
		"-ar", strconv.Itoa(n.SampleRate), // 目标采样率
		"-c:a", "pcm_s16le",
		"-f", "wav",
		wavPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	utils.Debug("ffmpeg 转码: %s -> %s", srcPath, wavPath)
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, utils.DecodeError("无法解析音频文件", err)
	}

	wf, err := decodeWAVFile(wavPath)
	if err != nil {
		return nil, utils.DecodeError("无法读取转码后的音频", err)
	}
	return wf, nil
}

// validate 确认下游依赖的采样率和声道约定成立
func (n *Normalizer) validate(wf *models.Waveform) error {
	if wf.SampleRate != n.SampleRate || wf.Channels != 1 {
		return utils.DecodeError(
			fmt.Sprintf("音频格式不符合要求: %d Hz/%d 声道，需要 %d Hz/单声道", wf.SampleRate, wf.Channels, n.SampleRate),
			nil,
		)
	}
	if len(wf.Samples) == 0 {
		return utils.EmptyInputError("音频不包含任何样本")
	}
	return nil
}
