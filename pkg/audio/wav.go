package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/ccp-p/audio-analyzer/pkg/models"
)

// WAV 格式常量
const (
	wavFormatPCM   = 1
	outputBitDepth = 16
)

// errNotPCMWAV 输入不是可直接解码的 PCM WAV，需要交给 ffmpeg 转码
var errNotPCMWAV = errors.New("不是 PCM WAV 文件")

// decodeWAV 解码 PCM WAV 数据并混缩为单声道，保持原采样率
func decodeWAV(r io.ReadSeeker) (*models.Waveform, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, errNotPCMWAV
	}
	if d.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: 编码格式 %d", errNotPCMWAV, d.WavAudioFormat)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("读取 PCM 数据失败: %w", err)
	}

	channels := int(d.NumChans)
	sampleRate := int(d.SampleRate)
	bitDepth := int(d.BitDepth)
	if channels < 1 || sampleRate <= 0 || bitDepth <= 0 {
		return nil, fmt.Errorf("无效的 WAV 头: channels=%d rate=%d bits=%d", channels, sampleRate, bitDepth)
	}

	return &models.Waveform{
		Samples:    Downmix(buf.Data, channels, bitDepth),
		SampleRate: sampleRate,
		Channels:   1,
	}, nil
}

// decodeWAVFile 从文件解码 WAV
func decodeWAVFile(path string) (*models.Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeWAV(f)
}

// Downmix 将交错的整数 PCM 样本按帧取各声道平均值，并归一化到 [-1, 1]
func Downmix(data []int, channels, bitDepth int) []float64 {
	if channels < 1 {
		channels = 1
	}
	scale := math.Pow(2, float64(bitDepth-1))
	// 8 位 WAV 是无符号样本
	var offset float64
	if bitDepth == 8 {
		offset = 128
	}

	frames := len(data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += (float64(data[i*channels+c]) - offset) / scale
		}
		out[i] = sum / float64(channels)
	}
	return out
}

// Resample 使用线性插值将样本从 fromRate 转换到 toRate
func Resample(samples []float64, fromRate, toRate int) ([]float64, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("无效的采样率: from=%d, to=%d", fromRate, toRate)
	}

	if fromRate == toRate {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out, nil
	}

	n := len(samples)
	if n == 0 {
		return []float64{}, nil
	}

	outLen := int(float64(n) * float64(toRate) / float64(fromRate))
	out := make([]float64, outLen)
	ratio := float64(fromRate) / float64(toRate)

	for i := 0; i < outLen; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		if srcIdx >= n-1 {
			out[i] = samples[n-1]
		} else {
			s0 := samples[srcIdx]
			s1 := samples[srcIdx+1]
			out[i] = s0 + frac*(s1-s0)
		}
	}
	return out, nil
}

// WriteWAV 将单声道波形写为 16 位 PCM WAV 文件
func WriteWAV(path string, wf *models.Waveform) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	e := wav.NewEncoder(f, wf.SampleRate, outputBitDepth, 1, wavFormatPCM)
	scale := math.Pow(2, outputBitDepth-1) - 1
	data := make([]int, len(wf.Samples))
	for i, s := range wf.Samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		data[i] = int(math.Round(s * scale))
	}

	if err = e.Write(&goaudio.IntBuffer{
		Data: data,
		Format: &goaudio.Format{
			NumChannels: 1,
			SampleRate:  wf.SampleRate,
		},
		SourceBitDepth: outputBitDepth,
	}); err != nil {
		e.Close()
		f.Close()
		return fmt.Errorf("写入 WAV 数据失败: %w", err)
	}

	if err = e.Close(); err != nil {
		f.Close()
		return fmt.Errorf("关闭 WAV 编码器失败: %w", err)
	}
	return f.Close()
}

// WriteWAVInt 按指定声道数和位深写入交错的整数样本，主要用于生成测试素材
func WriteWAVInt(path string, data []int, sampleRate, channels, bitDepth int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	e := wav.NewEncoder(f, sampleRate, bitDepth, channels, wavFormatPCM)
	if err = e.Write(&goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: bitDepth,
	}); err != nil {
		e.Close()
		f.Close()
		return err
	}
	if err = e.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
