package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccp-p/audio-analyzer/pkg/models"
	"github.com/ccp-p/audio-analyzer/pkg/pipeline"
)

func sampleResults() []pipeline.BatchResult {
	return []pipeline.BatchResult{
		{
			FilePath:    "/in/a.wav",
			Result:      &models.EmotionResult{Filename: "a.wav", DominantEmotion: "happy", Confidence: "80.00%", Emotions: map[string]float64{"happy": 80}},
			ProcessTime: time.Second,
		},
		{
			FilePath: "/in/b.wav",
			Result:   &models.EmotionResult{Filename: "b.wav", Error: "无法解析音频文件"},
		},
	}
}

func TestWriteResultsJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResults(&buf, sampleResults(), formatJSON, false))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"archivo":"a.wav","emocion_dominante":"happy","confianza":"80.00%","emociones":{"happy":80},"tiempo_proceso":0}`, lines[0])
	// 失败只输出 error
	assert.JSONEq(t, `{"error":"无法解析音频文件"}`, lines[1])
}

func TestWriteResultsSRT(t *testing.T) {
	results := []pipeline.BatchResult{
		{FilePath: "a.wav", Result: &models.TranscriptionResult{
			Text:     "Hola mundo",
			Segments: []models.DataSegment{{Text: "Hola", StartTime: 0, EndTime: 1.5}, {Text: "mundo", StartTime: 1.5, EndTime: 3}},
		}},
		{FilePath: "b.wav", Result: &models.TranscriptionResult{Error: "模型推理失败"}},
	}

	var buf bytes.Buffer
	require.NoError(t, writeResults(&buf, results, formatSRT, false))
	out := buf.String()
	assert.Contains(t, out, "00:00:00,000 --> 00:00:01,500")
	assert.Contains(t, out, "Hola")
	assert.Contains(t, out, "mundo")
	assert.NotContains(t, out, "模型推理失败")
}

func TestPrintSummary(t *testing.T) {
	results := append(sampleResults(), pipeline.BatchResult{
		FilePath: "/in/c.wav",
		Result: &models.EnvironmentResult{
			Filename:    "c.wav",
			RiskVerdict: models.RiskElevated,
			Alerts:      []string{"Siren"},
		},
	})

	var buf bytes.Buffer
	failed := printSummary(&buf, results)

	assert.Equal(t, 1, failed)
	out := buf.String()
	assert.Contains(t, out, "a.wav happy 80.00%")
	assert.Contains(t, out, "b.wav 失败: 无法解析音频文件")
	assert.Contains(t, out, "PELIGRO DETECTADO [Siren]")
	assert.Contains(t, out, "共 3 个文件，成功 2，失败 1")
}
