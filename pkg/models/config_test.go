package models

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	// 验证默认值是否正确设置
	assert.Equal(t, 16000, config.SampleRate)
	assert.Equal(t, 3.0, config.WindowSeconds)
	assert.Equal(t, 2.0, config.StrideSeconds)
	assert.Equal(t, 5, config.TopK)
	assert.Equal(t, 5.0, config.DisplayThreshold)
	assert.Equal(t, 15.0, config.AlertThreshold)
	assert.Contains(t, config.HazardLabels, "Siren")
	assert.Contains(t, config.HazardLabels, "Screaming")
	assert.NoError(t, config.Validate())
}

func TestConfigValidate(t *testing.T) {
	config := NewDefaultConfig()

	config.MaxRetries = 0
	err := config.Validate()
	assert.Error(t, err)
	configErr, ok := err.(*ConfigValidationError)
	assert.True(t, ok)
	assert.Equal(t, "MaxRetries", configErr.Field)

	config.MaxRetries = 3
	config.StrideSeconds = 0
	err = config.Validate()
	configErr, ok = err.(*ConfigValidationError)
	assert.True(t, ok)
	assert.Equal(t, "StrideSeconds", configErr.Field)

	// 步长大于窗口是合法的稀疏采样
	config.StrideSeconds = 4
	assert.NoError(t, config.Validate())
}

func TestConfigValidateAlertAboveDisplay(t *testing.T) {
	config := NewDefaultConfig()
	config.AlertThreshold = config.DisplayThreshold

	err := config.Validate()
	configErr, ok := err.(*ConfigValidationError)
	assert.True(t, ok)
	assert.Equal(t, "AlertThreshold", configErr.Field)
}

func TestConfigSaveAndLoadJSON(t *testing.T) {
	tempFile := filepath.Join(t.TempDir(), "config.json")

	originalConfig := NewDefaultConfig()
	originalConfig.WindowSeconds = 4
	originalConfig.StrideSeconds = 1
	originalConfig.Emotion.URL = "http://emotion:9000"
	require.NoError(t, originalConfig.SaveToFile(tempFile))

	loaded := NewDefaultConfig()
	require.NoError(t, loaded.LoadFromFile(tempFile))
	assert.Equal(t, 4.0, loaded.WindowSeconds)
	assert.Equal(t, 1.0, loaded.StrideSeconds)
	assert.Equal(t, "http://emotion:9000", loaded.Emotion.URL)
}

func TestConfigLoadYAML(t *testing.T) {
	tempFile := filepath.Join(t.TempDir(), "config.yaml")
	content := `
sample_rate: 16000
top_k: 3
alert_threshold: 20
hazard_labels:
  - Siren
  - Explosion
environment:
  url: http://env:8003
  name: ast
`
	require.NoError(t, os.WriteFile(tempFile, []byte(content), 0644))

	config := NewDefaultConfig()
	require.NoError(t, config.LoadFromFile(tempFile))
	assert.Equal(t, 3, config.TopK)
	assert.Equal(t, 20.0, config.AlertThreshold)
	assert.Equal(t, []string{"Siren", "Explosion"}, config.HazardLabels)
	assert.Equal(t, "http://env:8003", config.Environment.URL)
	// 未出现的字段保留默认值
	assert.Equal(t, 3.0, config.WindowSeconds)
}

func TestConfigLoadInvalid(t *testing.T) {
	tempFile := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(tempFile, []byte(`{"top_k": 0}`), 0644))

	config := NewDefaultConfig()
	assert.Error(t, config.LoadFromFile(tempFile))
	assert.Error(t, config.LoadFromFile(filepath.Join(t.TempDir(), "missing.json")))
}

func TestConfigUpdateRollback(t *testing.T) {
	config := NewDefaultConfig()

	require.NoError(t, config.Update(map[string]interface{}{"max_workers": 8}))
	assert.Equal(t, 8, config.MaxWorkers)

	// 无效更新会回滚
	err := config.Update(map[string]interface{}{"alert_threshold": 1.0})
	assert.Error(t, err)
	assert.Equal(t, 15.0, config.AlertThreshold)
	assert.Equal(t, 8, config.MaxWorkers)
}

func TestConfigPrintConfig(t *testing.T) {
	config := NewDefaultConfig()
	config.ListenAddr = ":9100"

	var buf bytes.Buffer
	require.NoError(t, config.PrintConfig(&buf))
	assert.Contains(t, buf.String(), "listen_addr:")

	var back Config
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, ":9100", back.ListenAddr)
	assert.Equal(t, config.HazardLabels, back.HazardLabels)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CONFIG_ENV", "does-not-exist")
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, NewDefaultConfig().ListenAddr, cfg.ListenAddr)
}
