package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewBuildsUsableLogger(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{
			name: "console to stdout",
			cfg:  &Config{Level: "debug", Format: "console", Output: "stdout"},
		},
		{
			name: "json to stderr",
			cfg:  &Config{Level: "info", Format: "json", Output: "stderr", TimeFormat: "2006-01-02T15:04:05Z07:00"},
		},
		{
			name: "empty config falls back everywhere",
			cfg:  &Config{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			require.NoError(t, err)
			require.NotNil(t, log)
			assert.NotPanics(t, func() {
				log.Info("startup")
			})
		})
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	log.Info("file sink check")
	require.NoError(t, Sync(log))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "file sink check")
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"nonsense", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, levelFor(tt.level))
		})
	}
}

func TestNewSinkUnopenableFileFallsBack(t *testing.T) {
	// A directory path cannot be opened as a log file
	sink := newSink(t.TempDir())
	assert.NotNil(t, sink)
}

func TestJSONEncoderFieldKeys(t *testing.T) {
	var buf bytes.Buffer
	core := zapcore.NewCore(
		newEncoder("json", defaultTimeLayout),
		zapcore.AddSync(&buf),
		zapcore.InfoLevel,
	)
	log := zap.New(core)

	log.Info("dispensation recorded", zap.String("prescription_id", "rx-1"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "dispensation recorded", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "rx-1", entry["prescription_id"])
	assert.Contains(t, entry, "time")
}

func TestLevelGatesOutput(t *testing.T) {
	var buf bytes.Buffer
	core := zapcore.NewCore(
		newEncoder("json", defaultTimeLayout),
		zapcore.AddSync(&buf),
		levelFor("warn"),
	)
	log := zap.New(core)

	log.Info("below threshold")
	assert.Empty(t, buf.String())

	log.Warn("above threshold")
	assert.Contains(t, buf.String(), "above threshold")
}
