package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLevelOf(t *testing.T) {
	tests := []struct {
		name string
		want zapcore.Level
		on   bool
	}{
		{"debug", zapcore.DebugLevel, true},
		{"normal", zapcore.InfoLevel, true},
		{"none", zapcore.InvalidLevel, false},
		{"", zapcore.InvalidLevel, false},
	}
	for _, tt := range tests {
		if got, on := levelOf(tt.name); got != tt.want || on != tt.on {
			t.Errorf("levelOf(%q) = %v, %v; want %v, %v", tt.name, got, on, tt.want, tt.on)
		}
	}
}

func TestLoggingConfig_PrepareFile(t *testing.T) {
	dir := t.TempDir()
	conf := LoggingConfig{
		ConsoleLogger: LoggerConfig{Level: "none"},
		FileLogger:    LoggerConfig{Level: "normal", Destination: filepath.Join(dir, "run.log"), Mode: "overwrite"},
	}
	log, err := conf.Prepare(nil)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	log.Debug("hidden")
	log.Info("visible")
	_ = log.Sync()

	data, err := os.ReadFile(conf.FileLogger.Destination)
	if err != nil {
		t.Fatalf("log file was not written: %v", err)
	}
	if text := string(data); !strings.Contains(text, "visible") || strings.Contains(text, "hidden") {
		t.Errorf("unexpected log content:\n%s", text)
	}
}
