package state

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"h2svg/config"
)

func TestContextWithEnv(t *testing.T) {
	env := EnvFromContext(ContextWithEnv(context.Background()))
	if env == nil {
		t.Fatal("EnvFromContext() returned nil")
	}
	if env.start.IsZero() {
		t.Error("Environment start time not set")
	}
	if !strings.Contains(string(env.DefaultStyle), "display") {
		t.Error("Default user agent stylesheet not set")
	}
}

func TestEnvFromContext_Missing(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic when env not in context")
		}
	}()
	EnvFromContext(context.Background())
}

func TestLocalEnv_Uptime(t *testing.T) {
	env := &LocalEnv{start: time.Now()}
	time.Sleep(10 * time.Millisecond)
	if uptime := env.Uptime(); uptime < 10*time.Millisecond {
		t.Errorf("Uptime() = %v, expected at least 10ms", uptime)
	}
}

func TestLocalEnv_StdLog(t *testing.T) {
	tests := []struct {
		name    string
		log     *zap.Logger
		restore bool
	}{
		{"with logger", zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1))), true},
		{"without logger", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := &LocalEnv{Log: tt.log}
			for range 2 {
				env.RedirectStdLog()
				if (env.undoSL != nil) != tt.restore {
					t.Errorf("undoSL set = %v, want %v", env.undoSL != nil, tt.restore)
				}
				env.RestoreStdLog()
			}
		})
	}
}

func TestLocalEnv_LoadUserStyle(t *testing.T) {
	css := filepath.Join(t.TempDir(), "extra.css")
	if err := os.WriteFile(css, []byte("p { color: red }"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{"not configured", "", "", false},
		{"present", css, "p { color: red }", false},
		{"missing", filepath.Join(t.TempDir(), "absent.css"), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := &LocalEnv{Cfg: &config.Config{}}
			env.Cfg.Document.StylesheetPath = tt.path
			err := env.LoadUserStyle()
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadUserStyle() error = %v, wantErr %v", err, tt.wantErr)
			}
			if string(env.UserStyle) != tt.want {
				t.Errorf("UserStyle = %q, want %q", env.UserStyle, tt.want)
			}
		})
	}
}
