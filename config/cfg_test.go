package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}
	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}
	if cfg.Document.Selector != "p" {
		t.Errorf("Selector = %q, want %q", cfg.Document.Selector, "p")
	}
	if cfg.Document.SVG.Decimals != 1 {
		t.Errorf("Decimals = %d, want 1", cfg.Document.SVG.Decimals)
	}
	if cfg.Document.SVG.BaselineShift != 0.25 {
		t.Errorf("BaselineShift = %v, want 0.25", cfg.Document.SVG.BaselineShift)
	}
}

func TestLoadConfiguration_DefaultStyleTable(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	want := []string{"font-family", "font-size", "font-weight", "font-style", "font-stretch",
		"color", "letter-spacing", "text-decoration", "text-transform"}
	styles := cfg.Document.SVG.Styles
	if len(styles) != len(want) {
		t.Fatalf("len(Styles) = %d, want %d", len(styles), len(want))
	}
	for i, name := range want {
		if styles[i].Name != name {
			t.Errorf("Styles[%d].Name = %q, want %q", i, styles[i].Name, name)
		}
	}
	if len(styles[0].Defaults) != 0 {
		t.Errorf("font-family defaults = %v, want empty", styles[0].Defaults)
	}
	if got := strings.Join(styles[7].Defaults, "|"); got != "none|none solid rgb(0, 0, 0)" {
		t.Errorf("text-decoration defaults = %q", got)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	path := writeConfig(t, `version: 1
document:
  selector: "div.note"
  svg:
    decimals: 2
    styles:
      - name: font-size
        defaults: ["12"]
      - name: color
        defaults: []
  layout:
    width: 320
    hyphenation:
      enable: false
logging:
  console:
    level: debug
reporting:
  destination: `+filepath.Join(t.TempDir(), "report.zip")+`
`)

	cfg, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if cfg.Document.Selector != "div.note" {
		t.Errorf("Selector = %q", cfg.Document.Selector)
	}
	if cfg.Document.SVG.Decimals != 2 {
		t.Errorf("Decimals = %d, want 2", cfg.Document.SVG.Decimals)
	}
	if len(cfg.Document.SVG.Styles) != 2 {
		t.Errorf("user style table must replace default one, got %d entries", len(cfg.Document.SVG.Styles))
	}
	if cfg.Document.Layout.Width != 320 {
		t.Errorf("Width = %v, want 320", cfg.Document.Layout.Width)
	}
	// untouched values keep defaults
	if cfg.Document.Layout.FontSize != 16 {
		t.Errorf("FontSize = %v, want 16", cfg.Document.Layout.FontSize)
	}
	if cfg.Document.Layout.Hyphenation.Enable {
		t.Error("Expected hyphenation to be disabled")
	}
}

func TestLoadConfiguration_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid yaml", "version: 1\ndocument:\n  selector: p\n  invalid indent\n"},
		{"unknown field", "version: 1\nunknown_field: value\n"},
		{"bad version", "version: 2\n"},
		{"decimals out of range", "version: 1\ndocument:\n  svg:\n    decimals: 9\n"},
		{"empty selector", "version: 1\ndocument:\n  selector: \"\"\n"},
		{"unnamed style", "version: 1\ndocument:\n  svg:\n    styles:\n      - defaults: [\"x\"]\n"},
		{"bad selector", "version: 1\ndocument:\n  selector: \"p[\"\n"},
		{"duplicate style", "version: 1\ndocument:\n  svg:\n    styles:\n      - name: color\n      - name: Color\n"},
		{"bad language", "version: 1\ndocument:\n  layout:\n    hyphenation:\n      enable: true\n      language: \"toolongsubtag\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfiguration(writeConfig(t, tt.content)); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestLoadConfiguration_NonExistentFile(t *testing.T) {
	if _, err := LoadConfiguration("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Prepare() returned empty data")
	}
	if _, err := decode(data, &Config{}, true); err != nil {
		t.Errorf("Prepared config is not valid: %v", err)
	}
}

func TestDump(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}

	restored, err := decode(data, &Config{}, false)
	if err != nil {
		t.Fatalf("Dumped config cannot be loaded: %v", err)
	}
	if restored.Document.Selector != cfg.Document.Selector {
		t.Errorf("Selector = %q, want %q", restored.Document.Selector, cfg.Document.Selector)
	}
	if len(restored.Document.SVG.Styles) != len(cfg.Document.SVG.Styles) {
		t.Errorf("Styles length = %d, want %d", len(restored.Document.SVG.Styles), len(cfg.Document.SVG.Styles))
	}
}
