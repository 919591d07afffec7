package convert

import (
	"path/filepath"
	"slices"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"h2svg/config"
	"h2svg/state"
)

func setupTestEnvForOutputPath(t *testing.T, noDirs bool, transliterate bool, template string) *state.LocalEnv {
	t.Helper()
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Document.FileNameTransliterate = transliterate
	cfg.Document.OutputNameTemplate = template
	return &state.LocalEnv{Log: logger, Cfg: cfg, NoDirs: noDirs}
}

func testValues() Values {
	return Values{Source: "page", Index: 2, Count: 3, ID: "intro", Class: "lead", Tag: "p", Title: "My Page"}
}

func TestBuildOutputPath(t *testing.T) {
	dst := filepath.Join("out", "dir")
	tests := []struct {
		name          string
		noDirs        bool
		transliterate bool
		template      string
		src           string
		values        func(Values) Values
		want          string
	}{
		{
			name: "numbered when several elements",
			src:  "page.html",
			want: filepath.Join(dst, "page-2.svg"),
		},
		{
			name:   "single element",
			src:    "page.html",
			values: func(v Values) Values { v.Count = 1; return v },
			want:   filepath.Join(dst, "page.svg"),
		},
		{
			name: "keeps source directories",
			src:  filepath.Join("a", "b", "page.html"),
			want: filepath.Join(dst, "a", "b", "page-2.svg"),
		},
		{
			name:   "no dirs",
			noDirs: true,
			src:    filepath.Join("a", "b", "page.html"),
			want:   filepath.Join(dst, "page-2.svg"),
		},
		{
			name:          "transliterate",
			transliterate: true,
			src:           "Страница.html",
			values:        func(v Values) Values { v.Source = "Страница"; return v },
			want:          filepath.Join(dst, "stranitsa-2.svg"),
		},
		{
			name:     "template",
			template: "{{ .Tag }}-{{ .ID }}",
			src:      "page.html",
			want:     filepath.Join(dst, "p-intro.svg"),
		},
		{
			name:     "template with subdirectories",
			template: "{{ .Source }}/{{ printf \"%03d\" .Index }}",
			src:      "page.html",
			want:     filepath.Join(dst, "page", "002.svg"),
		},
		{
			name:          "template transliterated",
			transliterate: true,
			template:      "{{ .Title }}",
			src:           "page.html",
			want:          filepath.Join(dst, "my-page.svg"),
		},
		{
			name:     "template cannot escape destination",
			template: "../{{ .Tag }}",
			src:      "page.html",
			want:     filepath.Join(dst, "p.svg"),
		},
		{
			name:     "empty template result falls back",
			template: "{{ if false }}x{{ end }}",
			src:      "page.html",
			want:     filepath.Join(dst, "page-2.svg"),
		},
		{
			name:     "broken template falls back",
			template: "{{ .Unknown }",
			src:      "page.html",
			want:     filepath.Join(dst, "page-2.svg"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnvForOutputPath(t, tt.noDirs, tt.transliterate, tt.template)
			v := testValues()
			if tt.values != nil {
				v = tt.values(v)
			}
			if got := buildOutputPath(v, tt.src, dst, env); got != tt.want {
				t.Errorf("buildOutputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNameSegments(t *testing.T) {
	tests := []struct {
		name string
		want []string
	}{
		{"file", []string{"file"}},
		{"a/b/file", []string{"a", "b", "file"}},
		{filepath.Join("a", "file") + string(filepath.Separator), []string{"a", "file"}},
		{"../../etc/./file", []string{"etc", "file"}},
		{" / ", nil},
		{"", nil},
	}
	for _, tt := range tests {
		if got := nameSegments(tt.name); !slices.Equal(got, tt.want) {
			t.Errorf("nameSegments(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
