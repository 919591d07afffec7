package debug

import (
	"testing"
)

func TestTreeWriter_Line(t *testing.T) {
	tests := []struct {
		name   string
		depth  int
		format string
		args   []any
		want   string
	}{
		{"no depth", 0, "test", nil, "test\n"},
		{"depth 2", 2, "double indent", nil, "    double indent\n"},
		{"with formatting", 1, "value: %d", []any{42}, "  value: 42\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTreeWriter()
			tw.Line(tt.depth, tt.format, tt.args...)
			if got := tw.String(); got != tt.want {
				t.Errorf("Line() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTreeWriter_TextBlock(t *testing.T) {
	tests := []struct {
		name  string
		depth int
		label string
		value string
		want  string
	}{
		{"empty value", 0, "field", "", "field: \n"},
		{"trailing space", 1, "text", "hello ", "  text: \"hello \"\n"},
		{"soft hyphen", 0, "text", "ac\u00adcom", "text: \"ac\\u00adcom\"\n"},
		{"quotes", 0, "quoted", `say "hi"`, "quoted: \"say \\\"hi\\\"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTreeWriter()
			tw.TextBlock(tt.depth, tt.label, tt.value)
			if got := tw.String(); got != tt.want {
				t.Errorf("TextBlock() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTreeWriter_Attrs(t *testing.T) {
	tw := NewTreeWriter()
	tw.Attrs(1, "Run[0]", "line", 1, "x", 10.5, "href", "", "hyphenated", false, "link", true)
	if got, want := tw.String(), "  Run[0] line[1] x[10.5] link[true]\n"; got != want {
		t.Errorf("Attrs() = %q, want %q", got, want)
	}
}

func TestTreeWriter_Tree(t *testing.T) {
	tw := NewTreeWriter()
	tw.Line(0, "Layout")
	tw.Attrs(1, "Run[0]", "line", 1)
	tw.TextBlock(2, "text", "Hello ")

	want := "Layout\n  Run[0] line[1]\n    text: \"Hello \"\n"
	if got := tw.String(); got != want {
		t.Errorf("tree:\ngot:\n%s\nwant:\n%s", got, want)
	}
}
