package typeset

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"h2svg/dom"
	"h2svg/extract"
	"h2svg/typeset/hyphen"
)

func parseScope(t *testing.T, body string) *dom.Scope {
	t.Helper()
	d, err := dom.Parse(strings.NewReader("<html><body>"+body+"</body></html>"), "text/html", dom.Options{Log: zap.NewNop()})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	scopes, err := d.Scopes("body > *")
	if err != nil {
		t.Fatalf("Scopes() error = %v", err)
	}
	if len(scopes) == 0 {
		t.Fatalf("no scopes in %q", body)
	}
	return scopes[0]
}

func newEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e, err := NewEngine(opts, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func layoutScope(t *testing.T, e *Engine, scope *dom.Scope) *Snapshot {
	t.Helper()
	s, err := e.Layout(scope)
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	return s
}

func scan(t *testing.T, e *Engine, body string) *extract.LayoutResult {
	t.Helper()
	res, err := extract.NewScanner(extract.DefaultOptions(), zap.NewNop()).Scan(e.Bind(parseScope(t, body)))
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	return res
}

func joined(res *extract.LayoutResult) string {
	var sb strings.Builder
	for _, r := range res.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestLayout_SingleLine(t *testing.T) {
	e := newEngine(t, Options{Width: 500})
	scope := parseScope(t, "<p>Hello world</p>")
	s := layoutScope(t, e, scope)

	outer := s.OuterBox()
	if outer.X != 0 || outer.Y != 0 || outer.Width != 500 || !near(outer.Height, 16*1.2) {
		t.Errorf("OuterBox() = %+v", outer)
	}

	n := scope.TextNodes()[0]
	h, w := s.MeasureRange(n, 0, 1), s.MeasureRange(n, 6, 7)
	if h.Y != w.Y || h.Height != w.Height {
		t.Errorf("characters of a single line differ in vertical position: %+v %+v", h, w)
	}
	if h.X != 0 || w.X <= h.X || h.Width <= 0 {
		t.Errorf("unexpected character boxes: %+v %+v", h, w)
	}
	last := s.MeasureRange(n, 10, 11)
	if whole := s.MeasureRange(n, 0, 11); whole.X != 0 || !near(whole.Width, last.X+last.Width) || whole.Y != h.Y {
		t.Errorf("range box %+v is not a union of character boxes", whole)
	}
}

func TestLayout_ScopeWidth(t *testing.T) {
	e := newEngine(t, Options{Width: 500})
	s := layoutScope(t, e, parseScope(t, `<p style="width: 120px">Hello</p>`))
	if got := s.OuterBox().Width; got != 120 {
		t.Errorf("OuterBox().Width = %v, want 120", got)
	}
}

func TestLayout_Wrap(t *testing.T) {
	e := newEngine(t, Options{Width: 70})
	res := scan(t, e, "<p>one two three four five six seven</p>")

	if len(res.Runs) < 2 {
		t.Fatalf("expected several lines, got %+v", res.Runs)
	}
	if got := joined(res); got != "one two three four five six seven " {
		t.Errorf("runs text = %q", got)
	}
	for i, r := range res.Runs {
		if r.X != 0 {
			t.Errorf("run %d %q starts at %v, expected line start", i, r.Text, r.X)
		}
		if r.LineNum != i+1 {
			t.Errorf("run %d LineNum = %d, want %d", i, r.LineNum, i+1)
		}
		if r.Hyphenated {
			t.Errorf("run %d %q broken at a space is marked hyphenated", i, r.Text)
		}
	}
}

func TestLayout_WrapTerminates(t *testing.T) {
	e := newEngine(t, Options{Width: 70})
	scope := parseScope(t, "<p>one two three</p>")

	done := make(chan *Snapshot, 1)
	go func() {
		s, err := e.Layout(scope)
		if err != nil {
			t.Errorf("Layout() error = %v", err)
		}
		done <- s
	}()
	select {
	case s := <-done:
		if s == nil {
			return
		}
		n := scope.TextNodes()[0]
		first, last := s.MeasureRange(n, 0, 1), s.MeasureRange(n, 8, 9)
		if last.Y <= first.Y {
			t.Errorf("last word is not on a following line: %+v %+v", first, last)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Layout() of a wrapping paragraph did not return")
	}
}

func TestLayout_OverflowWord(t *testing.T) {
	e := newEngine(t, Options{Width: 30})
	res := scan(t, e, "<p>abcdefghijklmnop</p>")
	if len(res.Runs) < 2 {
		t.Fatalf("expected word broken into several lines, got %+v", res.Runs)
	}
	if got := joined(res); got != "abcdefghijklmnop " {
		t.Errorf("runs text = %q", got)
	}
}

// narrowWidth returns line width which fits prefix of the word followed by a
// hyphen but not the whole word.
func narrowWidth(t *testing.T, body string, prefix int) float64 {
	t.Helper()
	scope := parseScope(t, body)
	s := layoutScope(t, newEngine(t, Options{Width: 1000}), scope)
	n := scope.TextNodes()[0]
	return s.MeasureRange(n, 0, prefix).Width + 16*0.8
}

func TestLayout_SoftHyphen(t *testing.T) {
	body := "<p>extra\u00adordinary</p>"
	scope := parseScope(t, body)
	s := layoutScope(t, newEngine(t, Options{Width: 1000}), scope)
	n := scope.TextNodes()[0]
	// room for "extra-" and for "ordinary", not for the whole word
	width := max(s.MeasureRange(n, 0, 5).Width+16*0.8, s.MeasureRange(n, 6, 14).Width+1)
	e := newEngine(t, Options{Width: width})
	res := scan(t, e, body)

	if len(res.Runs) != 2 {
		t.Fatalf("got %d runs: %+v", len(res.Runs), res.Runs)
	}
	if res.Runs[0].Text != "extra" || !res.Runs[0].Hyphenated {
		t.Errorf("first run = %q hyphenated %v", res.Runs[0].Text, res.Runs[0].Hyphenated)
	}
	if res.Runs[1].Text != "ordinary " || res.Runs[1].Hyphenated || res.Runs[1].LineNum != 2 {
		t.Errorf("second run = %+v", res.Runs[1])
	}
}

func TestLayout_PatternHyphenation(t *testing.T) {
	dir := t.TempDir()
	patterns, exceptions := filepath.Join(dir, "patterns.txt"), filepath.Join(dir, "exceptions.txt")
	if err := os.WriteFile(patterns, []byte("o1d\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(exceptions, []byte("extra-or-di-nary\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	h, err := hyphen.New(language.AmericanEnglish, hyphen.Options{PatternsPath: patterns, ExceptionsPath: exceptions}, zap.NewNop())
	if err != nil {
		t.Fatalf("hyphen.New() error = %v", err)
	}

	tests := []struct {
		name      string
		body      string
		enable    bool
		hyphenate bool
	}{
		{"hyphens auto", `<p style="hyphens: auto">extraordinary</p>`, false, true},
		{"enabled by option", `<p>extraordinary</p>`, true, true},
		{"hyphens none", `<p style="hyphens: none">extraordinary</p>`, true, false},
		{"disabled", `<p>extraordinary</p>`, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, Options{Width: narrowWidth(t, tt.body, 5), Hyphenator: h, Hyphenate: tt.enable})
			res := scan(t, e, tt.body)
			if len(res.Runs) < 2 {
				t.Fatalf("expected word broken, got %+v", res.Runs)
			}
			if got := res.Runs[0].Text == "extra"; got != tt.hyphenate {
				t.Errorf("first run = %q, broken at hyphenation point %v, want %v", res.Runs[0].Text, got, tt.hyphenate)
			}
			if got := joined(res); got != "extraordinary " {
				t.Errorf("runs text = %q", got)
			}
		})
	}
}

func TestLayout_HardHyphen(t *testing.T) {
	body := "<p>well-known</p>"
	e := newEngine(t, Options{Width: narrowWidth(t, body, 5)})
	res := scan(t, e, body)
	if len(res.Runs) != 2 {
		t.Fatalf("got %d runs: %+v", len(res.Runs), res.Runs)
	}
	if res.Runs[0].Text != "well-" || res.Runs[0].Hyphenated {
		t.Errorf("first run = %q hyphenated %v", res.Runs[0].Text, res.Runs[0].Hyphenated)
	}
}

func TestLayout_Breaks(t *testing.T) {
	const gap = 8.0
	e := newEngine(t, Options{Width: 500, BlockGap: gap})
	scope := parseScope(t, "<div><p>first</p><p>second<br>third</p></div>")
	s := layoutScope(t, e, scope)

	nodes := scope.TextNodes()
	if len(nodes) != 3 {
		t.Fatalf("got %d text nodes", len(nodes))
	}
	lh := 16 * 1.2
	tops := make([]float64, len(nodes))
	for i, n := range nodes {
		tops[i] = s.MeasureRange(n, 0, 1).Y
	}
	if !near(tops[1]-tops[0], lh+gap) {
		t.Errorf("block break moved text by %v, want %v", tops[1]-tops[0], lh+gap)
	}
	if !near(tops[2]-tops[1], lh) {
		t.Errorf("line break moved text by %v, want %v", tops[2]-tops[1], lh)
	}
	if got := s.OuterBox().Height; !near(got, 3*lh+gap) {
		t.Errorf("OuterBox().Height = %v, want %v", got, 3*lh+gap)
	}
}

func TestLayout_Columns(t *testing.T) {
	const text = "aa bb cc dd ee ff gg hh ii jj kk ll mm nn oo pp qq rr ss tt"
	e := newEngine(t, Options{})

	single := scan(t, e, `<p style="width: 100px">`+text+`</p>`)
	res := scan(t, e, `<p style="width: 220px; column-count: 2; column-gap: 20px">`+text+`</p>`)

	if got := joined(res); got != text+" " {
		t.Errorf("runs text = %q", got)
	}
	if res.Height >= single.Height {
		t.Errorf("two columns height %v, single column height %v", res.Height, single.Height)
	}

	breaks := 0
	for i := 1; i < len(res.Runs); i++ {
		prev, r := res.Runs[i-1], res.Runs[i]
		if r.Y < prev.Y {
			breaks++
			if r.X < 120 {
				t.Errorf("run %q after column break starts at %v", r.Text, r.X)
			}
			if r.LineNum != prev.LineNum {
				t.Errorf("column break changed line number %d -> %d", prev.LineNum, r.LineNum)
			}
		}
	}
	if breaks != 1 {
		t.Errorf("got %d column breaks, want 1", breaks)
	}
}

func TestSnapshot_MeasureRange(t *testing.T) {
	e := newEngine(t, Options{Width: 500})
	scope := parseScope(t, "<p>abc</p>")
	s := layoutScope(t, e, scope)
	n := scope.TextNodes()[0]

	b, c := s.MeasureRange(n, 1, 2), s.MeasureRange(n, 2, 3)
	if caret := s.MeasureRange(n, 1, 1); caret.Width != 0 || caret.X != b.X || caret.Height != b.Height {
		t.Errorf("collapsed range = %+v, want caret at %+v", caret, b)
	}
	if caret := s.MeasureRange(n, 3, 3); caret.Width != 0 || !near(caret.X, c.X+c.Width) {
		t.Errorf("collapsed range at the end = %+v", caret)
	}
	if got := s.MeasureRange(n, -5, 100); got != s.MeasureRange(n, 0, 3) {
		t.Errorf("out of bounds range = %+v", got)
	}
	if got := s.MeasureRange(&dom.TextNode{}, 0, 1); got != (extract.Box{}) {
		t.Errorf("unknown node range = %+v", got)
	}
}

func TestLayout_Empty(t *testing.T) {
	e := newEngine(t, Options{Width: 500})
	_, err := extract.NewScanner(extract.DefaultOptions(), nil).Scan(e.Bind(parseScope(t, "<p>  </p>")))
	if err == nil {
		t.Fatal("expected error for scope without text")
	}
}

func TestTransform(t *testing.T) {
	tests := []struct {
		in, mode, want string
	}{
		{"hello world", "uppercase", "HELLO WORLD"},
		{"Hello World", "lowercase", "hello world"},
		{"hello (big) world", "capitalize", "Hello (Big) World"},
		{"hello", "none", "hello"},
	}
	for _, tt := range tests {
		if got := string(transform([]rune(tt.in), tt.mode)); got != tt.want {
			t.Errorf("transform(%q, %s) = %q, want %q", tt.in, tt.mode, got, tt.want)
		}
	}
}
