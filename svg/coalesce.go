// Package svg groups line assigned text runs into SVG text containers and
// serializes them.
package svg

import (
	"math"
	"strings"

	"h2svg/extract"
)

const propTextDecoration = "text-decoration"

// Declaration is a single style property to emit.
type Declaration struct {
	Name, Value string
}

// Span is a run group: text of one or more runs sharing style and baseline.
type Span struct {
	Text string
	// X is position of the first run, emitted only when HasX is set.
	X    float64
	HasX bool
	// Y is baseline of the span, Dy is its rounded distance from the
	// previous run baseline.
	Y     float64
	Dy    float64
	HasDy bool
	// Hyphen requests hyphen marker right after the span text.
	Hyphen    bool
	Href      string
	LineNum   int
	Style     *extract.StyleSnapshot
	Overrides []Declaration
}

// Container is a text element anchored at absolute position. Containers with
// non empty Href are hyperlink wrappers holding exactly one span.
type Container struct {
	X, Y  float64
	Href  string
	Class string
	Spans []Span
}

// Model is coalesced form of a layout result.
type Model struct {
	Width, Height float64
	Base          []Declaration
	Containers    []Container
}

// Options controls coalescing.
type Options struct {
	// Decimals is rounding precision of emitted coordinates.
	Decimals int
	Styles   extract.StyleTable
}

// DefaultOptions returns default precision and style table.
func DefaultOptions() Options {
	return Options{Decimals: 1, Styles: extract.DefaultStyleTable()}
}

const (
	classAfterLink = "p-a"
	classLinkSpan  = "tspan-a"
	classHyphen    = "tspanHyphen"
)

// coalescer is the accumulator threaded through a single pass.
type coalescer struct {
	opts Options
	base map[string]string
	out  []Container
	prev *extract.TextRun
}

// Coalesce walks runs once and groups them into containers and spans.
func Coalesce(res *extract.LayoutResult, opts Options) *Model {
	if opts.Styles == nil {
		opts.Styles = extract.DefaultStyleTable()
	}
	m := &Model{Width: res.Width, Height: res.Height}
	if len(res.Runs) == 0 {
		return m
	}

	c := &coalescer{opts: opts, base: baseStyle(res.Runs[0].Style)}
	for i := range res.Runs {
		r := &res.Runs[i]
		if r.Href != "" {
			var next *extract.TextRun
			if i+1 < len(res.Runs) {
				next = &res.Runs[i+1]
			}
			c.link(r, next)
		} else {
			c.plain(r)
		}
		c.prev = r
	}

	for _, d := range baseDeclarations {
		m.Base = append(m.Base, Declaration{Name: d, Value: c.base[d]})
	}
	m.Containers = c.out
	return m
}

var baseDeclarations = []string{extract.PropFontFamily, extract.PropFontSize, extract.PropFontWeight}

func baseStyle(s *extract.StyleSnapshot) map[string]string {
	return map[string]string{
		extract.PropFontFamily: s.Get(extract.PropFontFamily),
		extract.PropFontSize:   s.Get(extract.PropFontSize),
		extract.PropFontWeight: "400",
		extract.PropFontStyle:  "normal",
	}
}

// link puts hyperlink run into its own wrapper and, unless another link
// follows, opens plain container for the text after it.
func (c *coalescer) link(r, next *extract.TextRun) {
	c.out = append(c.out, Container{
		X: r.X, Y: r.Y, Href: r.Href,
		Spans: []Span{c.span(r)},
	})
	if next != nil && next.Href == "" {
		c.out = append(c.out, Container{X: r.X, Y: r.Y, Class: classAfterLink})
	}
}

func (c *coalescer) plain(r *extract.TextRun) {
	if len(c.out) == 0 {
		c.out = append(c.out, Container{X: r.X, Y: r.Y, Spans: []Span{c.span(r)}})
		return
	}

	last := &c.out[len(c.out)-1]
	if open := c.openSpan(); open != nil && r.Y == c.prev.Y && r.Style.Signature() == c.prev.Style.Signature() {
		open.Text += r.Text
		// only the last run of a group may be hyphenated
		open.Hyphen = r.Hyphenated
		return
	}

	s := c.span(r)
	if dy := c.round(r.Y - c.prev.Y); dy != 0 {
		s.Dy, s.HasDy = dy, true
	}
	columnBreak := c.prev.Y > r.Y
	if r.LineNum != c.prev.LineNum || c.prev.Href != "" || columnBreak {
		s.HasX = true
	}
	last.Spans = append(last.Spans, s)
}

// openSpan returns span which can still be extended or nil.
func (c *coalescer) openSpan() *Span {
	last := &c.out[len(c.out)-1]
	if last.Href != "" || len(last.Spans) == 0 {
		return nil
	}
	s := &last.Spans[len(last.Spans)-1]
	if s.Hyphen {
		return nil
	}
	return s
}

func (c *coalescer) span(r *extract.TextRun) Span {
	return Span{
		Text:      r.Text,
		X:         c.round(r.X),
		Y:         r.Y,
		Hyphen:    r.Hyphenated,
		Href:      r.Href,
		LineNum:   r.LineNum,
		Style:     r.Style,
		Overrides: c.overrides(r.Style),
	}
}

// overrides lists tracked properties whose values are neither ignorable nor
// equal to the base style. Sibling tspans do not inherit from each other, so
// the preceding span is not a reference.
func (c *coalescer) overrides(s *extract.StyleSnapshot) []Declaration {
	var out []Declaration
	for p, v := range s.All() {
		if v == "" || c.opts.Styles.IsDefault(p.Name, v) || v == c.base[p.Name] {
			continue
		}
		// decoration without a line carries current color and is never drawn
		if line, _, _ := strings.Cut(v, " "); p.Name == propTextDecoration && line == "none" {
			continue
		}
		out = append(out, Declaration{Name: p.Name, Value: v})
	}
	return out
}

func (c *coalescer) round(v float64) float64 {
	return round(v, c.opts.Decimals)
}

func round(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
