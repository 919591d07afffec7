package svg

import (
	"math"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"h2svg/extract"
)

const namespace = "http://www.w3.org/2000/svg"

// Renderer turns layout results into SVG documents.
type Renderer struct {
	opts Options
	log  *zap.Logger
}

func NewRenderer(opts Options, log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{opts: opts, log: log.Named("svg")}
}

// Render coalesces runs of the layout result and serializes them.
func (r *Renderer) Render(res *extract.LayoutResult) *etree.Document {
	m := Coalesce(res, r.opts)

	spans := 0
	for _, c := range m.Containers {
		spans += len(c.Spans)
	}
	r.log.Debug("Runs coalesced", zap.Int("runs", len(res.Runs)), zap.Int("containers", len(m.Containers)), zap.Int("spans", spans))

	return r.Document(m)
}

// Document serializes coalesced model. Output is not indented, whitespace
// inside text elements is significant.
func (r *Renderer) Document(m *Model) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	w, h := r.number(math.Ceil(m.Width)), r.number(math.Ceil(m.Height))
	root := doc.CreateElement("svg")
	root.CreateAttr("xmlns", namespace)
	root.CreateAttr("viewBox", "0 0 "+w+" "+h)
	root.CreateAttr("width", w)
	root.CreateAttr("height", h)

	g := root.CreateElement("g")
	g.CreateAttr("class", "gText")

	base := styleAttr(m.Base)
	for _, c := range m.Containers {
		if len(c.Spans) == 0 {
			continue
		}
		parent := g
		if c.Href != "" {
			parent = g.CreateElement("a")
			parent.CreateAttr("href", c.Href)
		}
		text := parent.CreateElement("text")
		text.CreateAttr("x", r.number(c.X))
		text.CreateAttr("y", r.number(c.Y))
		if c.Class != "" {
			text.CreateAttr("class", c.Class)
		}
		text.CreateAttr("style", base)

		for _, s := range c.Spans {
			r.appendSpan(text, &s)
		}
	}
	return doc
}

func (r *Renderer) appendSpan(text *etree.Element, s *Span) {
	ts := text.CreateElement("tspan")
	if s.Href != "" {
		ts.CreateAttr("class", classLinkSpan)
		ts.CreateAttr("data-href", s.Href)
	}
	if s.HasX {
		ts.CreateAttr("x", r.number(s.X))
	}
	if s.HasDy {
		ts.CreateAttr("dy", r.number(s.Dy))
	}
	if style := overrideAttr(s.Overrides); style != "" {
		ts.CreateAttr("style", style)
	}
	ts.SetText(s.Text)

	if !s.Hyphen {
		return
	}
	hy := text.CreateElement("tspan")
	hy.CreateAttr("class", classHyphen)
	hy.CreateAttr("aria-hidden", "true")
	hy.CreateAttr("style", "user-select:none;"+overrideAttr(s.Overrides))
	hy.SetText("-")
}

func (r *Renderer) number(v float64) string {
	return extract.FormatNumber(round(v, r.opts.Decimals))
}

func styleAttr(decls []Declaration) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		name, value := outputProperty(d)
		parts = append(parts, name+":"+value)
	}
	return strings.Join(parts, ";")
}

// overrideAttr formats declarations, each terminated with semicolon.
func overrideAttr(decls []Declaration) string {
	var sb strings.Builder
	for _, d := range decls {
		name, value := outputProperty(d)
		sb.WriteString(name)
		sb.WriteByte(':')
		sb.WriteString(value)
		sb.WriteByte(';')
	}
	return sb.String()
}

// outputProperty maps tracked CSS property to SVG presentation vocabulary.
func outputProperty(d Declaration) (string, string) {
	switch d.Name {
	case extract.PropColor:
		return "fill", d.Value
	case extract.PropFontSize:
		if d.Value != "" && !strings.HasSuffix(d.Value, "px") {
			return d.Name, d.Value + "px"
		}
	}
	return d.Name, d.Value
}
