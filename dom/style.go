package dom

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"h2svg/css"
)

const (
	defaultFontSize   = 16.0
	defaultLineHeight = 1.2
)

// Style is resolved style of an element. Only properties text layout and
// run extraction care about are kept.
type Style struct {
	Display string

	FontFamily  string  // comma separated family list
	FontSize    float64 // px
	FontWeight  int
	FontStyle   string // normal, italic or oblique
	FontStretch string // percentage

	Color          string  // rgb(r, g, b) or rgba(r, g, b, a)
	LetterSpacing  float64 // px, zero for "normal"
	TextDecoration string  // none or "<line> <style> <color>"
	TextTransform  string
	// LineHeight is used line height in px, lineHeightFactor is kept for
	// inheritance of unitless values.
	LineHeight       float64
	lineHeightFactor float64
	Hyphens          string

	Width       float64 // px, zero for auto
	ColumnCount int
	ColumnGap   float64 // px
}

// Block reports whether element starts and ends a line box.
func (s *Style) Block() bool {
	switch s.Display {
	case "block", "list-item", "table", "flex", "grid", "flow-root", "table-row", "table-cell", "table-caption":
		return true
	}
	return false
}

// Computed returns tracked properties formatted the way browsers report
// computed values.
func (s *Style) Computed() map[string]string {
	letterSpacing := "normal"
	if s.LetterSpacing != 0 {
		letterSpacing = formatPx(s.LetterSpacing)
	}
	return map[string]string{
		"font-family":     s.FontFamily,
		"font-size":       formatPx(s.FontSize),
		"font-weight":     strconv.Itoa(s.FontWeight),
		"font-style":      s.FontStyle,
		"font-stretch":    s.FontStretch,
		"color":           s.Color,
		"letter-spacing":  letterSpacing,
		"text-decoration": s.TextDecoration,
		"text-transform":  s.TextTransform,
	}
}

func formatPx(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

type resolveOptions struct {
	rootFontSize float64
	lineHeight   float64
}

func initialStyle(opts resolveOptions) *Style {
	return &Style{
		Display:          "inline",
		FontFamily:       "Go",
		FontSize:         opts.rootFontSize,
		FontWeight:       400,
		FontStyle:        "normal",
		FontStretch:      "100%",
		Color:            "rgb(0, 0, 0)",
		TextDecoration:   "none solid rgb(0, 0, 0)",
		TextTransform:    "none",
		LineHeight:       opts.rootFontSize * opts.lineHeight,
		lineHeightFactor: opts.lineHeight,
		Hyphens:          "manual",
	}
}

// resolveStyles computes styles of all elements top-down.
func resolveStyles(root *html.Node, declared map[*html.Node]map[string]css.Value, opts resolveOptions) map[*html.Node]*Style {
	styles := make(map[*html.Node]*Style)
	r := &resolver{declared: declared, styles: styles, opts: opts, root: initialStyle(opts)}
	r.walk(root, r.root)
	return styles
}

type resolver struct {
	declared map[*html.Node]map[string]css.Value
	styles   map[*html.Node]*Style
	opts     resolveOptions
	root     *Style
	// font size of the root element, base for rem units
	remBase float64
}

func (r *resolver) walk(n *html.Node, parent *Style) {
	for c := range n.ChildNodes() {
		if c.Type != html.ElementNode {
			continue
		}
		s := r.compute(r.declared[c], parent)
		if r.remBase == 0 {
			r.remBase = s.FontSize
		}
		r.styles[c] = s
		r.walk(c, s)
	}
}

// compute derives element style from its declared values and parent style.
func (r *resolver) compute(decl map[string]css.Value, parent *Style) *Style {
	s := &Style{
		// inherited
		FontFamily:       parent.FontFamily,
		FontSize:         parent.FontSize,
		FontWeight:       parent.FontWeight,
		FontStyle:        parent.FontStyle,
		FontStretch:      parent.FontStretch,
		Color:            parent.Color,
		LetterSpacing:    parent.LetterSpacing,
		TextTransform:    parent.TextTransform,
		LineHeight:       parent.LineHeight,
		lineHeightFactor: parent.lineHeightFactor,
		Hyphens:          parent.Hyphens,
		// not inherited
		Display:     "inline",
		ColumnCount: 1,
	}

	get := func(prop string) (css.Value, bool) {
		v, ok := decl[prop]
		if !ok || v.Keyword == "inherit" {
			return css.Value{}, false
		}
		return v, true
	}

	if v, ok := get("font-size"); ok {
		s.FontSize = r.fontSize(v, parent.FontSize)
	}
	if v, ok := get("font-family"); ok {
		s.FontFamily = normalizeFamily(v.Raw)
	}
	if v, ok := get("font-weight"); ok {
		s.FontWeight = fontWeight(v, parent.FontWeight)
	}
	if v, ok := get("font-style"); ok {
		switch v.Keyword {
		case "normal", "italic", "oblique":
			s.FontStyle = v.Keyword
		}
	}
	if v, ok := get("font-stretch"); ok {
		if p, known := fontStretchKeywords[v.Keyword]; known {
			s.FontStretch = p
		} else if v.Unit == "%" {
			s.FontStretch = v.Raw
		}
	}
	if v, ok := get("color"); ok {
		if c, valid := parseColor(v.Raw, parent.Color); valid {
			s.Color = c
		}
	}
	if v, ok := get("letter-spacing"); ok {
		if v.Keyword == "normal" {
			s.LetterSpacing = 0
		} else if px, valid := r.length(v, s.FontSize); valid {
			s.LetterSpacing = px
		}
	}
	if v, ok := get("text-transform"); ok {
		s.TextTransform = v.Keyword
	}
	if v, ok := get("hyphens"); ok {
		s.Hyphens = v.Keyword
	}
	if v, ok := get("display"); ok {
		s.Display = v.Keyword
	}
	if v, ok := get("width"); ok {
		if px, valid := r.length(v, s.FontSize); valid {
			s.Width = px
		}
	}
	if v, ok := get("column-count"); ok && v.IsNumeric() && v.Unit == "" && v.Value >= 1 {
		s.ColumnCount = int(v.Value)
	}
	s.ColumnGap = s.FontSize
	if v, ok := get("column-gap"); ok {
		if px, valid := r.length(v, s.FontSize); valid {
			s.ColumnGap = px
		}
	}
	if v, ok := get("columns"); ok {
		// only "columns: <count>" form
		if n, err := strconv.Atoi(v.Raw); err == nil && n >= 1 {
			s.ColumnCount = n
		}
	}

	s.LineHeight = s.lineHeightFactor * s.FontSize
	if v, ok := get("line-height"); ok {
		switch {
		case v.Keyword == "normal":
			s.lineHeightFactor = r.opts.lineHeight
			s.LineHeight = s.lineHeightFactor * s.FontSize
		case v.IsNumeric() && v.Unit == "":
			s.lineHeightFactor = v.Value
			s.LineHeight = v.Value * s.FontSize
		default:
			if px, valid := r.length(v, s.FontSize); valid {
				s.LineHeight = px
				s.lineHeightFactor = px / s.FontSize
			}
		}
	}

	s.TextDecoration = "none solid " + s.Color
	if parent.TextDecoration != "" && !strings.HasPrefix(parent.TextDecoration, "none") {
		// decorations propagate to inline descendants
		s.TextDecoration = parent.TextDecoration
	}
	if v, ok := get("text-decoration"); ok {
		s.TextDecoration = textDecoration(v.Raw, s.Color)
	} else if v, ok := get("text-decoration-line"); ok {
		s.TextDecoration = textDecoration(v.Raw, s.Color)
	}
	return s
}

var fontSizeKeywords = map[string]float64{
	"xx-small":  9,
	"x-small":   10,
	"small":     13,
	"medium":    16,
	"large":     18,
	"x-large":   24,
	"xx-large":  32,
	"xxx-large": 48,
}

func (r *resolver) fontSize(v css.Value, parentSize float64) float64 {
	if px, ok := fontSizeKeywords[v.Keyword]; ok {
		return px * r.opts.rootFontSize / defaultFontSize
	}
	switch v.Keyword {
	case "smaller":
		return parentSize / 1.2
	case "larger":
		return parentSize * 1.2
	}
	if px, ok := r.length(v, parentSize); ok && px > 0 {
		return px
	}
	return parentSize
}

// length converts length value to px, em and percentages are relative to
// base.
func (r *resolver) length(v css.Value, base float64) (float64, bool) {
	if !v.IsNumeric() {
		return 0, false
	}
	switch v.Unit {
	case "px":
		return v.Value, true
	case "", "%":
		if v.Unit == "" && v.Value != 0 {
			return 0, false
		}
		return v.Value * base / 100, true
	case "em":
		return v.Value * base, true
	case "rem":
		rem := r.remBase
		if rem == 0 {
			rem = r.opts.rootFontSize
		}
		return v.Value * rem, true
	case "ex", "ch":
		return v.Value * base / 2, true
	case "pt":
		return v.Value * 96 / 72, true
	case "pc":
		return v.Value * 16, true
	case "in":
		return v.Value * 96, true
	case "cm":
		return v.Value * 96 / 2.54, true
	case "mm":
		return v.Value * 96 / 25.4, true
	}
	return 0, false
}

// fontWeight resolves keywords and relative weights.
func fontWeight(v css.Value, parent int) int {
	switch v.Keyword {
	case "normal":
		return 400
	case "bold":
		return 700
	case "bolder":
		switch {
		case parent < 350:
			return 400
		case parent < 550:
			return 700
		default:
			return 900
		}
	case "lighter":
		switch {
		case parent < 550:
			return 100
		case parent < 750:
			return 400
		default:
			return 700
		}
	}
	if v.IsNumeric() && v.Unit == "" && v.Value >= 1 && v.Value <= 1000 {
		return int(v.Value)
	}
	return parent
}

var fontStretchKeywords = map[string]string{
	"ultra-condensed": "50%",
	"extra-condensed": "62.5%",
	"condensed":       "75%",
	"semi-condensed":  "87.5%",
	"normal":          "100%",
	"semi-expanded":   "112.5%",
	"expanded":        "125%",
	"extra-expanded":  "150%",
	"ultra-expanded":  "200%",
}

// normalizeFamily puts single space after every comma of a family list.
func normalizeFamily(raw string) string {
	parts := strings.Split(raw, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// textDecoration builds "<line> <style> <color>" from shorthand value.
func textDecoration(raw, currentColor string) string {
	line, style, color := "none", "solid", currentColor
	var lines []string
	for f := range strings.FieldsSeq(raw) {
		lf := strings.ToLower(f)
		switch lf {
		case "none":
		case "underline", "overline", "line-through", "blink":
			lines = append(lines, lf)
		case "solid", "double", "dotted", "dashed", "wavy":
			style = lf
		default:
			if c, ok := parseColor(f, currentColor); ok {
				color = c
			}
		}
	}
	if len(lines) > 0 {
		line = strings.Join(lines, " ")
	}
	return line + " " + style + " " + color
}
