// Package typeset lays scope text out with real font metrics. It is the
// reference geometry provider for extraction: the layout is computed once and
// frozen into a Snapshot which answers range measurements.
package typeset

import (
	"fmt"
	"math"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/image/font"

	"h2svg/css"
	"h2svg/dom"
	"h2svg/extract"
	"h2svg/typeset/hyphen"
)

// Options controls layout.
type Options struct {
	// Width is used when scope element does not declare its own width.
	Width float64
	// BlockGap is extra space before lines which start a new block.
	BlockGap float64
	// Hyphenator provides pattern break points, may be nil.
	Hyphenator *hyphen.Hyphenator
	// Hyphenate enables pattern hyphenation for text with "hyphens: manual",
	// "hyphens: auto" always enables it.
	Hyphenate bool
}

const defaultWidth = 600

// Engine lays out scopes.
type Engine struct {
	opts  Options
	fonts *Fonts
	log   *zap.Logger
}

// NewEngine creates layout engine with built in fonts.
func NewEngine(opts Options, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("typeset")
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	fonts, err := NewFonts(log)
	if err != nil {
		return nil, err
	}
	return &Engine{opts: opts, fonts: fonts, log: log}, nil
}

// AddFontFaces makes @font-face fonts available for layout.
func (e *Engine) AddFontFaces(faces []css.FontFace, baseDir string) {
	e.fonts.LoadFontFaces(faces, baseDir)
}

type breakKind int

const (
	noOpportunity breakKind = iota
	spaceOpportunity
	hardOpportunity
	softOpportunity
)

// metrics of a single text node.
type metrics struct {
	face       font.Face
	ascent     float64
	descent    float64
	lineHeight float64
	hyphen     float64
}

// halfLeading returns space above and below baseline an inline box takes.
func (m *metrics) halfLeading() (above, below float64) {
	leading := (m.lineHeight - m.ascent - m.descent) / 2
	return m.ascent + leading, m.descent + leading
}

// cell is a single character of a text node.
type cell struct {
	node  int
	width float64
	space bool
	shy   bool
	brk   breakKind
	// before is the strongest forced break preceding the cell
	before dom.BreakKind
	// placement
	collapsed bool
	line      int
	x         float64
}

type line struct {
	first, last int // cell range, inclusive, last < first for empty line
	gap         float64
	height      float64
	baseline    float64 // relative to line top
	// position in scope
	x, y float64
}

type layout struct {
	engine  *Engine
	scope   *dom.Scope
	nodes   []*dom.TextNode
	metrics []*metrics
	starts  []int // first cell of each node
	cells   []cell
	lines   []line
	strut   metrics
	width   float64
	colW    float64
	gap     float64
	columns int
}

// Layout lays the scope out and freezes the result.
func (e *Engine) Layout(scope *dom.Scope) (*Snapshot, error) {
	st := scope.Style()
	if st == nil {
		return nil, fmt.Errorf("scope element <%s> has no style", scope.Tag())
	}
	l := &layout{engine: e, scope: scope, nodes: scope.Texts(), width: e.opts.Width, columns: 1}
	if st.Width > 0 {
		l.width = st.Width
	}
	l.colW = l.width
	if st.ColumnCount > 1 {
		l.columns, l.gap = st.ColumnCount, st.ColumnGap
		l.colW = (l.width - l.gap*float64(l.columns-1)) / float64(l.columns)
	}

	strut, err := e.metrics(st)
	if err != nil {
		return nil, err
	}
	l.strut = *strut

	if err := l.prepare(); err != nil {
		return nil, err
	}
	l.breakLines()
	height := l.placeColumns()

	e.log.Debug("Scope laid out",
		zap.String("tag", scope.Tag()),
		zap.Int("nodes", len(l.nodes)),
		zap.Int("lines", len(l.lines)),
		zap.Int("columns", l.columns),
		zap.Float64("width", l.width),
		zap.Float64("height", height))

	return l.snapshot(height), nil
}

func (e *Engine) metrics(st *dom.Style) (*metrics, error) {
	face, err := e.fonts.Face(st.FontFamily, st.FontWeight, st.FontStyle, st.FontSize)
	if err != nil {
		return nil, fmt.Errorf("unable to create font face for %q: %w", st.FontFamily, err)
	}
	fm := face.Metrics()
	m := &metrics{
		face:       face,
		ascent:     toFloat(fm.Ascent),
		descent:    toFloat(fm.Descent),
		lineHeight: st.LineHeight,
	}
	if adv, ok := face.GlyphAdvance('-'); ok {
		m.hyphen = toFloat(adv)
	}
	return m, nil
}

// prepare builds cells with advances and break opportunities.
func (l *layout) prepare() error {
	l.metrics = make([]*metrics, len(l.nodes))
	l.starts = make([]int, len(l.nodes)+1)
	carry := dom.NoBreak
	for i, n := range l.nodes {
		l.starts[i] = len(l.cells)
		carry = max(carry, n.Break)
		st := l.scope.TextStyle(n)
		if st == nil {
			return fmt.Errorf("text node %d has no style", i)
		}
		m, err := l.engine.metrics(st)
		if err != nil {
			return err
		}
		l.metrics[i] = m

		text := []rune(n.Content())
		shaped := transform(text, st.TextTransform)
		points := l.hyphenationPoints(text, st)
		prev := rune(-1)
		for k, r := range shaped {
			c := cell{node: i}
			if k == 0 {
				c.before, carry = carry, dom.NoBreak
			}
			switch {
			case isCollapsible(r):
				c.space, c.brk = true, spaceOpportunity
				r = ' '
			case text[k] == '\u00ad':
				c.shy, c.brk = true, softOpportunity
			case (r == '-' || r == '–') && prev >= 0 && !isCollapsible(prev):
				c.brk = hardOpportunity
			case points[k]:
				c.brk = softOpportunity
			}
			if !c.shy {
				if prev >= 0 && !c.space && !isCollapsible(prev) {
					c.width += toFloat(m.face.Kern(prev, r))
				}
				adv, _ := m.face.GlyphAdvance(r)
				c.width += toFloat(adv) + st.LetterSpacing
			}
			l.cells = append(l.cells, c)
			prev = r
		}
	}
	l.starts[len(l.nodes)] = len(l.cells)
	return nil
}

// hyphenationPoints marks characters after which words of the node may be
// broken by pattern hyphenation.
func (l *layout) hyphenationPoints(text []rune, st *dom.Style) []bool {
	points := make([]bool, len(text))
	h := l.engine.opts.Hyphenator
	enabled := st.Hyphens == "auto" || (l.engine.opts.Hyphenate && st.Hyphens != "none")
	if h == nil || !enabled {
		return points
	}
	for start := 0; start < len(text); {
		if !unicode.IsLetter(text[start]) {
			start++
			continue
		}
		end := start
		for end < len(text) && unicode.IsLetter(text[end]) {
			end++
		}
		for _, p := range h.Points(string(text[start:end])) {
			points[start+p-1] = true
		}
		start = end
	}
	return points
}

func isCollapsible(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f'
}

// transform applies text-transform rune by rune keeping offsets intact.
func transform(text []rune, mode string) []rune {
	out := make([]rune, len(text))
	wordStart := true
	for i, r := range text {
		switch mode {
		case "uppercase":
			r = unicode.ToUpper(r)
		case "lowercase":
			r = unicode.ToLower(r)
		case "capitalize":
			if wordStart && unicode.IsLetter(r) {
				r = unicode.ToTitle(r)
			}
		}
		wordStart = isCollapsible(r) || (wordStart && !unicode.IsLetter(r) && !unicode.IsDigit(r))
		out[i] = r
	}
	return out
}

// breakLines fills lines greedily. Spaces at the end of a line hang, words
// wider than a line are broken before the overflowing character.
func (l *layout) breakLines() {
	avail := l.colW

	var (
		cur       = line{first: 0, last: -1}
		x         float64
		content   bool // line has visible cells
		lastSpace = true
		pending   dom.BreakKind
		lastBreak = -1
	)
	finish := func(last int) {
		cur.last = last
		l.lines = append(l.lines, cur)
		cur = line{first: last + 1, last: last}
		x, content, lastSpace, lastBreak = 0, false, true, -1
	}

	for i := 0; i < len(l.cells); i++ {
		c := &l.cells[i]
		pending = max(pending, c.before)
		c.collapsed = c.space && lastSpace
		if c.collapsed {
			c.line, c.x = len(l.lines), x
			continue
		}
		if pending != dom.NoBreak && content {
			// forced break, cell is processed again on the new line
			finish(i - 1)
			i--
			continue
		}
		if pending == dom.BlockBreak && len(l.lines) > 0 {
			cur.gap = l.engine.opts.BlockGap
		}
		pending = dom.NoBreak

		if c.shy {
			c.line, c.x = len(l.lines), x
			if content && x+l.metrics[c.node].hyphen <= avail {
				lastBreak = i
			}
			continue
		}

		if !c.space && content && x+c.width > avail {
			if b := lastBreak; b >= 0 {
				// finish resets lastBreak
				finish(b)
				i = b
			} else {
				finish(i - 1)
				i--
			}
			continue
		}

		c.line, c.x = len(l.lines), x
		x += c.width
		content, lastSpace = true, c.space

		switch c.brk {
		case spaceOpportunity, hardOpportunity:
			lastBreak = i
		case softOpportunity:
			if x+l.metrics[c.node].hyphen <= avail {
				lastBreak = i
			}
		}
	}

	switch {
	case content:
		finish(len(l.cells) - 1)
	case len(l.lines) > 0:
		// trailing collapsed white space stays at the end of the last line
		last := &l.lines[len(l.lines)-1]
		end := 0.0
		if last.last >= last.first {
			lc := l.cells[last.last]
			end = lc.x + lc.width
		}
		for i := cur.first; i < len(l.cells); i++ {
			l.cells[i].line, l.cells[i].x = len(l.lines)-1, end
		}
		last.last = len(l.cells) - 1
	}
}

// measureLine computes line box height and baseline position using half
// leading of every inline box on the line and the scope strut.
func (l *layout) measureLine(ln *line) {
	above, below := l.strut.halfLeading()
	seen := -1
	for i := ln.first; i <= ln.last; i++ {
		n := l.cells[i].node
		if n == seen {
			continue
		}
		seen = n
		a, b := l.metrics[n].halfLeading()
		above, below = max(above, a), max(below, b)
	}
	ln.height, ln.baseline = above+below, above
}

// placeColumns positions lines and returns content height. Multiple columns
// are balanced: the smallest column height which fits all lines into the
// available columns is used.
func (l *layout) placeColumns() float64 {
	if len(l.lines) == 0 {
		return 0
	}
	var total, tallest float64
	for i := range l.lines {
		ln := &l.lines[i]
		l.measureLine(ln)
		total += ln.gap + ln.height
		tallest = max(tallest, ln.height)
	}
	if l.columns == 1 {
		_, _, height := l.fill(math.Inf(1))
		return height
	}

	target := max(total/float64(l.columns), tallest)
	for {
		used, overflow, height := l.fill(target)
		if used <= l.columns || math.IsInf(overflow, 1) {
			return height
		}
		target += overflow + 1e-9
	}
}

// fill distributes lines over columns no taller than target. It returns
// number of columns used, the smallest increase of target which would move
// a column break, and the tallest column height.
func (l *layout) fill(target float64) (int, float64, float64) {
	col, y, height := 0, 0.0, 0.0
	overflow := math.Inf(1)
	inColumn := 0
	for i := range l.lines {
		ln := &l.lines[i]
		gap := ln.gap
		if inColumn == 0 {
			gap = 0
		}
		if inColumn > 0 && y+gap+ln.height > target {
			overflow = min(overflow, y+gap+ln.height-target)
			col++
			y, gap, inColumn = 0, 0, 0
		}
		ln.x = float64(col) * (l.colW + l.gap)
		ln.y = y + gap
		y = ln.y + ln.height
		height = max(height, y)
		inColumn++
	}
	return col + 1, overflow, height
}

func (l *layout) snapshot(height float64) *Snapshot {
	s := &Snapshot{
		outer: extract.Box{Width: l.width, Height: height},
		boxes: make(map[extract.Node][]extract.Box, len(l.nodes)),
	}
	for i, n := range l.nodes {
		m := l.metrics[i]
		cells := l.cells[l.starts[i]:l.starts[i+1]]
		boxes := make([]extract.Box, len(cells))
		for k, c := range cells {
			if c.line >= len(l.lines) {
				continue
			}
			ln := l.lines[c.line]
			b := extract.Box{
				X:      ln.x + c.x,
				Y:      ln.y + ln.baseline - m.ascent,
				Height: m.ascent + m.descent,
			}
			if !c.collapsed && !c.shy {
				b.Width = c.width
			}
			boxes[k] = b
		}
		s.boxes[n] = boxes
	}
	return s
}

// Snapshot is frozen layout of a scope.
type Snapshot struct {
	outer extract.Box
	boxes map[extract.Node][]extract.Box
}

// OuterBox implements extract.Geometry.
func (s *Snapshot) OuterBox() extract.Box {
	return s.outer
}

// MeasureRange implements extract.Geometry. Result is union of character
// boxes, collapsed range gives zero width caret box.
func (s *Snapshot) MeasureRange(n extract.Node, start, end int) extract.Box {
	boxes := s.boxes[n]
	if len(boxes) == 0 {
		return extract.Box{}
	}
	start = min(max(start, 0), len(boxes))
	end = min(max(end, start), len(boxes))
	if start == end {
		if start < len(boxes) {
			b := boxes[start]
			return extract.Box{X: b.X, Y: b.Y, Height: b.Height}
		}
		b := boxes[len(boxes)-1]
		return extract.Box{X: b.X + b.Width, Y: b.Y, Height: b.Height}
	}

	var u extract.Box
	found := false
	for _, b := range boxes[start:end] {
		if b.Degenerate() {
			continue
		}
		if !found {
			u, found = b, true
			continue
		}
		right, bottom := max(u.X+u.Width, b.X+b.Width), max(u.Y+u.Height, b.Y+b.Height)
		u.X, u.Y = min(u.X, b.X), min(u.Y, b.Y)
		u.Width, u.Height = right-u.X, bottom-u.Y
	}
	return u
}

// Document binds scope to the engine so extraction can take snapshots of it.
type Document struct {
	*dom.Scope
	engine *Engine
}

// Bind returns extraction document for the scope.
func (e *Engine) Bind(scope *dom.Scope) *Document {
	return &Document{Scope: scope, engine: e}
}

// Snapshot implements extract.Document.
func (d *Document) Snapshot() (extract.Geometry, error) {
	return d.engine.Layout(d.Scope)
}

var (
	_ extract.Document = (*Document)(nil)
	_ extract.Geometry = (*Snapshot)(nil)
)
