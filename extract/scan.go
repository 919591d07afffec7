package extract

import (
	"fmt"

	"go.uber.org/zap"
)

// Options controls scanning.
type Options struct {
	Styles StyleTable
	// BaselineShift is the fraction of font size between box bottom and
	// text baseline.
	BaselineShift float64
}

// DefaultOptions returns standard style table and baseline shift.
func DefaultOptions() Options {
	return Options{Styles: DefaultStyleTable(), BaselineShift: 0.25}
}

// Scanner produces layout results for documents.
type Scanner struct {
	opts Options
	log  *zap.Logger
}

func NewScanner(opts Options, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Styles == nil {
		opts.Styles = DefaultStyleTable()
	}
	return &Scanner{opts: opts, log: log.Named("extract")}
}

// Scan normalizes all text nodes of the document, freezes its layout and
// extracts line assigned runs in document order.
func (s *Scanner) Scan(doc Document) (*LayoutResult, error) {
	nodes := doc.TextNodes()

	parents := make([]ParentInfo, len(nodes))
	for i, n := range nodes {
		NormalizeNode(n)
		p, ok := doc.Parent(n)
		if !ok {
			return nil, fmt.Errorf("text node %d (%q): %w", i, n.Content(), ErrNoParent)
		}
		parents[i] = p
	}

	geo, err := doc.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("unable to take layout snapshot: %w", err)
	}
	outer := geo.OuterBox()
	if outer.Width <= 0 || outer.Height <= 0 {
		return nil, fmt.Errorf("outer box %+v: %w", outer, ErrNoGeometry)
	}

	res := &LayoutResult{XOffset: outer.X, YOffset: outer.Y, Width: outer.Width, Height: outer.Height}

	ids := make(map[any]string, len(nodes))
	for i, n := range nodes {
		p := parents[i]
		id, seen := ids[p.Key]
		if !seen {
			id = fmt.Sprintf("%s_%d", p.Tag, i)
			ids[p.Key] = id
		}
		if blank(n.Content()) {
			continue
		}

		e := &nodeExtractor{
			geo:  geo,
			node: n,
			text: []rune(n.Content()),
			proto: TextRun{
				Style:    NewStyleSnapshot(s.opts.Styles, doc.ComputedStyle(n)),
				ParentID: id,
			},
			log: s.log,
		}
		if p.IsLink {
			e.proto.Href = p.Href
		}
		res.Runs = append(res.Runs, e.extract()...)
	}

	AssignLines(res, s.opts.BaselineShift)

	s.log.Debug("Scope scanned", zap.Int("nodes", len(nodes)), zap.Int("runs", len(res.Runs)),
		zap.Float64("width", res.Width), zap.Float64("height", res.Height))
	return res, nil
}
