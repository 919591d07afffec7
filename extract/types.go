// Package extract reconstructs positioned text runs from the geometry of an
// already laid out subtree. It never lays text out itself: every decision is
// made from range measurements answered by a frozen Geometry snapshot.
package extract

import (
	"errors"
)

var (
	// ErrNoParent is returned when enumerated text node has no parent element.
	ErrNoParent = errors.New("text node has no parent element")
	// ErrNoGeometry is returned when scope element has nothing to measure.
	ErrNoGeometry = errors.New("scope element has no measurable geometry")
)

// Box is an axis aligned rectangle, y grows downwards.
type Box struct {
	X, Y, Width, Height float64
}

// Degenerate reports zero sized box.
func (b Box) Degenerate() bool {
	return b.Width == 0 && b.Height == 0
}

// Node is a text bearing leaf. Content is replaced once by normalization,
// before geometry snapshot is taken.
type Node interface {
	Content() string
	SetContent(string)
}

// ParentInfo describes the element directly containing a text node. Key
// identifies the element and must be comparable.
type ParentInfo struct {
	Key    any
	Tag    string
	IsLink bool
	Href   string
}

// Document gives access to scope element content.
type Document interface {
	// TextNodes returns text nodes of the scope in document order.
	TextNodes() []Node
	Parent(Node) (ParentInfo, bool)
	// ComputedStyle returns resolved style of the node parent element keyed
	// by CSS property name.
	ComputedStyle(Node) map[string]string
	// Snapshot freezes layout of the current content. All measurements are
	// made against returned geometry.
	Snapshot() (Geometry, error)
}

// Geometry answers measurements against frozen layout.
type Geometry interface {
	OuterBox() Box
	// MeasureRange returns bounding box of node characters [start, end),
	// offsets are in runes.
	MeasureRange(n Node, start, end int) Box
}

// TextRun is a piece of text sharing style and position.
type TextRun struct {
	Text       string
	X, Y       float64
	Height     float64
	Style      *StyleSnapshot
	Hyphenated bool
	ParentID   string
	Href       string
	LineNum    int
}

// LayoutResult is the outcome of a single scan.
type LayoutResult struct {
	XOffset, YOffset float64
	Width, Height    float64
	Runs             []TextRun
}
