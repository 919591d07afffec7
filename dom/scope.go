package dom

import (
	"strings"

	"golang.org/x/net/html"

	"h2svg/extract"
)

// BreakKind tells what separates text node from the text before it.
type BreakKind int

const (
	NoBreak BreakKind = iota
	// LineBreak comes from <br>.
	LineBreak
	// BlockBreak is a block element boundary.
	BlockBreak
)

// TextNode is a text bearing leaf of a scope. Content changes are written
// directly into the parsed tree.
type TextNode struct {
	node   *html.Node
	parent *html.Node
	Break  BreakKind
}

func (t *TextNode) Content() string     { return t.node.Data }
func (t *TextNode) SetContent(s string) { t.node.Data = s }

// Scope is an element selected for conversion together with its text.
type Scope struct {
	doc   *Document
	root  *html.Node
	nodes []*TextNode
	// Index is position of the scope among all selected elements.
	Index int
}

var skippedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"head":     true,
	"title":    true,
	"template": true,
	"noscript": true,
}

func newScope(d *Document, root *html.Node, index int) *Scope {
	s := &Scope{doc: d, root: root, Index: index}
	pending := NoBreak
	s.collect(root, &pending)
	return s
}

// collect gathers text nodes in document order skipping hidden subtrees.
// Consecutive breaks collapse into the strongest one.
func (s *Scope) collect(n *html.Node, pending *BreakKind) {
	for c := range n.ChildNodes() {
		switch c.Type {
		case html.TextNode:
			tn := &TextNode{node: c, parent: n}
			if len(s.nodes) > 0 {
				tn.Break = *pending
			}
			s.nodes = append(s.nodes, tn)
			*pending = NoBreak
		case html.ElementNode:
			if c.Data == "br" {
				*pending = max(*pending, LineBreak)
				continue
			}
			st := s.doc.styles[c]
			if skippedTags[c.Data] || st == nil || st.Display == "none" {
				continue
			}
			block := st.Block()
			if block {
				*pending = BlockBreak
			}
			s.collect(c, pending)
			if block {
				*pending = BlockBreak
			}
		}
	}
}

// Tag returns lower case element name of the scope.
func (s *Scope) Tag() string {
	return strings.ToLower(s.root.Data)
}

// Attr returns scope element attribute value.
func (s *Scope) Attr(key string) string {
	v, _ := attr(s.root, key)
	return v
}

// Title returns title of the whole document.
func (s *Scope) Title() string {
	return s.doc.Title()
}

// Style returns resolved style of the scope element.
func (s *Scope) Style() *Style {
	return s.doc.styles[s.root]
}

// Texts returns scope text nodes in document order.
func (s *Scope) Texts() []*TextNode {
	return s.nodes
}

// TextStyle returns resolved style of text node parent element.
func (s *Scope) TextStyle(n extract.Node) *Style {
	t, ok := n.(*TextNode)
	if !ok {
		return nil
	}
	return s.doc.styles[t.parent]
}

// TextNodes implements extract.Document.
func (s *Scope) TextNodes() []extract.Node {
	out := make([]extract.Node, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = n
	}
	return out
}

// Parent implements extract.Document. Anchor elements are hyperlinks.
func (s *Scope) Parent(n extract.Node) (extract.ParentInfo, bool) {
	t, ok := n.(*TextNode)
	if !ok || t.parent == nil || t.parent.Type != html.ElementNode {
		return extract.ParentInfo{}, false
	}
	tag := strings.ToLower(t.parent.Data)
	href, _ := attr(t.parent, "href")
	return extract.ParentInfo{Key: t.parent, Tag: tag, IsLink: tag == "a", Href: href}, true
}

// ComputedStyle implements extract.Document.
func (s *Scope) ComputedStyle(n extract.Node) map[string]string {
	st := s.TextStyle(n)
	if st == nil {
		return nil
	}
	return st.Computed()
}
