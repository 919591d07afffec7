package dom

import (
	"cmp"
	"slices"
	"strings"

	"github.com/andybalholm/cascadia"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"h2svg/css"
)

const (
	originUserAgent = iota
	originAuthor
)

type compiledRule struct {
	sel    cascadia.Sel
	decls  []css.Declaration
	origin int
	order  int
}

// matched is a declaration applied to an element with everything needed to
// order it in the cascade.
type matched struct {
	decl        css.Declaration
	origin      int
	inline      bool
	specificity cascadia.Specificity
	order       int
}

// compareMatched orders declarations by precedence, the last one wins.
func compareMatched(a, b matched) int {
	if a.decl.Important != b.decl.Important {
		if a.decl.Important {
			return 1
		}
		return -1
	}
	if c := cmp.Compare(a.origin, b.origin); c != 0 {
		return c
	}
	if a.inline != b.inline {
		if a.inline {
			return 1
		}
		return -1
	}
	if a.specificity.Less(b.specificity) {
		return -1
	}
	if b.specificity.Less(a.specificity) {
		return 1
	}
	return cmp.Compare(a.order, b.order)
}

type cascade struct {
	parser *css.Parser
	rules  []compiledRule
	log    *zap.Logger
}

func newCascade(parser *css.Parser, log *zap.Logger) *cascade {
	return &cascade{parser: parser, log: log}
}

// addSheet compiles sheet selectors. Selectors cascadia cannot match
// statically (pseudo elements, dynamic pseudo classes) are skipped.
func (c *cascade) addSheet(sheet *css.Stylesheet, origin int) {
	for _, r := range sheet.Rules {
		group, err := cascadia.ParseGroup(r.Selector)
		if err != nil {
			c.log.Debug("Skipping unsupported selector", zap.String("selector", r.Selector), zap.Error(err))
			continue
		}
		for _, sel := range group {
			c.rules = append(c.rules, compiledRule{sel: sel, decls: r.Declarations, origin: origin, order: len(c.rules)})
		}
	}
	for _, w := range sheet.Warnings {
		c.log.Debug("Stylesheet warning", zap.String("warning", w))
	}
}

// apply matches all rules and inline styles against the tree and returns
// cascaded declared values per element.
func (c *cascade) apply(root *html.Node) map[*html.Node]map[string]css.Value {
	found := make(map[*html.Node][]matched)
	for _, r := range c.rules {
		spec := r.sel.Specificity()
		for _, n := range cascadia.QueryAll(root, r.sel) {
			for _, d := range r.decls {
				found[n] = append(found[n], matched{decl: d, origin: r.origin, specificity: spec, order: r.order})
			}
		}
	}

	for n := range root.Descendants() {
		if n.Type != html.ElementNode {
			continue
		}
		style, ok := attr(n, "style")
		if !ok || strings.TrimSpace(style) == "" {
			continue
		}
		for _, d := range c.parser.ParseInline(style) {
			found[n] = append(found[n], matched{decl: d, origin: originAuthor, inline: true})
		}
	}

	declared := make(map[*html.Node]map[string]css.Value, len(found))
	for n, list := range found {
		slices.SortStableFunc(list, compareMatched)
		values := make(map[string]css.Value, len(list))
		for _, m := range list {
			for _, d := range expandShorthand(m.decl) {
				values[d.Property] = d.Value
			}
		}
		declared[n] = values
	}
	return declared
}

// expandShorthand splits "font" into its longhand properties, other
// declarations are returned as is.
func expandShorthand(d css.Declaration) []css.Declaration {
	if d.Property != "font" {
		return []css.Declaration{d}
	}

	longhand := func(prop, raw string) css.Declaration {
		return css.Declaration{Property: prop, Value: css.ParseValue(raw), Important: d.Important}
	}
	out := []css.Declaration{
		longhand("font-style", "normal"),
		longhand("font-weight", "normal"),
		longhand("font-stretch", "normal"),
		longhand("line-height", "normal"),
	}

	fields := strings.Fields(d.Value.Raw)
	for i, f := range fields {
		lf := strings.ToLower(f)
		switch {
		case lf == "normal", lf == "small-caps":
		case lf == "italic", lf == "oblique":
			out[0] = longhand("font-style", lf)
		case lf == "bold", lf == "bolder", lf == "lighter", isWeightNumber(lf):
			out[1] = longhand("font-weight", lf)
		case fontStretchKeywords[lf] != "":
			out[2] = longhand("font-stretch", lf)
		default:
			size, lh, _ := strings.Cut(f, "/")
			out = append(out, longhand("font-size", size))
			if lh != "" {
				out[3] = longhand("line-height", lh)
			}
			if family := strings.Join(fields[i+1:], " "); family != "" {
				out = append(out, longhand("font-family", family))
			}
			return out
		}
	}
	// system fonts and malformed values
	return nil
}

func isWeightNumber(s string) bool {
	switch s {
	case "100", "200", "300", "400", "500", "600", "700", "800", "900":
		return true
	}
	return false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
