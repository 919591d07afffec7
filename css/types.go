// Package css parses stylesheets and inline style declarations into the
// structures used by the style cascade.
package css

import (
	"strings"
)

// Value is a parsed property value.
type Value struct {
	Raw     string  // original value text, normalized whitespace
	Value   float64 // numeric part for numbers, dimensions and percentages
	Unit    string  // lower case unit ("px", "em", "%"), empty for plain numbers
	Keyword string  // identifier, string or compound value
}

// IsNumeric reports whether value holds a number, dimension or percentage.
func (v Value) IsNumeric() bool {
	return v.Keyword == "" && v.Raw != ""
}

func (v Value) String() string {
	return v.Raw
}

// Declaration is a single "property: value" pair.
type Declaration struct {
	Property  string
	Value     Value
	Important bool
}

// Rule is a style rule with a single (not grouped) selector. Selector is kept
// as text, matching is done by the cascade.
type Rule struct {
	Selector     string
	Declarations []Declaration
}

// FontFace is a parsed @font-face rule.
type FontFace struct {
	Family string
	Src    []string // url() and local() sources in declaration order
	Style  string
	Weight string
}

// MediaQuery is a simplified @media prelude: comma separated list of media
// types with optional "not"/"only" modifiers. Feature expressions are ignored.
type MediaQuery struct {
	Raw   string
	Types []MediaType
}

type MediaType struct {
	Name    string
	Negated bool
}

// Screen reports whether query matches screen rendering.
func (mq MediaQuery) Screen() bool {
	if len(mq.Types) == 0 {
		return true
	}
	for _, t := range mq.Types {
		match := t.Name == "all" || t.Name == "screen" || t.Name == ""
		if t.Negated {
			match = !match
		}
		if match {
			return true
		}
	}
	return false
}

// Stylesheet holds rules in source order. Rules from @media blocks matching
// screen are flattened into Rules, the others are dropped.
type Stylesheet struct {
	Rules     []Rule
	FontFaces []FontFace
	Imports   []string
	Warnings  []string
}

// RulesBySelector returns all rules with given selector text.
func (s *Stylesheet) RulesBySelector(selector string) []Rule {
	var out []Rule
	for _, r := range s.Rules {
		if strings.EqualFold(r.Selector, selector) {
			out = append(out, r)
		}
	}
	return out
}

// Get returns last declaration of the property in the rule.
func (r Rule) Get(property string) (Declaration, bool) {
	for i := len(r.Declarations) - 1; i >= 0; i-- {
		if r.Declarations[i].Property == property {
			return r.Declarations[i], true
		}
	}
	return Declaration{}, false
}
