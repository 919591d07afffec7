package extract

import (
	"iter"
	"slices"
	"strconv"
	"strings"
)

// Tracked property names the pipeline gives special meaning to.
const (
	PropFontFamily = "font-family"
	PropFontSize   = "font-size"
	PropFontWeight = "font-weight"
	PropFontStyle  = "font-style"
	PropColor      = "color"
)

// Property is a tracked style property with values which are never emitted.
type Property struct {
	Name     string
	Defaults []string
}

// StyleTable is ordered list of tracked properties. Order defines signature
// and output order.
type StyleTable []Property

// DefaultStyleTable returns the standard set of tracked properties.
func DefaultStyleTable() StyleTable {
	return StyleTable{
		{Name: PropFontFamily},
		{Name: PropFontSize, Defaults: []string{"16"}},
		{Name: PropFontWeight, Defaults: []string{"400", "normal"}},
		{Name: PropFontStyle, Defaults: []string{"normal"}},
		{Name: "font-stretch", Defaults: []string{"100%"}},
		{Name: PropColor, Defaults: []string{"rgb(0, 0, 0)"}},
		{Name: "letter-spacing", Defaults: []string{"normal"}},
		{Name: "text-decoration", Defaults: []string{"none", "none solid rgb(0, 0, 0)"}},
		{Name: "text-transform", Defaults: []string{"none"}},
	}
}

// IsDefault reports whether value is ignorable for the property.
func (t StyleTable) IsDefault(name, value string) bool {
	for _, p := range t {
		if p.Name == name {
			return slices.Contains(p.Defaults, value)
		}
	}
	return false
}

// StyleSnapshot holds resolved values of all tracked properties, captured
// once per text node.
type StyleSnapshot struct {
	table  StyleTable
	values []string
	// FontSize is numeric font size in px.
	FontSize float64
}

// NewStyleSnapshot captures tracked properties from computed style. Font size
// is reduced to a bare number.
func NewStyleSnapshot(table StyleTable, computed map[string]string) *StyleSnapshot {
	s := &StyleSnapshot{table: table, values: make([]string, len(table))}
	if fs, ok := parseFontSize(computed[PropFontSize]); ok {
		s.FontSize = fs
	}
	for i, p := range table {
		v := strings.TrimSpace(computed[p.Name])
		if p.Name == PropFontSize {
			if _, ok := parseFontSize(v); ok {
				v = FormatNumber(s.FontSize)
			}
		}
		s.values[i] = v
	}
	return s
}

func parseFontSize(v string) (float64, bool) {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Get returns value of tracked property, empty if not tracked.
func (s *StyleSnapshot) Get(name string) string {
	if s == nil {
		return ""
	}
	for i, p := range s.table {
		if p.Name == name {
			return s.values[i]
		}
	}
	return ""
}

// All iterates tracked properties and their values in table order.
func (s *StyleSnapshot) All() iter.Seq2[Property, string] {
	return func(yield func(Property, string) bool) {
		if s == nil {
			return
		}
		for i, p := range s.table {
			if !yield(p, s.values[i]) {
				return
			}
		}
	}
}

// Signature is ordered concatenation of values, equal signatures mean same
// style.
func (s *StyleSnapshot) Signature() string {
	if s == nil {
		return ""
	}
	return strings.Join(s.values, "\x1f")
}

// FormatNumber prints number without trailing zeros.
func FormatNumber(f float64) string {
	if f == 0 {
		// avoid "-0"
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
