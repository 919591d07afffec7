// Package debug formats internal structures as indented text trees for
// debug reports.
package debug

import (
	"fmt"
	"strconv"
	"strings"
)

const indent = "  "

type TreeWriter struct {
	w *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{w: &strings.Builder{}}
}

func (tw *TreeWriter) String() string {
	return tw.w.String()
}

func (tw *TreeWriter) pad(depth int) {
	tw.w.WriteString(strings.Repeat(indent, depth))
}

// Line writes formatted line at depth.
func (tw *TreeWriter) Line(depth int, format string, args ...any) {
	tw.pad(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// TextBlock writes label and quoted text, whitespace stays visible.
func (tw *TreeWriter) TextBlock(depth int, label, value string) {
	tw.pad(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

// Attrs writes label followed by key[value] pairs, pairs with empty values
// are omitted.
func (tw *TreeWriter) Attrs(depth int, label string, pairs ...any) {
	tw.pad(depth)
	tw.w.WriteString(label)
	for i := 0; i+1 < len(pairs); i += 2 {
		v := formatValue(pairs[i+1])
		if v == "" {
			continue
		}
		fmt.Fprintf(tw.w, " %v[%s]", pairs[i], v)
	}
	tw.w.WriteByte('\n')
}

func formatValue(v any) string {
	switch v := v.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "true"
		}
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}
