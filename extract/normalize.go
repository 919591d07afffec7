package extract

import (
	"strings"
)

// Normalize turns line breaks and tabs into spaces, collapses space runs,
// trims both ends and appends single separating space.
func Normalize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 1)

	space := true // drops leading spaces
	for _, r := range s {
		switch r {
		case '\n', '\r', '\t', ' ':
			if !space {
				sb.WriteByte(' ')
			}
			space = true
		default:
			sb.WriteRune(r)
			space = false
		}
	}

	out := sb.String()
	if space && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out + " "
}

// NormalizeNode normalizes node content in place.
func NormalizeNode(n Node) {
	n.SetContent(Normalize(n.Content()))
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
