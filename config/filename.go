package config

import (
	"os"
	"strings"
	"unicode"
)

// placeholder is used when nothing usable is left of a file name.
const placeholder = "_bad_file_name_"

// CleanFileName drops characters which cannot appear in a file name on the
// current platform together with control characters and leading dots.
func CleanFileName(in string) string {
	reject := unsafeNameChars + string(os.PathSeparator) + string(os.PathListSeparator)
	out := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || strings.ContainsRune(reject, r) {
			return -1
		}
		return r
	}, in)
	if out = trimName(strings.TrimLeft(out, ".")); out == "" {
		return placeholder
	}
	return out
}
