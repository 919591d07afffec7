// Package hyphen provides TeX pattern based hyphenation for the reference
// layout engine.
package hyphen

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/h2non/filetype"
	"github.com/speedata/hyphenation"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// SoftHyphen is inserted at allowed break points.
const SoftHyphen = "\u00ad"

// Pattern files for some languages carry a variant or script suffix.
var langMap = map[string]string{
	"de":    "de-1901",
	"de-de": "de-1901",
	"de-at": "de-1996",
	"de-ch": "de-ch-1901",
	"el":    "el-monoton",
	"el-gr": "el-monoton",
	"en":    "en-us",
	"mn":    "mn-cyrl",
	"sh":    "sh-latn",
	"sr":    "sr-cyrl",
	"zh":    "zh-latn-pinyin",
}

// Options describes where patterns come from.
type Options struct {
	// PatternsPath is either a pattern file (optionally gzipped) or a
	// directory holding hyph-<lang>.pat.txt[.gz] files.
	PatternsPath string
	// ExceptionsPath is optional exceptions file, one hyphenated word per
	// line. When empty and patterns come from a directory, matching
	// hyph-<lang>.hyp.txt[.gz] is used if present.
	ExceptionsPath string
	// Minimal number of characters before and after a break.
	LeftMin, RightMin int
}

// Hyphenator finds break points inside words.
type Hyphenator struct {
	lang       *hyphenation.Lang
	exceptions map[string][]int
	language   string
}

// New loads hyphenation patterns for specified language.
func New(lang language.Tag, opts Options, log *zap.Logger) (*Hyphenator, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.PatternsPath == "" {
		return nil, errors.New("hyphenation patterns path is not set")
	}
	if opts.LeftMin <= 0 {
		opts.LeftMin = 2
	}
	if opts.RightMin <= 0 {
		opts.RightMin = 3
	}

	patterns, name, err := resolvePatterns(lang, opts.PatternsPath, log)
	if err != nil {
		return nil, err
	}

	data, err := readDictionary(patterns)
	if err != nil {
		return nil, fmt.Errorf("unable to read hyphenation patterns: %w", err)
	}
	hl, err := hyphenation.New(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("unable to load hyphenation patterns from %s: %w", patterns, err)
	}
	// library counts the leading word boundary marker as a character on the
	// left side only
	hl.Leftmin, hl.Rightmin = opts.LeftMin-1, opts.RightMin

	h := &Hyphenator{lang: hl, exceptions: make(map[string][]int), language: name}

	exceptions := opts.ExceptionsPath
	if exceptions == "" && patterns != opts.PatternsPath {
		exceptions = findDictionary(opts.PatternsPath, name, "hyp")
	}
	if exceptions != "" {
		data, err := readDictionary(exceptions)
		if err != nil {
			return nil, fmt.Errorf("unable to read hyphenation exceptions: %w", err)
		}
		h.loadExceptions(strings.NewReader(string(data)))
	}

	log.Debug("Hyphenation patterns loaded", zap.Stringer("tag", lang), zap.String("name", name),
		zap.String("patterns", patterns), zap.Int("exceptions", len(h.exceptions)))
	return h, nil
}

// resolvePatterns returns file to load patterns from. For directories it
// tries language tag, mapped tag, base language and mapped base language in
// that order.
func resolvePatterns(lang language.Tag, path string, log *zap.Logger) (string, string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", "", fmt.Errorf("unable to access hyphenation patterns: %w", err)
	}
	name := strings.ToLower(lang.String())
	if !fi.IsDir() {
		return path, name, nil
	}

	candidates := []string{name}
	if mapped, ok := langMap[name]; ok {
		candidates = append(candidates, mapped)
	}
	if base, confidence := lang.Base(); confidence != language.No {
		b := strings.ToLower(base.String())
		candidates = append(candidates, b)
		if mapped, ok := langMap[b]; ok {
			candidates = append(candidates, mapped)
		}
	} else {
		log.Warn("Unable to determine language base", zap.Stringer("tag", lang), zap.Stringer("base", base))
	}

	for _, c := range candidates {
		if file := findDictionary(path, c, "pat"); file != "" {
			return file, c, nil
		}
	}
	return "", "", fmt.Errorf("no hyphenation patterns for %s in %s", lang, path)
}

func findDictionary(dir, name, kind string) string {
	for _, ext := range []string{".txt", ".txt.gz"} {
		file := filepath.Join(dir, fmt.Sprintf("hyph-%s.%s%s", name, kind, ext))
		if _, err := os.Stat(file); err == nil {
			return file
		}
	}
	return ""
}

// readDictionary reads file contents, gzipped files are recognized by their
// signature.
func readDictionary(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil || !filetype.Is(data, "gz") {
		return data, err
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// loadExceptions reads words with explicit break points ("hy-phen-ation").
func (h *Hyphenator) loadExceptions(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "%") {
			continue
		}
		for word := range strings.FieldsSeq(strings.ToLower(line)) {
			var points []int
			count := 0
			for _, r := range word {
				if r == '-' {
					points = append(points, count)
					continue
				}
				count++
			}
			h.exceptions[strings.ReplaceAll(word, "-", "")] = points
		}
	}
}

// Language returns name of the loaded dictionary.
func (h *Hyphenator) Language() string {
	if h == nil {
		return ""
	}
	return h.language
}

// Points returns rune counts after which word may be broken, ascending.
func (h *Hyphenator) Points(word string) []int {
	if h == nil || utf8.RuneCountInString(word) < 2 {
		return nil
	}
	lw := strings.ToLower(word)
	if points, ok := h.exceptions[lw]; ok {
		return slices.Clone(points)
	}
	points := h.lang.Hyphenate(lw)
	n := utf8.RuneCountInString(word)
	return slices.DeleteFunc(points, func(p int) bool { return p <= 0 || p >= n })
}

// Hyphenate inserts soft hyphens into words of the string.
func (h *Hyphenator) Hyphenate(in string) string {
	if h == nil {
		return in
	}

	var sb strings.Builder
	word := make([]rune, 0, 32)
	flush := func() {
		if len(word) == 0 {
			return
		}
		points := h.Points(string(word))
		last := 0
		for _, p := range points {
			sb.WriteString(string(word[last:p]))
			sb.WriteString(SoftHyphen)
			last = p
		}
		sb.WriteString(string(word[last:]))
		word = word[:0]
	}
	for _, r := range in {
		if unicode.IsLetter(r) {
			word = append(word, r)
			continue
		}
		flush()
		sb.WriteRune(r)
	}
	flush()
	return sb.String()
}
