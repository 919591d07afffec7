package extract

import (
	"iter"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

const softHyphen = "\u00ad"

// nodeExtractor turns a single normalized text node into runs.
type nodeExtractor struct {
	geo   Geometry
	node  Node
	text  []rune
	proto TextRun
	runs  []TextRun
	log   *zap.Logger
}

func (e *nodeExtractor) measure(start, end int) Box {
	return e.geo.MeasureRange(e.node, start, end)
}

// emit appends run at box position, degenerate boxes produce nothing.
func (e *nodeExtractor) emit(text string, box Box, hyphenated bool) {
	if box.Degenerate() {
		e.log.Debug("Skipping degenerate run", zap.String("text", text))
		return
	}
	text = strings.ReplaceAll(text, softHyphen, "")
	if blank(text) {
		return
	}
	r := e.proto
	r.Text, r.X, r.Y, r.Height, r.Hyphenated = text, box.X, box.Y, box.Height, hyphenated
	e.runs = append(e.runs, r)
}

func (e *nodeExtractor) extract() []TextRun {
	n := len(e.text)
	first := e.measure(0, 1)
	body := e.measure(0, n-1)

	if body.Height <= first.Height {
		e.emit(string(e.text), Box{X: first.X, Y: first.Y, Width: body.Width, Height: body.Height}, false)
		return e.runs
	}

	lineHeight := first.Height
	for start, end := range words(e.text) {
		box := e.measure(start, end)
		if box.Height <= lineHeight {
			e.addWord(start, end, box)
			continue
		}
		e.splitWord(start, end)
	}
	return e.runs
}

// addWord appends word to the last run of the node when they share the top,
// otherwise starts a new run.
func (e *nodeExtractor) addWord(start, end int, box Box) {
	word := string(e.text[start:end]) + " "
	if last := len(e.runs) - 1; last >= 0 && e.runs[last].Y == box.Y && !box.Degenerate() {
		e.runs[last].Text += strings.ReplaceAll(word, softHyphen, "")
		return
	}
	e.emit(word, box, false)
}

// splitWord handles word wrapped across lines. Split happens before the first
// visible character whose top differs from the top of the character before.
func (e *nodeExtractor) splitWord(start, end int) {
	word := e.text[start:end]
	hyphenated := !containsAny(word, '-', '–')

	segment, prevTop, havePrev := start, 0.0, false
	for k := start; k < end; k++ {
		if unicode.IsSpace(e.text[k]) {
			continue
		}
		c := e.measure(k, k+1)
		if c.Degenerate() {
			continue
		}
		if havePrev && c.Y != prevTop && k > segment {
			e.emit(string(e.text[segment:k]), e.measure(segment, k), hyphenated)
			segment = k
		}
		prevTop, havePrev = c.Y, true
	}
	e.emit(string(e.text[segment:end])+" ", e.measure(segment, end), false)
}

// words yields [start, end) rune ranges of space separated words.
func words(text []rune) iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		start := -1
		for i, r := range text {
			switch {
			case r == ' ' && start >= 0:
				if !yield(start, i) {
					return
				}
				start = -1
			case r != ' ' && start < 0:
				start = i
			}
		}
		if start >= 0 {
			yield(start, len(text))
		}
	}
}

func containsAny(word []rune, chars ...rune) bool {
	for _, r := range word {
		for _, c := range chars {
			if r == c {
				return true
			}
		}
	}
	return false
}
