// Package dom parses HTML documents, resolves CSS styles of their elements
// and exposes selected scope elements as text node sources.
package dom

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"h2svg/css"
)

//go:embed default.css
var defaultCSS []byte

// UserAgentStylesheet returns built-in default stylesheet.
func UserAgentStylesheet() []byte {
	return defaultCSS
}

// Options controls document parsing.
type Options struct {
	// UserAgent replaces built-in default stylesheet when not empty.
	UserAgent []byte
	// Stylesheets are applied after user agent sheet and before document
	// <style> elements.
	Stylesheets [][]byte
	// RootFontSize is font size of the root element when stylesheets do not
	// set one.
	RootFontSize float64
	// LineHeight is the factor used for "line-height: normal".
	LineHeight float64
	Log        *zap.Logger
}

// Document is parsed HTML with resolved styles.
type Document struct {
	doc    *goquery.Document
	styles map[*html.Node]*Style
	faces  []css.FontFace
	title  string
	log    *zap.Logger
}

// Parse reads HTML from r, content type (may be empty) is used to detect
// encoding. All styles are resolved once.
func Parse(r io.Reader, contentType string, opts Options) (*Document, error) {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.RootFontSize <= 0 {
		opts.RootFontSize = defaultFontSize
	}
	if opts.LineHeight <= 0 {
		opts.LineHeight = defaultLineHeight
	}
	if len(opts.UserAgent) == 0 {
		opts.UserAgent = defaultCSS
	}

	cr, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("unable to detect document encoding: %w", err)
	}
	gq, err := goquery.NewDocumentFromReader(cr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse HTML: %w", err)
	}

	d := &Document{
		doc:   gq,
		title: strings.TrimSpace(gq.Find("head title").First().Text()),
		log:   opts.Log.Named("dom"),
	}

	parser := css.NewParser(opts.Log)
	c := newCascade(parser, d.log)
	c.addSheet(parser.Parse(opts.UserAgent, "user agent"), originUserAgent)
	for i, data := range opts.Stylesheets {
		sheet := parser.Parse(data, fmt.Sprintf("stylesheet %d", i))
		d.faces = append(d.faces, sheet.FontFaces...)
		c.addSheet(sheet, originAuthor)
	}
	gq.Find("style").Each(func(_ int, s *goquery.Selection) {
		sheet := parser.Parse([]byte(s.Text()), "<style>")
		d.faces = append(d.faces, sheet.FontFaces...)
		c.addSheet(sheet, originAuthor)
	})

	root := gq.Get(0)
	declared := c.apply(root)
	d.styles = resolveStyles(root, declared, resolveOptions{rootFontSize: opts.RootFontSize, lineHeight: opts.LineHeight})

	d.log.Debug("Document parsed", zap.Int("rules", len(c.rules)), zap.Int("elements", len(d.styles)), zap.Int("font-faces", len(d.faces)))
	return d, nil
}

// Title returns text of the document <title>.
func (d *Document) Title() string {
	return d.title
}

// FontFaces returns @font-face rules of author stylesheets.
func (d *Document) FontFaces() []css.FontFace {
	return d.faces
}

// StyleOf returns resolved style of the element, nil for unknown nodes.
func (d *Document) StyleOf(n *html.Node) *Style {
	return d.styles[n]
}

// Scopes returns elements matching selector in document order.
func (d *Document) Scopes(selector string) ([]*Scope, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("bad selector %q: %w", selector, err)
	}
	var scopes []*Scope
	d.doc.FindMatcher(sel).Each(func(i int, s *goquery.Selection) {
		scopes = append(scopes, newScope(d, s.Get(0), i))
	})
	d.log.Debug("Scopes selected", zap.String("selector", selector), zap.Int("count", len(scopes)))
	return scopes, nil
}
