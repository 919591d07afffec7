package convert

import (
	"fmt"
	"io"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"h2svg/config"
	"h2svg/dom"
	"h2svg/extract"
	"h2svg/state"
	"h2svg/svg"
	"h2svg/typeset"
	"h2svg/typeset/hyphen"
)

// pipeline holds everything needed to turn selected elements of HTML
// documents into SVG. It is created once per run.
type pipeline struct {
	env      *state.LocalEnv
	engine   *typeset.Engine
	scanner  *extract.Scanner
	renderer *svg.Renderer
	log      *zap.Logger
}

// scopeResult is outcome of converting a single selected element.
type scopeResult struct {
	scope  *dom.Scope
	layout *extract.LayoutResult
	doc    *etree.Document
}

func styleTable(props []config.StyleProperty) extract.StyleTable {
	if len(props) == 0 {
		return extract.DefaultStyleTable()
	}
	table := make(extract.StyleTable, 0, len(props))
	for _, p := range props {
		table = append(table, extract.Property{Name: p.Name, Defaults: p.Defaults})
	}
	return table
}

func newPipeline(env *state.LocalEnv, log *zap.Logger) (*pipeline, error) {
	cfg := &env.Cfg.Document
	table := styleTable(cfg.SVG.Styles)

	opts := typeset.Options{
		Width:     cfg.Layout.Width,
		BlockGap:  cfg.Layout.BlockGap * cfg.Layout.FontSize,
		Hyphenate: cfg.Layout.Hyphenation.Enable,
	}
	if hc := cfg.Layout.Hyphenation; hc.Enable && hc.PatternsPath != "" {
		tag, err := language.Parse(hc.Language)
		if err != nil {
			return nil, fmt.Errorf("bad hyphenation language %q: %w", hc.Language, err)
		}
		h, err := hyphen.New(tag, hyphen.Options{PatternsPath: hc.PatternsPath, ExceptionsPath: hc.ExceptionsPath}, log)
		if err != nil {
			return nil, fmt.Errorf("unable to prepare hyphenation: %w", err)
		}
		opts.Hyphenator = h
	}

	engine, err := typeset.NewEngine(opts, log)
	if err != nil {
		return nil, err
	}
	return &pipeline{
		env:      env,
		engine:   engine,
		scanner:  extract.NewScanner(extract.Options{Styles: table, BaselineShift: cfg.SVG.BaselineShift}, log),
		renderer: svg.NewRenderer(svg.Options{Decimals: cfg.SVG.Decimals, Styles: table}, log),
		log:      log,
	}, nil
}

// parse reads HTML document, font files of @font-face rules are resolved
// relative to baseDir.
func (p *pipeline) parse(r io.Reader, baseDir string) (*dom.Document, error) {
	cfg := &p.env.Cfg.Document
	opts := dom.Options{
		UserAgent:    p.env.DefaultStyle,
		RootFontSize: cfg.Layout.FontSize,
		LineHeight:   cfg.Layout.LineHeight,
		Log:          p.log,
	}
	if len(p.env.UserStyle) > 0 {
		opts.Stylesheets = [][]byte{p.env.UserStyle}
	}
	doc, err := dom.Parse(r, "", opts)
	if err != nil {
		return nil, err
	}
	p.engine.AddFontFaces(doc.FontFaces(), baseDir)
	return doc, nil
}

// convert lays out and serializes every scope of the document matching the
// configured selector. Failed scopes are logged and skipped.
func (p *pipeline) convert(doc *dom.Document) ([]scopeResult, error) {
	selector := p.env.Cfg.Document.Selector
	scopes, err := doc.Scopes(selector)
	if err != nil {
		return nil, err
	}
	if len(scopes) == 0 {
		return nil, fmt.Errorf("nothing matches selector %q", selector)
	}

	results := make([]scopeResult, 0, len(scopes))
	for _, scope := range scopes {
		res, err := p.scanner.Scan(p.engine.Bind(scope))
		if err != nil {
			p.log.Warn("Unable to convert element, skipping",
				zap.String("tag", scope.Tag()), zap.Int("index", scope.Index), zap.Error(err))
			continue
		}
		results = append(results, scopeResult{scope: scope, layout: res, doc: p.renderer.Render(res)})
	}
	return results, nil
}
