package css

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"
	"unicode"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses CSS stylesheets into structured rules.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses CSS text into a Stylesheet. The optional source parameter
// identifies what is being parsed (for debug logging).
func (p *Parser) Parse(data []byte, source ...string) *Stylesheet {
	sheet := &Stylesheet{}

	if len(source) > 0 && source[0] != "" {
		p.log.Debug("Parsing CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	parser := css.NewParser(parse.NewInput(bytes.NewReader(data)), false)
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if p.stop(parser, sheet) {
				return sheet
			}

		case css.BeginAtRuleGrammar:
			switch atRule := string(data); atRule {
			case "@media":
				mq := parseMediaQuery(parser.Values())
				rules := p.parseRuleList(parser, sheet)
				if mq.Screen() {
					sheet.Rules = append(sheet.Rules, rules...)
				}
				p.log.Debug("Parsed @media block", zap.String("query", mq.Raw), zap.Int("rules", len(rules)), zap.Bool("applied", mq.Screen()))
			case "@font-face":
				if ff := p.parseFontFace(parser); ff.Family != "" {
					sheet.FontFaces = append(sheet.FontFaces, ff)
				}
			default:
				p.skipAtRuleBlock(parser)
				p.log.Debug("Skipping @-rule", zap.String("rule", atRule))
			}

		case css.AtRuleGrammar:
			if atRule := string(data); atRule == "@import" {
				if url := extractURL(parser.Values()); url != "" {
					sheet.Imports = append(sheet.Imports, url)
				}
			} else {
				p.log.Debug("Skipping @-rule", zap.String("rule", atRule))
			}

		case css.BeginRulesetGrammar:
			sheet.Rules = append(sheet.Rules, p.parseRuleset(parser, sheet)...)
		}
	}
}

// ParseInline parses content of a style attribute.
func (p *Parser) ParseInline(data string) []Declaration {
	var decls []Declaration

	parser := css.NewParser(parse.NewInput(strings.NewReader(data)), true)
	for {
		gt, _, name := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			if parser.HasParseError() {
				p.log.Debug("Inline style parse error", zap.String("style", data), zap.Error(parser.Err()))
				continue
			}
			return decls
		case css.DeclarationGrammar:
			if d, ok := newDeclaration(string(name), parser.Values()); ok {
				decls = append(decls, d)
			}
		}
	}
}

// stop decides whether parsing should end on error grammar. Syntax errors are
// recorded and skipped, end of input or read errors stop parsing.
func (p *Parser) stop(parser *css.Parser, sheet *Stylesheet) bool {
	err := parser.Err()
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	if !parser.HasParseError() {
		p.log.Debug("CSS read error", zap.Error(err))
		return true
	}
	sheet.Warnings = append(sheet.Warnings, err.Error())
	p.log.Debug("CSS parse error", zap.Error(err))
	return false
}

// parseRuleset reads declarations of the ruleset just started and returns one
// rule per selector in the group.
func (p *Parser) parseRuleset(parser *css.Parser, sheet *Stylesheet) []Rule {
	selectors := splitSelectors(parser.Values())
	decls := p.parseDeclarations(parser, sheet)
	if len(decls) == 0 {
		return nil
	}

	rules := make([]Rule, 0, len(selectors))
	for _, sel := range selectors {
		rules = append(rules, Rule{Selector: sel, Declarations: decls})
	}
	return rules
}

// parseDeclarations reads declarations until the end of current block.
func (p *Parser) parseDeclarations(parser *css.Parser, sheet *Stylesheet) []Declaration {
	var decls []Declaration
	for {
		gt, _, data := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			if p.stop(parser, sheet) {
				return decls
			}
		case css.EndRulesetGrammar, css.EndAtRuleGrammar:
			return decls
		case css.DeclarationGrammar:
			if d, ok := newDeclaration(string(data), parser.Values()); ok {
				decls = append(decls, d)
			}
		}
	}
}

// parseRuleList parses rulesets inside an @media block.
func (p *Parser) parseRuleList(parser *css.Parser, sheet *Stylesheet) []Rule {
	var rules []Rule
	for {
		gt, _, _ := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			if p.stop(parser, sheet) {
				return rules
			}
		case css.EndAtRuleGrammar:
			return rules
		case css.BeginAtRuleGrammar:
			p.skipAtRuleBlock(parser)
		case css.BeginRulesetGrammar:
			rules = append(rules, p.parseRuleset(parser, sheet)...)
		}
	}
}

// skipAtRuleBlock skips tokens until the matching end of an @-rule block.
func (p *Parser) skipAtRuleBlock(parser *css.Parser) {
	for depth := 1; depth > 0; {
		switch gt, _, _ := parser.Next(); gt {
		case css.ErrorGrammar:
			if !parser.HasParseError() {
				return
			}
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}

func (p *Parser) parseFontFace(parser *css.Parser) FontFace {
	ff := FontFace{}
	for {
		gt, _, data := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			if !parser.HasParseError() {
				return ff
			}
		case css.EndAtRuleGrammar:
			return ff
		case css.DeclarationGrammar:
			values := parser.Values()
			switch string(data) {
			case "font-family":
				ff.Family = unquote(tokensText(values))
			case "src":
				ff.Src = append(ff.Src, extractSources(values)...)
			case "font-style":
				ff.Style = strings.ToLower(tokensText(values))
			case "font-weight":
				ff.Weight = strings.ToLower(tokensText(values))
			}
		}
	}
}

func newDeclaration(property string, tokens []css.Token) (Declaration, bool) {
	if len(tokens) == 0 {
		return Declaration{}, false
	}
	d := Declaration{Property: strings.ToLower(property)}
	// "!important" arrives as delimiter followed by identifier
	if n := len(tokens); n >= 2 && tokens[n-2].TokenType == css.DelimToken && string(tokens[n-2].Data) == "!" &&
		strings.EqualFold(string(tokens[n-1].Data), "important") {
		d.Important = true
		tokens = tokens[:n-2]
	}
	d.Value = parseValue(tokens)
	return d, d.Value.Raw != ""
}

// parseValue converts value tokens to a Value.
func parseValue(tokens []css.Token) Value {
	for len(tokens) > 0 && tokens[len(tokens)-1].TokenType == css.WhitespaceToken {
		tokens = tokens[:len(tokens)-1]
	}
	val := Value{Raw: tokensText(tokens)}
	if len(tokens) != 1 {
		val.Keyword = val.Raw
		return val
	}

	switch t := tokens[0]; t.TokenType {
	case css.DimensionToken:
		val.Value, val.Unit = parseDimension(string(t.Data))
	case css.PercentageToken:
		val.Value, _ = strconv.ParseFloat(strings.TrimSuffix(string(t.Data), "%"), 64)
		val.Unit = "%"
	case css.NumberToken:
		val.Value, _ = strconv.ParseFloat(string(t.Data), 64)
	case css.IdentToken:
		val.Keyword = strings.ToLower(string(t.Data))
	case css.StringToken:
		val.Keyword = unquote(string(t.Data))
	default:
		val.Keyword = val.Raw
	}
	return val
}

// ParseValue parses standalone value text, for example attribute values
// which should be treated as CSS.
func ParseValue(text string) Value {
	l := css.NewLexer(parse.NewInput(strings.NewReader(text)))
	var tokens []css.Token
	for {
		tt, data := l.Next()
		if tt == css.ErrorToken {
			break
		}
		if tt == css.WhitespaceToken && len(tokens) == 0 {
			continue
		}
		tokens = append(tokens, css.Token{TokenType: tt, Data: parse.Copy(data)})
	}
	return parseValue(tokens)
}

// parseDimension extracts numeric value and unit from dimension token.
func parseDimension(s string) (float64, string) {
	numEnd := 0
	for i, r := range s {
		if unicode.IsDigit(r) || r == '.' || ((r == '-' || r == '+') && i == 0) {
			numEnd = i + 1
			continue
		}
		break
	}
	if numEnd == 0 {
		return 0, ""
	}
	num, _ := strconv.ParseFloat(s[:numEnd], 64)
	return num, strings.ToLower(s[numEnd:])
}

// tokensText joins tokens collapsing whitespace.
func tokensText(tokens []css.Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		if t.TokenType == css.WhitespaceToken {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			continue
		}
		sb.Write(t.Data)
	}
	return strings.TrimSpace(sb.String())
}

// splitSelectors splits ruleset prelude into individual selectors.
func splitSelectors(tokens []css.Token) []string {
	var selectors []string
	for s := range strings.SplitSeq(tokensText(tokens), ",") {
		if s = strings.TrimSpace(s); s != "" {
			selectors = append(selectors, s)
		}
	}
	return selectors
}

func parseMediaQuery(tokens []css.Token) MediaQuery {
	mq := MediaQuery{Raw: tokensText(tokens)}
	for part := range strings.SplitSeq(strings.ToLower(mq.Raw), ",") {
		mt := MediaType{}
	words:
		for _, word := range strings.Fields(part) {
			switch {
			case word == "not":
				mt.Negated = true
			case word == "only":
			case word == "and", strings.HasPrefix(word, "("):
				// feature expressions are not evaluated
				break words
			default:
				if mt.Name == "" {
					mt.Name = word
				}
			}
		}
		mq.Types = append(mq.Types, mt)
	}
	return mq
}

// extractURL extracts the URL from @import tokens.
func extractURL(tokens []css.Token) string {
	for _, t := range tokens {
		switch t.TokenType {
		case css.StringToken:
			return unquote(string(t.Data))
		case css.URLToken:
			return urlTokenValue(string(t.Data))
		}
	}
	return ""
}

// extractSources returns font-face src entries as "url:<path>" or
// "local:<name>".
func extractSources(tokens []css.Token) []string {
	var out []string
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		switch {
		case t.TokenType == css.URLToken:
			out = append(out, "url:"+urlTokenValue(string(t.Data)))
		case t.TokenType == css.FunctionToken && (strings.EqualFold(string(t.Data), "url(") || strings.EqualFold(string(t.Data), "local(")):
			kind := strings.ToLower(strings.TrimSuffix(string(t.Data), "("))
			var arg strings.Builder
			for i++; i < len(tokens) && tokens[i].TokenType != css.RightParenthesisToken; i++ {
				arg.Write(tokens[i].Data)
			}
			out = append(out, kind+":"+unquote(arg.String()))
		}
	}
	return out
}

func urlTokenValue(s string) string {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "url("), ")")
	return unquote(strings.TrimSpace(s))
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
