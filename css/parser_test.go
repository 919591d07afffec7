package css_test

import (
	"testing"

	"go.uber.org/zap"

	"h2svg/css"
)

func TestParser_Rules(t *testing.T) {
	p := css.NewParser(zap.NewNop())

	sheet := p.Parse([]byte(`
p { font-size: 12pt; color: #333 }
h1, h2 .title { font-weight: bold; }
a:hover { color: red }
div span { letter-spacing: 0.1em !important; }
`), "test")

	tests := []struct {
		selector string
		property string
		raw      string
	}{
		{"p", "font-size", "12pt"},
		{"p", "color", "#333"},
		{"h1", "font-weight", "bold"},
		{"h2 .title", "font-weight", "bold"},
		{"a:hover", "color", "red"},
		{"div span", "letter-spacing", "0.1em"},
	}

	for _, tt := range tests {
		t.Run(tt.selector+"/"+tt.property, func(t *testing.T) {
			rules := sheet.RulesBySelector(tt.selector)
			if len(rules) != 1 {
				t.Fatalf("expected 1 rule for %q, got %d (all: %+v)", tt.selector, len(rules), sheet.Rules)
			}
			d, ok := rules[0].Get(tt.property)
			if !ok {
				t.Fatalf("property %q not found", tt.property)
			}
			if d.Value.Raw != tt.raw {
				t.Errorf("value = %q, want %q", d.Value.Raw, tt.raw)
			}
		})
	}

	rules := sheet.RulesBySelector("div span")
	if len(rules) == 1 {
		if d, _ := rules[0].Get("letter-spacing"); !d.Important {
			t.Error("expected !important to be detected")
		}
	}
}

func TestParser_Values(t *testing.T) {
	tests := []struct {
		decl    string
		value   float64
		unit    string
		keyword string
	}{
		{"font-size: 12px", 12, "px", ""},
		{"font-size: 1.5em", 1.5, "em", ""},
		{"width: 50%", 50, "%", ""},
		{"line-height: 1.2", 1.2, "", ""},
		{"font-weight: BOLD", 0, "", "bold"},
		{"font-family: 'Go Mono'", 0, "", "Go Mono"},
		{"font-family: Georgia, serif", 0, "", "Georgia,serif"},
		{"color: rgb(1, 2, 3)", 0, "", "rgb(1,2,3)"},
		{"margin-left: -2px", -2, "px", ""},
	}

	p := css.NewParser(nil)
	for _, tt := range tests {
		t.Run(tt.decl, func(t *testing.T) {
			decls := p.ParseInline(tt.decl)
			if len(decls) != 1 {
				t.Fatalf("expected 1 declaration, got %d", len(decls))
			}
			v := decls[0].Value
			if v.Value != tt.value || v.Unit != tt.unit || v.Keyword != tt.keyword {
				t.Errorf("got {%v %q %q}, want {%v %q %q}", v.Value, v.Unit, v.Keyword, tt.value, tt.unit, tt.keyword)
			}
		})
	}
}

func TestParser_Inline(t *testing.T) {
	p := css.NewParser(zap.NewNop())

	decls := p.ParseInline("color: blue; font-style:italic;; text-transform: uppercase !important")
	if len(decls) != 3 {
		t.Fatalf("expected 3 declarations, got %d: %+v", len(decls), decls)
	}
	want := []string{"color", "font-style", "text-transform"}
	for i, d := range decls {
		if d.Property != want[i] {
			t.Errorf("decls[%d].Property = %q, want %q", i, d.Property, want[i])
		}
	}
	if !decls[2].Important {
		t.Error("expected last declaration to be important")
	}
}

func TestParser_Media(t *testing.T) {
	p := css.NewParser(zap.NewNop())

	sheet := p.Parse([]byte(`
@media print { p { color: red } }
@media screen and (min-width: 100px) { p { color: green } }
@media not print { em { color: blue } }
@page { margin: 1cm }
p { font-style: italic }
`))

	rules := sheet.RulesBySelector("p")
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules for p, got %d", len(rules))
	}
	if d, _ := rules[0].Get("color"); d.Value.Raw != "green" {
		t.Errorf("screen rule color = %q, want green", d.Value.Raw)
	}
	if len(sheet.RulesBySelector("em")) != 1 {
		t.Error("expected rule from 'not print' block")
	}
}

func TestParser_FontFace(t *testing.T) {
	p := css.NewParser(zap.NewNop())

	sheet := p.Parse([]byte(`
@font-face {
  font-family: "Body Serif";
  src: url(fonts/body.ttf), local("Body Serif Regular");
  font-weight: bold;
}
@import url("extra.css");
`))

	if len(sheet.FontFaces) != 1 {
		t.Fatalf("expected 1 font face, got %d", len(sheet.FontFaces))
	}
	ff := sheet.FontFaces[0]
	if ff.Family != "Body Serif" {
		t.Errorf("Family = %q", ff.Family)
	}
	if ff.Weight != "bold" {
		t.Errorf("Weight = %q", ff.Weight)
	}
	if len(ff.Src) != 2 || ff.Src[0] != "url:fonts/body.ttf" || ff.Src[1] != "local:Body Serif Regular" {
		t.Errorf("Src = %v", ff.Src)
	}
	if len(sheet.Imports) != 1 || sheet.Imports[0] != "extra.css" {
		t.Errorf("Imports = %v", sheet.Imports)
	}
}

func TestParser_Broken(t *testing.T) {
	p := css.NewParser(zap.NewNop())

	sheet := p.Parse([]byte(`p { color: red; ; font-size }  span { color: blue }`))
	if len(sheet.RulesBySelector("span")) != 1 {
		t.Errorf("expected parsing to recover after broken declaration, rules: %+v", sheet.Rules)
	}
}

func TestParseValue(t *testing.T) {
	v := css.ParseValue(" 14px ")
	if v.Value != 14 || v.Unit != "px" {
		t.Errorf("ParseValue() = %+v", v)
	}
	if !v.IsNumeric() {
		t.Error("expected numeric value")
	}
	if css.ParseValue("auto").Keyword != "auto" {
		t.Error("expected keyword value")
	}
}
