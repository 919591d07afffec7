package convert

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"h2svg/config"
	"h2svg/dom"
)

// Values holds variables available for template expansion.
type Values struct {
	Context string
	// Source is input file name without directory and extension.
	Source string
	// Index is 1-based position of the element among converted ones.
	Index int
	Count int
	ID    string
	Class string
	Tag   string
	Title string
}

func newValues(scope *dom.Scope, src string, count int) Values {
	return Values{
		Source: strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)),
		Index:  scope.Index + 1,
		Count:  count,
		ID:     scope.Attr("id"),
		Class:  scope.Attr("class"),
		Tag:    scope.Tag(),
		Title:  scope.Title(),
	}
}

func expandTemplate(v Values, name config.TemplateFieldName, field string) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	v.Context = string(name)

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}
