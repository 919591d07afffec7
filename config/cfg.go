package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/rupor-github/gencfg"
	"golang.org/x/text/language"
	yaml "gopkg.in/yaml.v3"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	// StyleProperty is a tracked visual property and the values which are
	// never emitted for it.
	StyleProperty struct {
		Name     string   `yaml:"name" validate:"required"`
		Defaults []string `yaml:"defaults"`
	}

	SVGConfig struct {
		Decimals      int             `yaml:"decimals" validate:"min=0,max=6"`
		BaselineShift float64         `yaml:"baseline_shift" validate:"gte=0,lte=1"`
		Styles        []StyleProperty `yaml:"styles" validate:"required,dive"`
	}

	HyphenationConfig struct {
		Enable         bool   `yaml:"enable"`
		Language       string `yaml:"language" validate:"required_if=Enable true"`
		PatternsPath   string `yaml:"patterns_path" sanitize:"assure_file_access"`
		ExceptionsPath string `yaml:"exceptions_path" sanitize:"assure_file_access"`
	}

	LayoutConfig struct {
		Width       float64           `yaml:"width" validate:"gt=0"`
		FontSize    float64           `yaml:"font_size" validate:"gt=0"`
		LineHeight  float64           `yaml:"line_height" validate:"gt=0"`
		BlockGap    float64           `yaml:"block_gap" validate:"gte=0"`
		Hyphenation HyphenationConfig `yaml:"hyphenation"`
	}

	DocumentConfig struct {
		Selector              string       `yaml:"selector" validate:"required"`
		StylesheetPath        string       `yaml:"stylesheet_path" sanitize:"assure_file_access"`
		OutputNameTemplate    string       `yaml:"output_name_template"`
		FileNameTransliterate bool         `yaml:"file_name_transliterate"`
		SVG                   SVGConfig    `yaml:"svg"`
		Layout                LayoutConfig `yaml:"layout"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Document  DocumentConfig `yaml:"document"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// must match yaml tag of DocumentConfig.OutputNameTemplate
	OutputNameTemplateFieldName TemplateFieldName = "output_name_template"
)

// templateOptions keeps output name template unexpanded, it is executed per
// converted element rather than at load time.
func templateOptions(extra ...func(*gencfg.ProcessingOptions)) []func(*gencfg.ProcessingOptions) {
	return append([]func(*gencfg.ProcessingOptions){
		gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
	}, extra...)
}

// decode superimposes yaml document on cfg. Unknown keys are errors. When
// final is set the result is sanitized and validated.
func decode(data []byte, cfg *Config, final bool) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("bad configuration: %w", err)
	}
	if final {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
		if err := cfg.Document.check(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// check catches what struct tags cannot express.
func (d *DocumentConfig) check() error {
	var errs []error
	if _, err := cascadia.ParseGroup(d.Selector); err != nil {
		errs = append(errs, fmt.Errorf("selector %q: %w", d.Selector, err))
	}
	seen := make(map[string]bool, len(d.SVG.Styles))
	for _, sp := range d.SVG.Styles {
		name := strings.ToLower(sp.Name)
		if seen[name] {
			errs = append(errs, fmt.Errorf("style property %q listed twice", sp.Name))
		}
		seen[name] = true
	}
	if h := d.Layout.Hyphenation; h.Enable {
		if _, err := language.Parse(h.Language); err != nil {
			errs = append(errs, fmt.Errorf("hyphenation language %q: %w", h.Language, err))
		}
	}
	return errors.Join(errs...)
}

// LoadConfiguration builds defaults from embedded template and, when path is
// not empty, overlays file content on top of them. Sequences in the file
// replace default ones.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	defaults, err := gencfg.Process(ConfigTmpl, templateOptions(options...)...)
	if err != nil {
		return nil, fmt.Errorf("unable to expand default configuration: %w", err)
	}
	cfg, err := decode(defaults, &Config{}, path == "")
	if err != nil {
		return nil, fmt.Errorf("unable to load default configuration: %w", err)
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read configuration: %w", err)
	}
	if cfg, err = decode(data, cfg, true); err != nil {
		return nil, fmt.Errorf("unable to load %s: %w", path, err)
	}
	return cfg, nil
}

// Prepare returns expanded default configuration text.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, templateOptions()...)
}

// Dump returns effective configuration as yaml.
func Dump(cfg *Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to marshal configuration: %w", err)
	}
	return out, nil
}
