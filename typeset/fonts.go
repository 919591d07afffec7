package typeset

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/h2non/filetype"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"h2svg/css"
)

type variant int

const (
	regular variant = 0
	bold    variant = 1
	italic  variant = 2
	// boldItalic is bold | italic
	boldItalic variant = 3
)

func variantOf(weight int, style string) variant {
	v := regular
	if weight >= 600 {
		v = bold
	}
	if style == "italic" || style == "oblique" {
		v |= italic
	}
	return v
}

// family holds faces of a single font family. Missing variants fall back to
// the closest available one.
type family [4]*opentype.Font

func (f *family) pick(v variant) *opentype.Font {
	for _, alt := range []variant{v, v &^ italic, v &^ bold, regular, bold, italic, boldItalic} {
		if f[alt] != nil {
			return f[alt]
		}
	}
	return nil
}

type faceKey struct {
	font *opentype.Font
	size float64
}

// Fonts resolves CSS font family lists to faces.
type Fonts struct {
	families map[string]*family
	faces    map[faceKey]font.Face
	log      *zap.Logger
}

const (
	familyGo     = "go"
	familyGoMono = "go mono"
)

// generic family names mapped to built in families.
var generic = map[string]string{
	"serif":      familyGo,
	"sans-serif": familyGo,
	"system-ui":  familyGo,
	"cursive":    familyGo,
	"fantasy":    familyGo,
	"monospace":  familyGoMono,
}

// NewFonts creates font set with Go font families built in.
func NewFonts(log *zap.Logger) (*Fonts, error) {
	if log == nil {
		log = zap.NewNop()
	}
	f := &Fonts{
		families: make(map[string]*family),
		faces:    make(map[faceKey]font.Face),
		log:      log,
	}
	builtin := []struct {
		name string
		v    variant
		data []byte
	}{
		{familyGo, regular, goregular.TTF},
		{familyGo, bold, gobold.TTF},
		{familyGo, italic, goitalic.TTF},
		{familyGo, boldItalic, gobolditalic.TTF},
		{familyGoMono, regular, gomono.TTF},
		{familyGoMono, bold, gomonobold.TTF},
		{familyGoMono, italic, gomonoitalic.TTF},
		{familyGoMono, boldItalic, gomonobolditalic.TTF},
	}
	for _, b := range builtin {
		if err := f.register(b.name, b.v, b.data); err != nil {
			return nil, fmt.Errorf("unable to load built in font %s: %w", b.name, err)
		}
	}
	return f, nil
}

func (f *Fonts) register(name string, v variant, data []byte) error {
	parsed, err := opentype.Parse(data)
	if err != nil {
		return err
	}
	name = strings.ToLower(name)
	fam, ok := f.families[name]
	if !ok {
		fam = &family{}
		f.families[name] = fam
	}
	fam[v] = parsed
	return nil
}

// LoadFontFaces registers @font-face rules with local url() sources, paths
// are relative to baseDir. Faces which cannot be loaded are skipped.
func (f *Fonts) LoadFontFaces(faces []css.FontFace, baseDir string) {
	for _, ff := range faces {
		weight := 400
		switch ff.Weight {
		case "bold", "bolder":
			weight = 700
		default:
			if w, err := strconv.Atoi(ff.Weight); err == nil {
				weight = w
			}
		}
		v := variantOf(weight, ff.Style)

		loaded := false
		for _, src := range ff.Src {
			path, ok := strings.CutPrefix(src, "url:")
			if !ok || strings.Contains(path, "://") {
				continue
			}
			if !filepath.IsAbs(path) {
				path = filepath.Join(baseDir, path)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				f.log.Warn("Unable to read font", zap.String("family", ff.Family), zap.String("path", path), zap.Error(err))
				continue
			}
			if !filetype.Is(data, "ttf") && !filetype.Is(data, "otf") {
				f.log.Warn("Unsupported font format", zap.String("family", ff.Family), zap.String("path", path))
				continue
			}
			if err := f.register(ff.Family, v, data); err != nil {
				f.log.Warn("Unable to parse font", zap.String("family", ff.Family), zap.String("path", path), zap.Error(err))
				continue
			}
			loaded = true
			break
		}
		f.log.Debug("Font face processed", zap.String("family", ff.Family), zap.Int("variant", int(v)), zap.Bool("loaded", loaded))
	}
}

// resolve picks first known family of comma separated list.
func (f *Fonts) resolve(families string, v variant) *opentype.Font {
	for name := range strings.SplitSeq(families, ",") {
		name = strings.ToLower(strings.Trim(strings.TrimSpace(name), `"'`))
		if g, ok := generic[name]; ok {
			name = g
		}
		if fam, ok := f.families[name]; ok {
			if fnt := fam.pick(v); fnt != nil {
				return fnt
			}
		}
	}
	return f.families[familyGo].pick(v)
}

// Face returns face for resolved style, faces are cached.
func (f *Fonts) Face(families string, weight int, style string, size float64) (font.Face, error) {
	fnt := f.resolve(families, variantOf(weight, style))
	key := faceKey{font: fnt, size: size}
	if face, ok := f.faces[key]; ok {
		return face, nil
	}
	// 72 DPI makes font size in points equal to size in pixels
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, err
	}
	f.faces[key] = face
	return face, nil
}

func toFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
