package convert

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"h2svg/config"
	"h2svg/state"
)

const outputExt = ".svg"

// namer derives output file names for converted elements.
type namer struct {
	template      string
	transliterate bool
	flat          bool
	log           *zap.Logger
}

func newNamer(env *state.LocalEnv) namer {
	return namer{
		template:      env.Cfg.Document.OutputNameTemplate,
		transliterate: env.Cfg.Document.FileNameTransliterate,
		flat:          env.NoDirs,
		log:           env.Log,
	}
}

// buildOutputPath returns path of SVG file for element described by v. src is
// source document path relative to input root, dst is destination directory.
func buildOutputPath(v Values, src, dst string, env *state.LocalEnv) string {
	return newNamer(env).path(v, src, dst)
}

func (n namer) path(v Values, src, dst string) string {
	dir := dst
	if !n.flat {
		dir = filepath.Join(dst, filepath.Dir(src))
	}

	if n.template != "" {
		if parts := n.expand(v); len(parts) > 0 {
			last := len(parts) - 1
			parts[last] += outputExt
			return filepath.Join(append([]string{dir}, parts...)...)
		}
	}

	name := v.Source
	if v.Count > 1 {
		name += "-" + strconv.Itoa(v.Index)
	}
	return filepath.Join(dir, n.clean(name)+outputExt)
}

// expand executes name template and returns cleaned path segments, nil when
// template fails or produces nothing usable.
func (n namer) expand(v Values) []string {
	name, err := expandTemplate(v, config.OutputNameTemplateFieldName, n.template)
	if err != nil {
		n.log.Warn("Unable to expand output name template, using default name", zap.Error(err))
		return nil
	}
	parts := nameSegments(name)
	for i := range parts {
		parts[i] = n.clean(parts[i])
	}
	return parts
}

func (n namer) clean(s string) string {
	if n.transliterate {
		s = slug.Make(s)
	}
	return config.CleanFileName(s)
}

// nameSegments splits expanded name on "/" (and platform separator). Empty,
// "." and ".." segments are dropped so names stay under destination.
func nameSegments(name string) []string {
	var out []string
	for s := range strings.SplitSeq(filepath.ToSlash(name), "/") {
		if s = strings.TrimSpace(s); s != "" && s != "." && s != ".." {
			out = append(out, s)
		}
	}
	return out
}
