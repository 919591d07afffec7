package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"h2svg/archive"
	"h2svg/state"
)

var htmlExtensions = []string{".html", ".htm", ".xhtml"}

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	if sel := cmd.String("selector"); sel != "" {
		env.Cfg.Document.Selector = sel
	}
	if w := cmd.Float("width"); w > 0 {
		env.Cfg.Document.Layout.Width = w
	}

	if err := env.LoadUserStyle(); err != nil {
		return err
	}

	env.NoDirs, env.Overwrite = cmd.Bool("nodirs"), cmd.Bool("overwrite")

	p, err := newPipeline(env, log)
	if err != nil {
		return err
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.String("selector", env.Cfg.Document.Selector))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, p, src, dst, log)
}

// process handles conversion independently of CLI framework. Source may be
// single HTML file or directory with HTML files.
func process(ctx context.Context, p *pipeline, src, dst string, log *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fi, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("input source was not found (%s): %w", src, err)
	}

	if fi.IsDir() {
		if err := processDir(ctx, p, src, dst, log); err != nil {
			return fmt.Errorf("unable to process directory: %w", err)
		}
		return nil
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("unexpected path mode for (%s)", src)
	}
	switch {
	case isArchiveFile(src):
		return processArchive(ctx, p, src, "", dst, log)
	case isHTMLFile(src):
		return processFile(ctx, p, src, filepath.Base(src), dst, log)
	}
	return fmt.Errorf("input was not recognized as HTML document or archive (%s)", src)
}

func isHTMLFile(path string) bool {
	return slices.Contains(htmlExtensions, strings.ToLower(filepath.Ext(path)))
}

func isArchiveFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".zip")
}

// processDir converts all HTML files under directory in natural name order.
// Failed files do not stop processing, their errors are combined.
func processDir(ctx context.Context, p *pipeline, dir, dst string, log *zap.Logger) error {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !isHTMLFile(path) && !isArchiveFile(path) {
			log.Debug("Skipping file, not recognized as HTML or archive", zap.String("file", path))
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.Debug("Nothing to process", zap.String("dir", dir))
		return nil
	}

	slices.SortFunc(files, func(a, b string) int {
		switch {
		case natural.Less(a, b):
			return -1
		case natural.Less(b, a):
			return 1
		}
		return 0
	})

	var errs error
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		src := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))
		var err error
		if isArchiveFile(path) {
			err = processArchive(ctx, p, path, filepath.Dir(src), dst, log)
		} else {
			err = processFile(ctx, p, path, src, dst, log)
		}
		if err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", src, err))
		}
	}
	return errs
}

// processArchive converts HTML files inside zip archive. Output keeps paths
// from the archive under "pathOut".
func processArchive(ctx context.Context, p *pipeline, path, pathOut, dst string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)
	if env.Rpt != nil {
		if err := env.Rpt.StoreCopy("source/"+filepath.Base(path), path); err != nil {
			log.Warn("Unable to store source in report", zap.Error(err))
		}
	}

	count := 0
	var errs error
	err := archive.Walk(path, "", isHTMLFile, func(name string, r io.Reader) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		count++
		src := filepath.Join(pathOut, filepath.FromSlash(name))
		if err := processDocument(ctx, p, r, filepath.Dir(path), src, dst, log); err != nil {
			log.Error("Unable to process file in archive", zap.String("archive", path), zap.String("file", name), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
		}
		return nil
	})
	if err != nil {
		return multierr.Append(errs, fmt.Errorf("unable to process archive: %w", err))
	}
	if count == 0 {
		log.Debug("Nothing to process", zap.String("archive", path))
	}
	return errs
}

// processFile converts single HTML file. "src" is path of the file relative
// to the input directory (just base name when file was specified directly),
// "dst" is the destination directory.
func processFile(ctx context.Context, p *pipeline, path, src, dst string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)
	if env.Rpt != nil {
		if err := env.Rpt.StoreCopy("source/"+filepath.ToSlash(src), path); err != nil {
			log.Warn("Unable to store source in report", zap.Error(err))
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return processDocument(ctx, p, f, filepath.Dir(path), src, dst, log)
}

// processDocument converts every selected element of HTML document to its
// own SVG file. Font files referenced by document styles are looked up in
// "baseDir".
func processDocument(ctx context.Context, p *pipeline, r io.Reader, baseDir, src, dst string, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)

	written := 0
	log.Info("Conversion starting", zap.String("from", src))
	defer func(start time.Time) {
		if r := recover(); r != nil {
			log.Error("Conversion ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("conversion panic: %v", r)
		} else {
			log.Info("Conversion completed", zap.Duration("elapsed", time.Since(start)), zap.Int("files", written))
		}
	}(time.Now())

	doc, err := p.parse(r, baseDir)
	if err != nil {
		return fmt.Errorf("unable to parse HTML source (%s): %w", src, err)
	}
	results, err := p.convert(doc)
	if err != nil {
		return err
	}

	for _, res := range results {
		v := newValues(res.scope, src, len(results))
		outputName := buildOutputPath(v, src, dst, env)

		if err := prepareOutput(outputName, env.Overwrite, log); err != nil {
			return err
		}
		if err := res.doc.WriteToFile(outputName); err != nil {
			return fmt.Errorf("unable to write %s: %w", outputName, err)
		}
		written++
		log.Debug("Element converted", zap.String("to", outputName), zap.Int("runs", len(res.layout.Runs)))

		if env.Rpt != nil {
			name := fmt.Sprintf("%s-%d", filepath.ToSlash(src), v.Index)
			env.Rpt.Store("result/"+name+".svg", outputName)
			env.Rpt.StoreData("runs/"+name+".txt", []byte(dumpLayout(res.layout)))
		}
	}
	return nil
}

// prepareOutput makes sure output file could be written.
func prepareOutput(name string, overwrite bool, log *zap.Logger) error {
	if _, err := os.Stat(name); err == nil {
		if !overwrite {
			return fmt.Errorf("output file already exists: %s", name)
		}
		log.Warn("Overwriting existing file", zap.String("file", name))
		return os.Remove(name)
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	return nil
}
