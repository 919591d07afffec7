package config

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/maruel/natural"
	"go.uber.org/multierr"

	"h2svg/misc"
)

type ReporterConfig struct {
	Destination string `yaml:"destination" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
}

// Prepare opens report destination. When it could not be created report goes
// to a temporary file, Name tells where.
func (conf *ReporterConfig) Prepare() (*Report, error) {
	out, err := os.Create(conf.Destination)
	if err != nil {
		if out, err = os.CreateTemp("", misc.GetAppName()+"-report.*.zip"); err != nil {
			return nil, fmt.Errorf("unable to create report: %w", err)
		}
	}
	return &Report{out: out, index: make(map[string]*item)}, nil
}

// itemKind tells where report item content comes from.
type itemKind int

const (
	// file on disk, read when report is closed
	itemLink itemKind = iota
	// file copied into scratch directory when stored
	itemSnapshot
	// bytes kept in memory
	itemBlob
)

func (k itemKind) String() string {
	switch k {
	case itemLink:
		return "link"
	case itemSnapshot:
		return "snapshot"
	case itemBlob:
		return "blob"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

type item struct {
	name   string
	kind   itemKind
	origin string // path as given by caller
	path   string // path read on close
	blob   []byte
	added  time.Time
}

// Report collects sources, produced images and diagnostics into a single zip
// archive written on Close. Not safe for concurrent use.
type Report struct {
	out     *os.File
	items   []*item
	index   map[string]*item
	scratch string
}

// Name returns absolute name of the archive being written.
func (r *Report) Name() string {
	if r == nil || r.out == nil {
		return ""
	}
	name := r.out.Name()
	if abs, err := filepath.Abs(name); err == nil {
		name = abs
	}
	return name
}

func (r *Report) add(it *item) {
	it.added = time.Now()
	r.items = append(r.items, it)
	r.index[it.name] = it
}

// Store registers file to be archived under name. Content is read on Close so
// files which do not exist by then are left out. Registering different file
// under the same name is a programming error.
func (r *Report) Store(name, path string) {
	if r == nil {
		return
	}
	if prev, ok := r.index[name]; ok {
		if prev.origin == path {
			return
		}
		panic(fmt.Sprintf("report entry [%s] already points to %q, refusing %q", name, prev.origin, path))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	r.add(&item{name: name, kind: itemLink, origin: path, path: abs})
}

// StoreData archives data under name. Names must be unique.
func (r *Report) StoreData(name string, data []byte) {
	if r == nil {
		return
	}
	if _, ok := r.index[name]; ok {
		panic(fmt.Sprintf("report entry [%s] already holds data", name))
	}
	r.add(&item{name: name, kind: itemBlob, blob: data})
}

// StoreCopy snapshots file as it is now. Repeated names get numeric suffix,
// so the same input processed twice keeps both copies.
func (r *Report) StoreCopy(name, path string) error {
	if r == nil {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", path)
	}

	if r.scratch == "" {
		if r.scratch, err = os.MkdirTemp("", misc.GetAppName()+"-report-"); err != nil {
			return err
		}
	}
	unique := name
	for n := 1; r.index[unique] != nil; n++ {
		unique = name + "~" + strconv.Itoa(n)
	}

	dst := filepath.Join(r.scratch, strconv.Itoa(len(r.items))+"-"+filepath.Base(path))
	if err := snapshot(path, dst, info.ModTime()); err != nil {
		return multierr.Append(err, os.Remove(dst))
	}
	r.add(&item{name: unique, kind: itemSnapshot, origin: path, path: dst})
	return nil
}

func snapshot(src, dst string, mtime time.Time) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, in); err != nil {
		return multierr.Append(err, out.Close())
	}
	if err = out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, mtime, mtime)
}

// Close writes the archive and removes snapshots.
func (r *Report) Close() error {
	// nil report means no report has been requested
	if r == nil || r.out == nil {
		return nil
	}
	err := r.write()
	err = multierr.Append(err, r.out.Close())
	if r.scratch != "" {
		err = multierr.Append(err, os.RemoveAll(r.scratch))
	}
	return err
}

func (r *Report) ordered() []*item {
	items := slices.Clone(r.items)
	slices.SortStableFunc(items, func(a, b *item) int {
		switch {
		case natural.Less(a.name, b.name):
			return -1
		case natural.Less(b.name, a.name):
			return 1
		}
		return 0
	})
	return items
}

func (r *Report) write() error {
	zw := zip.NewWriter(r.out)
	items := r.ordered()

	if err := addToArchive(zw, "MANIFEST", time.Now(), bytes.NewReader(manifest(items))); err != nil {
		return multierr.Append(err, zw.Close())
	}
	for _, it := range items {
		if err := it.archive(zw); err != nil {
			return multierr.Append(fmt.Errorf("report entry [%s]: %w", it.name, err), zw.Close())
		}
	}
	return zw.Close()
}

func (it *item) archive(zw *zip.Writer) error {
	if it.kind == itemBlob {
		return addToArchive(zw, it.name, it.added, bytes.NewReader(it.blob))
	}
	info, err := os.Stat(it.path)
	if err != nil || !info.Mode().IsRegular() {
		// linked files may never have been produced
		return nil
	}
	f, err := os.Open(it.path)
	if err != nil {
		return err
	}
	defer f.Close()
	return addToArchive(zw, it.name, info.ModTime(), f)
}

// manifest lists every item with its origin, one per line.
func manifest(items []*item) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s (%s)\n\n", misc.GetAppName(), misc.GetVersion(), misc.GetGitHash())

	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	for _, it := range items {
		origin := it.origin
		if it.kind == itemBlob {
			origin = strconv.Itoa(len(it.blob)) + " bytes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.added.UTC().Format(time.RFC3339), it.kind, it.name, origin)
	}
	tw.Flush()
	return buf.Bytes()
}

func addToArchive(zw *zip.Writer, name string, mtime time.Time, src io.Reader) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: mtime})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}
