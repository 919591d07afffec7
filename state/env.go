// Package state holds per-invocation program environment passed around in
// context.
package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"h2svg/config"
	"h2svg/dom"
)

type envKey struct{}

// LocalEnv is created once per program run before command line is parsed and
// filled in as configuration, logging and reporting become available.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// convert command switches
	NoDirs    bool
	Overwrite bool

	// DefaultStyle is user agent stylesheet, lowest in cascade.
	DefaultStyle []byte
	// UserStyle comes from document.stylesheet_path, applied right after
	// DefaultStyle.
	UserStyle []byte

	start  time.Time
	undoSL func()
}

// ContextWithEnv returns ctx carrying fresh environment.
func ContextWithEnv(ctx context.Context) context.Context {
	env := &LocalEnv{
		start:        time.Now(),
		DefaultStyle: dom.UserAgentStylesheet(),
	}
	return context.WithValue(ctx, envKey{}, env)
}

// EnvFromContext panics when ctx was not prepared by ContextWithEnv.
func EnvFromContext(ctx context.Context) *LocalEnv {
	env, ok := ctx.Value(envKey{}).(*LocalEnv)
	if !ok {
		panic("program environment is missing from context")
	}
	return env
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// LoadUserStyle reads configured stylesheet, if any. A copy goes into debug
// report.
func (e *LocalEnv) LoadUserStyle() error {
	if e.Cfg == nil || e.Cfg.Document.StylesheetPath == "" {
		return nil
	}
	path := e.Cfg.Document.StylesheetPath
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read stylesheet %q: %w", path, err)
	}
	e.UserStyle = data
	e.Rpt.StoreData("config/"+filepath.Base(path), data)
	return nil
}

// RedirectStdLog sends output of standard "log" package to Log at info level.
func (e *LocalEnv) RedirectStdLog() {
	if e.Log != nil && e.undoSL == nil {
		e.undoSL = zap.RedirectStdLog(e.Log)
	}
}

// RestoreStdLog flushes Log and undoes RedirectStdLog.
func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.undoSL != nil {
		e.undoSL()
		e.undoSL = nil
	}
}
