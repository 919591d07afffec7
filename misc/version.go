// Package misc keeps program identity shared by commands, logs and reports.
package misc

import (
	"runtime/debug"
	"sync"
)

const appName = "h2svg"

// Overwritten at link time: -ldflags "-X h2svg/misc.version=1.2.3 -X h2svg/misc.gitHash=abc"
var (
	version = ""
	gitHash = ""
)

var buildInfo = sync.OnceValue(func() (info struct{ version, revision string }) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	info.version = bi.Main.Version
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			info.revision = s.Value
		}
	}
	return
})

func GetAppName() string {
	return appName
}

// GetVersion returns program version, falling back to module version when
// none was set during build.
func GetVersion() string {
	if len(version) > 0 {
		return version
	}
	if v := buildInfo().version; len(v) > 0 && v != "(devel)" {
		return v
	}
	return "dev"
}

func GetGitHash() string {
	if len(gitHash) > 0 {
		return gitHash
	}
	if h := buildInfo().revision; len(h) > 0 {
		if len(h) > 12 {
			h = h[:12]
		}
		return h
	}
	return "unknown"
}
