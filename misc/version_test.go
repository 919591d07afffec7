package misc

import "testing"

func TestIdentity(t *testing.T) {
	if GetAppName() != "h2svg" {
		t.Errorf("GetAppName() = %q, want h2svg", GetAppName())
	}
	if GetVersion() == "" {
		t.Error("GetVersion() returned empty string")
	}
	if GetGitHash() == "" {
		t.Error("GetGitHash() returned empty string")
	}
}

func TestVersionOverride(t *testing.T) {
	saved := version
	defer func() { version = saved }()

	version = "1.2.3"
	if got := GetVersion(); got != "1.2.3" {
		t.Errorf("GetVersion() = %q, want 1.2.3", got)
	}
}
