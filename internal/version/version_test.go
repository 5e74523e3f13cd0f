package version

import (
	"strings"
	"testing"
)

func TestBuildInfo(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if BuildTime == "" {
		t.Error("BuildTime should be initialized")
	}
	if GitCommit == "" {
		t.Error("GitCommit should be initialized")
	}
}

func TestString(t *testing.T) {
	saved := []string{Version, GitCommit, BuildTime}
	t.Cleanup(func() { Version, GitCommit, BuildTime = saved[0], saved[1], saved[2] })

	Version, GitCommit, BuildTime = "v1.2.3", "0123456789abcdef", "2026-01-02"
	got := String()
	if want := "docpublish v1.2.3 (commit 0123456789ab, built 2026-01-02)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	Version = "unknown"
	if !strings.HasPrefix(String(), "docpublish ") {
		t.Errorf("String() = %q", String())
	}
}
