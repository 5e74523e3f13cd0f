package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestManager_CreateAndCleanup(t *testing.T) {
	tempBase := t.TempDir()
	mgr := NewManager(tempBase, "0123456789abcdef")

	if err := mgr.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	wsPath := mgr.GetPath()
	if wsPath == "" {
		t.Fatal("GetPath() returned empty string")
	}
	base := filepath.Base(wsPath)
	if !strings.HasPrefix(base, DirPrefix) || !strings.HasSuffix(base, "-01234567") {
		t.Errorf("unexpected workspace name: %s", base)
	}
	if _, err := os.Stat(wsPath); err != nil {
		t.Fatalf("workspace directory missing: %v", err)
	}

	if err := mgr.Cleanup(); err != nil {
		t.Fatalf("Cleanup() failed: %v", err)
	}
	if _, err := os.Stat(wsPath); !os.IsNotExist(err) {
		t.Errorf("workspace still exists after cleanup: %s", wsPath)
	}
	if mgr.GetPath() != "" {
		t.Errorf("GetPath() should be empty after cleanup")
	}
}

func TestManager_Keep(t *testing.T) {
	mgr := NewManager(t.TempDir(), "")
	if err := mgr.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	mgr.Keep()
	if err := mgr.Cleanup(); err != nil {
		t.Fatalf("Cleanup() failed: %v", err)
	}
	if _, err := os.Stat(mgr.GetPath()); err != nil {
		t.Errorf("kept workspace was removed: %v", err)
	}
}

func TestManager_CreateRefusesExistingDirectory(t *testing.T) {
	base := t.TempDir()
	fixed := func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	first := NewManager(base, "samerun")
	first.now = fixed
	if err := first.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	second := NewManager(base, "samerun")
	second.now = fixed
	if err := second.Create(); err == nil {
		t.Fatal("Create() must not reuse an existing run directory")
	}
}

func TestNewManager_DefaultsToTempDir(t *testing.T) {
	mgr := NewManager("", "")
	if mgr.baseDir != os.TempDir() {
		t.Errorf("expected base dir %s, got %s", os.TempDir(), mgr.baseDir)
	}
}
