package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/docpublish/internal/logfields"
)

// DirPrefix starts the name of every run directory.
const DirPrefix = "docpublish-"

// Manager owns the scratch directory that holds one run's worktrees.
type Manager struct {
	baseDir string
	runID   string
	dir     string
	keep    bool
	now     func() time.Time
}

// NewManager creates a manager rooted at baseDir (os.TempDir() when empty).
// runID is folded into the directory name so concurrent runs never collide.
func NewManager(baseDir, runID string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{baseDir: baseDir, runID: runID, now: time.Now}
}

// Create makes the timestamped run directory.
func (m *Manager) Create() error {
	name := DirPrefix + m.now().Format("20060102-150405")
	if m.runID != "" {
		name += "-" + shortID(m.runID)
	}
	if err := os.MkdirAll(m.baseDir, 0o750); err != nil {
		return fmt.Errorf("failed to create workspace base directory: %w", err)
	}
	// Mkdir fails on an existing directory, so a run never adopts another run's worktrees.
	dir := filepath.Join(m.baseDir, name)
	if err := os.Mkdir(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve workspace directory: %w", err)
	}
	m.dir = abs
	slog.Debug("Created workspace", logfields.Path(abs))
	return nil
}

// GetPath returns the path to the workspace directory
func (m *Manager) GetPath() string {
	return m.dir
}

// Keep prevents Cleanup from removing the directory.
func (m *Manager) Keep() { m.keep = true }

// Cleanup removes the workspace directory unless Keep was called.
func (m *Manager) Cleanup() error {
	if m.dir == "" {
		return nil
	}
	if m.keep {
		slog.Info("Keeping workspace", logfields.Path(m.dir))
		return nil
	}
	if err := os.RemoveAll(m.dir); err != nil {
		return fmt.Errorf("failed to cleanup workspace: %w", err)
	}
	slog.Debug("Cleaned up workspace", logfields.Path(m.dir))
	m.dir = ""
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
