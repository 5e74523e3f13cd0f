// Package watch republishes documentation when repository tags change or on
// a fixed interval.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/docpublish/internal/logfields"
)

// Reasons passed to RunFunc.
const (
	ReasonStartup  = "startup"
	ReasonTags     = "tags"
	ReasonSchedule = "schedule"
)

const packedRefs = "packed-refs"

// RunFunc performs one publish.
type RunFunc func(ctx context.Context, reason string) error

// Options configures a Watcher.
type Options struct {
	// GitDir is the common git directory holding refs/tags and packed-refs.
	GitDir     string
	Debounce   time.Duration
	Every      time.Duration // zero disables the interval
	RunOnStart bool
}

// Watcher triggers runs from tag changes and an optional schedule. Runs never overlap.
type Watcher struct {
	opts    Options
	run     RunFunc
	tagsDir string

	mu      sync.Mutex // held for the duration of a run
	trigger chan string

	fsw   *fsnotify.Watcher
	sched gocron.Scheduler
}

// New creates a watcher. Call Run to start it.
func New(opts Options, run RunFunc) (*Watcher, error) {
	if opts.GitDir == "" {
		return nil, errors.New("git directory required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 2 * time.Second
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{
		opts:    opts,
		run:     run,
		tagsDir: filepath.Join(opts.GitDir, "refs", "tags"),
		trigger: make(chan string, 1),
		fsw:     fsw,
	}
	if opts.Every > 0 {
		s, err := gocron.NewScheduler()
		if err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
		}
		w.sched = s
	}
	return w, nil
}

// Run blocks until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fsw.Close() }()

	if err := w.fsw.Add(w.opts.GitDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.opts.GitDir, err)
	}
	// refs/tags may only appear once the first tag is created.
	if err := w.fsw.Add(filepath.Dir(w.tagsDir)); err != nil {
		slog.Debug("Not watching refs directory", logfields.Error(err))
	}
	if err := w.watchTree(w.tagsDir); err != nil {
		return err
	}

	if w.sched != nil {
		_, err := w.sched.NewJob(
			gocron.DurationJob(w.opts.Every),
			gocron.NewTask(func() { w.runOnce(ctx, ReasonSchedule) }),
			gocron.WithName("docpublish-republish"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("failed to schedule periodic publish: %w", err)
		}
		w.sched.Start()
		defer func() {
			if err := w.sched.Shutdown(); err != nil {
				slog.Warn("Scheduler shutdown failed", logfields.Error(err))
			}
		}()
	}

	slog.Info("Watching for tag changes",
		logfields.Path(w.opts.GitDir),
		slog.Duration("debounce", w.opts.Debounce),
		slog.Duration("every", w.opts.Every))

	if w.opts.RunOnStart {
		w.request(ReasonStartup)
	}

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Watcher stopped")
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op.Has(fsnotify.Create) && strings.HasPrefix(ev.Name, w.tagsDir) {
				// Tags with slashes live in nested directories.
				_ = w.watchTree(ev.Name)
			}
			if !w.isTagEvent(ev.Name) {
				continue
			}
			slog.Debug("Tag change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			debounce.Reset(w.opts.Debounce)
		case <-debounce.C:
			w.request(ReasonTags)
		case reason := <-w.trigger:
			w.runOnce(ctx, reason)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Error("File watcher error", logfields.Error(err))
		}
	}
}

// request queues a run; a request made while one is already queued is merged into it.
func (w *Watcher) request(reason string) {
	select {
	case w.trigger <- reason:
	default:
	}
}

func (w *Watcher) runOnce(ctx context.Context, reason string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	slog.Info("Publish triggered", slog.String("reason", reason))
	err := w.run(ctx, reason)
	ms := float64(time.Since(start).Milliseconds())
	if err != nil {
		slog.Error("Triggered publish failed", slog.String("reason", reason), logfields.DurationMS(ms), logfields.Error(err))
		return
	}
	slog.Info("Triggered publish finished", slog.String("reason", reason), logfields.DurationMS(ms))
}

func (w *Watcher) isTagEvent(name string) bool {
	if strings.HasSuffix(name, ".lock") {
		return false
	}
	if filepath.Dir(name) == filepath.Clean(w.opts.GitDir) && filepath.Base(name) == packedRefs {
		return true
	}
	rel, err := filepath.Rel(w.tagsDir, name)
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}

// watchTree adds root and every directory below it. A missing root is not an error.
func (w *Watcher) watchTree(root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
