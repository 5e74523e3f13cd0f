package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/docpublish/internal/config"
	ferrors "git.home.luguber.info/inful/docpublish/internal/foundation/errors"
	"git.home.luguber.info/inful/docpublish/internal/logfields"
	"git.home.luguber.info/inful/docpublish/internal/mirror"
	"git.home.luguber.info/inful/docpublish/internal/observability"
	perrors "git.home.luguber.info/inful/docpublish/internal/publish/errors"
	"git.home.luguber.info/inful/docpublish/internal/sitebuilder"
	"git.home.luguber.info/inful/docpublish/internal/versioning"
)

// VersionBuilder renders one Version at a time in the shared source worktree
// and mirrors the result into the output worktree.
type VersionBuilder struct {
	tree      *sourceTree
	outputDir string
	builder   sitebuilder.Builder
	cfg       config.BuilderConfig
	now       func() time.Time
}

// NewVersionBuilder binds a builder to an acquired source and output worktree.
func NewVersionBuilder(sourcePath, outputPath string, ops WorktreeOps, b sitebuilder.Builder, cfg config.BuilderConfig) *VersionBuilder {
	return &VersionBuilder{
		tree:      newSourceTree(sourcePath, ops),
		outputDir: outputPath,
		builder:   b,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Build checks out v, renders it and mirrors the output into <output>/<v.Dir()>.
// Missing builder configuration and builder failures are reported in the
// result; the returned error is reserved for problems that must abort the run.
func (b *VersionBuilder) Build(ctx context.Context, v versioning.Version) (res BuildResult, err error) {
	start := b.now()
	res = BuildResult{Version: v}
	ctx = observability.WithRef(ctx, v.SourceRef)

	defer func() {
		res.Duration = b.now().Sub(start)
		if rerr := b.tree.reset(); rerr != nil && err == nil {
			err = rerr
		}
	}()

	if err = b.tree.checkout(v.SourceRef); err != nil {
		return res, err
	}

	configPath := filepath.Join(b.tree.path, b.cfg.ConfigFile)
	if _, serr := os.Stat(configPath); serr != nil {
		if !errors.Is(serr, os.ErrNotExist) {
			return b.failed(ctx, res, serr), nil
		}
		observability.InfoContext(ctx, "No builder configuration, skipping version",
			logfields.Label(v.Label), logfields.Path(b.cfg.ConfigFile))
		res.Outcome = OutcomeSkipped
		return res, b.dropStale(v)
	}

	if b.cfg.TitleKey != "" {
		if terr := sitebuilder.RewriteTitle(configPath, b.cfg.TitleKey, v.Label); terr != nil {
			return b.failed(ctx, res, terr), nil
		}
	}

	job := sitebuilder.Job{
		Dir:        filepath.Dir(configPath),
		ConfigFile: filepath.Base(configPath),
		OutputDir:  b.cfg.OutputDir,
	}
	if err = b.checkOutputPath(job); err != nil {
		return res, err
	}
	// Ignored builder output survives Restore; start every build from nothing.
	if rerr := os.RemoveAll(job.OutputPath()); rerr != nil {
		return res, ferrors.FileSystemError("failed to clear rendered output").
			WithCause(rerr).
			WithContext("path", job.OutputPath()).
			Build()
	}

	observability.InfoContext(ctx, "Building version", logfields.Label(v.Label), logfields.Dir(v.Dir()))
	if berr := b.builder.Build(ctx, job); berr != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return b.failed(ctx, res, berr), nil
	}

	dst, err := mirror.Subdir(b.outputDir, v.Dir())
	if err != nil {
		return res, ferrors.ValidationError("version directory is not usable").
			WithCause(err).
			WithContext("ref", v.SourceRef).
			Build()
	}
	stats, err := mirror.Sync(job.OutputPath(), dst)
	if err != nil {
		return res, ferrors.FileSystemError("failed to mirror rendered output").
			WithCause(err).
			WithContext("src", job.OutputPath()).
			WithContext("dst", dst).
			Build()
	}
	if err = b.tree.markBuilt(); err != nil {
		return res, err
	}

	res.Built = true
	res.Outcome = OutcomeBuilt
	res.OutputPath = dst
	observability.InfoContext(ctx, "Version built",
		logfields.Label(v.Label),
		logfields.Dir(v.Dir()),
		slog.Int("copied", stats.Copied),
		slog.Int("removed", stats.Removed))
	return res, nil
}

// checkOutputPath refuses rendered output locations that are not strictly
// below the source worktree or that coincide with the configuration directory.
func (b *VersionBuilder) checkOutputPath(job sitebuilder.Job) error {
	out := filepath.Clean(job.OutputPath())
	rel, err := filepath.Rel(filepath.Clean(b.tree.path), out)
	inside := err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
	if inside && out != filepath.Clean(job.Dir) {
		return nil
	}
	return ferrors.ValidationError("rendered output directory must be inside the source worktree").
		WithContext("output_dir", b.cfg.OutputDir).
		WithContext("path", out).
		Build()
}

func (b *VersionBuilder) failed(ctx context.Context, res BuildResult, cause error) BuildResult {
	res.Outcome = OutcomeFailed
	eb := ferrors.BuildError(fmt.Sprintf("build of %s failed", res.Version.Label)).
		WithCause(fmt.Errorf("%w: %w", perrors.ErrBuildFailure, cause)).
		WithSeverity(ferrors.SeverityWarning).
		WithContext("ref", res.Version.SourceRef)
	if runID := observability.FromContext(ctx).RunID; runID != "" {
		eb = eb.WithContext("run_id", runID)
	}
	res.Err = eb.Build()
	observability.WarnContext(ctx, "Version build failed",
		logfields.Label(res.Version.Label), logfields.Error(cause))
	return res
}

// dropStale removes a subdirectory left by an earlier run for a version
// that no longer carries builder configuration.
func (b *VersionBuilder) dropStale(v versioning.Version) error {
	dst, err := mirror.Subdir(b.outputDir, v.Dir())
	if err != nil {
		return nil
	}
	if _, serr := os.Lstat(dst); serr != nil {
		return nil
	}
	if err := os.RemoveAll(dst); err != nil {
		return ferrors.FileSystemError("failed to remove stale version directory").
			WithCause(err).
			WithContext("path", dst).
			Build()
	}
	slog.Info("Removed stale version directory", logfields.Dir(v.Dir()))
	return nil
}
