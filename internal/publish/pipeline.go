package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docpublish/internal/config"
	"git.home.luguber.info/inful/docpublish/internal/eventstore"
	ferrors "git.home.luguber.info/inful/docpublish/internal/foundation/errors"
	"git.home.luguber.info/inful/docpublish/internal/git"
	"git.home.luguber.info/inful/docpublish/internal/logfields"
	"git.home.luguber.info/inful/docpublish/internal/metrics"
	"git.home.luguber.info/inful/docpublish/internal/notify"
	"git.home.luguber.info/inful/docpublish/internal/observability"
	perrors "git.home.luguber.info/inful/docpublish/internal/publish/errors"
	"git.home.luguber.info/inful/docpublish/internal/sitebuilder"
	"git.home.luguber.info/inful/docpublish/internal/versioning"
	"git.home.luguber.info/inful/docpublish/internal/workspace"
)

// Stage names reported in fatal errors, logs and metrics.
const (
	StageListTags         = "list_tags"
	StageAcquireWorktrees = "acquire_worktrees"
	StageBuildVersions    = "build_versions"
	StageComposeIndex     = "compose_index"
	StageCommit           = "commit"
	StagePush             = "push"
)

// TagLister enumerates repository tags.
type TagLister interface {
	List() ([]string, error)
}

// Worktrees acquires and releases the two working copies of a run.
type Worktrees interface {
	WorktreeOps
	AcquireSource(ctx context.Context, ref string) (string, error)
	AcquireOutput(ctx context.Context, branch string) (string, error)
	Keep(path string)
	ReleaseAll(ctx context.Context) error
}

// Committer records the output tree.
type Committer interface {
	Commit(path, message string) (string, error)
}

// Pusher sends the output branch to a remote.
type Pusher interface {
	Push(ctx context.Context, branch string) error
}

// Deps are the collaborators of a Pipeline. Zero values fall back to the
// git-backed and no-op implementations.
type Deps struct {
	Tags      TagLister
	Worktrees func(baseDir string) Worktrees
	Builder   sitebuilder.Builder
	Committer Committer
	Pusher    Pusher
	Notifier  notify.Notifier
	History   eventstore.Store
	Recorder  metrics.Recorder
	NewRunID  func() string
	Now       func() time.Time
}

// Options alter a single run.
type Options struct {
	// NoCommit leaves the composed output worktree on disk instead of committing it.
	NoCommit bool
}

// Pipeline publishes every resolved Version of a repository to its output branch.
type Pipeline struct {
	cfg      *config.Config
	opts     Options
	resolver *versioning.Resolver
	deps     Deps
}

// NewPipeline creates a pipeline for cfg. cfg must already carry defaults.
func NewPipeline(cfg *config.Config, opts Options, deps Deps) *Pipeline {
	if deps.Tags == nil {
		deps.Tags = git.NewTagCatalog(cfg.Repository)
	}
	if deps.Worktrees == nil {
		repo, remote := cfg.Repository, cfg.Push.Remote
		deps.Worktrees = func(baseDir string) Worktrees {
			return git.NewWorktreeManager(repo, baseDir).WithRemote(remote)
		}
	}
	if deps.Builder == nil {
		deps.Builder = sitebuilder.NewBinaryBuilder(cfg.Builder)
	}
	if deps.Committer == nil {
		deps.Committer = git.NewPublishCommit(git.Author{Name: cfg.Commit.AuthorName, Email: cfg.Commit.AuthorEmail})
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NoopNotifier{}
	}
	if deps.Recorder == nil {
		deps.Recorder = metrics.NoopRecorder{}
	}
	if deps.NewRunID == nil {
		deps.NewRunID = uuid.NewString
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Pipeline{
		cfg:      cfg,
		opts:     opts,
		resolver: versioning.NewResolverFromConfig(cfg),
		deps:     deps,
	}
}

// Run executes one publish. Per-version failures are collected in the Report;
// a returned error names the stage that aborted the run. An unchanged output
// tree returns an error wrapping ErrEmptyCommit together with a Report whose
// Empty flag is set.
func (p *Pipeline) Run(ctx context.Context) (report *Report, err error) {
	report = &Report{RunID: p.deps.NewRunID(), Started: p.deps.Now()}
	ctx = observability.WithRunID(ctx, report.RunID)
	rec := p.deps.Recorder

	outcome := metrics.RunFailed
	defer func() {
		report.Finished = p.deps.Now()
		rec.ObserveRunDuration(report.Duration())
		rec.IncRunOutcome(outcome)
		rec.SetLastRun(report.Finished)
	}()

	// Stage 1: list tags
	var tags []string
	if err = p.stage(ctx, report, StageListTags, func(context.Context) error {
		var lerr error
		tags, lerr = p.deps.Tags.List()
		return lerr
	}); err != nil {
		return report, err
	}
	report.Versions = p.resolver.Resolve(tags)
	p.record(ctx, func() (eventstore.Event, error) {
		return eventstore.NewRunStarted(report.RunID, eventstore.RunStartedData{
			Repository: p.cfg.Repository,
			Branch:     p.cfg.Output.Branch,
			Versions:   versionLabels(report.Versions),
		})
	})

	// Stage 2: workspace and worktrees
	ws := workspace.NewManager(p.cfg.WorkDir, report.RunID)
	var wts Worktrees
	var sourcePath, outputPath string
	if err = p.stage(ctx, report, StageAcquireWorktrees, func(ctx context.Context) error {
		if cerr := ws.Create(); cerr != nil {
			return ferrors.FileSystemError("failed to create workspace").WithCause(cerr).Build()
		}
		wts = p.deps.Worktrees(ws.GetPath())
		var aerr error
		if sourcePath, aerr = wts.AcquireSource(ctx, p.resolver.Head().SourceRef); aerr != nil {
			return aerr
		}
		outputPath, aerr = wts.AcquireOutput(ctx, p.cfg.Output.Branch)
		return aerr
	}); err != nil {
		p.release(ctx, ws, wts)
		return report, err
	}
	defer p.release(ctx, ws, wts)
	if p.opts.NoCommit || p.cfg.Output.KeepWorktree {
		wts.Keep(outputPath)
		ws.Keep()
		report.OutputPath = outputPath
	}

	// Stage 3: build every version, listing each success in the index as it lands
	composer, err := NewIndexComposer(outputPath, IndexOptionsFromConfig(p.cfg.Index))
	if err != nil {
		return report, p.fail(ctx, report, StageComposeIndex, err)
	}
	if err = p.stage(ctx, report, StageComposeIndex, func(context.Context) error { return composer.Reset() }); err != nil {
		return report, err
	}
	defer composer.Discard()
	builder := NewVersionBuilder(sourcePath, outputPath, wts, p.deps.Builder, p.cfg.Builder)
	var indexErr error
	if err = p.stage(ctx, report, StageBuildVersions, func(ctx context.Context) error {
		for _, v := range report.Versions {
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			res, berr := builder.Build(ctx, v)
			if berr != nil {
				return berr
			}
			report.Results = append(report.Results, res)
			p.observeVersion(ctx, report.RunID, res)
			if indexErr = composer.Append(res); indexErr != nil {
				return nil
			}
		}
		return nil
	}); err != nil {
		return report, err
	}
	if indexErr != nil {
		return report, p.fail(ctx, report, StageComposeIndex, indexErr)
	}
	if err = p.stage(ctx, report, StageComposeIndex, func(context.Context) error { return composer.Close() }); err != nil {
		return report, err
	}
	rec.SetVersionsPublished(len(report.Built()))
	observability.InfoContext(ctx, "Versions processed", slog.String("summary", report.Summary()))

	if p.opts.NoCommit {
		outcome = metrics.RunNoCommit
		observability.InfoContext(ctx, "Skipping commit, output left on disk", logfields.Path(outputPath))
		p.complete(ctx, report)
		return report, nil
	}

	// Stage 4: commit
	if err = p.stage(ctx, report, StageCommit, func(context.Context) error {
		hash, cerr := p.deps.Committer.Commit(outputPath, p.commitMessage(report))
		report.Commit = hash
		return cerr
	}); err != nil {
		if errors.Is(err, perrors.ErrEmptyCommit) {
			report.Empty = true
			outcome = metrics.RunEmpty
			observability.InfoContext(ctx, "Output unchanged, nothing published")
			p.complete(ctx, report)
		}
		return report, err
	}
	observability.InfoContext(ctx, "Committed output", logfields.Commit(report.Commit), logfields.Branch(p.cfg.Output.Branch))

	// Stage 5: push
	if p.cfg.Push.Enabled && p.deps.Pusher != nil {
		if err = p.stage(ctx, report, StagePush, func(ctx context.Context) error {
			return p.deps.Pusher.Push(ctx, p.cfg.Output.Branch)
		}); err != nil {
			return report, err
		}
		report.Pushed = true
	}

	outcome = metrics.RunPublished
	p.complete(ctx, report)
	p.notify(ctx, report)
	return report, nil
}

// stage runs fn under the stage's logging context and metrics. Failures are
// classified, tagged with the stage name and recorded in history.
func (p *Pipeline) stage(ctx context.Context, report *Report, name string, fn func(context.Context) error) error {
	start := p.deps.Now()
	ctx = observability.WithStage(ctx, name)
	observability.DebugContext(ctx, "Stage started")
	err := fn(ctx)
	p.deps.Recorder.ObserveStageDuration(name, p.deps.Now().Sub(start))
	if err == nil {
		p.deps.Recorder.IncStageResult(name, metrics.ResultSuccess)
		return nil
	}
	if errors.Is(err, perrors.ErrEmptyCommit) {
		p.deps.Recorder.IncStageResult(name, metrics.ResultSuccess)
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		p.deps.Recorder.IncStageResult(name, metrics.ResultCanceled)
	} else {
		p.deps.Recorder.IncStageResult(name, metrics.ResultFatal)
	}
	return p.fail(ctx, report, name, err)
}

func (p *Pipeline) fail(ctx context.Context, report *Report, stage string, err error) error {
	var classified *ferrors.ClassifiedError
	if ce, ok := ferrors.AsClassified(err); ok {
		classified = ce.WithContext("stage", stage)
	} else {
		classified = ferrors.InternalError("publish run aborted").
			WithCause(err).
			WithContext("stage", stage).
			Build()
	}
	observability.ErrorContext(observability.WithStage(ctx, stage), "Publish run aborted", logfields.Error(err))
	p.record(ctx, func() (eventstore.Event, error) {
		return eventstore.NewRunFailed(report.RunID, stage, err)
	})
	return fmt.Errorf("%s: %w", stage, classified)
}

func (p *Pipeline) observeVersion(ctx context.Context, runID string, res BuildResult) {
	p.deps.Recorder.IncVersionOutcome(string(res.Outcome))
	p.deps.Recorder.ObserveVersionDuration(string(res.Outcome), res.Duration)
	p.record(ctx, func() (eventstore.Event, error) {
		data := eventstore.VersionBuiltData{
			Label:      res.Version.Label,
			Ref:        res.Version.SourceRef,
			Dir:        res.Version.Dir(),
			Outcome:    string(res.Outcome),
			DurationMS: res.Duration.Milliseconds(),
		}
		if res.Err != nil {
			data.Error = res.Err.Error()
		}
		return eventstore.NewVersionBuilt(runID, data)
	})
}

func (p *Pipeline) complete(ctx context.Context, report *Report) {
	p.record(ctx, func() (eventstore.Event, error) {
		return eventstore.NewRunCompleted(report.RunID, eventstore.RunCompletedData{
			Commit:  report.Commit,
			Empty:   report.Empty,
			Pushed:  report.Pushed,
			Built:   len(report.Built()),
			Skipped: len(report.Skipped()),
			Failed:  len(report.Failed()),
		})
	})
}

// record appends to the history store when one is configured. History is
// auxiliary; failures only warn.
func (p *Pipeline) record(ctx context.Context, build func() (eventstore.Event, error)) {
	if p.deps.History == nil {
		return
	}
	ev, err := build()
	if err == nil {
		err = p.deps.History.Append(ctx, ev)
	}
	if err != nil {
		observability.WarnContext(ctx, "Failed to record run history", logfields.Error(err))
	}
}

func (p *Pipeline) notify(ctx context.Context, report *Report) {
	ev := notify.PublishedEvent{
		RunID:     report.RunID,
		Branch:    p.cfg.Output.Branch,
		Commit:    report.Commit,
		Pushed:    report.Pushed,
		Versions:  labels(report.Built()),
		Failed:    labels(report.Failed()),
		Timestamp: p.deps.Now(),
	}
	if err := p.deps.Notifier.Notify(ctx, ev); err != nil {
		observability.WarnContext(ctx, "Failed to send publish notification", logfields.Error(err))
	}
}

func (p *Pipeline) release(ctx context.Context, ws *workspace.Manager, wts Worktrees) {
	// Cleanup must not be skipped because the run was canceled.
	ctx = context.WithoutCancel(ctx)
	if wts != nil {
		if err := wts.ReleaseAll(ctx); err != nil {
			observability.WarnContext(ctx, "Failed to release worktrees", logfields.Error(err))
		}
	}
	if err := ws.Cleanup(); err != nil {
		observability.WarnContext(ctx, "Failed to clean up workspace", logfields.Error(err))
	}
}

// commitMessage lists the published versions and carries the run ID as a trailer.
func (p *Pipeline) commitMessage(report *Report) string {
	var b strings.Builder
	b.WriteString(p.cfg.Commit.Message)
	b.WriteString("\n\n")
	for _, res := range report.Built() {
		fmt.Fprintf(&b, "- %s (%s)\n", res.Version.Label, res.Version.SourceRef)
	}
	if failed := report.Failed(); len(failed) > 0 {
		fmt.Fprintf(&b, "\nFailed: %s\n", strings.Join(labels(failed), ", "))
	}
	fmt.Fprintf(&b, "\nRun-Id: %s\n", report.RunID)
	return b.String()
}

func versionLabels(versions []versioning.Version) []string {
	out := make([]string, 0, len(versions))
	for _, v := range versions {
		out = append(out, v.Label)
	}
	return out
}
