package commands

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docpublish/internal/auth"
	"git.home.luguber.info/inful/docpublish/internal/config"
	"git.home.luguber.info/inful/docpublish/internal/eventstore"
	"git.home.luguber.info/inful/docpublish/internal/foundation/errors"
	"git.home.luguber.info/inful/docpublish/internal/git"
	"git.home.luguber.info/inful/docpublish/internal/logfields"
	"git.home.luguber.info/inful/docpublish/internal/metrics"
	"git.home.luguber.info/inful/docpublish/internal/notify"
	"git.home.luguber.info/inful/docpublish/internal/publish"
	perrors "git.home.luguber.info/inful/docpublish/internal/publish/errors"
	"git.home.luguber.info/inful/docpublish/internal/retry"
	"git.home.luguber.info/inful/docpublish/internal/sitebuilder"
)

// PublishCmd implements the 'publish' command.
type PublishCmd struct {
	FailOnEmpty bool `name:"fail-on-empty" help:"Exit with code 3 when the output branch is already up to date"`
	Strict      bool `help:"Exit with code 11 when any version failed to build"`
	NoCommit    bool `name:"no-commit" help:"Leave the composed output worktree on disk instead of committing it"`
	DryRun      bool `name:"dry-run" help:"Do not invoke the site builder; implies --no-commit"`
}

func (p *PublishCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	report, err := RunPublish(g.Ctx, cfg, PublishOptions{NoCommit: p.NoCommit || p.DryRun, DryRun: p.DryRun})
	if report != nil {
		printReport(os.Stdout, report)
	}
	return p.exitStatus(report, err)
}

// exitStatus applies --fail-on-empty and --strict to the outcome of a run.
func (p *PublishCmd) exitStatus(report *publish.Report, err error) error {
	if stderrors.Is(err, perrors.ErrEmptyCommit) {
		if p.FailOnEmpty {
			return &ExitError{Code: errors.ExitEmpty, Err: err}
		}
		err = nil
	}
	if err != nil {
		return err
	}
	if p.Strict && report != nil {
		if failed := report.Failed(); len(failed) > 0 {
			return &ExitError{Code: errors.ExitBuild, Err: fmt.Errorf("%d version(s) failed to build", len(failed))}
		}
	}
	return nil
}

// PublishOptions select the per-invocation behavior of RunPublish.
type PublishOptions struct {
	NoCommit bool
	DryRun   bool
}

// RunPublish wires the configured collaborators into a pipeline and runs it once.
func RunPublish(ctx context.Context, cfg *config.Config, opts PublishOptions) (*publish.Report, error) {
	deps, recorder, closeFn, err := newPipelineDeps(cfg, opts)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	report, runErr := publish.NewPipeline(cfg, publish.Options{NoCommit: opts.NoCommit}, deps).Run(ctx)

	if cfg.Metrics.Textfile != "" {
		if err := recorder.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			slog.Warn("Failed to write metrics textfile", logfields.Path(cfg.Metrics.Textfile), logfields.Error(err))
		}
	}
	return report, runErr
}

func newPipelineDeps(cfg *config.Config, opts PublishOptions) (publish.Deps, *metrics.PrometheusRecorder, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	recorder := metrics.NewPrometheusRecorder(prom.NewRegistry())
	deps := publish.Deps{Recorder: recorder}

	if opts.DryRun {
		deps.Builder = sitebuilder.NoopBuilder{}
	}

	if cfg.History.Database != "" {
		store, err := eventstore.NewSQLiteStore(cfg.History.Database)
		if err != nil {
			slog.Warn("Run history disabled", logfields.Path(cfg.History.Database), logfields.Error(err))
		} else {
			deps.History = store
			closers = append(closers, func() { _ = store.Close() })
		}
	}

	if cfg.Notify.NATSURL != "" && !opts.NoCommit {
		n, err := notify.NewNATSNotifier(cfg.Notify.NATSURL, cfg.Notify.Subject)
		if err != nil {
			slog.Warn("Publish notifications disabled", logfields.Error(err))
		} else {
			deps.Notifier = n
			closers = append(closers, n.Close)
		}
	}

	if cfg.Push.Enabled && !opts.NoCommit {
		method, err := auth.Create(cfg.Push.Auth)
		if err != nil {
			closeAll()
			return deps, nil, nil, errors.NewError(errors.CategoryAuth, "invalid push credentials").
				WithCause(err).
				Fatal().
				Build()
		}
		deps.Pusher = git.NewPusher(cfg.Repository, cfg.Push.Remote, method, retry.FromConfig(cfg.Push.Retry))
	}

	return deps, recorder, closeAll, nil
}

func printReport(w io.Writer, report *publish.Report) {
	if len(report.Results) > 0 {
		report.WriteTable(w)
	}
	switch {
	case report.Empty:
		_, _ = fmt.Fprintln(w, "Output branch already up to date")
	case report.Commit != "":
		_, _ = fmt.Fprintf(w, "Committed %s\n", report.Commit)
		if report.Pushed {
			_, _ = fmt.Fprintln(w, "Pushed output branch")
		}
	case report.OutputPath != "":
		_, _ = fmt.Fprintf(w, "Output left at %s\n", report.OutputPath)
	}
}
