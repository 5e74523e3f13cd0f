package commands

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/docpublish/internal/config"
	"git.home.luguber.info/inful/docpublish/internal/git"
	perrors "git.home.luguber.info/inful/docpublish/internal/publish/errors"
	"git.home.luguber.info/inful/docpublish/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Debounce  time.Duration `help:"Quiet period after a tag change before publishing (overrides watch.debounce)"`
	Every     time.Duration `help:"Also publish on this interval (overrides watch.every)"`
	NoInitial bool          `name:"no-initial" help:"Do not publish once at startup"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	return RunWatch(g.Ctx, cfg, w.options(cfg))
}

func (w *WatchCmd) options(cfg *config.Config) watch.Options {
	opts := watch.Options{Debounce: cfg.Watch.Debounce, Every: cfg.Watch.Every, RunOnStart: !w.NoInitial}
	if w.Debounce > 0 {
		opts.Debounce = w.Debounce
	}
	if w.Every > 0 {
		opts.Every = w.Every
	}
	return opts
}

// RunWatch publishes on every trigger until ctx is canceled. Failed runs are
// logged and do not stop the watcher.
func RunWatch(ctx context.Context, cfg *config.Config, opts watch.Options) error {
	gitDir, err := git.CommonDir(ctx, cfg.Repository)
	if err != nil {
		return err
	}
	opts.GitDir = gitDir

	w, err := watch.New(opts, func(ctx context.Context, _ string) error {
		_, err := RunPublish(ctx, cfg, PublishOptions{})
		if stderrors.Is(err, perrors.ErrEmptyCommit) {
			slog.Info("Output branch already up to date")
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
