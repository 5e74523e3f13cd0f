package commands

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"git.home.luguber.info/inful/docpublish/internal/config"
	"git.home.luguber.info/inful/docpublish/internal/eventstore"
	"git.home.luguber.info/inful/docpublish/internal/foundation/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int `short:"n" help:"Number of runs to show" default:"10"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	return RunHistory(g, os.Stdout, cfg, h.Limit)
}

// RunHistory prints the most recent runs recorded in the history database, newest first.
func RunHistory(g *Global, w io.Writer, cfg *config.Config, limit int) error {
	if cfg.History.Database == "" {
		return errors.ConfigError("history.database is not configured").Build()
	}
	store, err := eventstore.NewSQLiteStore(cfg.History.Database)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	proj := eventstore.NewRunHistoryProjection(store, max(limit, 1))
	if err := proj.Rebuild(g.Ctx); err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"Run", "Started", "Status", "Duration", "Built", "Skipped", "Failed", "Commit", "Error"})
	for _, run := range proj.Recent(limit) {
		errText := run.ErrorText
		if run.ErrorStage != "" {
			errText = run.ErrorStage + ": " + errText
		}
		t.AppendRow(table.Row{
			shorten(run.RunID, 8),
			run.StartedAt.Local().Format(time.DateTime),
			run.Status,
			run.Duration.Round(time.Millisecond).String(),
			len(run.Built),
			len(run.Skipped),
			strings.Join(run.Failed, ", "),
			shorten(run.Commit, 12),
			errText,
		})
	}
	t.Render()
	return nil
}

func shorten(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
