package publish

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"git.home.luguber.info/inful/docpublish/internal/versioning"
)

// Outcome is the per-version result of a build attempt.
type Outcome string

const (
	OutcomeBuilt   Outcome = "built"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// BuildResult records what happened to one Version.
type BuildResult struct {
	Version    versioning.Version
	Built      bool
	OutputPath string // <output>/<dir>, set only when Built
	Outcome    Outcome
	Err        error
	Duration   time.Duration
}

// Report summarises one publish run.
type Report struct {
	RunID    string
	Versions []versioning.Version
	Results  []BuildResult
	Commit   string
	Empty    bool
	Pushed   bool
	// OutputPath is set when the output worktree is left on disk.
	OutputPath string
	Started    time.Time
	Finished   time.Time
}

// Built returns the results that produced a published subdirectory.
func (r *Report) Built() []BuildResult { return r.filter(OutcomeBuilt) }

// Skipped returns the results whose source had no builder configuration.
func (r *Report) Skipped() []BuildResult { return r.filter(OutcomeSkipped) }

// Failed returns the results whose builder invocation failed.
func (r *Report) Failed() []BuildResult { return r.filter(OutcomeFailed) }

func (r *Report) filter(o Outcome) []BuildResult {
	var out []BuildResult
	for _, res := range r.Results {
		if res.Outcome == o {
			out = append(out, res)
		}
	}
	return out
}

// Duration is the wall time of the run, zero until it finished.
func (r *Report) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// Summary renders the one-line outcome count with the labels in each group.
func (r *Report) Summary() string {
	group := func(name string, results []BuildResult) string {
		if len(results) == 0 {
			return fmt.Sprintf("%s 0", name)
		}
		return fmt.Sprintf("%s %d (%s)", name, len(results), strings.Join(labels(results), ", "))
	}
	return strings.Join([]string{
		group("built", r.Built()),
		group("skipped", r.Skipped()),
		group("failed", r.Failed()),
	}, "; ")
}

// WriteTable renders the per-version results as a table.
func (r *Report) WriteTable(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"Label", "Ref", "Dir", "Outcome", "Duration", "Error"})
	for _, res := range r.Results {
		errText := ""
		if res.Err != nil {
			errText = res.Err.Error()
		}
		t.AppendRow(table.Row{
			res.Version.Label,
			res.Version.SourceRef,
			res.Version.Dir(),
			string(res.Outcome),
			res.Duration.Round(time.Millisecond).String(),
			errText,
		})
	}
	t.AppendFooter(table.Row{"", "", "", r.Summary(), "", ""})
	t.Render()
}

func labels(results []BuildResult) []string {
	out := make([]string, 0, len(results))
	for _, res := range results {
		out = append(out, res.Version.Label)
	}
	return out
}
