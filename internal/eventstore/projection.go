package eventstore

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"
)

// Run statuses in a RunSummary.
const (
	StatusRunning   = "running"
	StatusPublished = "published"
	StatusEmpty     = "empty"
	StatusFailed    = "failed"
)

// RunSummary is the read model of one publish run.
type RunSummary struct {
	RunID       string        `json:"run_id"`
	Status      string        `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Branch      string        `json:"branch,omitempty"`
	Commit      string        `json:"commit,omitempty"`
	Pushed      bool          `json:"pushed"`
	Built       []string      `json:"built,omitempty"`
	Skipped     []string      `json:"skipped,omitempty"`
	Failed      []string      `json:"failed,omitempty"`
	ErrorStage  string        `json:"error_stage,omitempty"`
	ErrorText   string        `json:"error,omitempty"`
}

// RunHistoryProjection folds stored events into run summaries.
type RunHistoryProjection struct {
	mu      sync.RWMutex
	store   Store
	runs    map[string]*RunSummary
	order   []string // run IDs in first-seen order
	maxSize int
}

// NewRunHistoryProjection creates a projection that keeps at most maxSize runs (100 when <= 0).
func NewRunHistoryProjection(store Store, maxSize int) *RunHistoryProjection {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &RunHistoryProjection{store: store, runs: make(map[string]*RunSummary), maxSize: maxSize}
}

// Rebuild reconstructs the projection from every stored event.
func (p *RunHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = make(map[string]*RunSummary)
	p.order = nil
	for _, ev := range events {
		p.applyLocked(ev)
	}
	return nil
}

func (p *RunHistoryProjection) applyLocked(ev Event) {
	runID := ev.RunID()
	if runID == "" {
		return
	}
	s, ok := p.runs[runID]
	if !ok {
		s = &RunSummary{RunID: runID, Status: StatusRunning, StartedAt: ev.Timestamp()}
		p.runs[runID] = s
		p.order = append(p.order, runID)
		p.trimLocked()
	}

	switch ev.Type() {
	case TypeRunStarted:
		var d RunStartedData
		if json.Unmarshal(ev.Payload(), &d) == nil {
			s.Branch = d.Branch
		}
		s.StartedAt = ev.Timestamp()
	case TypeVersionBuilt:
		var d VersionBuiltData
		if json.Unmarshal(ev.Payload(), &d) != nil {
			return
		}
		switch d.Outcome {
		case "built":
			s.Built = append(s.Built, d.Label)
		case "skipped":
			s.Skipped = append(s.Skipped, d.Label)
		case "failed":
			s.Failed = append(s.Failed, d.Label)
		}
	case TypeRunCompleted:
		var d RunCompletedData
		if json.Unmarshal(ev.Payload(), &d) == nil {
			s.Commit = d.Commit
			s.Pushed = d.Pushed
			s.Status = StatusPublished
			if d.Empty {
				s.Status = StatusEmpty
			}
		}
		p.completeLocked(s, ev.Timestamp())
	case TypeRunFailed:
		var d RunFailedData
		if json.Unmarshal(ev.Payload(), &d) == nil {
			s.ErrorStage = d.Stage
			s.ErrorText = d.Error
		}
		s.Status = StatusFailed
		p.completeLocked(s, ev.Timestamp())
	}
}

func (p *RunHistoryProjection) completeLocked(s *RunSummary, at time.Time) {
	s.CompletedAt = &at
	s.Duration = at.Sub(s.StartedAt)
}

func (p *RunHistoryProjection) trimLocked() {
	for len(p.order) > p.maxSize {
		delete(p.runs, p.order[0])
		p.order = p.order[1:]
	}
}

// Recent returns up to n runs, newest first.
func (p *RunHistoryProjection) Recent(n int) []RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]RunSummary, 0, min(n, len(p.order)))
	for _, id := range slices.Backward(p.order) {
		if len(out) == n {
			break
		}
		out = append(out, *p.runs[id])
	}
	return out
}

// Get returns the summary for runID.
func (p *RunHistoryProjection) Get(runID string) (RunSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.runs[runID]
	if !ok {
		return RunSummary{}, false
	}
	return *s, true
}
