package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// RunOutcome is the final status of a publish run.
type RunOutcome string

const (
	RunPublished RunOutcome = "published"
	RunEmpty     RunOutcome = "empty"
	RunNoCommit  RunOutcome = "no_commit"
	RunFailed    RunOutcome = "failed"
)

// Recorder defines observability hooks for a publish run. Implementations must
// tolerate nil receivers.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveVersionDuration(outcome string, d time.Duration)
	IncVersionOutcome(outcome string) // outcome: built|skipped|failed
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome RunOutcome)
	SetVersionsPublished(n int)
	SetLastRun(t time.Time)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)   {}
func (NoopRecorder) IncStageResult(string, ResultLabel)           {}
func (NoopRecorder) ObserveVersionDuration(string, time.Duration) {}
func (NoopRecorder) IncVersionOutcome(string)                     {}
func (NoopRecorder) ObserveRunDuration(time.Duration)             {}
func (NoopRecorder) IncRunOutcome(RunOutcome)                     {}
func (NoopRecorder) SetVersionsPublished(int)                     {}
func (NoopRecorder) SetLastRun(time.Time)                         {}
