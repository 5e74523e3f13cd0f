package eventstore

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/docpublish/internal/foundation/errors"
)

// Event type names.
const (
	TypeRunStarted   = "RunStarted"
	TypeVersionBuilt = "VersionBuilt"
	TypeRunCompleted = "RunCompleted"
	TypeRunFailed    = "RunFailed"
)

// RunStartedData is the payload of a RunStarted event.
type RunStartedData struct {
	Repository string   `json:"repository"`
	Branch     string   `json:"branch"`
	Versions   []string `json:"versions"`
}

// VersionBuiltData is the payload of a VersionBuilt event.
type VersionBuiltData struct {
	Label      string `json:"label"`
	Ref        string `json:"ref"`
	Dir        string `json:"dir"`
	Outcome    string `json:"outcome"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// RunCompletedData is the payload of a RunCompleted event.
type RunCompletedData struct {
	Commit  string `json:"commit,omitempty"`
	Empty   bool   `json:"empty"`
	Pushed  bool   `json:"pushed"`
	Built   int    `json:"built"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}

// RunFailedData is the payload of a RunFailed event.
type RunFailedData struct {
	Stage string `json:"stage"`
	Error string `json:"error"`
}

func newEvent(runID, eventType string, data any) (*BaseEvent, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, errors.HistoryError("failed to marshal "+eventType+" payload").
			WithCause(err).
			WithContext("run_id", runID).
			Build()
	}
	return &BaseEvent{
		EventRunID:     runID,
		EventType:      eventType,
		EventTimestamp: time.Now(),
		EventPayload:   payload,
	}, nil
}

// NewRunStarted creates a RunStarted event.
func NewRunStarted(runID string, data RunStartedData) (Event, error) {
	return newEvent(runID, TypeRunStarted, data)
}

// NewVersionBuilt creates a VersionBuilt event.
func NewVersionBuilt(runID string, data VersionBuiltData) (Event, error) {
	return newEvent(runID, TypeVersionBuilt, data)
}

// NewRunCompleted creates a RunCompleted event.
func NewRunCompleted(runID string, data RunCompletedData) (Event, error) {
	return newEvent(runID, TypeRunCompleted, data)
}

// NewRunFailed creates a RunFailed event.
func NewRunFailed(runID, stage string, cause error) (Event, error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return newEvent(runID, TypeRunFailed, RunFailedData{Stage: stage, Error: msg})
}
