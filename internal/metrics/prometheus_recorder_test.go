package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("build_versions", 150*time.Millisecond)
	pr.IncStageResult("build_versions", ResultSuccess)
	pr.ObserveVersionDuration("built", 2*time.Second)
	pr.IncVersionOutcome("built")
	pr.IncVersionOutcome("built")
	pr.IncVersionOutcome("failed")
	pr.ObserveRunDuration(3 * time.Second)
	pr.IncRunOutcome(RunPublished)
	pr.SetVersionsPublished(4)
	pr.SetLastRun(time.Unix(1700000000, 0))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := map[string]bool{}
	for _, mf := range mfs {
		found[mf.GetName()] = true
		switch mf.GetName() {
		case "docpublish_version_outcomes_total":
			for _, m := range mf.GetMetric() {
				if m.GetLabel()[0].GetValue() == "built" && m.GetCounter().GetValue() != 2 {
					t.Fatalf("expected 2 built versions, got %v", m.GetCounter().GetValue())
				}
			}
		case "docpublish_versions_published":
			if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 4 {
				t.Fatalf("expected versions_published 4, got %v", got)
			}
		}
	}
	for _, name := range []string{"docpublish_run_duration_seconds", "docpublish_last_run_timestamp_seconds", "docpublish_stage_results_total"} {
		if !found[name] {
			t.Errorf("metric %s not gathered", name)
		}
	}
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncRunOutcome(RunFailed)
	pr.SetLastRun(time.Now())
	if err := pr.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Fatalf("nil recorder should not fail: %v", err)
	}
}

func TestPrometheusRecorder_WriteTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncRunOutcome(RunEmpty)
	path := filepath.Join(t.TempDir(), "collector", "docpublish.prom")
	if err := pr.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `docpublish_run_outcomes_total{outcome="empty"} 1`) {
		t.Fatalf("unexpected textfile content:\n%s", data)
	}
}

var _ Recorder = NoopRecorder{}
var _ Recorder = (*PrometheusRecorder)(nil)
