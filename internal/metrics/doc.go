// Package metrics records publish run metrics.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics collection never needs nil checks:
//
//	type Pipeline struct {
//	    recorder metrics.Recorder
//	}
//
// When metrics.textfile is configured the command layer swaps in a
// PrometheusRecorder and, after the run, writes its registry in the Prometheus
// text exposition format with WriteTextfile. A node_exporter textfile collector
// can then pick the file up; a one-shot CLI has no long-lived scrape endpoint.
package metrics
