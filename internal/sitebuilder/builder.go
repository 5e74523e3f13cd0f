// Package sitebuilder invokes the external static-site generator for one
// checked-out version.
package sitebuilder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docpublish/internal/config"
	"git.home.luguber.info/inful/docpublish/internal/logfields"
)

var (
	// ErrBuilderNotFound indicates the builder executable was not detected on PATH.
	ErrBuilderNotFound = errors.New("site builder binary not found")
	// ErrBuildFailed indicates the builder returned a non-zero exit status.
	ErrBuildFailed = errors.New("site builder execution failed")
)

// Job describes one build. Dir is the directory holding ConfigFile; OutputDir is relative to Dir.
type Job struct {
	Dir        string
	ConfigFile string
	OutputDir  string
}

// OutputPath is where the rendered site is expected after a successful build.
func (j Job) OutputPath() string { return filepath.Join(j.Dir, j.OutputDir) }

// Builder abstracts how a version's site is rendered so the external binary
// can be swapped for a fake in tests or a no-op in dry runs.
type Builder interface {
	Build(ctx context.Context, job Job) error
}

// BinaryBuilder runs a configured command in the job directory.
type BinaryBuilder struct {
	Command []string
	Env     map[string]string
}

// NewBinaryBuilder creates a builder from configuration.
func NewBinaryBuilder(cfg config.BuilderConfig) *BinaryBuilder {
	return &BinaryBuilder{Command: append([]string(nil), cfg.Command...), Env: cfg.Env}
}

// Build implements Builder.
func (b *BinaryBuilder) Build(ctx context.Context, job Job) error {
	if len(b.Command) == 0 {
		return fmt.Errorf("%w: no command configured", ErrBuilderNotFound)
	}
	bin, err := exec.LookPath(b.Command[0])
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuilderNotFound, err)
	}

	// #nosec G204 -- command comes from the operator's configuration
	cmd := exec.CommandContext(ctx, bin, b.Command[1:]...)
	cmd.Dir = job.Dir
	cmd.Env = os.Environ()
	for k, v := range b.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	slog.Debug("Invoking site builder", logfields.Path(job.Dir), slog.String("command", strings.Join(b.Command, " ")))

	err = cmd.Run()

	outStr := strings.TrimSpace(stdout.String())
	errStr := strings.TrimSpace(stderr.String())
	if outStr != "" {
		slog.Debug("builder stdout", "output", outStr)
	}
	if err != nil {
		// Builders report errors on either stream.
		output := errStr
		if output == "" {
			output = outStr
		} else if outStr != "" {
			output = outStr + "\n" + errStr
		}
		if output != "" {
			return fmt.Errorf("%w: %w: %s", ErrBuildFailed, err, output)
		}
		return fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}
	if errStr != "" {
		slog.Debug("builder stderr", "output", errStr)
	}

	if st, err := os.Stat(job.OutputPath()); err != nil || !st.IsDir() {
		return fmt.Errorf("%w: output directory %s missing after build", ErrBuildFailed, job.OutputDir)
	}
	return nil
}

// NoopBuilder renders nothing but creates an empty output directory so the
// rest of the pipeline can run.
type NoopBuilder struct{}

// Build implements Builder.
func (NoopBuilder) Build(_ context.Context, job Job) error {
	slog.Debug("NoopBuilder skipping render", logfields.Path(job.Dir))
	return os.MkdirAll(job.OutputPath(), 0o750)
}
