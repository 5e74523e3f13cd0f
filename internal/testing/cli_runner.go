package testing

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

const mainPackage = "git.home.luguber.info/inful/docpublish/cmd/docpublish"

var (
	buildOnce   sync.Once
	builtBinary string
	buildErr    error
)

// BuildBinary compiles docpublish once per test process and returns its path.
// The test is skipped when the toolchain cannot build it.
func BuildBinary(t *testing.T) string {
	t.Helper()
	buildOnce.Do(func() {
		dir, err := os.MkdirTemp("", "docpublish-bin-")
		if err != nil {
			buildErr = err
			return
		}
		builtBinary = filepath.Join(dir, "docpublish")
		cmd := exec.CommandContext(context.Background(), "go", "build", "-o", builtBinary, mainPackage) //nolint:gosec // building test binary
		cmd.Env = os.Environ()
		if out, err := cmd.CombinedOutput(); err != nil {
			buildErr = errors.New(string(out))
		}
	})
	if buildErr != nil {
		t.Skipf("cannot build docpublish: %v", buildErr)
	}
	return builtBinary
}

// CLITestRunner provides utilities for testing CLI commands.
type CLITestRunner struct {
	t          *testing.T
	binaryPath string
	workingDir string
	env        []string
	timeout    time.Duration
}

// NewCLITestRunner creates a new CLI test runner.
func NewCLITestRunner(t *testing.T, binaryPath string) *CLITestRunner {
	return &CLITestRunner{
		t:          t,
		binaryPath: binaryPath,
		timeout:    testDefaultTimeout * time.Second,
	}
}

// WithWorkingDir sets the working directory for CLI commands.
func (r *CLITestRunner) WithWorkingDir(dir string) *CLITestRunner {
	r.workingDir = dir
	return r
}

// WithEnv adds environment variables on top of the test process environment.
func (r *CLITestRunner) WithEnv(env ...string) *CLITestRunner {
	r.env = append(r.env, env...)
	return r
}

// CLIResult represents the result of a CLI command execution.
type CLIResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	Error    error
}

// Run executes a CLI command and returns the result.
func (r *CLITestRunner) Run(args ...string) *CLIResult {
	r.t.Helper()

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.binaryPath, args...) //nolint:gosec // test runner intentionally executes built binary
	if r.workingDir != "" {
		cmd.Dir = r.workingDir
	}
	cmd.Env = append(os.Environ(), r.env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &CLIResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
		Error:    err,
	}
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			result.ExitCode = exitError.ExitCode()
		} else {
			result.ExitCode = -1
		}
	}
	return result
}

// AssertExitCode validates the exit code.
func (result *CLIResult) AssertExitCode(t *testing.T, expected int) *CLIResult {
	t.Helper()
	if result.ExitCode != expected {
		t.Errorf("Expected exit code %d, got %d\nStdout: %s\nStderr: %s",
			expected, result.ExitCode, result.Stdout, result.Stderr)
	}
	return result
}

// AssertOutputContains validates that stdout contains expected text.
func (result *CLIResult) AssertOutputContains(t *testing.T, expected string) *CLIResult {
	t.Helper()
	if !strings.Contains(result.Stdout, expected) {
		t.Errorf("Expected output to contain %q\nActual output: %s", expected, result.Stdout)
	}
	return result
}

// AssertErrorContains validates that stderr contains expected text.
func (result *CLIResult) AssertErrorContains(t *testing.T, expected string) *CLIResult {
	t.Helper()
	if !strings.Contains(result.Stderr, expected) {
		t.Errorf("Expected error output to contain %q\nActual error: %s", expected, result.Stderr)
	}
	return result
}
