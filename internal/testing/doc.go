// Package testing contains CLI integration helpers: a fluent configuration
// builder and a runner for the compiled docpublish binary.
package testing

const (
	testDirPermissions  = 0o750
	testFilePermissions = 0o600

	// testDefaultTimeout bounds one CLI invocation.
	testDefaultTimeout = 60
)
