// Package errors provides the classified error primitives used across docpublish.
//
// A ClassifiedError carries a category, a severity and a retry strategy next to
// the usual message and cause, so that callers can decide whether a failure is
// fatal to a publish run, recorded per version, or purely informational.
//
// Example usage:
//
//	err := errors.WorktreeError("checkout failed").
//		WithCause(cause).
//		Fatal().
//		WithContext("ref", ref).
//		Build()
//
// The CLIErrorAdapter turns classified errors into exit codes and user-facing
// messages for the docpublish command.
package errors
