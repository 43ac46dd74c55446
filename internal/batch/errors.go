package batch

import "fmt"

// InvalidModeError is returned when Chmod's symbolic mode string does not
// match [augo][+-=][rwx]+.
type InvalidModeError struct {
	Mode string
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid symbolic mode %q", e.Mode)
}

// ParallelRunFailed wraps the first failure observed while running a
// ParallelRun's command set; the other commands still run to completion.
type ParallelRunFailed struct {
	Line  string
	Cause error
}

func (e *ParallelRunFailed) Error() string {
	return fmt.Sprintf("parallel command %q failed: %v", e.Line, e.Cause)
}

func (e *ParallelRunFailed) Unwrap() error { return e.Cause }
