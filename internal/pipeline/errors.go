package pipeline

import "fmt"

// Process exit codes. Alerts are a normal outcome; only operational
// failures are nonzero.
const (
	ExitSuccess  = 0
	ExitConfig   = 2 // configuration error: registry, config file, flags
	ExitPartial  = 3 // property load or artifact persistence failures
	ExitDelivery = 4 // digest persisted but handoff to the adapter failed
	ExitTimeout  = 5 // run cancelled or over its wall-clock budget
)

// RunError carries the exit code alongside the cause.
type RunError struct {
	Code int
	Err  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run failed (exit %d): %v", e.Code, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// ExitCode extracts the process exit code from a run result.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if re, ok := err.(*RunError); ok {
		return re.Code
	}
	return 1
}
