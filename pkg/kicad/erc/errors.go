package erc

import (
	"fmt"
	"time"
)

// TimeoutError indicates the checker process exceeded its deadline. It is
// distinct from ProcessError: the process existed and started, it just
// never finished in time.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("checker timed out after %s", e.Timeout)
}

// ProcessError indicates the checker process could not be invoked or
// exited abnormally.
type ProcessError struct {
	Stderr string
	Err    error
}

func (e *ProcessError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("checker process failed: %v: %s", e.Err, e.Stderr)
	}
	return fmt.Sprintf("checker process failed: %v", e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}
