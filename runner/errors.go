package runner

import (
	"errors"
	"fmt"
)

// AbortedError ends a run without side effects. It is informational: the
// user declined, or there was nothing to do.
type AbortedError struct {
	State  State
	Reason string
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("release aborted at %s: %s", e.State, e.Reason)
}

// IsAborted reports whether err ended the run early on purpose.
func IsAborted(err error) bool {
	var aerr *AbortedError
	return errors.As(err, &aerr)
}
