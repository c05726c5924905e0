package vm

import "fmt"

// ---------------------------------------------------------------------------
// VM Error Types
// ---------------------------------------------------------------------------

// ConsistencyError reports a corrupted interpreter state: block stack or
// value stack underflow, a loop exit outside of any loop. It is raised by
// panic and recovered at the Run boundary.
type ConsistencyError struct {
	Op     string
	Reason string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("vm consistency error in %s: %s", e.Op, e.Reason)
}

func consistency(op, format string, args ...any) {
	panic(&ConsistencyError{Op: op, Reason: fmt.Sprintf(format, args...)})
}

// UncaughtError is returned when an exception leaves the outermost frame.
type UncaughtError struct {
	Class   string
	Code    int64
	Message string

	// Frame and Line locate the instruction that raised.
	Frame string
	Line  int
}

func (e *UncaughtError) Error() string {
	loc := e.Frame
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.Frame, e.Line)
	}
	return fmt.Sprintf("uncaught exception %s(%d) in %s: %s", e.Class, e.Code, loc, e.Message)
}
