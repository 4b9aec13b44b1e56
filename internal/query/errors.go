package query

import "fmt"

// Error is the terminal per-question failure after retries are
// exhausted. It never invalidates the loaded dataset.
type Error struct {
	Question    string
	LastFailure string
}

func (e *Error) Error() string {
	return fmt.Sprintf("query: %q: %s", e.Question, e.LastFailure)
}

// Code returns the stable machine code for console callers.
func (e *Error) Code() string { return "query" }

// TimeoutError reports an exceeded step budget, an expired deadline, or
// a caller cancellation. Trace carries the best partial computation
// trace for diagnostics.
type TimeoutError struct {
	Question  string
	Cancelled bool
	Trace     []string
}

func (e *TimeoutError) Error() string {
	if e.Cancelled {
		return fmt.Sprintf("query: %q: cancelled by caller", e.Question)
	}
	return fmt.Sprintf("query: %q: step/time budget exceeded", e.Question)
}

// Code returns the stable machine code for console callers.
func (e *TimeoutError) Code() string {
	if e.Cancelled {
		return "query_cancelled"
	}
	return "query_timeout"
}

// ResultTooLargeError reports an agent result exceeding the row cap even
// after the engine asked it once to aggregate.
type ResultTooLargeError struct {
	Rows int
	Max  int
}

func (e *ResultTooLargeError) Error() string {
	return fmt.Sprintf("query: result has %d rows, cap is %d", e.Rows, e.Max)
}

// Code returns the stable machine code for console callers.
func (e *ResultTooLargeError) Code() string { return "result_too_large" }
