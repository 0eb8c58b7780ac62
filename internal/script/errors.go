package script

import "errors"

// Errors for script runs.
var (
	// ErrStateClosed is returned when running on a closed state.
	ErrStateClosed = errors.New("script state is closed")

	// ErrExecutionTimeout is returned when a run exceeds its timeout or its
	// context is cancelled.
	ErrExecutionTimeout = errors.New("script execution timeout")

	// ErrCallLimit is returned when a run makes more calls into the doc
	// module than allowed.
	ErrCallLimit = errors.New("script call limit exceeded")

	// ErrBadArgument is returned for doc module calls with unusable arguments.
	ErrBadArgument = errors.New("bad argument")
)
