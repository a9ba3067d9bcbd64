package timer

import "errors"

var (
	// ErrNoActiveSession is returned by Stop when the engine is idle.
	ErrNoActiveSession = errors.New("timer: no active session")

	// ErrStopFailed wraps a remote stop failure; local state is kept so the
	// caller can retry.
	ErrStopFailed = errors.New("timer: failed to record session stop")
)
