package pipeline

import "errors"

var (
	// ErrNavigateFailed wraps a CDP navigation failure.
	ErrNavigateFailed = errors.New("navigation failed")
	// ErrWaitTimeout is returned when the navigation's lifecycle event does
	// not fire within its sub-timeout.
	ErrWaitTimeout = errors.New("wait timeout exceeded")
)
