package browser

import "errors"

// Pool errors - returned during browser instance management and lease acquisition.
var (
	ErrShuttingDown      = errors.New("pool is shutting down")
	ErrInstanceDead      = errors.New("browser instance is dead")
	ErrLaunchFailed      = errors.New("failed to launch browser instance")
	ErrContextCreation   = errors.New("failed to create browsing context")
	ErrAcquireTimeout    = errors.New("timeout waiting for available browser")
	ErrAcquireCancelled  = errors.New("acquisition cancelled")
	ErrAlreadyReleased   = errors.New("lease already released")
)
