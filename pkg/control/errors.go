package control

import "errors"

// Common static errors to replace dynamic error creation.
var (
	// Builder-related errors.
	ErrInvalidOption = errors.New("invalid option")
	ErrEmptyVerb     = errors.New("command verb is empty")

	// Invoker-related errors.
	ErrToolNotFound = errors.New("tool not found")
	ErrLaunchFailed = errors.New("failed to launch command")

	// Guard-related errors.
	ErrGuardRejected = errors.New("invocation rejected by circuit breaker")
)
