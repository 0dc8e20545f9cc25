package domain

import "errors"

// ErrFlagNotFound is returned by a flag lookup when no flag is stored under the key.
var ErrFlagNotFound = errors.New("flag not found")

// ErrWindowNotFound is returned when no production window covers the requested instant.
var ErrWindowNotFound = errors.New("production window not found")

// ErrNoExtension is returned when no registered extension initializes for a context.
var ErrNoExtension = errors.New("no extension initialized for context")

// ErrInterrupted marks a cooperative interruption (pause or shutdown request).
// It is not a failure: the driver unwinds without recovery and without logging an error.
var ErrInterrupted = errors.New("analysis interrupted")

// ErrAborted marks a collaborator-raised abort ("stop now, not a bug").
var ErrAborted = errors.New("analysis aborted")

// ErrPauseNotHeld is returned when a pause is released by a requester that does not hold it.
var ErrPauseNotHeld = errors.New("pause not held by requester")

// ErrUnknownStep is returned when an analysis step name has no registered implementation.
var ErrUnknownStep = errors.New("unknown analysis step")
