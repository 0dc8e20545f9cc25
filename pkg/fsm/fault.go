package fsm

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/cadence/pkg/domain"
)

// Fault is the kind of a Step error, as seen by the driver.
type Fault int

const (
	FaultNone Fault = iota
	FaultInterrupt
	FaultCancel
	FaultAbort
	FaultUnexpected
)

func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultInterrupt:
		return "interrupt"
	case FaultCancel:
		return "cancel"
	case FaultAbort:
		return "abort"
	}
	return "unexpected"
}

// Classify maps err to its Fault kind.
func Classify(err error) Fault {
	switch {
	case err == nil:
		return FaultNone
	case errors.Is(err, domain.ErrInterrupted):
		return FaultInterrupt
	case errors.Is(err, domain.ErrAborted):
		return FaultAbort
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return FaultCancel
	}
	return FaultUnexpected
}

// IsStop reports whether err asks the run to stop without being a bug:
// a cancellation or an abort.
func IsStop(err error) bool {
	f := Classify(err)
	return f == FaultCancel || f == FaultAbort
}

// Interrupt returns a cooperative interruption error.
func Interrupt(reason string) error {
	return fmt.Errorf("%w: %s", domain.ErrInterrupted, reason)
}

// Abort returns an abort error wrapping cause.
func Abort(cause error) error {
	if cause == nil {
		return domain.ErrAborted
	}
	return fmt.Errorf("%w: %w", domain.ErrAborted, cause)
}
