package domain

import (
	"errors"
	"fmt"
)

// ErrTriggerDisabled is returned when a step is invoked while its trigger is disabled.
var ErrTriggerDisabled = errors.New("trigger disabled")

// ErrUnknownStep is returned when a step name is not part of the wizard.
var ErrUnknownStep = errors.New("unknown step")

// ErrUnexpectedStatus is matched by StatusError.
var ErrUnexpectedStatus = errors.New("unexpected status")

// ErrMalformedReceipt is returned when the issuer body is not a valid receipt.
var ErrMalformedReceipt = errors.New("malformed issuer receipt")

// ErrStepInFlight is returned when another process holds the step's in-flight guard.
var ErrStepInFlight = errors.New("step already in flight")

// StatusError reports a non-200 completion.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("unexpected status %s", e.Status)
	}
	return fmt.Sprintf("unexpected status %d", e.Code)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}
