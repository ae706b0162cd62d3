package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	ErrNotFound     = errors.New("domain: not found")
	ErrConflict     = errors.New("domain: conflict")
	ErrSuperseded   = errors.New("domain: superseded by a newer request")
	ErrNotConnected = errors.New("domain: change stream not connected")
)

// Failure taxonomy of the mutation path.
var (
	// ErrValidation rejects caller input before any optimistic apply.
	ErrValidation = errors.New("domain: validation failure")
	// ErrRemoteRejected means the remote store answered with an error.
	ErrRemoteRejected = errors.New("domain: remote rejected")
	// ErrTransport covers network, channel and timeout failures.
	ErrTransport = errors.New("domain: transport failure")
	// ErrReconciliationAnomaly marks a notification for an entity that is not
	// present locally. It is logged, never surfaced.
	ErrReconciliationAnomaly = errors.New("domain: reconciliation anomaly")
)

// MutationError is returned by the coordinator for a failed mutation. Kind is
// one of ErrValidation, ErrRemoteRejected or ErrTransport; errors.Is matches
// both Kind and the underlying cause.
type MutationError struct {
	Op   string
	Kind error
	Err  error
}

func (e *MutationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *MutationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Validationf builds a validation MutationError.
func Validationf(op, format string, args ...any) *MutationError {
	return &MutationError{Op: op, Kind: ErrValidation, Err: fmt.Errorf(format, args...)}
}

// Rejected marks err as a remote rejection so the coordinator can classify it.
func Rejected(err error) error {
	if err == nil || errors.Is(err, ErrRemoteRejected) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRemoteRejected, err)
}
