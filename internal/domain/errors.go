package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pipeline error taxonomy. Validation and
// transition errors are terminal and reported immediately; transport and
// upstream errors are recorded on the affected entity and leave the rest
// of the pipeline unaffected.
var (
	// ErrNotFound means a referenced user, recommendation, or job is absent.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition means an illegal status change was requested.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnknownEventType means the event kind is not a recognized kind.
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrUpstreamUnavailable means the external text-generation
	// collaborator failed or timed out. Callers degrade the affected
	// field rather than failing the enclosing operation.
	ErrUpstreamUnavailable = errors.New("upstream text generation unavailable")
)

// ValidationError reports malformed or missing input on an ingestion or
// boundary request. It is never retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError anywhere in its chain.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// TransportError reports a failed delivery to an email or chat channel.
// It is recorded on the notification job and eligible for caller-driven
// retry, never silently dropped.
type TransportError struct {
	Channel Channel
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s delivery failed: %v", e.Channel, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
