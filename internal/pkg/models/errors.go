package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the route engine can surface. The poller
// keys its scheduling decisions off the kind: auth errors stop polling until
// the route set is reloaded, rate limits widen the interval, everything else
// retries on the next scheduled cycle.
type ErrorKind string

const (
	// ErrValidation marks a malformed route configuration. Raised at
	// configuration load, never during a poll cycle.
	ErrValidation ErrorKind = "validation"
	// ErrGeocode marks an address the provider could not resolve.
	ErrGeocode ErrorKind = "geocode"
	// ErrEntityUnavailable marks a referenced entity with no usable position.
	ErrEntityUnavailable ErrorKind = "entity_unavailable"
	// ErrAuth marks rejected provider credentials. Persistent until
	// reconfiguration.
	ErrAuth ErrorKind = "auth"
	// ErrRateLimited marks a provider 429. The caller must back off.
	ErrRateLimited ErrorKind = "rate_limited"
	// ErrNoRoute marks a provider response with no path between the points.
	ErrNoRoute ErrorKind = "no_route"
	// ErrTransient marks network failures, timeouts and provider 5xx.
	ErrTransient ErrorKind = "transient"
)

// ClassifiedError carries an ErrorKind alongside the underlying cause.
type ClassifiedError struct {
	Kind ErrorKind
	Err  error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// NewClassifiedError wraps err with the given kind.
func NewClassifiedError(kind ErrorKind, err error) error {
	return &ClassifiedError{Kind: kind, Err: err}
}

// NewValidationError builds an ErrValidation from a message.
func NewValidationError(msg string) error {
	return &ClassifiedError{Kind: ErrValidation, Err: errors.New(msg)}
}

// NewGeocodeError builds an ErrGeocode from a message.
func NewGeocodeError(msg string) error {
	return &ClassifiedError{Kind: ErrGeocode, Err: errors.New(msg)}
}

// NewEntityUnavailableError builds an ErrEntityUnavailable for an entity.
func NewEntityUnavailableError(entityID, reason string) error {
	return &ClassifiedError{
		Kind: ErrEntityUnavailable,
		Err:  fmt.Errorf("entity %s: %s", entityID, reason),
	}
}

// KindOf extracts the ErrorKind from err. Unclassified errors report
// ErrTransient so an unexpected failure degrades to retry-next-poll
// instead of taking a route down.
func KindOf(err error) ErrorKind {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ErrTransient
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
