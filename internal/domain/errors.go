package domain

import "errors"

// Kind is a stable failure class surfaced to callers.
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	ErrNotFound        Kind = "not_found"
	ErrUnauthorized    Kind = "unauthorized"
	ErrGeocoding       Kind = "geocoding_failure"
	ErrTransient       Kind = "transient_failure"
	ErrArtifactCleanup Kind = "artifact_cleanup_failure"
)

// ErrCommitUnknown marks a failed commit whose outcome is unknown: the
// transaction may have been applied.
var ErrCommitUnknown = errors.New("transaction commit outcome unknown")

// Error pairs a Kind with the message shown to callers. The cause is kept for
// logging and is not part of Error() or the Unwrap chain.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// Cause returns the internal error that triggered e, if any.
func (e *Error) Cause() error { return e.cause }

func NotFound(msg string) error { return &Error{Kind: ErrNotFound, Message: msg} }

func Unauthorized(msg string) error { return &Error{Kind: ErrUnauthorized, Message: msg} }

func GeocodingFailure(msg string, cause error) error {
	return &Error{Kind: ErrGeocoding, Message: msg, cause: cause}
}

func Transient(msg string, cause error) error {
	return &Error{Kind: ErrTransient, Message: msg, cause: cause}
}

// KindOf classifies err. Anything that is not a known kind is transient.
func KindOf(err error) Kind {
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return ErrTransient
}

// MessageOf returns the caller facing message of err. Errors that did not pass
// through the service layer get a generic message so internals do not leak.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Something went wrong, please try again."
}
