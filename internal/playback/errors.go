package playback

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind decides which recovery tier handles a playback error.
type ErrorKind int

const (
	KindFatal ErrorKind = iota
	KindNetwork
	KindMedia
	KindAuthorization
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindMedia:
		return "media"
	case KindAuthorization:
		return "authorization"
	case KindFatal:
		return "fatal"
	}
	return "unknown"
}

var (
	ErrTransientNetwork      = errors.New("transient network error")
	ErrFatalMedia            = errors.New("fatal media error")
	ErrAuthorizationRejected = errors.New("delivery authorization rejected")

	ErrDisposed       = errors.New("controller disposed")
	ErrNotIdle        = errors.New("controller already attached")
	ErrNotPlaying     = errors.New("no representations loaded")
	ErrInvalidQuality = errors.New("quality index out of range")
)

// Error is a classified engine failure.
type Error struct {
	Kind   ErrorKind
	Op     string
	Status int // HTTP status when the failure came from a response
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Op, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind, so callers can test with
// errors.Is(err, ErrAuthorizationRejected) without knowing the cause.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransientNetwork:
		return e.Kind == KindNetwork
	case ErrFatalMedia:
		return e.Kind == KindMedia
	case ErrAuthorizationRejected:
		return e.Kind == KindAuthorization
	}
	return false
}

func NetworkError(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

func MediaError(op string, err error) *Error {
	return &Error{Kind: KindMedia, Op: op, Err: err}
}

// StatusError classifies an unsuccessful HTTP response. A 401 or 403 from
// the CDN means the signed cookie is missing or past its window and must
// never be retried.
func StatusError(op string, status int) *Error {
	e := &Error{Op: op, Status: status, Err: errors.New(http.StatusText(status))}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindAuthorization
	case status >= 500 || status == http.StatusTooManyRequests || status == http.StatusRequestTimeout:
		e.Kind = KindNetwork
	default:
		e.Kind = KindFatal
	}
	return e
}

// Classify maps any error onto a recovery tier. Unclassified errors are fatal.
func Classify(err error) ErrorKind {
	var pe *Error
	switch {
	case err == nil:
		return KindFatal
	case errors.As(err, &pe):
		return pe.Kind
	case errors.Is(err, ErrAuthorizationRejected):
		return KindAuthorization
	case errors.Is(err, ErrTransientNetwork):
		return KindNetwork
	case errors.Is(err, ErrFatalMedia):
		return KindMedia
	}
	return KindFatal
}
