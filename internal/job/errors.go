package job

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure surfaced by the pipeline wraps exactly one of them.
var (
	ErrConfig            = errors.New("configuration error")
	ErrOutputExists      = errors.New("output file already exists")
	ErrScratchDir        = errors.New("scratch directory error")
	ErrInvalidInput      = errors.New("invalid input")
	ErrDownload          = errors.New("download failed")
	ErrClone             = errors.New("clone failed")
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	ErrExtraction        = errors.New("extraction failed")
	ErrWrite             = errors.New("write failed")
	ErrInterrupted       = errors.New("interrupted")
)

// Error carries a kind, the path or URL it concerns, and the underlying cause.
type Error struct {
	Kind    error
	Subject string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	message := e.Kind.Error()
	if e.Subject != "" {
		message = fmt.Sprintf("%s: %s", message, e.Subject)
	}
	if e.Err != nil {
		message = fmt.Sprintf("%s: %v", message, e.Err)
	}
	return message
}

// Is matches the error kind so callers can write errors.Is(err, job.ErrDownload).
func (e *Error) Is(target error) bool {
	return e != nil && e.Kind == target
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an Error of the given kind.
func NewError(kind error, subject string, cause error) error {
	return &Error{Kind: kind, Subject: subject, Err: cause}
}

// Errorf builds an Error of the given kind with a formatted cause.
func Errorf(kind error, subject string, format string, args ...any) error {
	return &Error{Kind: kind, Subject: subject, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the taxonomy kind of err, or nil when err carries none.
func KindOf(err error) error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return nil
}
