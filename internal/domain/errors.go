package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDecodeFailure signals a malformed image or base64 payload.
	ErrDecodeFailure = errors.New("decode failure")
	// ErrEncodingFailure signals that the remote encoder was unreachable, timed out,
	// or returned an unusable response.
	ErrEncodingFailure = errors.New("encoding failure")
	// ErrDimensionMismatch signals an embedding whose length differs from the configured dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrEmptyCorpus signals that no candidate yielded a usable embedding.
	ErrEmptyCorpus = errors.New("empty corpus")
	// ErrConfiguration signals an invalid index or encoder configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrItemNotFound signals a missing lost or found item.
	ErrItemNotFound = errors.New("item not found")
	// ErrNoImage signals an item without an image payload.
	ErrNoImage = errors.New("item has no image")
)

// Encoding failure reasons. They only differ for logging and metrics; callers treat
// every EncodingError the same way.
const (
	ReasonStatus  = "status"
	ReasonShape   = "shape"
	ReasonNetwork = "network"
	ReasonTimeout = "timeout"
	ReasonModel   = "model"
)

// EncodingError wraps ErrEncodingFailure with the reason the encoder call failed.
type EncodingError struct {
	Reason string
	Err    error
}

func (e *EncodingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s (%s)", ErrEncodingFailure.Error(), e.Reason)
	}
	return fmt.Sprintf("%s (%s): %s", ErrEncodingFailure.Error(), e.Reason, e.Err.Error())
}

// Is reports ErrEncodingFailure so that errors.Is works without exposing Err.
func (e *EncodingError) Is(target error) bool { return target == ErrEncodingFailure }

func (e *EncodingError) Unwrap() error { return e.Err }

// NewEncodingError creates an encoding failure with a reason label.
func NewEncodingError(reason string, err error) error {
	return &EncodingError{Reason: reason, Err: err}
}

// EncodingReason extracts the failure reason from err, or "" if err is not an EncodingError.
func EncodingReason(err error) string {
	var encErr *EncodingError
	if errors.As(err, &encErr) {
		return encErr.Reason
	}
	return ""
}
