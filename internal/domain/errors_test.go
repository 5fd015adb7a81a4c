package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestEncodingError_IsSentinel(t *testing.T) {
	err := NewEncodingError(ReasonTimeout, context.DeadlineExceeded)

	if !errors.Is(err, ErrEncodingFailure) {
		t.Fatal("expected errors.Is(err, ErrEncodingFailure)")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("expected wrapped cause to be reachable")
	}
	if got := EncodingReason(fmt.Errorf("encode: %w", err)); got != ReasonTimeout {
		t.Errorf("EncodingReason = %q, want %q", got, ReasonTimeout)
	}
}

func TestEncodingError_NilCause(t *testing.T) {
	err := NewEncodingError(ReasonShape, nil)
	want := "encoding failure (shape)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestEncodingReason_OtherError(t *testing.T) {
	if got := EncodingReason(ErrDecodeFailure); got != "" {
		t.Errorf("EncodingReason = %q, want empty", got)
	}
}
