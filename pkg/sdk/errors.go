package lostmatch

import "github.com/kailas-cloud/lostmatch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrItemNotFound      = domain.ErrItemNotFound
	ErrDimensionMismatch = domain.ErrDimensionMismatch
	ErrEncodingFailure   = domain.ErrEncodingFailure
	ErrDecodeFailure     = domain.ErrDecodeFailure
	ErrConfiguration     = domain.ErrConfiguration
)
