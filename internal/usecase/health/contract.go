package health

import "context"

// CorpusPinger checks corpus store availability.
type CorpusPinger interface {
	Ping(ctx context.Context) error
}

// EncoderChecker checks image encoder availability.
type EncoderChecker interface {
	HealthCheck(ctx context.Context) error
}
