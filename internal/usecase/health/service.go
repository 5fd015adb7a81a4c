package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates some components fail.
	Degraded Status = "degraded"
	// Unhealthy indicates every component fails.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names in Report.Checks.
const (
	ComponentCorpus  = "corpus"
	ComponentEncoder = "encoder"
)

// DefaultCheckTimeout bounds each component probe.
const DefaultCheckTimeout = 5 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	corpus  CorpusPinger
	encoder EncoderChecker
	timeout time.Duration
}

// New creates a Service. Either dependency can be nil; nil components are not reported.
func New(corpus CorpusPinger, encoder EncoderChecker) *Service {
	return &Service{corpus: corpus, encoder: encoder, timeout: DefaultCheckTimeout}
}

// WithTimeout sets the per-component probe timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check probes all components concurrently.
func (s *Service) Check(ctx context.Context) Report {
	probes := make(map[string]func(context.Context) error, 2)
	if s.corpus != nil {
		probes[ComponentCorpus] = s.corpus.Ping
	}
	if s.encoder != nil {
		probes[ComponentEncoder] = s.encoder.HealthCheck
	}

	var mu sync.Mutex
	checks := make(map[string]CheckResult, len(probes))
	var g errgroup.Group
	for name, probe := range probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			res := CheckOK
			if err := probe(pctx); err != nil {
				res = CheckError
			}
			mu.Lock()
			checks[name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, v := range checks {
		if v == CheckError {
			failed++
		}
	}

	status := Healthy
	switch {
	case failed == 0:
	case failed == len(checks):
		status = Unhealthy
	default:
		status = Degraded
	}
	return Report{Status: status, Checks: checks}
}
