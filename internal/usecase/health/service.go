package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the result cache is down; searches still work.
	Degraded Status = "degraded"
	// Unhealthy indicates the search backend is down.
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

// Component names.
const (
	ComponentBackend = "backend"
	ComponentCache   = "cache"
)

// defaultTimeout bounds each ping.
const defaultTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	backend Pinger
	cache   Pinger
	timeout time.Duration
}

// New creates a Service. cache can be nil.
func New(backend, cache Pinger) *Service {
	return &Service{backend: backend, cache: cache, timeout: defaultTimeout}
}

// Check pings the backend and the cache.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{ComponentBackend: s.ping(ctx, s.backend)}
	if s.cache != nil {
		checks[ComponentCache] = s.ping(ctx, s.cache)
	}

	status := Healthy
	switch {
	case checks[ComponentBackend] == CheckError:
		status = Unhealthy
	case checks[ComponentCache] == CheckError:
		status = Degraded
	}
	return Report{Status: status, Checks: checks}
}

func (s *Service) ping(ctx context.Context, p Pinger) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
