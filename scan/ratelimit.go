package scan

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// Service names with built-in rate limits.
const (
	ServiceExplorer    = "explorer"
	ServiceRPC         = "rpc"
	ServiceBatch       = "batch"
	ServiceEnumeration = "enumeration"
)

const (
	minRPS = 0.1
	maxRPS = 100
)

type limit struct {
	rps   float64
	burst int
}

var defaultLimits = map[string]limit{
	ServiceExplorer:    {rps: 5, burst: 5},
	ServiceRPC:         {rps: 10, burst: 10},
	ServiceBatch:       {rps: 20, burst: 50},
	ServiceEnumeration: {rps: 50, burst: 100},
}

// LimiterSet paces outbound requests per service with token buckets.
// Unknown services fall back to the RPC limit.
type LimiterSet struct {
	mu       sync.Mutex
	limits   map[string]limit
	limiters map[string]*rate.Limiter
}

// NewLimiterSet builds a limiter set with the built-in defaults, overridden
// per service by rps values from configuration. Overrides are clamped to
// [0.1, 100] requests per second.
func NewLimiterSet(overrides map[string]float64) *LimiterSet {
	limits := make(map[string]limit, len(defaultLimits))
	for name, l := range defaultLimits {
		limits[name] = l
	}
	for name, rps := range overrides {
		limits[name] = limit{rps: clampRPS(rps), burst: burstFor(rps)}
	}

	return &LimiterSet{
		limits:   limits,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until the service's limiter releases a token or ctx is done.
func (s *LimiterSet) Wait(ctx context.Context, service string) error {
	if err := s.limiter(service).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", service, err)
	}

	return nil
}

// Allow reports whether a request may proceed immediately.
func (s *LimiterSet) Allow(service string) bool {
	return s.limiter(service).Allow()
}

// SetLimit updates a service's rate at runtime, clamped like overrides. The
// limiter is rebuilt so the new rate takes effect immediately.
func (s *LimiterSet) SetLimit(service string, rps float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.limits[service] = limit{rps: clampRPS(rps), burst: burstFor(rps)}
	delete(s.limiters, service)
}

func (s *LimiterSet) limiter(service string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.limiters[service]; ok {
		return l
	}

	lim, ok := s.limits[service]
	if !ok {
		lim = s.limits[ServiceRPC]
	}
	l := rate.NewLimiter(rate.Limit(lim.rps), lim.burst)
	s.limiters[service] = l

	return l
}

func clampRPS(rps float64) float64 {
	if rps < minRPS {
		return minRPS
	}
	if rps > maxRPS {
		return maxRPS
	}

	return rps
}

func burstFor(rps float64) int {
	if rps < 1 {
		return 1
	}

	return int(rps)
}
