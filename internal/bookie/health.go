package bookie

import (
	"context"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// healthTTL is how long a probe result is trusted before the upstream is
// asked again.
const healthTTL = 30 * time.Second

// HealthChecker memoizes adapter liveness probes so the ops endpoint and the
// coordinator can ask freely without hammering upstreams.
type HealthChecker struct {
	probes *cache.Cache
}

// NewHealthChecker creates a checker with a 30s probe cache
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		probes: cache.New(healthTTL, time.Minute),
	}
}

// Check returns the adapter's health, probing at most once per TTL window
func (h *HealthChecker) Check(ctx context.Context, adapter Adapter) bool {
	if cached, found := h.probes.Get(adapter.Slug()); found {
		return cached.(bool)
	}
	healthy := adapter.CheckHealth(ctx)
	h.probes.Set(adapter.Slug(), healthy, cache.DefaultExpiration)
	return healthy
}

// CheckAll probes every adapter and returns health keyed by slug
func (h *HealthChecker) CheckAll(ctx context.Context, adapters []Adapter) map[string]bool {
	result := make(map[string]bool, len(adapters))
	for _, a := range adapters {
		result[a.Slug()] = h.Check(ctx, a)
	}
	return result
}
