package github

import (
	"context"
	"log/slog"
	"math"
	"time"
)

// EffectivelyUnlimited is the remaining count reported when no quota source
// is configured or the quota query fails. Rate limiting is advisory and must
// never turn into a run failure.
const EffectivelyUnlimited = math.MaxInt32

// QuotaSource is the collaborator the rate limiter queries for the current
// API budget. RESTClient satisfies it.
type QuotaSource interface {
	GetQuota(ctx context.Context) (*Quota, error)
}

// RateLimiterConfig configures the dual-pool rate limiter thresholds
type RateLimiterConfig struct {
	// SoftFloor is the primary-pool remaining count below which a warning is logged
	SoftFloor int

	// HardFloor is the primary-pool remaining count below which the run pauses
	HardFloor int

	// PrimaryPause is how long to pause when the primary pool is below HardFloor
	PrimaryPause time.Duration

	// GraphQLFloor is the secondary-pool remaining count below which the run pauses
	GraphQLFloor int

	// SecondaryPause is how long to pause when the secondary pool is below GraphQLFloor
	SecondaryPause time.Duration
}

// DefaultRateLimiterConfig returns the default thresholds
func DefaultRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		SoftFloor:      200,
		HardFloor:      50,
		PrimaryPause:   60 * time.Second,
		GraphQLFloor:   100,
		SecondaryPause: 15 * time.Second,
	}
}

// RateLimiterStats provides statistics about rate limiter activity
type RateLimiterStats struct {
	LastRESTRemaining    int           `json:"last_rest_remaining"`
	LastGraphQLRemaining int           `json:"last_graphql_remaining"`
	TotalPauses          int           `json:"total_pauses"`
	TotalPauseTime       time.Duration `json:"total_pause_time"`
}

// RateLimiter tracks the two independent quota pools and inserts pauses when
// the remaining budget drops below the configured floors. It is owned and
// mutated by the single orchestrator goroutine only.
type RateLimiter struct {
	source QuotaSource // nil means no quota collaborator configured
	config *RateLimiterConfig
	logger *slog.Logger
	stats  RateLimiterStats

	// sleep is swapped out in tests to avoid real pauses
	sleep func(ctx context.Context, d time.Duration)
}

// NewRateLimiter creates a rate limiter over the given quota source, which
// may be nil when no quota query collaborator is configured.
func NewRateLimiter(source QuotaSource, config *RateLimiterConfig, logger *slog.Logger) *RateLimiter {
	if config == nil {
		config = DefaultRateLimiterConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &RateLimiter{
		source: source,
		config: config,
		logger: logger,
		sleep:  sleepContext,
	}
}

// CheckPrimary checks the REST pool. Below the hard floor it pauses for the
// configured duration after a critical warning; between the floors it warns
// only. The remaining count is returned either way.
func (rl *RateLimiter) CheckPrimary(ctx context.Context) int {
	quota, err := rl.query(ctx)
	if err != nil {
		return EffectivelyUnlimited
	}

	remaining := quota.RESTRemaining
	rl.stats.LastRESTRemaining = remaining

	switch {
	case remaining < rl.config.HardFloor:
		rl.logger.Warn("REST quota critically low, pausing",
			"remaining", remaining,
			"hard_floor", rl.config.HardFloor,
			"pause", rl.config.PrimaryPause,
			"reset", quota.RESTReset)
		rl.pause(ctx, rl.config.PrimaryPause)
	case remaining < rl.config.SoftFloor:
		rl.logger.Warn("REST quota running low",
			"remaining", remaining,
			"soft_floor", rl.config.SoftFloor,
			"reset", quota.RESTReset)
	}

	return remaining
}

// CheckSecondary checks the GraphQL pool used by backfill. Below its floor it
// pauses for the shorter configured duration, then reports the remaining count.
func (rl *RateLimiter) CheckSecondary(ctx context.Context) int {
	quota, err := rl.query(ctx)
	if err != nil {
		return EffectivelyUnlimited
	}

	remaining := quota.GraphQLRemaining
	rl.stats.LastGraphQLRemaining = remaining

	if remaining < rl.config.GraphQLFloor {
		rl.logger.Warn("GraphQL quota running low, pausing",
			"remaining", remaining,
			"floor", rl.config.GraphQLFloor,
			"pause", rl.config.SecondaryPause,
			"reset", quota.GraphQLReset)
		rl.pause(ctx, rl.config.SecondaryPause)
	}

	return remaining
}

// Stats returns the accumulated rate limiter statistics
func (rl *RateLimiter) Stats() RateLimiterStats {
	return rl.stats
}

// query fetches the quota, degrading gracefully when the collaborator is
// missing or failing.
func (rl *RateLimiter) query(ctx context.Context) (*Quota, error) {
	if rl.source == nil {
		return nil, errNoQuotaSource
	}

	quota, err := rl.source.GetQuota(ctx)
	if err != nil {
		rl.logger.Debug("quota query failed, treating budget as unlimited", "error", err)
		return nil, err
	}
	return quota, nil
}

func (rl *RateLimiter) pause(ctx context.Context, d time.Duration) {
	rl.stats.TotalPauses++
	rl.stats.TotalPauseTime += d
	rl.sleep(ctx, d)
}

// sleepContext sleeps for d or until the context is done
func sleepContext(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

type noQuotaSourceError struct{}

func (noQuotaSourceError) Error() string { return "no quota source configured" }

var errNoQuotaSource = noQuotaSourceError{}
