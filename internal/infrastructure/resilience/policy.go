package resilience

import (
	"strings"
	"time"
)

// Config is the retry and circuit-breaker policy of an Executor. Zero
// numeric fields take their DefaultConfig value.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64
	AttemptTimeout      time.Duration

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32

	// Operations overrides the retry budget by operation name prefix. The
	// longest matching prefix wins.
	Operations []OperationPolicy
}

// OperationPolicy narrows retries for one family of calls. Zero fields
// fall back to the Config values.
type OperationPolicy struct {
	Prefix         string
	MaxAttempts    int
	AttemptTimeout time.Duration
}

// DefaultConfig covers the pipeline backends. Tag article fetches are
// best-effort and get one short attempt; extractor dials get one retry.
func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     400 * time.Millisecond,
		RetryMultiplier:     2.0,
		AttemptTimeout:      10 * time.Second,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,

		Operations: []OperationPolicy{
			{Prefix: "diffbot.article", MaxAttempts: 1, AttemptTimeout: 5 * time.Second},
			{Prefix: "extractor.dial", MaxAttempts: 2},
		},
	}
}

type number interface {
	~int | ~uint32 | ~int64 | ~float64
}

func orDefault[T number](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	out := c
	out.RetryMaxAttempts = orDefault(c.RetryMaxAttempts, def.RetryMaxAttempts)
	out.RetryInitialBackoff = orDefault(c.RetryInitialBackoff, def.RetryInitialBackoff)
	out.RetryMaxBackoff = max(orDefault(c.RetryMaxBackoff, def.RetryMaxBackoff), out.RetryInitialBackoff)
	if c.RetryMultiplier < 1 {
		out.RetryMultiplier = def.RetryMultiplier
	}

	out.BreakerMinRequests = orDefault(c.BreakerMinRequests, def.BreakerMinRequests)
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	out.BreakerOpenTimeout = orDefault(c.BreakerOpenTimeout, def.BreakerOpenTimeout)
	out.BreakerHalfOpenMaxCalls = orDefault(c.BreakerHalfOpenMaxCalls, def.BreakerHalfOpenMaxCalls)
	return out
}

// retryBudget returns the attempt count and per-attempt timeout for an
// operation.
func (c Config) retryBudget(operation string) (int, time.Duration) {
	attempts, timeout := c.RetryMaxAttempts, c.AttemptTimeout
	matched := -1
	for _, p := range c.Operations {
		if p.Prefix == "" || !strings.HasPrefix(operation, p.Prefix) || len(p.Prefix) <= matched {
			continue
		}
		matched = len(p.Prefix)
		attempts, timeout = c.RetryMaxAttempts, c.AttemptTimeout
		if p.MaxAttempts > 0 {
			attempts = p.MaxAttempts
		}
		if p.AttemptTimeout > 0 {
			timeout = p.AttemptTimeout
		}
	}
	return attempts, timeout
}
