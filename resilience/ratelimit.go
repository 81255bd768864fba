package resilience

import (
	"context"
	"sync"
	"time"
)

// RateLimiterConfig configures the rate limiter.
type RateLimiterConfig struct {
	// RequestsPerMinute is the request capacity per minute. Default: 60
	RequestsPerMinute int

	// TokensPerMinute is an optional secondary, caller-reported resource
	// dimension (model tokens, payload bytes). 0 disables token tracking.
	TokensPerMinute int

	// Clock is the time source. Default: SystemClock
	Clock Clock

	// OnWait is called after Acquire had to wait for capacity, with the total
	// time spent waiting. Must not block.
	OnWait func(wait time.Duration)
}

func (c *RateLimiterConfig) normalize() error {
	if c.RequestsPerMinute < 0 {
		return configErr("RequestsPerMinute", "must be >= 1")
	}
	if c.RequestsPerMinute == 0 {
		c.RequestsPerMinute = 60
	}
	if c.TokensPerMinute < 0 {
		return configErr("TokensPerMinute", "must be >= 1 or 0 to disable")
	}
	if c.Clock == nil {
		c.Clock = SystemClock()
	}
	return nil
}

// bucket is a continuously refilling counter. Capacity regenerates
// proportionally to elapsed time since the last refill, capped at the
// per-minute rate. Not safe for concurrent use on its own; the limiter's
// mutex guards it.
type bucket struct {
	capacity   float64
	perSecond  float64
	available  float64
	lastRefill time.Time
}

func newBucket(perMinute int, now time.Time) bucket {
	capacity := float64(perMinute)
	return bucket{
		capacity:   capacity,
		perSecond:  capacity / 60.0,
		available:  capacity,
		lastRefill: now,
	}
}

func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill)
	b.lastRefill = now

	b.available += elapsed.Seconds() * b.perSecond
	if b.available > b.capacity {
		b.available = b.capacity
	}
}

// waitFor returns how long until n units are available at the refill rate.
func (b *bucket) waitFor(n float64) time.Duration {
	deficit := n - b.available
	if deficit <= 0 {
		return 0
	}
	return time.Duration(deficit / b.perSecond * float64(time.Second))
}

// RateLimiter bounds throughput across two dimensions: requests per minute
// and, optionally, tokens per minute. Callers suspend until capacity is
// available rather than being rejected. Safe for concurrent use.
type RateLimiter struct {
	config RateLimiterConfig

	mu       sync.Mutex
	requests bucket
	tokens   bucket // unused when TokensPerMinute == 0
}

// RateLimiterState is a read-only snapshot for observability.
type RateLimiterState struct {
	RequestsAvailable float64
	RequestsCapacity  float64

	// Token fields are zero when the token dimension is disabled.
	// TokensAvailable may be negative after post-hoc ConsumeTokens.
	TokensAvailable float64
	TokensCapacity  float64

	// ResetIn is the time until both buckets are full again at the
	// current drain.
	ResetIn time.Duration
}

// NewRateLimiter creates a rate limiter with both buckets at full capacity.
func NewRateLimiter(config RateLimiterConfig) (*RateLimiter, error) {
	if err := config.normalize(); err != nil {
		return nil, err
	}

	now := config.Clock.Now()
	rl := &RateLimiter{
		config:   config,
		requests: newBucket(config.RequestsPerMinute, now),
	}
	if config.TokensPerMinute > 0 {
		rl.tokens = newBucket(config.TokensPerMinute, now)
	}
	return rl, nil
}

// Allow reports whether one request with the default token cost may proceed
// immediately, consuming capacity if so.
func (rl *RateLimiter) Allow() bool {
	return rl.AllowN(1)
}

// AllowN is the non-blocking form of Acquire.
func (rl *RateLimiter) AllowN(tokenCost int64) bool {
	cost := rl.effectiveCost(tokenCost)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.config.Clock.Now()
	rl.refillLocked(now)

	if rl.requests.available < 1 {
		return false
	}
	if rl.tracksTokens() && rl.tokens.available < cost {
		return false
	}

	rl.consumeLocked(cost)
	return true
}

// Acquire blocks until one request plus tokenCost tokens of capacity are
// available, then consumes them. A tokenCost <= 0 uses the default per-call
// weight of 1. The wait is recomputed on every wake-up because concurrent
// consumers may have drained the refill first.
func (rl *RateLimiter) Acquire(ctx context.Context, tokenCost int64) error {
	cost := rl.effectiveCost(tokenCost)

	var waited time.Duration
	for {
		rl.mu.Lock()
		now := rl.config.Clock.Now()
		rl.refillLocked(now)

		wait := rl.requests.waitFor(1)
		if rl.tracksTokens() {
			if tw := rl.tokens.waitFor(cost); tw > wait {
				wait = tw
			}
		}

		if wait == 0 {
			rl.consumeLocked(cost)
			rl.mu.Unlock()
			if waited > 0 && rl.config.OnWait != nil {
				rl.config.OnWait(waited)
			}
			return nil
		}
		rl.mu.Unlock()

		if err := rl.config.Clock.Sleep(ctx, wait); err != nil {
			return err
		}
		waited += wait
	}
}

// ConsumeTokens records actual token usage learned after a call completed,
// for example tokens billed by the provider beyond the estimate. It never
// blocks; the balance may go negative, which lengthens the next Acquire.
func (rl *RateLimiter) ConsumeTokens(n int64) {
	if !rl.tracksTokens() || n <= 0 {
		return
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked(rl.config.Clock.Now())
	rl.tokens.available -= float64(n)
}

// Execute waits for capacity at the default cost, then runs op.
func (rl *RateLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	return rl.ExecuteWithCost(ctx, 0, op)
}

// ExecuteWithCost waits for capacity at the given estimated token cost,
// then runs op.
func (rl *RateLimiter) ExecuteWithCost(ctx context.Context, tokenCost int64, op func(context.Context) error) error {
	if err := rl.Acquire(ctx, tokenCost); err != nil {
		return err
	}
	return op(ctx)
}

// TryExecute runs op only if capacity is immediately available, returning
// ErrRateLimitExceeded otherwise.
func (rl *RateLimiter) TryExecute(ctx context.Context, op func(context.Context) error) error {
	if !rl.Allow() {
		return ErrRateLimitExceeded
	}
	return op(ctx)
}

// State returns current available capacity per dimension.
func (rl *RateLimiter) State() RateLimiterState {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked(rl.config.Clock.Now())

	state := RateLimiterState{
		RequestsAvailable: rl.requests.available,
		RequestsCapacity:  rl.requests.capacity,
		ResetIn:           rl.requests.waitFor(rl.requests.capacity),
	}
	if rl.tracksTokens() {
		state.TokensAvailable = rl.tokens.available
		state.TokensCapacity = rl.tokens.capacity
		if tw := rl.tokens.waitFor(rl.tokens.capacity); tw > state.ResetIn {
			state.ResetIn = tw
		}
	}
	return state
}

func (rl *RateLimiter) tracksTokens() bool {
	return rl.config.TokensPerMinute > 0
}

// effectiveCost applies the default per-call weight and clamps the estimate
// at bucket capacity so an oversized request drains the full bucket instead
// of waiting forever.
func (rl *RateLimiter) effectiveCost(tokenCost int64) float64 {
	if !rl.tracksTokens() {
		return 0
	}
	cost := float64(tokenCost)
	if cost <= 0 {
		cost = 1
	}
	if cost > rl.tokens.capacity {
		cost = rl.tokens.capacity
	}
	return cost
}

func (rl *RateLimiter) refillLocked(now time.Time) {
	rl.requests.refill(now)
	if rl.tracksTokens() {
		rl.tokens.refill(now)
	}
}

func (rl *RateLimiter) consumeLocked(tokenCost float64) {
	rl.requests.available--
	if rl.tracksTokens() {
		rl.tokens.available -= tokenCost
	}
}
