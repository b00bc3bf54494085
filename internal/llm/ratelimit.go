package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/time/rate"

	"github.com/Epistemic-Technology/casebrief/internal/logger"
)

const (
	// Sustained budget of 1.8M tokens/min, below the 2M tokens/min account limit
	tokensPerSecond = 30000
	burstTokens     = 60000

	defaultMaxWorkers = 15

	// Fixed overhead added to the prompt-derived estimate for the completion
	estimatedOutputTokens = 1500

	maxRetries     = 5
	baseRetryDelay = 1 * time.Second
	maxRetryDelay  = 32 * time.Second

	defaultCallTimeout = 3 * time.Minute
)

// Limits bounds model traffic for one run.
type Limits struct {
	TokensPerSecond int
	Burst           int
	MaxInFlight     int
	CallTimeout     time.Duration
	MaxRetries      int
	BaseRetryDelay  time.Duration
	MaxRetryDelay   time.Duration
}

// DefaultLimits returns the limits used when nothing is configured.
func DefaultLimits() Limits {
	return Limits{
		TokensPerSecond: tokensPerSecond,
		Burst:           burstTokens,
		MaxInFlight:     defaultMaxWorkers,
		CallTimeout:     defaultCallTimeout,
		MaxRetries:      maxRetries,
		BaseRetryDelay:  baseRetryDelay,
		MaxRetryDelay:   maxRetryDelay,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.TokensPerSecond <= 0 {
		l.TokensPerSecond = d.TokensPerSecond
	}
	if l.Burst <= 0 {
		l.Burst = d.Burst
	}
	if l.MaxInFlight <= 0 {
		l.MaxInFlight = d.MaxInFlight
	}
	if l.CallTimeout <= 0 {
		l.CallTimeout = d.CallTimeout
	}
	if l.MaxRetries < 0 {
		l.MaxRetries = 0
	}
	if l.BaseRetryDelay <= 0 {
		l.BaseRetryDelay = d.BaseRetryDelay
	}
	if l.MaxRetryDelay <= 0 {
		l.MaxRetryDelay = d.MaxRetryDelay
	}
	return l
}

// Gate is the shared admission control for every model client in a process:
// a token bucket plus a cap on calls in flight.
type Gate struct {
	limits  Limits
	limiter *rate.Limiter
	pool    *WorkerPool
}

func NewGate(limits Limits) *Gate {
	limits = limits.withDefaults()
	return &Gate{
		limits:  limits,
		limiter: rate.NewLimiter(rate.Limit(limits.TokensPerSecond), limits.Burst),
		pool:    NewWorkerPool(limits.MaxInFlight),
	}
}

func (g *Gate) Limits() Limits {
	return g.limits
}

// Client wraps a Model with rate limiting, a per-call timeout and bounded
// retries. It satisfies Model itself so it can be placed in a Panel.
type Client struct {
	name  string
	model Model
	gate  *Gate
	log   logger.Logger
}

func NewClient(name string, model Model, gate *Gate, log logger.Logger) *Client {
	return &Client{name: name, model: model, gate: gate, log: log}
}

func (c *Client) Name() string {
	return c.name
}

func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	estimated := EstimateTokens(req.Prompt)
	return RateLimitedCall(ctx, c.gate, estimated, c.log, func(ctx context.Context) (string, error) {
		c.log.Debug("model %s: calling %s (%d est. tokens)", c.name, req.Label, estimated)
		return c.model.Complete(ctx, req)
	})
}

// EstimateTokens gives a rough token count for a prompt at four characters
// per token.
func EstimateTokens(prompt string) int {
	return len(prompt)/4 + estimatedOutputTokens
}

// RateLimitedCall wraps a model call with admission control and retry logic.
// Each attempt waits for the token bucket and a free in-flight slot, then
// runs under the gate's call timeout. Rate limit, transport, timeout and
// invalid-response errors are retried with exponential backoff.
func RateLimitedCall[T any](ctx context.Context, gate *Gate, estimatedTokens int, log logger.Logger, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	limits := gate.limits
	if estimatedTokens > limits.Burst {
		estimatedTokens = limits.Burst
	}

	var lastErr error
	for attempt := 0; attempt <= limits.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(limits.BaseRetryDelay) * math.Pow(2, float64(attempt-1)))
			if delay > limits.MaxRetryDelay {
				delay = limits.MaxRetryDelay
			}

			log.Info("Retry attempt %d/%d after %v delay", attempt, limits.MaxRetries, delay)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		if err := gate.limiter.WaitN(ctx, estimatedTokens); err != nil {
			return zero, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		result, err := callOnce(ctx, gate, fn)
		if err == nil {
			if attempt > 0 {
				log.Info("Retry succeeded on attempt %d", attempt)
			}
			return result, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		lastErr = err
		if !isRetryable(err) {
			return zero, err
		}

		log.Warn("Retryable model error on attempt %d/%d: %v", attempt+1, limits.MaxRetries+1, err)
	}

	return zero, fmt.Errorf("max retries (%d) exceeded, last error: %w", limits.MaxRetries, lastErr)
}

func callOnce[T any](ctx context.Context, gate *Gate, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := gate.pool.Acquire(ctx); err != nil {
		return zero, err
	}
	defer gate.pool.Release()

	callCtx, cancel := context.WithTimeout(ctx, gate.limits.CallTimeout)
	defer cancel()

	result, err := fn(callCtx)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
		err = fmt.Errorf("%w after %v: %v", ErrTimeout, gate.limits.CallTimeout, err)
	}
	return result, err
}

func isRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTransport) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrInvalidResponse)
}

// WorkerPool manages a pool of workers for parallel processing with rate limiting
type WorkerPool struct {
	maxWorkers int
	semaphore  chan struct{}
}

// NewWorkerPool creates a new worker pool with the specified maximum workers
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}
	return &WorkerPool{
		maxWorkers: maxWorkers,
		semaphore:  make(chan struct{}, maxWorkers),
	}
}

// Acquire acquires a worker slot, blocking if all workers are busy
func (wp *WorkerPool) Acquire(ctx context.Context) error {
	select {
	case wp.semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release releases a worker slot, allowing another worker to proceed
func (wp *WorkerPool) Release() {
	<-wp.semaphore
}
