package control

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Breaker accounting only; never escapes to the caller.
var errGuardTimedOut = errors.New("guarded invocation timed out")

// GuardConfig tunes the circuit breaker and rate limiter around a Runner.
type GuardConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
	RatePerSecond    float64
	Burst            int
}

// GuardedRunner wraps a Runner with a circuit breaker and a rate limiter so
// that a wedged or absent node is not hammered with subprocess spawns.
// Launch failures and timeouts count against the breaker; ordinary non-zero
// exits do not.
type GuardedRunner struct {
	inner   Runner
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	logger  Logger
}

// NewGuardedRunner creates a guarded runner around inner.
func NewGuardedRunner(inner Runner, cfg GuardConfig, logger Logger) *GuardedRunner {
	if logger == nil {
		logger = &noOpLogger{}
	}

	name := cfg.Name
	if name == "" {
		name = "control-tool"
	}

	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)

			return counts.Requests >= threshold && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker %s state changed from %v to %v", name, from, to)
		},
	}

	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = 10
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &GuardedRunner{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		logger:  logger,
	}
}

// Run waits for a rate-limiter slot, then delegates to the inner runner
// through the circuit breaker.
func (g *GuardedRunner) Run(ctx context.Context, path string, args []string, timeout time.Duration) (*ExecutionResult, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		result, runErr := g.inner.Run(ctx, path, args, timeout)
		if runErr != nil {
			return nil, runErr
		}

		if result.TimedOut {
			// Feed the breaker but keep the timeout a data-bearing
			// outcome for the caller.
			return result, errGuardTimedOut
		}

		return result, nil
	})

	if errors.Is(err, errGuardTimedOut) {
		return out.(*ExecutionResult), nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrGuardRejected, err)
	}

	if err != nil {
		return nil, err
	}

	return out.(*ExecutionResult), nil
}
