package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/yigit/studentportal/internal/pkg/apperrors"
	"github.com/yigit/studentportal/internal/pkg/metrics"
)

// Options tune the resilience wrapper
type Options struct {
	Timeout     time.Duration // per attempt
	MaxAttempts int
	BackoffBase time.Duration
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger
	// Sleep waits between attempts; replaced in tests
	Sleep func(ctx context.Context, d time.Duration) error
}

// ResilientGateway bounds every call to the wrapped gateway with a timeout,
// retries transient failures with exponential backoff and trips a circuit
// breaker after repeated failures. Every failure it returns wraps
// apperrors.ErrUpstream.
type ResilientGateway struct {
	inner   Gateway
	opts    Options
	breaker *gobreaker.CircuitBreaker
}

func NewResilientGateway(inner Gateway, opts Options) *ResilientGateway {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 200 * time.Millisecond
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}

	name := "payment-" + inner.Name()
	g := &ResilientGateway{inner: inner, opts: opts}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsPermanent(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			opts.Logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
			opts.Metrics.SetBreakerState(name, int(to))
		},
	})
	return g
}

func (g *ResilientGateway) Name() string {
	return g.inner.Name()
}

func (g *ResilientGateway) Initialize(ctx context.Context, req InitRequest) (*Order, error) {
	v, err := g.do(ctx, "initialize", func(ctx context.Context) (interface{}, error) {
		return g.inner.Initialize(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Order), nil
}

func (g *ResilientGateway) Verify(ctx context.Context, orderID string) (Status, error) {
	v, err := g.do(ctx, "verify", func(ctx context.Context) (interface{}, error) {
		return g.inner.Verify(ctx, orderID)
	})
	if err != nil {
		return "", err
	}
	return v.(Status), nil
}

func (g *ResilientGateway) do(ctx context.Context, op string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	var lastErr error
	for attempt := 1; attempt <= g.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := g.opts.BackoffBase << (attempt - 2)
			if err := g.opts.Sleep(ctx, delay); err != nil {
				lastErr = err
				break
			}
		}

		res, err := g.breaker.Execute(func() (interface{}, error) {
			actx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
			defer cancel()

			start := time.Now()
			r, err := fn(actx)
			g.opts.Metrics.ObserveUpstream(g.inner.Name(), op, outcome(err), time.Since(start))
			return r, err
		})
		if err == nil {
			return res, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			g.opts.Logger.Warn().Str("provider", g.inner.Name()).Str("operation", op).Msg("Payment provider circuit open")
			return nil, apperrors.NewUnavailableError("payment provider is temporarily unavailable")
		}

		lastErr = err
		g.opts.Logger.Warn().Err(err).
			Str("provider", g.inner.Name()).
			Str("operation", op).
			Int("attempt", attempt).
			Msg("Payment provider call failed")

		if IsPermanent(err) || ctx.Err() != nil {
			break
		}
	}

	return nil, apperrors.NewUpstreamError(fmt.Sprintf("payment provider %s did not respond successfully", g.inner.Name()), lastErr)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
