// Package guard wraps remote AI calls with a circuit breaker and a request
// rate limiter so a failing or throttled provider is not hammered by
// pre-fetch and image requests.
package guard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ErrOpen is returned while the breaker rejects calls
var ErrOpen = gobreaker.ErrOpenState

// Options configures a Guard
type Options struct {
	RequestsPerMinute int           // 0 disables rate limiting
	MaxFailures       uint32        // consecutive failures before the breaker opens
	CoolDown          time.Duration // time the breaker stays open
	Logger            *slog.Logger
}

// DefaultOptions returns the settings used for the AI backends
func DefaultOptions() Options {
	return Options{
		RequestsPerMinute: 30,
		MaxFailures:       5,
		CoolDown:          30 * time.Second,
	}
}

// Guard decides whether and when a remote call may run
type Guard struct {
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// New creates a guard named after the backend it protects
func New(name string, opts Options) *Guard {
	defaults := DefaultOptions()
	if opts.MaxFailures == 0 {
		opts.MaxFailures = defaults.MaxFailures
	}
	if opts.CoolDown <= 0 {
		opts.CoolDown = defaults.CoolDown
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	settings := gobreaker.Settings{
		Name:    name,
		Timeout: opts.CoolDown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"backend", name, "from", from.String(), "to", to.String())
		},
		// Context cancellation is the caller giving up, not the provider failing
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	g := &Guard{breaker: gobreaker.NewCircuitBreaker(settings)}
	if opts.RequestsPerMinute > 0 {
		every := time.Minute / time.Duration(opts.RequestsPerMinute)
		g.limiter = rate.NewLimiter(rate.Every(every), opts.RequestsPerMinute)
	}
	return g
}

// Do waits for the rate limiter and runs fn through the breaker
func (g *Guard) Do(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return g.breaker.Execute(fn)
}

// State returns the breaker state for diagnostics
func (g *Guard) State() gobreaker.State {
	return g.breaker.State()
}
