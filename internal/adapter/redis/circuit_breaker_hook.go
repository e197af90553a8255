package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/gabrielkrapp/mosaic/internal/adapter/metrics"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

const breakerComponent = "redis"

// ErrCircuitOpen is returned instead of contacting Redis while the breaker is open.
var ErrCircuitOpen = errors.New("redis circuit breaker open")

// CircuitBreakerHook fails commands fast once Redis keeps failing. Reads then
// degrade to the bare layout and writes return errors without waiting on
// timeouts.
type CircuitBreakerHook struct {
	cb *gobreaker.CircuitBreaker
}

var _ goredis.Hook = (*CircuitBreakerHook)(nil)

// NewCircuitBreakerHook trips after 5 consecutive failures, or a 60% failure
// rate over at least 10 requests in a 10s window. It retries after 30s
// and closes after 3 successful trial requests. m may be nil.
func NewCircuitBreakerHook(m *metrics.StoreMetrics) *CircuitBreakerHook {
	return newCircuitBreakerHook(gobreaker.Settings{
		Name:        breakerComponent,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 5 {
				return true
			}
			return counts.Requests >= 10 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
	}, m)
}

func newCircuitBreakerHook(settings gobreaker.Settings, m *metrics.StoreMetrics) *CircuitBreakerHook {
	settings.IsSuccessful = isSuccessful
	settings.OnStateChange = func(name string, from, to gobreaker.State) {
		slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
		if m != nil {
			m.BreakerTransitions.WithLabelValues(name, to.String()).Inc()
			m.BreakerState.WithLabelValues(name).Set(stateToFloat(to))
		}
	}
	if m != nil {
		m.BreakerState.WithLabelValues(settings.Name).Set(stateToFloat(gobreaker.StateClosed))
	}
	return &CircuitBreakerHook{cb: gobreaker.NewCircuitBreaker(settings)}
}

// isSuccessful keeps misses and caller cancellations from counting against Redis.
func isSuccessful(err error) bool {
	return err == nil ||
		errors.Is(err, goredis.Nil) ||
		errors.Is(err, context.Canceled)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func (h *CircuitBreakerHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *CircuitBreakerHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		_, err := h.cb.Execute(func() (any, error) {
			return nil, next(ctx, cmd)
		})
		if isBreakerRejection(err) {
			err = fmt.Errorf("%w: %s: %w", ErrCircuitOpen, cmd.Name(), err)
			cmd.SetErr(err)
		}
		return err
	}
}

func (h *CircuitBreakerHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		_, err := h.cb.Execute(func() (any, error) {
			return nil, next(ctx, cmds)
		})
		if isBreakerRejection(err) {
			err = fmt.Errorf("%w: pipeline: %w", ErrCircuitOpen, err)
			for _, cmd := range cmds {
				cmd.SetErr(err)
			}
		}
		return err
	}
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func (h *CircuitBreakerHook) State() gobreaker.State {
	return h.cb.State()
}

func (h *CircuitBreakerHook) Counts() gobreaker.Counts {
	return h.cb.Counts()
}
