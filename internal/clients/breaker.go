package clients

import (
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/sachio/sachio-orders-service/internal/errors"
	"github.com/sachio/sachio-orders-service/internal/logging"
	"github.com/sachio/sachio-orders-service/internal/metrics"
)

const metricsService = "sachio-orders-service"

// CircuitBreaker wraps gobreaker with metrics.
type CircuitBreaker struct {
	cb     *gobreaker.CircuitBreaker
	name   string
	logger *logging.Logger
}

// NewCircuitBreaker creates a breaker that trips when at least 60% of three
// or more calls in a 15s window fail, and half-opens after 30s.
func NewCircuitBreaker(name string, logger *logging.Logger) *CircuitBreaker {
	b := &CircuitBreaker{name: name, logger: logger}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(cbName string, from gobreaker.State, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(metricsService, cbName).Set(stateValue(to))
			logger.Warn("Circuit breaker state changed", logging.Fields{
				"circuit": cbName,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})

	metrics.CircuitBreakerState.WithLabelValues(metricsService, name).Set(0)
	return b
}

// Execute runs fn through the breaker. An open breaker yields an error
// wrapping errors.ErrUnavailable.
func (b *CircuitBreaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		metrics.CircuitBreakerFailures.WithLabelValues(metricsService, b.name).Inc()
		return nil, b.formatError(err)
	}
	return result, nil
}

// State returns the breaker state name.
func (b *CircuitBreaker) State() string {
	return b.cb.State().String()
}

func (b *CircuitBreaker) formatError(err error) error {
	switch err {
	case gobreaker.ErrOpenState:
		return fmt.Errorf("circuit breaker %s is open: %w", b.name, errors.ErrUnavailable)
	case gobreaker.ErrTooManyRequests:
		return fmt.Errorf("circuit breaker %s: too many requests in half-open state: %w", b.name, errors.ErrUnavailable)
	}
	return err
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}
