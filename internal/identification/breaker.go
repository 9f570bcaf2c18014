package identification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"discshelf/internal/logging"
	"discshelf/internal/matching"
)

const (
	breakerFailureThreshold = 3
	breakerOpenTimeout      = 30 * time.Second
)

func newBreaker(name string, logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		// A canceled caller says nothing about the source's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			attrs := []logging.Attr{
				logging.Source(name),
				logging.String("from", from.String()),
				logging.String("to", to.String()),
			}
			if to == gobreaker.StateOpen {
				attrs = append(attrs, logging.Alert("source_circuit_open"))
			}
			logger.Info("circuit breaker state change", logging.Args(attrs...)...)
		},
	})
}

// guarded runs fn through the breaker for source, if one is configured.
func (r *Resolver) guarded(source string, fn func() ([]matching.Candidate, error)) ([]matching.Candidate, error) {
	breaker, ok := r.breakers[source]
	if !ok {
		return fn()
	}
	value, err := breaker.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}
	candidates, _ := value.([]matching.Candidate)
	return candidates, nil
}
