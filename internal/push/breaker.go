package push

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerGateway stops calling a failing provider for a cooldown period.
// While open, every batch fails fast with gobreaker.ErrOpenState.
type BreakerGateway struct {
	next Gateway
	cb   *gobreaker.CircuitBreaker
}

type BreakerSettings struct {
	FailureThreshold uint32
	Cooldown         time.Duration
}

func NewBreakerGateway(next Gateway, settings BreakerSettings, logger *slog.Logger) *BreakerGateway {
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 5
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "push-gateway",
		MaxRequests: 1,
		Timeout:     settings.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.FailureThreshold
		},
		// A payload rejected before any network call says nothing about
		// provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || isLocalRejection(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &BreakerGateway{next: next, cb: cb}
}

func (b *BreakerGateway) SendMulticast(ctx context.Context, msg *MulticastMessage) (*BatchResult, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.SendMulticast(ctx, msg)
	})
	if err != nil {
		return nil, err
	}
	return out.(*BatchResult), nil
}

// State exposes the breaker state for health reporting.
func (b *BreakerGateway) State() string {
	return b.cb.State().String()
}
