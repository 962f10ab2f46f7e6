package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// Breaker guards an Engine with a circuit breaker. While the circuit is open
// calls fail immediately with gobreaker.ErrOpenState.
type Breaker struct {
	Engine
	cb *gobreaker.CircuitBreaker
}

func WithBreaker(e Engine, maxFailures uint32, timeout time.Duration, log *logrus.Logger) *Breaker {
	if maxFailures == 0 {
		maxFailures = 5
	}
	settings := gobreaker.Settings{
		Name:        e.Name(),
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if log != nil {
				log.WithFields(logrus.Fields{
					"engine": name,
					"from":   from.String(),
					"to":     to.String(),
				}).Warn("model circuit breaker state changed")
			}
		},
	}
	return &Breaker{Engine: e, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *Breaker) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		txt, err := b.Engine.Generate(ctx, prompt)
		if err != nil {
			return nil, err
		}
		return txt, nil
	})
	if err != nil {
		return "", fmt.Errorf("breaker (%s): %w", b.cb.Name(), err)
	}
	return out.(string), nil
}

// WithModel switches the wrapped engine's model. The copy shares the circuit,
// so failures still count per provider.
func (b *Breaker) WithModel(model string) Engine {
	ms, ok := b.Engine.(ModelSwitcher)
	if !ok {
		return b
	}
	return &Breaker{Engine: ms.WithModel(model), cb: b.cb}
}

func (b *Breaker) State() gobreaker.State { return b.cb.State() }
