// Package service composes advisory generators: the circuit breaker guard
// and the summary cache sit between the engine and a model backend.
package service

import (
	"context"

	"github.com/cradlecare/cradlecare-hub/internal/domain/growth"
	"github.com/cradlecare/cradlecare-hub/pkg/circuitbreaker"
	"github.com/cradlecare/cradlecare-hub/pkg/logger"
)

// GuardedGenerator short-circuits calls to a failing backend. While the
// breaker is open Generate fails immediately, so the engine serves fallback
// advice without waiting out its timeout.
type GuardedGenerator struct {
	next    growth.Generator
	breaker *circuitbreaker.CircuitBreaker
	log     *logger.Logger
}

// NewGuardedGenerator wraps next with breaker.
func NewGuardedGenerator(next growth.Generator, breaker *circuitbreaker.CircuitBreaker, log *logger.Logger) *GuardedGenerator {
	if log == nil {
		log = logger.Nop()
	}
	return &GuardedGenerator{
		next:    next,
		breaker: breaker,
		log:     log.With(logger.Component("guarded_generator")),
	}
}

// Generate implements growth.Generator.
func (g *GuardedGenerator) Generate(ctx context.Context, s growth.Summary) (growth.Advice, error) {
	var advice growth.Advice
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		advice, err = g.next.Generate(ctx, s)
		if err != nil {
			return err
		}
		return advice.Validate()
	})
	if err != nil {
		if circuitbreaker.IsRejected(err) {
			g.log.Debug("advisory call rejected", logger.String("breaker_state", g.breaker.State().String()))
		}
		return growth.Advice{}, growth.AdvisoryUnavailable("Guarded", err)
	}
	return advice, nil
}

// State exposes the breaker state for health reporting.
func (g *GuardedGenerator) State() circuitbreaker.State {
	return g.breaker.State()
}
