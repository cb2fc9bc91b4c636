// Package assessment orchestrates one growth assessment: age, standard
// lookup, z-scores, classification and advisory text with a canned fallback.
package assessment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cradlecare/cradlecare-hub/internal/domain/growth"
	"github.com/cradlecare/cradlecare-hub/pkg/logger"
)

// DefaultAdvisoryTimeout bounds a single generator call.
const DefaultAdvisoryTimeout = 5 * time.Second

// ══════════════════════════════════════════════════════════════════════════════
// OPTIONS
// ══════════════════════════════════════════════════════════════════════════════

// Observer receives the outcome of every successful assessment.
type Observer interface {
	ObserveAssessment(o *Outcome)
}

// Option configures an Engine.
type Option func(*Engine)

// WithGenerator sets the advisory generator. A nil generator means every
// assessment uses fallback advice.
func WithGenerator(g growth.Generator) Option {
	return func(e *Engine) { e.generator = g }
}

// WithTimeout sets the advisory deadline. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithClock sets the time source for AssessedAt and missing MeasuredAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithIDGenerator sets the assessment ID source.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		if newID != nil {
			e.newID = newID
		}
	}
}

// WithObserver registers an outcome observer, e.g. metrics.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// ══════════════════════════════════════════════════════════════════════════════
// ENGINE
// ══════════════════════════════════════════════════════════════════════════════

// Engine scores measurements. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	table     growth.Table
	generator growth.Generator
	timeout   time.Duration
	now       func() time.Time
	log       *logger.Logger
	newID     func() string
	observer  Observer
}

// NewEngine creates an Engine. The table is required.
func NewEngine(table growth.Table, opts ...Option) (*Engine, error) {
	if table == nil {
		return nil, growth.ErrNoTable
	}

	e := &Engine{
		table:   table,
		timeout: DefaultAdvisoryTimeout,
		now:     time.Now,
		log:     logger.Nop(),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With(logger.Component("assessment_engine"))

	return e, nil
}

// StandardVersion returns the version of the table in use.
func (e *Engine) StandardVersion() string {
	return e.table.Version()
}

// Outcome is an assessment plus how its advisory text was obtained.
type Outcome struct {
	Assessment *growth.Assessment

	// AdvisoryErr is why fallback advice was used; nil for model advice
	// or when no generator is configured.
	AdvisoryErr error

	AdvisoryLatency time.Duration
}

// Assess scores one measurement for an infant.
//
// It fails with growth.ErrInput, growth.ErrData or growth.ErrConfiguration.
// Advisory failures never fail an assessment: the canned advice for the
// classification is used instead.
func (e *Engine) Assess(ctx context.Context, m growth.Measurement, infant growth.Infant) (*growth.Assessment, error) {
	o, err := e.AssessDetailed(ctx, m, infant)
	if err != nil {
		return nil, err
	}
	return o.Assessment, nil
}

// AssessDetailed is Assess that also reports the advisory outcome.
func (e *Engine) AssessDetailed(ctx context.Context, m growth.Measurement, infant growth.Infant) (*Outcome, error) {
	if err := infant.Validate(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if m.MeasuredAt.IsZero() {
		m.MeasuredAt = e.now()
	}

	age := growth.AgeInMonths(infant.DateOfBirth, m.MeasuredAt)
	sex := infant.Sex
	if sex == "" {
		sex = growth.SexUnknown
	}

	z, err := growth.ComputeZScores(m, age, sex, e.table)
	if err != nil {
		return nil, fmt.Errorf("assess infant %s: %w", infant.ID, err)
	}
	c := growth.Classify(z)

	log := e.log.With(
		logger.InfantID(infant.ID),
		logger.AgeMonths(age),
		logger.RiskFactor(string(c.PrimaryFactor)),
		logger.Severity(string(c.Severity)),
	)

	summary := growth.NewSummary(age, m, z, c)
	advice, by, latency, advErr := e.advise(ctx, summary)
	if advErr != nil {
		log.Warn("advisory unavailable, using fallback", logger.Err(advErr), logger.Latency(latency))
	}

	a := &growth.Assessment{
		ID:              e.newID(),
		InfantID:        infant.ID,
		AgeMonths:       age,
		Measurement:     m,
		ZScores:         z.Rounded(),
		Classification:  c,
		RiskLevel:       advice.RiskLevel,
		AdvisoryText:    advice.Suggestion,
		GeneratedBy:     by,
		StandardVersion: e.table.Version(),
		AssessedAt:      e.now(),
	}

	log.Debug("assessment complete", logger.GeneratedBy(string(by)))

	o := &Outcome{Assessment: a, AdvisoryErr: advErr, AdvisoryLatency: latency}
	if e.observer != nil {
		e.observer.ObserveAssessment(o)
	}
	return o, nil
}

func (e *Engine) advise(ctx context.Context, s growth.Summary) (growth.Advice, growth.GeneratedBy, time.Duration, error) {
	fallback := growth.FallbackAdvice(s.Classification())
	if e.generator == nil {
		return fallback, growth.GeneratedByFallback, 0, nil
	}

	start := time.Now()
	advice, err := e.callGenerator(ctx, s)
	latency := time.Since(start)
	if err != nil {
		return fallback, growth.GeneratedByFallback, latency, err
	}
	return advice, growth.GeneratedByModel, latency, nil
}

type generatorResult struct {
	advice growth.Advice
	err    error
}

// callGenerator makes exactly one generator call bounded by the engine
// timeout. A generator that ignores ctx is abandoned, not waited for.
func (e *Engine) callGenerator(ctx context.Context, s growth.Summary) (growth.Advice, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan generatorResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- generatorResult{err: fmt.Errorf("generator panic: %v", r)}
			}
		}()
		advice, err := e.generator.Generate(ctx, s)
		done <- generatorResult{advice: advice, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return growth.Advice{}, growth.AdvisoryUnavailable("Generate", r.err)
		}
		if err := r.advice.Validate(); err != nil {
			return growth.Advice{}, err
		}
		return r.advice, nil
	case <-ctx.Done():
		return growth.Advice{}, growth.AdvisoryUnavailable("Generate", ctx.Err())
	}
}
