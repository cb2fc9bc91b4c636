// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cradlecare/cradlecare-hub/internal/application/assessment"
	"github.com/cradlecare/cradlecare-hub/internal/domain/growth"
	"github.com/cradlecare/cradlecare-hub/internal/domain/shared"
	"github.com/cradlecare/cradlecare-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD GROWTH COMMAND
// Stores a new weight/height measurement for an infant, scores it and makes
// the result the infant's current risk status.
// ══════════════════════════════════════════════════════════════════════════════

// RecordGrowthCommand contains one measurement taken by a health worker.
type RecordGrowthCommand struct {
	InfantID string
	WeightKg float64
	HeightCm float64

	// MeasuredAt defaults to now when zero.
	MeasuredAt time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate checks the identifiers and the plausible measurement bounds.
// Bounds apply to the values as stored, after rounding to 2 decimals.
func (c RecordGrowthCommand) Validate() error {
	if strings.TrimSpace(c.InfantID) == "" {
		return shared.ErrInvalidInfantID
	}
	return c.measurement().Validate()
}

func (c RecordGrowthCommand) measurement() growth.Measurement {
	return growth.Measurement{
		WeightKg:   c.WeightKg,
		HeightCm:   c.HeightCm,
		MeasuredAt: c.MeasuredAt,
	}.Rounded()
}

// RecordGrowthResult contains the stored record and its assessment.
type RecordGrowthResult struct {
	Record     *growth.GrowthRecord
	Assessment *growth.Assessment

	// RiskStatus is the infant's new risk status display string.
	RiskStatus string
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Assessor scores a measurement; implemented by assessment.Engine.
type Assessor interface {
	AssessDetailed(ctx context.Context, m growth.Measurement, infant growth.Infant) (*assessment.Outcome, error)
}

// LatestAssessmentCache keeps the newest assessment per infant.
type LatestAssessmentCache interface {
	PutLatest(ctx context.Context, a *growth.Assessment) error
	Invalidate(ctx context.Context, infantID string) error
}

// FailureObserver counts failed assessments, e.g. metrics.
type FailureObserver interface {
	ObserveFailure(err error)
}

// RecordGrowthHandlerConfig contains the optional collaborators.
type RecordGrowthHandlerConfig struct {
	// Cache is refreshed after a successful save. Optional.
	Cache LatestAssessmentCache

	// Events receives growth and referral events. Optional.
	Events shared.EventPublisher

	// Failures is told about every failed assessment. Optional.
	Failures FailureObserver

	Logger *logger.Logger
	Now    func() time.Time
	NewID  func() string
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordGrowthHandler handles the RecordGrowthCommand.
type RecordGrowthHandler struct {
	infants  growth.InfantRepository
	records  growth.GrowthRepository
	assessor Assessor
	cache    LatestAssessmentCache
	events   shared.EventPublisher
	failures FailureObserver
	log      *logger.Logger
	now      func() time.Time
	newID    func() string
}

// NewRecordGrowthHandler creates a new RecordGrowthHandler.
func NewRecordGrowthHandler(
	infants growth.InfantRepository,
	records growth.GrowthRepository,
	assessor Assessor,
	config RecordGrowthHandlerConfig,
) *RecordGrowthHandler {
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.NewID == nil {
		config.NewID = uuid.NewString
	}

	return &RecordGrowthHandler{
		infants:  infants,
		records:  records,
		assessor: assessor,
		cache:    config.Cache,
		events:   config.Events,
		failures: config.Failures,
		log:      config.Logger.With(logger.Component("record_growth")),
		now:      config.Now,
		newID:    config.NewID,
	}
}

// Handle executes the record growth command.
//
// Input errors match shared.ErrInvalidInput, a missing infant matches
// shared.ErrNotFound. Advisory failures never fail the command.
func (h *RecordGrowthHandler) Handle(ctx context.Context, cmd RecordGrowthCommand) (*RecordGrowthResult, error) {
	if err := cmd.Validate(); err != nil {
		h.observeFailure(err)
		return nil, err
	}

	m := cmd.measurement()
	if m.MeasuredAt.IsZero() {
		m.MeasuredAt = h.now()
	}

	infant, err := h.infants.GetByID(ctx, cmd.InfantID)
	if err != nil {
		return nil, fmt.Errorf("record_growth: %w", err)
	}

	outcome, err := h.assessor.AssessDetailed(ctx, m, *infant)
	if err != nil {
		h.observeFailure(err)
		h.log.Error("assessment failed",
			logger.InfantID(infant.ID),
			logger.Err(err),
		)
		return nil, fmt.Errorf("record_growth: %w", err)
	}
	a := outcome.Assessment

	record := &growth.GrowthRecord{
		ID:         h.newID(),
		InfantID:   infant.ID,
		WeightKg:   m.WeightKg,
		HeightCm:   m.HeightCm,
		RecordedAt: m.MeasuredAt,
		Assessment: a,
	}

	if err := h.records.SaveRecordWithAssessment(ctx, record); err != nil {
		return nil, fmt.Errorf("record_growth: save: %w", err)
	}

	h.refreshCache(ctx, a)
	h.publish(cmd, record, outcome)

	h.log.Info("growth recorded",
		logger.InfantID(infant.ID),
		logger.AgeMonths(a.AgeMonths),
		logger.RiskFactor(string(a.Classification.PrimaryFactor)),
		logger.Severity(string(a.Classification.Severity)),
		logger.GeneratedBy(string(a.GeneratedBy)),
	)

	return &RecordGrowthResult{
		Record:     record,
		Assessment: a,
		RiskStatus: a.RiskStatus(),
	}, nil
}

func (h *RecordGrowthHandler) refreshCache(ctx context.Context, a *growth.Assessment) {
	if h.cache == nil {
		return
	}
	if err := h.cache.PutLatest(ctx, a); err != nil {
		h.log.Warn("failed to cache latest assessment", logger.InfantID(a.InfantID), logger.Err(err))
		// A stale entry would outlive the new record; drop it.
		if err := h.cache.Invalidate(ctx, a.InfantID); err != nil {
			h.log.Warn("failed to invalidate latest assessment", logger.InfantID(a.InfantID), logger.Err(err))
		}
	}
}

func (h *RecordGrowthHandler) publish(cmd RecordGrowthCommand, record *growth.GrowthRecord, o *assessment.Outcome) {
	if h.events == nil {
		return
	}
	a := o.Assessment

	recorded := shared.NewGrowthRecordedEvent(
		a.InfantID, record.ID, a.ID, a.RiskStatus(),
		string(a.Classification.PrimaryFactor), string(a.Classification.Severity),
		string(a.GeneratedBy), a.AssessedAt,
	)
	recorded.BaseEvent = recorded.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	events := []shared.Event{recorded}

	if a.NeedsReferral() {
		ev := shared.NewReferralRaisedEvent(a.InfantID, a.ID, a.RiskStatus(), a.AgeMonths, a.AssessedAt)
		ev.BaseEvent = ev.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		events = append(events, ev)
	}
	if o.AdvisoryErr != nil {
		ev := shared.NewAdvisoryFallbackEvent(a.InfantID, a.ID, o.AdvisoryErr.Error(), a.AssessedAt)
		ev.BaseEvent = ev.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		events = append(events, ev)
	}

	for _, ev := range events {
		if err := h.events.Publish(ev); err != nil {
			h.log.Warn("failed to publish event",
				logger.String("event_type", string(ev.EventType())),
				logger.Err(err),
			)
		}
	}
}

func (h *RecordGrowthHandler) observeFailure(err error) {
	if h.failures != nil {
		h.failures.ObserveFailure(err)
	}
}
