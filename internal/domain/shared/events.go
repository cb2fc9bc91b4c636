// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

const (
	// Growth events
	EventGrowthRecorded EventType = "growth.recorded"

	// Assessment events
	EventReferralRaised   EventType = "assessment.referral_raised"
	EventAdvisoryFallback EventType = "assessment.advisory_fallback"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	if at.IsZero() {
		at = time.Now()
	}
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Growth Events
// ═══════════════════════════════════════════════════════════════════════════

// GrowthRecordedEvent is emitted once a growth record and its assessment
// are stored. The aggregate is the infant.
type GrowthRecordedEvent struct {
	BaseEvent
	RecordID      string `json:"record_id"`
	AssessmentID  string `json:"assessment_id"`
	RiskStatus    string `json:"risk_status"`
	PrimaryFactor string `json:"primary_factor"`
	Severity      string `json:"severity"`
	GeneratedBy   string `json:"generated_by"`
}

// Payload implements Event interface.
func (e GrowthRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"record_id":      e.RecordID,
		"assessment_id":  e.AssessmentID,
		"risk_status":    e.RiskStatus,
		"primary_factor": e.PrimaryFactor,
		"severity":       e.Severity,
		"generated_by":   e.GeneratedBy,
	}
}

// NewGrowthRecordedEvent creates a new GrowthRecordedEvent.
func NewGrowthRecordedEvent(infantID, recordID, assessmentID, riskStatus, factor, severity, generatedBy string, at time.Time) GrowthRecordedEvent {
	return GrowthRecordedEvent{
		BaseEvent:     NewBaseEvent(EventGrowthRecorded, infantID, at),
		RecordID:      recordID,
		AssessmentID:  assessmentID,
		RiskStatus:    riskStatus,
		PrimaryFactor: factor,
		Severity:      severity,
		GeneratedBy:   generatedBy,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Assessment Events
// ═══════════════════════════════════════════════════════════════════════════

// ReferralRaisedEvent is emitted for every severe classification.
type ReferralRaisedEvent struct {
	BaseEvent
	AssessmentID string `json:"assessment_id"`
	RiskStatus   string `json:"risk_status"`
	AgeMonths    int    `json:"age_months"`
}

// Payload implements Event interface.
func (e ReferralRaisedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"assessment_id": e.AssessmentID,
		"risk_status":   e.RiskStatus,
		"age_months":    e.AgeMonths,
	}
}

// NewReferralRaisedEvent creates a new ReferralRaisedEvent.
func NewReferralRaisedEvent(infantID, assessmentID, riskStatus string, ageMonths int, at time.Time) ReferralRaisedEvent {
	return ReferralRaisedEvent{
		BaseEvent:    NewBaseEvent(EventReferralRaised, infantID, at),
		AssessmentID: assessmentID,
		RiskStatus:   riskStatus,
		AgeMonths:    ageMonths,
	}
}

// AdvisoryFallbackEvent is emitted when canned advice replaced the model.
type AdvisoryFallbackEvent struct {
	BaseEvent
	AssessmentID string `json:"assessment_id"`
	Reason       string `json:"reason"`
}

// Payload implements Event interface.
func (e AdvisoryFallbackEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"assessment_id": e.AssessmentID,
		"reason":        e.Reason,
	}
}

// NewAdvisoryFallbackEvent creates a new AdvisoryFallbackEvent.
func NewAdvisoryFallbackEvent(infantID, assessmentID, reason string, at time.Time) AdvisoryFallbackEvent {
	return AdvisoryFallbackEvent{
		BaseEvent:    NewBaseEvent(EventAdvisoryFallback, infantID, at),
		AssessmentID: assessmentID,
		Reason:       reason,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Source        string          `json:"source,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEventEnvelope serializes an event's payload into an envelope.
func NewEventEnvelope(event Event, source string) (EventEnvelope, error) {
	payload, err := json.Marshal(event.Payload())
	if err != nil {
		return EventEnvelope{}, err
	}
	env := EventEnvelope{
		Type:        event.EventType(),
		AggregateID: event.AggregateID(),
		Timestamp:   event.OccurredAt(),
		Version:     1,
		Source:      source,
		Payload:     payload,
	}
	if b, ok := event.(interface{ correlationID() string }); ok {
		env.CorrelationID = b.correlationID()
	}
	return env, nil
}

func (e BaseEvent) correlationID() string {
	return e.CorrelationID
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
