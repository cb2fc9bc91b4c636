package growth

import (
	"context"
	"time"
)

// GrowthRecord is a stored measurement together with the assessment
// produced for it.
type GrowthRecord struct {
	ID         string      `json:"id"`
	InfantID   string      `json:"infant_id"`
	WeightKg   float64     `json:"weight_kg"`
	HeightCm   float64     `json:"height_cm"`
	RecordedAt time.Time   `json:"recorded_at"`
	Assessment *Assessment `json:"assessment,omitempty"`
}

// Measurement returns the record's measurement.
func (r *GrowthRecord) Measurement() Measurement {
	return Measurement{WeightKg: r.WeightKg, HeightCm: r.HeightCm, MeasuredAt: r.RecordedAt}
}

// InfantRepository stores infants. Registration flows live elsewhere; the
// growth service only reads infants. Risk status is written together with
// each assessment by GrowthRepository.
type InfantRepository interface {
	// Create stores a new infant. Returns shared.ErrInfantExists on conflict.
	Create(ctx context.Context, infant *Infant) error

	// GetByID returns shared.ErrInfantNotFound if absent.
	GetByID(ctx context.Context, id string) (*Infant, error)

	// List returns infants ordered by name, with their current risk status.
	List(ctx context.Context, limit, offset int) ([]*Infant, error)
}

// GrowthRepository stores growth records and their assessments.
type GrowthRepository interface {
	// SaveRecordWithAssessment stores the record, its assessment and the
	// infant's new risk status in one transaction.
	SaveRecordWithAssessment(ctx context.Context, record *GrowthRecord) error

	// ListByInfant returns records with assessments, newest first.
	ListByInfant(ctx context.Context, infantID string, limit int) ([]*GrowthRecord, error)

	// LatestAssessment returns shared.ErrAssessmentNotFound if the infant
	// has no records.
	LatestAssessment(ctx context.Context, infantID string) (*Assessment, error)
}
