package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cradlecare/cradlecare-hub/internal/domain/growth"
	"github.com/cradlecare/cradlecare-hub/internal/domain/shared"
)

// GrowthRepository implements growth.GrowthRepository for PostgreSQL.
type GrowthRepository struct {
	conn *Connection
}

// NewGrowthRepository creates a new GrowthRepository.
func NewGrowthRepository(conn *Connection) *GrowthRepository {
	return &GrowthRepository{conn: conn}
}

// SaveRecordWithAssessment inserts the record and its assessment and moves
// the infant's risk status, all or nothing.
func (r *GrowthRepository) SaveRecordWithAssessment(ctx context.Context, rec *growth.GrowthRecord) error {
	if rec.Assessment == nil {
		return shared.NewDomainError("growth", "SaveRecord", shared.ErrValidation, "record has no assessment")
	}
	a := rec.Assessment

	zscores, err := json.Marshal(a.ZScores)
	if err != nil {
		return fmt.Errorf("failed to marshal z-scores: %w", err)
	}

	err = r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO growth_records (id, infant_id, weight_kg, height_cm, recorded_at)
			VALUES ($1, $2, $3, $4, $5)`,
			rec.ID, rec.InfantID, rec.WeightKg, rec.HeightCm, rec.RecordedAt)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO assessments (
				id, growth_record_id, infant_id, age_months, z_scores,
				primary_factor, severity, risk_level, advisory_text,
				generated_by, standard_version, assessed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			a.ID, rec.ID, rec.InfantID, a.AgeMonths, zscores,
			string(a.Classification.PrimaryFactor), string(a.Classification.Severity),
			a.RiskLevel, a.AdvisoryText, string(a.GeneratedBy),
			a.StandardVersion, a.AssessedAt)
		if err != nil {
			return err
		}

		return updateRiskStatus(ctx, tx, rec.InfantID, a.RiskStatus())
	})
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrInfantNotFound
		}
		if shared.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("failed to save growth record: %w", err)
	}
	return nil
}

const recordWithAssessmentSelect = `
	SELECT g.id, g.infant_id, g.weight_kg::float8, g.height_cm::float8, g.recorded_at,
	       a.id, a.age_months, a.z_scores, a.primary_factor, a.severity, a.risk_level,
	       a.advisory_text, a.generated_by, a.standard_version, a.assessed_at
	FROM growth_records g
	JOIN assessments a ON a.growth_record_id = g.id
`

// ListByInfant returns records with assessments, newest measurement first.
func (r *GrowthRepository) ListByInfant(ctx context.Context, infantID string, limit int) ([]*growth.GrowthRecord, error) {
	if !shared.InfantID(infantID).IsValid() {
		return nil, shared.ErrInvalidInfantID
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.conn.Query(ctx, recordWithAssessmentSelect+`
		WHERE g.infant_id = $1
		ORDER BY g.recorded_at DESC, a.assessed_at DESC
		LIMIT $2`, infantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list growth records: %w", err)
	}
	defer rows.Close()

	var records []*growth.GrowthRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan growth record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// LatestAssessment returns the most recently produced assessment.
func (r *GrowthRepository) LatestAssessment(ctx context.Context, infantID string) (*growth.Assessment, error) {
	if !shared.InfantID(infantID).IsValid() {
		return nil, shared.ErrInvalidInfantID
	}

	row := r.conn.QueryRow(ctx, recordWithAssessmentSelect+`
		WHERE g.infant_id = $1
		ORDER BY a.assessed_at DESC
		LIMIT 1`, infantID)

	rec, err := scanRecord(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get latest assessment: %w", err)
	}
	return rec.Assessment, nil
}

func scanRecord(row pgx.Row) (*growth.GrowthRecord, error) {
	var (
		rec         growth.GrowthRecord
		a           growth.Assessment
		zscores     []byte
		factor      string
		severity    string
		generatedBy string
	)

	err := row.Scan(
		&rec.ID, &rec.InfantID, &rec.WeightKg, &rec.HeightCm, &rec.RecordedAt,
		&a.ID, &a.AgeMonths, &zscores, &factor, &severity, &a.RiskLevel,
		&a.AdvisoryText, &generatedBy, &a.StandardVersion, &a.AssessedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(zscores, &a.ZScores); err != nil {
		return nil, fmt.Errorf("decode z_scores: %w", err)
	}

	a.InfantID = rec.InfantID
	a.Measurement = rec.Measurement()
	a.Classification = growth.Classification{
		PrimaryFactor: growth.PrimaryFactor(factor),
		Severity:      growth.Severity(severity),
	}
	a.GeneratedBy = growth.GeneratedBy(generatedBy)
	rec.Assessment = &a

	return &rec, nil
}
