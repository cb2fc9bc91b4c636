package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cradlecare/cradlecare-hub/internal/domain/growth"
	"github.com/cradlecare/cradlecare-hub/internal/domain/shared"
)

// InfantRepository implements growth.InfantRepository for PostgreSQL.
type InfantRepository struct {
	conn *Connection
}

// NewInfantRepository creates a new InfantRepository.
func NewInfantRepository(conn *Connection) *InfantRepository {
	return &InfantRepository{conn: conn}
}

const infantColumns = `id, name, mother_name, date_of_birth, sex, risk_status, created_at, updated_at`

// Create stores a new infant. An empty ID is assigned by the database.
func (r *InfantRepository) Create(ctx context.Context, infant *growth.Infant) error {
	if err := infant.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	if infant.CreatedAt.IsZero() {
		infant.CreatedAt = now
	}
	infant.UpdatedAt = now

	query := `
		INSERT INTO infants (id, name, mother_name, date_of_birth, sex, risk_status, created_at, updated_at)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.conn.QueryRow(ctx, query,
		infant.ID,
		infant.Name,
		infant.MotherName,
		infant.DateOfBirth,
		infant.Sex.String(),
		infant.RiskStatus,
		infant.CreatedAt,
		infant.UpdatedAt,
	).Scan(&infant.ID)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrInfantExists
		}
		if IsInvalidText(err) {
			return shared.ErrInvalidInfantID
		}
		return fmt.Errorf("failed to create infant: %w", err)
	}

	return nil
}

// GetByID returns an infant by ID.
func (r *InfantRepository) GetByID(ctx context.Context, id string) (*growth.Infant, error) {
	if !shared.InfantID(id).IsValid() {
		return nil, shared.ErrInvalidInfantID
	}

	row := r.conn.QueryRow(ctx, `SELECT `+infantColumns+` FROM infants WHERE id = $1`, id)
	infant, err := scanInfant(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrInfantNotFound
		}
		return nil, fmt.Errorf("failed to get infant: %w", err)
	}
	return infant, nil
}

func updateRiskStatus(ctx context.Context, q Querier, id, riskStatus string) error {
	tag, err := q.Exec(ctx,
		`UPDATE infants SET risk_status = $1, updated_at = NOW() WHERE id = $2`,
		riskStatus, id)
	if err != nil {
		return fmt.Errorf("failed to update risk status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrInfantNotFound
	}
	return nil
}

// List returns infants ordered by name.
func (r *InfantRepository) List(ctx context.Context, limit, offset int) ([]*growth.Infant, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.conn.Query(ctx,
		`SELECT `+infantColumns+` FROM infants ORDER BY name, id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list infants: %w", err)
	}
	defer rows.Close()

	var infants []*growth.Infant
	for rows.Next() {
		infant, err := scanInfant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan infant: %w", err)
		}
		infants = append(infants, infant)
	}
	return infants, rows.Err()
}

func scanInfant(row pgx.Row) (*growth.Infant, error) {
	var (
		infant growth.Infant
		sex    string
	)
	err := row.Scan(
		&infant.ID,
		&infant.Name,
		&infant.MotherName,
		&infant.DateOfBirth,
		&sex,
		&infant.RiskStatus,
		&infant.CreatedAt,
		&infant.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	infant.Sex = growth.ParseSex(sex)
	return &infant, nil
}
