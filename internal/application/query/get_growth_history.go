// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/cradlecare/cradlecare-hub/internal/domain/growth"
	"github.com/cradlecare/cradlecare-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET GROWTH HISTORY QUERY
// Lists an infant's growth records with their assessments, newest first.
// ══════════════════════════════════════════════════════════════════════════════

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// GetGrowthHistoryQuery contains the query parameters.
type GetGrowthHistoryQuery struct {
	InfantID string

	// Limit defaults to DefaultHistoryLimit and is capped at MaxHistoryLimit.
	Limit int
}

// Validate checks the query and normalizes the limit.
func (q *GetGrowthHistoryQuery) Validate() error {
	if strings.TrimSpace(q.InfantID) == "" {
		return shared.ErrInvalidInfantID
	}
	if q.Limit < 0 {
		return shared.NewDomainError("growth", "History", shared.ErrInvalidInput, "limit cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = DefaultHistoryLimit
	}
	if q.Limit > MaxHistoryLimit {
		q.Limit = MaxHistoryLimit
	}
	return nil
}

// GrowthHistoryDTO is the query result.
type GrowthHistoryDTO struct {
	InfantID   string                 `json:"infant_id"`
	RiskStatus string                 `json:"risk_status"`
	Records    []*growth.GrowthRecord `json:"records"`
}

// GetGrowthHistoryHandler handles GetGrowthHistoryQuery.
type GetGrowthHistoryHandler struct {
	infants growth.InfantRepository
	records growth.GrowthRepository
}

// NewGetGrowthHistoryHandler creates a new handler.
func NewGetGrowthHistoryHandler(infants growth.InfantRepository, records growth.GrowthRepository) *GetGrowthHistoryHandler {
	return &GetGrowthHistoryHandler{infants: infants, records: records}
}

// Handle executes the query. A missing infant matches shared.ErrNotFound.
func (h *GetGrowthHistoryHandler) Handle(ctx context.Context, q GetGrowthHistoryQuery) (*GrowthHistoryDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	infant, err := h.infants.GetByID(ctx, q.InfantID)
	if err != nil {
		return nil, fmt.Errorf("growth_history: %w", err)
	}

	records, err := h.records.ListByInfant(ctx, infant.ID, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("growth_history: list: %w", err)
	}
	if records == nil {
		records = []*growth.GrowthRecord{}
	}

	return &GrowthHistoryDTO{
		InfantID:   infant.ID,
		RiskStatus: infant.RiskStatus,
		Records:    records,
	}, nil
}
