package query

import (
	"context"
	"fmt"

	"github.com/cradlecare/cradlecare-hub/internal/domain/growth"
	"github.com/cradlecare/cradlecare-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST INFANTS QUERY
// Risk overview for a health worker: every infant with its current status.
// ══════════════════════════════════════════════════════════════════════════════

const (
	DefaultInfantsLimit = 50
	MaxInfantsLimit     = 200
)

// ListInfantsQuery contains the paging parameters.
type ListInfantsQuery struct {
	// Limit defaults to DefaultInfantsLimit and is capped at MaxInfantsLimit.
	Limit  int
	Offset int
}

// Validate checks paging and normalizes the limit.
func (q *ListInfantsQuery) Validate() error {
	if q.Limit < 0 || q.Offset < 0 {
		return shared.NewDomainError("growth", "ListInfants", shared.ErrInvalidInput, "limit and offset cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = DefaultInfantsLimit
	}
	if q.Limit > MaxInfantsLimit {
		q.Limit = MaxInfantsLimit
	}
	return nil
}

// InfantSummaryDTO is one row of the overview.
type InfantSummaryDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MotherName  string `json:"mother_name,omitempty"`
	DateOfBirth string `json:"date_of_birth"`
	Sex         string `json:"sex"`
	RiskStatus  string `json:"risk_status"`
	NeedsReview bool   `json:"needs_review"`
}

// ListInfantsDTO is the query result.
type ListInfantsDTO struct {
	Infants []InfantSummaryDTO `json:"infants"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
}

// ListInfantsHandler handles ListInfantsQuery.
type ListInfantsHandler struct {
	infants growth.InfantRepository
}

// NewListInfantsHandler creates a new handler.
func NewListInfantsHandler(infants growth.InfantRepository) *ListInfantsHandler {
	return &ListInfantsHandler{infants: infants}
}

// Handle executes the query. Infants never assessed report StatusNotAssessed.
func (h *ListInfantsHandler) Handle(ctx context.Context, q ListInfantsQuery) (*ListInfantsDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	infants, err := h.infants.List(ctx, q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("list_infants: %w", err)
	}

	out := make([]InfantSummaryDTO, 0, len(infants))
	for _, i := range infants {
		status := i.RiskStatus
		if status == "" {
			status = StatusNotAssessed
		}
		out = append(out, InfantSummaryDTO{
			ID:          i.ID,
			Name:        i.Name,
			MotherName:  i.MotherName,
			DateOfBirth: i.DateOfBirth.Format("2006-01-02"),
			Sex:         i.Sex.String(),
			RiskStatus:  status,
			NeedsReview: status != StatusNotAssessed && status != string(growth.FactorNormal),
		})
	}

	return &ListInfantsDTO{Infants: out, Limit: q.Limit, Offset: q.Offset}, nil
}
