package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cradlecare/cradlecare-hub/internal/domain/growth"
	"github.com/cradlecare/cradlecare-hub/internal/domain/shared"
	"github.com/cradlecare/cradlecare-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET RISK STATUS QUERY
// Returns an infant's current risk status and the assessment behind it.
// Reads go to the cache first, then PostgreSQL.
// ══════════════════════════════════════════════════════════════════════════════

// StatusNotAssessed is reported for infants without growth records.
const StatusNotAssessed = "Not assessed"

// Result sources.
const (
	SourceCache    = "cache"
	SourceDatabase = "database"
)

// GetRiskStatusQuery contains the query parameters.
type GetRiskStatusQuery struct {
	InfantID string
}

// RiskStatusDTO is the query result. Assessment is nil when the infant has
// not been assessed yet.
type RiskStatusDTO struct {
	InfantID      string             `json:"infant_id"`
	RiskStatus    string             `json:"risk_status"`
	NeedsReferral bool               `json:"needs_referral"`
	Assessment    *growth.Assessment `json:"assessment,omitempty"`
	Source        string             `json:"source"`
}

// LatestAssessmentReader is the read side of the latest-assessment cache.
// A miss is any error.
type LatestAssessmentReader interface {
	GetLatest(ctx context.Context, infantID string) (*growth.Assessment, error)
	PutLatest(ctx context.Context, a *growth.Assessment) error
}

// GetRiskStatusHandler handles GetRiskStatusQuery.
type GetRiskStatusHandler struct {
	infants growth.InfantRepository
	records growth.GrowthRepository
	cache   LatestAssessmentReader
	log     *logger.Logger
}

// NewGetRiskStatusHandler creates a new handler. cache may be nil.
func NewGetRiskStatusHandler(
	infants growth.InfantRepository,
	records growth.GrowthRepository,
	cache LatestAssessmentReader,
	log *logger.Logger,
) *GetRiskStatusHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &GetRiskStatusHandler{
		infants: infants,
		records: records,
		cache:   cache,
		log:     log.With(logger.Component("risk_status")),
	}
}

// Handle executes the query. A missing infant matches shared.ErrNotFound.
func (h *GetRiskStatusHandler) Handle(ctx context.Context, q GetRiskStatusQuery) (*RiskStatusDTO, error) {
	if strings.TrimSpace(q.InfantID) == "" {
		return nil, shared.ErrInvalidInfantID
	}

	if h.cache != nil {
		if a, err := h.cache.GetLatest(ctx, q.InfantID); err == nil {
			return newRiskStatusDTO(q.InfantID, a, SourceCache), nil
		}
	}

	a, err := h.records.LatestAssessment(ctx, q.InfantID)
	switch {
	case err == nil:
		if h.cache != nil {
			if err := h.cache.PutLatest(ctx, a); err != nil {
				h.log.Warn("failed to cache latest assessment", logger.InfantID(q.InfantID), logger.Err(err))
			}
		}
		return newRiskStatusDTO(q.InfantID, a, SourceDatabase), nil

	case errors.Is(err, shared.ErrNotFound):
		infant, err := h.infants.GetByID(ctx, q.InfantID)
		if err != nil {
			return nil, fmt.Errorf("risk_status: %w", err)
		}
		status := infant.RiskStatus
		if status == "" {
			status = StatusNotAssessed
		}
		return &RiskStatusDTO{InfantID: infant.ID, RiskStatus: status, Source: SourceDatabase}, nil

	default:
		return nil, fmt.Errorf("risk_status: %w", err)
	}
}

func newRiskStatusDTO(infantID string, a *growth.Assessment, source string) *RiskStatusDTO {
	return &RiskStatusDTO{
		InfantID:      infantID,
		RiskStatus:    a.RiskStatus(),
		NeedsReferral: a.NeedsReferral(),
		Assessment:    a,
		Source:        source,
	}
}
