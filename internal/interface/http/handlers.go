package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/cradlecare/cradlecare-hub/config"
	"github.com/cradlecare/cradlecare-hub/internal/application/command"
	"github.com/cradlecare/cradlecare-hub/internal/application/query"
	"github.com/cradlecare/cradlecare-hub/internal/domain/growth"
	"github.com/cradlecare/cradlecare-hub/internal/domain/shared"
	"github.com/cradlecare/cradlecare-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"name":    "CradleCare Growth API",
		"version": "v1",
		"endpoints": map[string]string{
			"record_growth":  "POST /api/v1/infants/{id}/growth",
			"growth_history": "GET /api/v1/infants/{id}/growth",
			"risk_status":    "GET /api/v1/infants/{id}/risk",
			"health":         "GET /health",
		},
	})
}

// handleHealth reports every check. A failing optional check keeps 200.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, r, http.StatusOK, map[string]any{
			"status": "healthy",
			"uptime": s.Uptime().String(),
		})
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())
	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, status)
}

// handleReady handles the readiness probe.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSONError(w, r, http.StatusServiceUnavailable, "not_ready", status.Message)
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// GROWTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// RecordGrowthRequest is the body of POST /api/v1/infants/{id}/growth.
type RecordGrowthRequest struct {
	WeightKg   *float64   `json:"weight_kg"`
	HeightCm   *float64   `json:"height_cm"`
	MeasuredAt *time.Time `json:"measured_at,omitempty"`
}

// RecordGrowthResponse pairs the stored record with its assessment.
type RecordGrowthResponse struct {
	Record     RecordView     `json:"record"`
	Analysis   AssessmentView `json:"analysis"`
	RiskStatus string         `json:"risk_status"`
}

// RecordView is a growth record without its nested assessment.
type RecordView struct {
	ID         string    `json:"id"`
	InfantID   string    `json:"infant_id"`
	WeightKg   float64   `json:"weight_kg"`
	HeightCm   float64   `json:"height_cm"`
	RecordedAt time.Time `json:"recorded_at"`
}

// AssessmentView is the client-facing assessment. ZScores is omitted when
// the api.expose_zscores flag is off for the infant.
type AssessmentView struct {
	ID              string             `json:"id"`
	AgeMonths       int                `json:"age_months"`
	ZScores         *growth.ZScorePair `json:"z_scores,omitempty"`
	PrimaryFactor   string             `json:"primary_factor"`
	Severity        string             `json:"severity"`
	RiskLevel       string             `json:"risk_level"`
	RiskStatus      string             `json:"risk_status"`
	AdvisoryText    string             `json:"advisory_text"`
	GeneratedBy     string             `json:"generated_by"`
	NeedsReferral   bool               `json:"needs_referral"`
	StandardVersion string             `json:"standard_version"`
	AssessedAt      time.Time          `json:"assessed_at"`
}

// GrowthHistoryResponse lists records newest first.
type GrowthHistoryResponse struct {
	InfantID   string              `json:"infant_id"`
	RiskStatus string              `json:"risk_status"`
	Records    []GrowthHistoryItem `json:"records"`
}

// GrowthHistoryItem is one record and its assessment, if any.
type GrowthHistoryItem struct {
	RecordView
	Assessment *AssessmentView `json:"assessment,omitempty"`
}

// RiskStatusResponse is the body of GET /api/v1/infants/{id}/risk.
type RiskStatusResponse struct {
	InfantID      string          `json:"infant_id"`
	RiskStatus    string          `json:"risk_status"`
	NeedsReferral bool            `json:"needs_referral"`
	Assessment    *AssessmentView `json:"assessment,omitempty"`
	Source        string          `json:"source"`
}

// handleRecordGrowth handles POST /api/v1/infants/{id}/growth
func (s *Server) handleRecordGrowth(w http.ResponseWriter, r *http.Request) {
	if s.deps.RecordGrowth == nil {
		writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Growth recording not configured")
		return
	}

	var req RecordGrowthRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSONError(w, r, http.StatusBadRequest, CodeInvalidJSON, "Request body must be a JSON object with weight_kg and height_cm")
		return
	}
	if req.WeightKg == nil {
		writeAPIError(w, r, http.StatusBadRequest, &APIError{Code: CodeInvalidInput, Field: "weight_kg", Message: "weight_kg is required"})
		return
	}
	if req.HeightCm == nil {
		writeAPIError(w, r, http.StatusBadRequest, &APIError{Code: CodeInvalidInput, Field: "height_cm", Message: "height_cm is required"})
		return
	}

	cmd := command.RecordGrowthCommand{
		InfantID:      r.PathValue("id"),
		WeightKg:      *req.WeightKg,
		HeightCm:      *req.HeightCm,
		CorrelationID: getRequestID(r.Context()),
	}
	if req.MeasuredAt != nil {
		cmd.MeasuredAt = *req.MeasuredAt
	}

	result, err := s.deps.RecordGrowth.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, RecordGrowthResponse{
		Record:     newRecordView(result.Record),
		Analysis:   *s.newAssessmentView(result.Assessment),
		RiskStatus: result.RiskStatus,
	})
}

// handleGetGrowthHistory handles GET /api/v1/infants/{id}/growth
func (s *Server) handleGetGrowthHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.GrowthHistory == nil {
		writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Growth history not configured")
		return
	}

	limit, ok := getQueryParamInt(r, "limit", 0)
	if !ok {
		writeAPIError(w, r, http.StatusBadRequest, &APIError{Code: CodeInvalidInput, Field: "limit", Message: "limit must be an integer"})
		return
	}

	dto, err := s.deps.GrowthHistory.Handle(r.Context(), query.GetGrowthHistoryQuery{
		InfantID: r.PathValue("id"),
		Limit:    limit,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	resp := GrowthHistoryResponse{
		InfantID:   dto.InfantID,
		RiskStatus: dto.RiskStatus,
		Records:    make([]GrowthHistoryItem, 0, len(dto.Records)),
	}
	for _, rec := range dto.Records {
		item := GrowthHistoryItem{RecordView: newRecordView(rec)}
		if rec.Assessment != nil {
			item.Assessment = s.newAssessmentView(rec.Assessment)
		}
		resp.Records = append(resp.Records, item)
	}

	writeJSONWithMeta(w, r, http.StatusOK, resp, &ResponseMeta{Count: len(resp.Records)})
}

// handleListInfants handles GET /api/v1/infants
func (s *Server) handleListInfants(w http.ResponseWriter, r *http.Request) {
	if s.deps.Infants == nil {
		writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Infant list not configured")
		return
	}

	limit, ok := getQueryParamInt(r, "limit", 0)
	if !ok {
		writeAPIError(w, r, http.StatusBadRequest, &APIError{Code: CodeInvalidInput, Field: "limit", Message: "limit must be an integer"})
		return
	}
	offset, ok := getQueryParamInt(r, "offset", 0)
	if !ok {
		writeAPIError(w, r, http.StatusBadRequest, &APIError{Code: CodeInvalidInput, Field: "offset", Message: "offset must be an integer"})
		return
	}

	dto, err := s.deps.Infants.Handle(r.Context(), query.ListInfantsQuery{Limit: limit, Offset: offset})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, dto, &ResponseMeta{Count: len(dto.Infants)})
}

// handleGetRiskStatus handles GET /api/v1/infants/{id}/risk
func (s *Server) handleGetRiskStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.RiskStatus == nil {
		writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Risk status not configured")
		return
	}

	dto, err := s.deps.RiskStatus.Handle(r.Context(), query.GetRiskStatusQuery{InfantID: r.PathValue("id")})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	resp := RiskStatusResponse{
		InfantID:      dto.InfantID,
		RiskStatus:    dto.RiskStatus,
		NeedsReferral: dto.NeedsReferral,
		Source:        dto.Source,
	}
	if dto.Assessment != nil {
		resp.Assessment = s.newAssessmentView(dto.Assessment)
	}

	writeJSON(w, r, http.StatusOK, resp)
}

// ══════════════════════════════════════════════════════════════════════════════
// MAPPING
// ══════════════════════════════════════════════════════════════════════════════

func newRecordView(rec *growth.GrowthRecord) RecordView {
	return RecordView{
		ID:         rec.ID,
		InfantID:   rec.InfantID,
		WeightKg:   rec.WeightKg,
		HeightCm:   rec.HeightCm,
		RecordedAt: rec.RecordedAt,
	}
}

func (s *Server) newAssessmentView(a *growth.Assessment) *AssessmentView {
	v := &AssessmentView{
		ID:              a.ID,
		AgeMonths:       a.AgeMonths,
		PrimaryFactor:   string(a.Classification.PrimaryFactor),
		Severity:        string(a.Classification.Severity),
		RiskLevel:       a.RiskLevel,
		RiskStatus:      a.RiskStatus(),
		AdvisoryText:    a.AdvisoryText,
		GeneratedBy:     string(a.GeneratedBy),
		NeedsReferral:   a.NeedsReferral(),
		StandardVersion: a.StandardVersion,
		AssessedAt:      a.AssessedAt,
	}
	if s.exposeZScores(a.InfantID) {
		z := a.ZScores
		v.ZScores = &z
	}
	return v
}

func (s *Server) exposeZScores(infantID string) bool {
	if s.deps.Features == nil {
		return true
	}
	return s.deps.Features.IsEnabledFor(config.FeatureExposeZScores, infantID)
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if ie, ok := growth.AsInputError(err); ok {
		writeAPIError(w, r, http.StatusBadRequest, &APIError{Code: CodeInvalidInput, Field: ie.Field, Message: ie.Message})
		return
	}

	switch {
	case shared.IsValidation(err):
		writeJSONError(w, r, http.StatusBadRequest, CodeInvalidInput, messageOf(err))
	case shared.IsNotFound(err):
		writeJSONError(w, r, http.StatusNotFound, CodeNotFound, messageOf(err))
	case shared.IsData(err):
		s.logFailure(r, err)
		writeJSONError(w, r, http.StatusInternalServerError, CodeDataError, "The growth standard has no usable reference for this measurement")
	case shared.IsConfiguration(err):
		s.logFailure(r, err)
		writeJSONError(w, r, http.StatusInternalServerError, CodeConfiguration, "The growth standard is misconfigured")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeJSONError(w, r, http.StatusGatewayTimeout, CodeTimeout, "The request timed out")
	default:
		s.logFailure(r, err)
		writeJSONError(w, r, http.StatusInternalServerError, CodeInternal, "An unexpected error occurred")
	}
}

func (s *Server) logFailure(r *http.Request, err error) {
	logger.FromContext(r.Context()).Error("request failed",
		logger.String("path", r.URL.Path),
		logger.Err(err),
	)
}

// messageOf returns the DomainError message without the op prefix.
func messageOf(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
