package growth

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/cradlecare/cradlecare-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADVISORY CONTRACT
// ══════════════════════════════════════════════════════════════════════════════

// GeneratedBy records who authored an assessment's advisory text.
type GeneratedBy string

const (
	GeneratedByModel    GeneratedBy = "model"
	GeneratedByFallback GeneratedBy = "fallback"
)

// Summary is the structured request sent to an advisory generator.
type Summary struct {
	AgeMonths     int           `json:"age_months"`
	WeightKg      float64       `json:"weight_kg"`
	HeightCm      float64       `json:"height_cm"`
	WeightForAge  float64       `json:"weight_for_age"`
	HeightForAge  float64       `json:"height_for_age"`
	PrimaryFactor PrimaryFactor `json:"primary_factor"`
	Severity      Severity      `json:"severity"`
}

// NewSummary builds the generator request for a scored measurement.
// Z-scores are rounded to 2 decimals so equal clinical pictures produce
// equal requests.
func NewSummary(ageMonths int, m Measurement, z ZScorePair, c Classification) Summary {
	z = z.Rounded()
	return Summary{
		AgeMonths:     ageMonths,
		WeightKg:      m.WeightKg,
		HeightCm:      m.HeightCm,
		WeightForAge:  z.WeightForAge,
		HeightForAge:  z.HeightForAge,
		PrimaryFactor: c.PrimaryFactor,
		Severity:      c.Severity,
	}
}

// Classification returns the classification carried by the summary.
func (s Summary) Classification() Classification {
	return Classification{PrimaryFactor: s.PrimaryFactor, Severity: s.Severity}
}

// Advice is the structured generator response. Both fields are required.
type Advice struct {
	RiskLevel  string `json:"risk_level"`
	Suggestion string `json:"suggestion"`
}

// Validate checks the response shape.
func (a Advice) Validate() error {
	if strings.TrimSpace(a.RiskLevel) == "" {
		return advisoryError("Validate", "risk_level is missing or empty", nil)
	}
	if strings.TrimSpace(a.Suggestion) == "" {
		return advisoryError("Validate", "suggestion is missing or empty", nil)
	}
	return nil
}

// ParseAdvice decodes and validates a JSON advice object.
// Extra keys are ignored; trailing data and non-string values are rejected.
func ParseAdvice(data []byte) (Advice, error) {
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimSpace(data)))

	var a Advice
	if err := dec.Decode(&a); err != nil {
		return Advice{}, advisoryError("ParseAdvice", "malformed advice", err)
	}
	if dec.More() {
		return Advice{}, advisoryError("ParseAdvice", "trailing data after advice object", nil)
	}
	if err := a.Validate(); err != nil {
		return Advice{}, err
	}
	return a, nil
}

// Generator produces advisory text for a scored measurement. It may be slow
// or unavailable; callers bound it with a deadline on ctx.
type Generator interface {
	Generate(ctx context.Context, s Summary) (Advice, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, s Summary) (Advice, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, s Summary) (Advice, error) {
	return f(ctx, s)
}

// AdvisoryUnavailable wraps err as an ErrAdvisoryUnavailable.
func AdvisoryUnavailable(op string, err error) error {
	return advisoryError(op, "advisory generator failed", err)
}

func advisoryError(op, message string, err error) error {
	if err == nil {
		return shared.NewDomainError("advisory", op, ErrAdvisoryUnavailable, message)
	}
	return shared.WrapError("advisory", op, ErrAdvisoryUnavailable, message, err)
}

// ══════════════════════════════════════════════════════════════════════════════
// FALLBACK ADVICE
// ══════════════════════════════════════════════════════════════════════════════

var fallbackSuggestions = map[Classification]string{
	{FactorNormal, SeverityNormal}: "Growth is on track. Continue age-appropriate feeding and monthly growth monitoring.",

	{FactorUnderweight, SeverityModerate}: "Moderate Underweight: recommend dietary counseling and recheck in 2 weeks.",
	{FactorUnderweight, SeveritySevere}:   "Severe Underweight: refer immediately to the nearest PHC or Nutrition Rehabilitation Centre for medical assessment.",

	{FactorStunting, SeverityModerate}: "Moderate Stunting: counsel on dietary diversity and frequent complementary feeding, and recheck length in 1 month.",
	{FactorStunting, SeveritySevere}:   "Severe Stunting: refer to the PHC for evaluation of chronic undernutrition and underlying illness.",

	{FactorUnderweightAndStunting, SeverityModerate}: "Moderate Underweight and Stunting: start supplementary nutrition with dietary counseling and recheck in 2 weeks.",
	{FactorUnderweightAndStunting, SeveritySevere}:   "Severe Underweight and Stunting: refer immediately to the PHC or Nutrition Rehabilitation Centre.",
}

const defaultFallbackSuggestion = "Review this growth record with the supervising health worker and recheck at the next visit."

// FallbackAdvice returns the canned advice for a classification. It never
// returns empty text.
func FallbackAdvice(c Classification) Advice {
	suggestion, ok := fallbackSuggestions[c]
	if !ok {
		suggestion = defaultFallbackSuggestion
	}
	return Advice{RiskLevel: c.RiskStatus(), Suggestion: suggestion}
}
