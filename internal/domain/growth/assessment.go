package growth

import "time"

// Assessment is the result of scoring one growth measurement.
// It is created once per recorded measurement and never mutated; a newer
// assessment supersedes it as the infant's risk status.
type Assessment struct {
	ID              string         `json:"id"`
	InfantID        string         `json:"infant_id"`
	AgeMonths       int            `json:"age_months"`
	Measurement     Measurement    `json:"measurement"`
	ZScores         ZScorePair     `json:"z_scores"`
	Classification  Classification `json:"classification"`
	RiskLevel       string         `json:"risk_level"`
	AdvisoryText    string         `json:"advisory_text"`
	GeneratedBy     GeneratedBy    `json:"generated_by"`
	StandardVersion string         `json:"standard_version"`
	AssessedAt      time.Time      `json:"assessed_at"`
}

// RiskStatus is the display string persisted on the infant.
func (a *Assessment) RiskStatus() string {
	return a.Classification.RiskStatus()
}

// IsFallback reports whether the advisory text is canned.
func (a *Assessment) IsFallback() bool {
	return a.GeneratedBy == GeneratedByFallback
}

// NeedsReferral reports whether the classification calls for immediate referral.
func (a *Assessment) NeedsReferral() bool {
	return a.Classification.Severity == SeveritySevere
}
