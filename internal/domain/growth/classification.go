package growth

import "math"

// ══════════════════════════════════════════════════════════════════════════════
// SEVERITY
// ══════════════════════════════════════════════════════════════════════════════

// Severity orders how far below the standard a child is.
type Severity string

const (
	SeverityNormal   Severity = "Normal"
	SeverityModerate Severity = "Moderate"
	SeveritySevere   Severity = "Severe"
)

// Rank returns 0 for Normal, 1 for Moderate, 2 for Severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityModerate:
		return 1
	case SeveritySevere:
		return 2
	default:
		return 0
	}
}

// IsValid checks if the severity is known.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityNormal, SeverityModerate, SeveritySevere:
		return true
	}
	return false
}

// Max returns the more severe of s and o.
func (s Severity) Max(o Severity) Severity {
	if o.Rank() > s.Rank() {
		return o
	}
	return s
}

// ══════════════════════════════════════════════════════════════════════════════
// PRIMARY FACTOR
// ══════════════════════════════════════════════════════════════════════════════

// PrimaryFactor names which indicator crossed a threshold.
type PrimaryFactor string

const (
	FactorNormal                 PrimaryFactor = "Normal"
	FactorUnderweight            PrimaryFactor = "Underweight"
	FactorStunting               PrimaryFactor = "Stunting"
	FactorUnderweightAndStunting PrimaryFactor = "UnderweightAndStunting"
)

// IsValid checks if the factor is known.
func (f PrimaryFactor) IsValid() bool {
	switch f {
	case FactorNormal, FactorUnderweight, FactorStunting, FactorUnderweightAndStunting:
		return true
	}
	return false
}

// Label is the human form used in risk status strings.
func (f PrimaryFactor) Label() string {
	if f == FactorUnderweightAndStunting {
		return "Underweight and Stunting"
	}
	return string(f)
}

// ══════════════════════════════════════════════════════════════════════════════
// CLASSIFICATION
// ══════════════════════════════════════════════════════════════════════════════

// Clinical thresholds in z-score units. A z-score equal to a threshold
// belongs to the more severe band.
const (
	ModerateThreshold = -2.0
	SevereThreshold   = -3.0
)

// Classification is the categorical risk derived from a ZScorePair.
type Classification struct {
	PrimaryFactor PrimaryFactor `json:"primary_factor"`
	Severity      Severity      `json:"severity"`
}

// IsNormal reports whether no indicator crossed a threshold.
func (c Classification) IsNormal() bool {
	return c.PrimaryFactor == FactorNormal
}

// RiskStatus is the display string stored as the infant's current risk
// status, e.g. "Normal", "Moderate Underweight",
// "Severe Underweight and Stunting".
func (c Classification) RiskStatus() string {
	if c.IsNormal() {
		return string(FactorNormal)
	}
	return string(c.Severity) + " " + c.PrimaryFactor.Label()
}

// Classify maps z-scores to a classification. It is total over all float64
// inputs: NaN never crosses a threshold and -Inf is Severe.
func Classify(z ZScorePair) Classification {
	weight := severityOf(z.WeightForAge)
	height := severityOf(z.HeightForAge)

	switch {
	case weight != SeverityNormal && height != SeverityNormal:
		return Classification{PrimaryFactor: FactorUnderweightAndStunting, Severity: weight.Max(height)}
	case weight != SeverityNormal:
		return Classification{PrimaryFactor: FactorUnderweight, Severity: weight}
	case height != SeverityNormal:
		return Classification{PrimaryFactor: FactorStunting, Severity: height}
	default:
		return Classification{PrimaryFactor: FactorNormal, Severity: SeverityNormal}
	}
}

func severityOf(z float64) Severity {
	switch {
	case math.IsNaN(z):
		return SeverityNormal
	case z <= SevereThreshold:
		return SeveritySevere
	case z <= ModerateThreshold:
		return SeverityModerate
	default:
		return SeverityNormal
	}
}
