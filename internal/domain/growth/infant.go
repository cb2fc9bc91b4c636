package growth

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cradlecare/cradlecare-hub/internal/domain/shared"
	"github.com/cradlecare/cradlecare-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEX
// ══════════════════════════════════════════════════════════════════════════════

// Sex refines the growth standard lookup. Unknown is always accepted.
type Sex string

const (
	SexUnknown Sex = "unknown"
	SexMale    Sex = "male"
	SexFemale  Sex = "female"
)

// IsValid checks if the sex is one of the known values.
func (s Sex) IsValid() bool {
	switch s {
	case SexUnknown, SexMale, SexFemale:
		return true
	}
	return false
}

// String returns the string representation.
func (s Sex) String() string {
	if s == "" {
		return string(SexUnknown)
	}
	return string(s)
}

// ParseSex maps free-form input ("Male", "F", "girl") to a Sex.
// Anything unrecognised is SexUnknown.
func ParseSex(s string) Sex {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "boy":
		return SexMale
	case "female", "f", "girl":
		return SexFemale
	default:
		return SexUnknown
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// INFANT
// ══════════════════════════════════════════════════════════════════════════════

// Infant is owned by the persistence layer; the engine only reads the birth
// date and sex.
type Infant struct {
	ID          string
	Name        string
	MotherName  string
	DateOfBirth time.Time
	Sex         Sex

	// RiskStatus is the display string of the most recent assessment.
	RiskStatus string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the fields the engine depends on.
func (i Infant) Validate() error {
	if i.DateOfBirth.IsZero() {
		return shared.ErrInvalidBirthDate
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MEASUREMENT
// ══════════════════════════════════════════════════════════════════════════════

// Physically plausible bounds. Values outside are rejected, not scored.
var (
	WeightBounds = shared.OpenRange{Min: 0.5, Max: 40, Unit: "kg"}
	HeightBounds = shared.OpenRange{Min: 20, Max: 150, Unit: "cm"}
)

// Measurement is a single weight/height observation.
type Measurement struct {
	WeightKg   float64   `json:"weight_kg"`
	HeightCm   float64   `json:"height_cm"`
	MeasuredAt time.Time `json:"measured_at"`
}

// Validate rejects measurements that would produce nonsense z-scores.
func (m Measurement) Validate() error {
	if !WeightBounds.Contains(m.WeightKg) {
		return NewInputError("weight_kg",
			fmt.Sprintf("Invalid weight. Please enter a value %s.", WeightBounds))
	}
	if !HeightBounds.Contains(m.HeightCm) {
		return NewInputError("height_cm",
			fmt.Sprintf("Invalid height. Please enter a value %s.", HeightBounds))
	}
	return nil
}

// Rounded returns the measurement with weight and height rounded to 2 decimals.
func (m Measurement) Rounded() Measurement {
	m.WeightKg = shared.Round(m.WeightKg, 2)
	m.HeightCm = shared.Round(m.HeightCm, 2)
	return m
}

// isFinitePositive reports whether v is a usable observation.
func isFinitePositive(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// AgeInMonths returns whole calendar months between birth and measurement,
// clamped at 0 for measurements dated before birth.
func AgeInMonths(dateOfBirth, measuredAt time.Time) int {
	months := timeutil.WholeMonthsBetween(dateOfBirth, measuredAt)
	if months < 0 {
		return 0
	}
	return months
}
