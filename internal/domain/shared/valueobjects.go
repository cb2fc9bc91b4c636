// Package shared contains common domain types, errors and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"math"
	"regexp"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// InfantID represents a unique infant identifier (UUID format).
type InfantID string

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsValid checks if the infant ID is a valid UUID.
func (i InfantID) IsValid() bool {
	return uuidRegex.MatchString(string(i))
}

// String returns the string representation.
func (i InfantID) String() string {
	return string(i)
}

// ═══════════════════════════════════════════════════════════════════════════
// Open interval (plausibility bounds)
// ═══════════════════════════════════════════════════════════════════════════

// OpenRange is the open interval (Min, Max).
type OpenRange struct {
	Min  float64
	Max  float64
	Unit string
}

// Contains reports whether v lies strictly inside the range.
// NaN and infinities are never contained.
func (r OpenRange) Contains(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v > r.Min && v < r.Max
}

// String renders the range as "between 0.5 and 40 kg".
func (r OpenRange) String() string {
	return fmt.Sprintf("between %g and %g %s", r.Min, r.Max, r.Unit)
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
