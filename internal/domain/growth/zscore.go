package growth

import (
	"errors"
	"fmt"
	"math"
)

// ZScorePair is the derived deviation of a measurement from the standard.
type ZScorePair struct {
	WeightForAge float64 `json:"weight_for_age"`
	HeightForAge float64 `json:"height_for_age"`
}

// Rounded returns the pair rounded to 2 decimals for display and storage.
func (z ZScorePair) Rounded() ZScorePair {
	return ZScorePair{
		WeightForAge: roundZ(z.WeightForAge),
		HeightForAge: roundZ(z.HeightForAge),
	}
}

// ComputeZScores scores m against the table entry for the age and sex.
//
//	z = (observed - median) / spread
//
// A zero spread for the age bucket is a degenerate standard and fails with
// ErrData. Non-finite or non-positive observations fail with ErrInput.
func ComputeZScores(m Measurement, ageMonths int, sex Sex, t Table) (ZScorePair, error) {
	if t == nil {
		return ZScorePair{}, ErrNoTable
	}
	if !isFinitePositive(m.WeightKg) {
		return ZScorePair{}, NewInputError("weight_kg", "must be a finite positive number")
	}
	if !isFinitePositive(m.HeightCm) {
		return ZScorePair{}, NewInputError("height_cm", "must be a finite positive number")
	}
	if ageMonths < 0 {
		ageMonths = 0
	}

	entry, err := t.Lookup(ageMonths, sex)
	if err != nil {
		return ZScorePair{}, fmt.Errorf("lookup %d months: %w", ageMonths, err)
	}

	return entry.ZScores(m)
}

// ZScores scores m against this entry.
func (e StandardEntry) ZScores(m Measurement) (ZScorePair, error) {
	wfa, err := zscore(m.WeightKg, e.WeightMedianKg, e.WeightSpreadKg)
	if err != nil {
		return ZScorePair{}, dataError("ComputeZScores",
			fmt.Sprintf("weight spread is zero at %d months", e.AgeMonths))
	}
	hfa, err := zscore(m.HeightCm, e.HeightMedianCm, e.HeightSpreadCm)
	if err != nil {
		return ZScorePair{}, dataError("ComputeZScores",
			fmt.Sprintf("height spread is zero at %d months", e.AgeMonths))
	}
	return ZScorePair{WeightForAge: wfa, HeightForAge: hfa}, nil
}

var errZeroSpread = errors.New("zero spread")

func zscore(observed, median, spread float64) (float64, error) {
	if spread == 0 || math.IsNaN(spread) {
		return 0, errZeroSpread
	}
	return (observed - median) / spread, nil
}

func roundZ(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return math.Round(v*100) / 100
}
