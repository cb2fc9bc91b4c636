package growth

import (
	"fmt"
	"math"
	"sort"
)

// ══════════════════════════════════════════════════════════════════════════════
// GROWTH STANDARD CONTRACT
// ══════════════════════════════════════════════════════════════════════════════

// StandardEntry holds reference medians and spreads for one age bucket.
// Spreads are statistical spreads from the standard (one standard deviation
// below the median), never a fraction of the median.
type StandardEntry struct {
	AgeMonths      int     `json:"age_months" yaml:"age_months"`
	WeightMedianKg float64 `json:"weight_median_kg" yaml:"weight_median_kg"`
	WeightSpreadKg float64 `json:"weight_spread_kg" yaml:"weight_spread_kg"`
	HeightMedianCm float64 `json:"height_median_cm" yaml:"height_median_cm"`
	HeightSpreadCm float64 `json:"height_spread_cm" yaml:"height_spread_cm"`
}

// Table is a versioned growth standard.
// Lookup clamps ages outside the defined range to the nearest entry.
type Table interface {
	Lookup(ageMonths int, sex Sex) (StandardEntry, error)
	Version() string
}

// ══════════════════════════════════════════════════════════════════════════════
// SLICE TABLE
// ══════════════════════════════════════════════════════════════════════════════

// SliceTable is a table backed by ordered entries, optionally per sex.
//
// Resolution order for a lookup:
//  1. the list for the requested sex
//  2. for SexUnknown (or a missing sex list) with both male and female lists,
//     the mean of the two entries
//  3. the SexUnknown list
//  4. the only list present
//
// Between defined ages the entry at or below the requested age is used.
type SliceTable struct {
	version string
	bySex   map[Sex][]StandardEntry
}

// NewSliceTable validates and builds a SliceTable.
// It fails with a configuration error when the table is empty or malformed.
func NewSliceTable(version string, entries map[Sex][]StandardEntry) (*SliceTable, error) {
	t := &SliceTable{
		version: version,
		bySex:   make(map[Sex][]StandardEntry, len(entries)),
	}

	for sex, list := range entries {
		if len(list) == 0 {
			continue
		}
		if !sex.IsValid() {
			return nil, configurationError("NewTable", fmt.Sprintf("unknown sex %q", sex))
		}

		sorted := make([]StandardEntry, len(list))
		copy(sorted, list)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].AgeMonths < sorted[j].AgeMonths })

		if err := validateEntries(sex, sorted); err != nil {
			return nil, err
		}
		t.bySex[sex] = sorted
	}

	if len(t.bySex) == 0 {
		return nil, ErrEmptyTable
	}

	return t, nil
}

// MustSliceTable is NewSliceTable for package-level tables; it panics on error.
func MustSliceTable(version string, entries map[Sex][]StandardEntry) *SliceTable {
	t, err := NewSliceTable(version, entries)
	if err != nil {
		panic(err)
	}
	return t
}

func validateEntries(sex Sex, entries []StandardEntry) error {
	for i, e := range entries {
		if e.AgeMonths < 0 {
			return configurationError("NewTable", fmt.Sprintf("%s: negative age %d", sex, e.AgeMonths))
		}
		for name, v := range map[string]float64{
			"weight_median_kg": e.WeightMedianKg,
			"weight_spread_kg": e.WeightSpreadKg,
			"height_median_cm": e.HeightMedianCm,
			"height_spread_cm": e.HeightSpreadCm,
		} {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return configurationError("NewTable",
					fmt.Sprintf("%s: age %d: %s must be a finite non-negative number", sex, e.AgeMonths, name))
			}
		}
		if i == 0 {
			continue
		}

		prev := entries[i-1]
		if e.AgeMonths == prev.AgeMonths {
			return configurationError("NewTable", fmt.Sprintf("%s: duplicate age %d", sex, e.AgeMonths))
		}
		if e.WeightMedianKg < prev.WeightMedianKg || e.HeightMedianCm < prev.HeightMedianCm {
			return configurationError("NewTable",
				fmt.Sprintf("%s: medians decrease between %d and %d months", sex, prev.AgeMonths, e.AgeMonths))
		}
	}
	return nil
}

// Version returns the table version label, e.g. "who-2006".
func (t *SliceTable) Version() string {
	return t.version
}

// Lookup returns the entry for the age, clamped to the table bounds.
func (t *SliceTable) Lookup(ageMonths int, sex Sex) (StandardEntry, error) {
	if list, ok := t.bySex[sex]; ok {
		return lookupClamped(list, ageMonths), nil
	}

	male, hasMale := t.bySex[SexMale]
	female, hasFemale := t.bySex[SexFemale]
	if hasMale && hasFemale {
		return blend(lookupClamped(male, ageMonths), lookupClamped(female, ageMonths), ageMonths), nil
	}

	if list, ok := t.bySex[SexUnknown]; ok {
		return lookupClamped(list, ageMonths), nil
	}

	for _, list := range t.bySex {
		return lookupClamped(list, ageMonths), nil
	}

	return StandardEntry{}, ErrEmptyTable
}

// Entries returns a copy of the entries per sex, ordered by age.
func (t *SliceTable) Entries() map[Sex][]StandardEntry {
	out := make(map[Sex][]StandardEntry, len(t.bySex))
	for sex, list := range t.bySex {
		out[sex] = append([]StandardEntry(nil), list...)
	}
	return out
}

// Range returns the youngest and oldest defined ages across all lists.
func (t *SliceTable) Range() (minAge, maxAge int) {
	first := true
	for _, list := range t.bySex {
		lo, hi := list[0].AgeMonths, list[len(list)-1].AgeMonths
		if first || lo < minAge {
			minAge = lo
		}
		if first || hi > maxAge {
			maxAge = hi
		}
		first = false
	}
	return minAge, maxAge
}

func lookupClamped(list []StandardEntry, ageMonths int) StandardEntry {
	if ageMonths <= list[0].AgeMonths {
		return list[0]
	}
	last := list[len(list)-1]
	if ageMonths >= last.AgeMonths {
		return last
	}

	// First entry strictly older than the requested age; the one before it
	// is the bucket the age falls into.
	i := sort.Search(len(list), func(i int) bool { return list[i].AgeMonths > ageMonths })
	return list[i-1]
}

func blend(a, b StandardEntry, ageMonths int) StandardEntry {
	return StandardEntry{
		AgeMonths:      ageMonths,
		WeightMedianKg: (a.WeightMedianKg + b.WeightMedianKg) / 2,
		WeightSpreadKg: (a.WeightSpreadKg + b.WeightSpreadKg) / 2,
		HeightMedianCm: (a.HeightMedianCm + b.HeightMedianCm) / 2,
		HeightSpreadCm: (a.HeightSpreadCm + b.HeightSpreadCm) / 2,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// LINEAR APPROXIMATION
// ══════════════════════════════════════════════════════════════════════════════

// LinearApproxTable is a closed-form proxy: medians grow linearly with age
// and spreads are constant. Intended for tests and demos only.
type LinearApproxTable struct {
	WeightBaseKg     float64
	WeightPerMonthKg float64
	WeightSpreadKg   float64
	HeightBaseCm     float64
	HeightPerMonthCm float64
	HeightSpreadCm   float64
	MaxAgeMonths     int
}

// DefaultLinearApproxTable starts at 3.5 kg / 50 cm and adds 0.7 kg / 2 cm
// per month up to five years.
func DefaultLinearApproxTable() LinearApproxTable {
	return LinearApproxTable{
		WeightBaseKg:     3.5,
		WeightPerMonthKg: 0.7,
		WeightSpreadKg:   1.0,
		HeightBaseCm:     50.0,
		HeightPerMonthCm: 2.0,
		HeightSpreadCm:   2.2,
		MaxAgeMonths:     60,
	}
}

// Version implements Table.
func (t LinearApproxTable) Version() string {
	return "linear-approx"
}

// Lookup implements Table. Sex is ignored.
func (t LinearApproxTable) Lookup(ageMonths int, _ Sex) (StandardEntry, error) {
	if ageMonths < 0 {
		ageMonths = 0
	}
	if t.MaxAgeMonths > 0 && ageMonths > t.MaxAgeMonths {
		ageMonths = t.MaxAgeMonths
	}

	m := float64(ageMonths)
	return StandardEntry{
		AgeMonths:      ageMonths,
		WeightMedianKg: t.WeightBaseKg + m*t.WeightPerMonthKg,
		WeightSpreadKg: t.WeightSpreadKg,
		HeightMedianCm: t.HeightBaseCm + m*t.HeightPerMonthCm,
		HeightSpreadCm: t.HeightSpreadCm,
	}, nil
}
