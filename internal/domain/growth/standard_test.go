package growth

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(age int, wMed, wSpread, hMed, hSpread float64) StandardEntry {
	return StandardEntry{AgeMonths: age, WeightMedianKg: wMed, WeightSpreadKg: wSpread, HeightMedianCm: hMed, HeightSpreadCm: hSpread}
}

func TestNewSliceTable_Empty(t *testing.T) {
	_, err := NewSliceTable("empty", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))

	_, err = NewSliceTable("empty", map[Sex][]StandardEntry{SexMale: {}})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestNewSliceTable_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		entries []StandardEntry
	}{
		{"negative age", []StandardEntry{entry(-1, 3, 1, 50, 2)}},
		{"duplicate age", []StandardEntry{entry(0, 3, 1, 50, 2), entry(0, 3.1, 1, 51, 2)}},
		{"decreasing weight median", []StandardEntry{entry(0, 3.5, 1, 50, 2), entry(1, 3.4, 1, 54, 2)}},
		{"decreasing height median", []StandardEntry{entry(0, 3.5, 1, 50, 2), entry(1, 4.4, 1, 49, 2)}},
		{"negative spread", []StandardEntry{entry(0, 3.5, -1, 50, 2)}},
		{"NaN median", []StandardEntry{entry(0, math.NaN(), 1, 50, 2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSliceTable("bad", map[Sex][]StandardEntry{SexUnknown: tt.entries})
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestSliceTable_LookupClamps(t *testing.T) {
	table, err := NewSliceTable("test", map[Sex][]StandardEntry{
		SexUnknown: {entry(6, 7.7, 1, 66, 2), entry(0, 3.5, 0.5, 50, 2), entry(3, 5.6, 0.7, 60, 2)},
	})
	require.NoError(t, err)

	tests := []struct {
		age     int
		wantAge int
	}{
		{-4, 0},
		{0, 0},
		{2, 0},
		{3, 3},
		{5, 3},
		{6, 6},
		{120, 6},
	}

	for _, tt := range tests {
		e, err := table.Lookup(tt.age, SexMale)
		require.NoError(t, err)
		assert.Equal(t, tt.wantAge, e.AgeMonths, "age %d", tt.age)
	}

	lo, hi := table.Range()
	assert.Equal(t, 0, lo)
	assert.Equal(t, 6, hi)
}

func TestSliceTable_SexResolution(t *testing.T) {
	table, err := NewSliceTable("test", map[Sex][]StandardEntry{
		SexMale:   {entry(0, 4, 1, 50, 2)},
		SexFemale: {entry(0, 3, 0.5, 48, 1)},
	})
	require.NoError(t, err)

	male, _ := table.Lookup(0, SexMale)
	assert.Equal(t, 4.0, male.WeightMedianKg)

	female, _ := table.Lookup(0, SexFemale)
	assert.Equal(t, 3.0, female.WeightMedianKg)

	unknown, _ := table.Lookup(0, SexUnknown)
	assert.InDelta(t, 3.5, unknown.WeightMedianKg, 1e-9)
	assert.InDelta(t, 0.75, unknown.WeightSpreadKg, 1e-9)
	assert.InDelta(t, 49.0, unknown.HeightMedianCm, 1e-9)
}

func TestWHO2006Table(t *testing.T) {
	table := WHO2006Table()
	assert.Equal(t, WHO2006Version, table.Version())

	lo, hi := table.Range()
	assert.Equal(t, 0, lo)
	assert.Equal(t, 24, hi)

	boy, err := table.Lookup(6, SexMale)
	require.NoError(t, err)
	assert.InDelta(t, 7.9, boy.WeightMedianKg, 1e-9)
	assert.InDelta(t, 67.6, boy.HeightMedianCm, 1e-9)
	assert.Greater(t, boy.WeightSpreadKg, 0.0)

	// Beyond the table the last entry is used.
	old, err := table.Lookup(40, SexFemale)
	require.NoError(t, err)
	assert.Equal(t, 24, old.AgeMonths)

	for _, sex := range []Sex{SexMale, SexFemale, SexUnknown} {
		for age := 0; age <= 24; age++ {
			e, err := table.Lookup(age, sex)
			require.NoError(t, err)
			assert.Greater(t, e.WeightSpreadKg, 0.0)
			assert.Greater(t, e.HeightSpreadCm, 0.0)
		}
	}
}

func TestLinearApproxTable(t *testing.T) {
	table := DefaultLinearApproxTable()
	assert.Equal(t, "linear-approx", table.Version())

	e, err := table.Lookup(6, SexUnknown)
	require.NoError(t, err)
	assert.InDelta(t, 7.7, e.WeightMedianKg, 1e-9)
	assert.InDelta(t, 62.0, e.HeightMedianCm, 1e-9)
	assert.Equal(t, 1.0, e.WeightSpreadKg)

	capped, _ := table.Lookup(500, SexUnknown)
	assert.Equal(t, 60, capped.AgeMonths)

	negative, _ := table.Lookup(-3, SexUnknown)
	assert.Equal(t, 0, negative.AgeMonths)
}

func TestComputeZScores(t *testing.T) {
	table := DefaultLinearApproxTable()

	z, err := ComputeZScores(Measurement{WeightKg: 5.0, HeightCm: 58}, 6, SexUnknown, table)
	require.NoError(t, err)
	assert.InDelta(t, -2.7, z.WeightForAge, 1e-9)
	assert.InDelta(t, (58-62.0)/2.2, z.HeightForAge, 1e-9)

	z, err = ComputeZScores(Measurement{WeightKg: 7.7, HeightCm: 62}, 6, SexUnknown, table)
	require.NoError(t, err)
	assert.InDelta(t, 0, z.WeightForAge, 1e-9)
	assert.InDelta(t, 0, z.HeightForAge, 1e-9)
}

func TestComputeZScores_ZeroSpread(t *testing.T) {
	table, err := NewSliceTable("degenerate", map[Sex][]StandardEntry{
		SexUnknown: {entry(0, 3.5, 1, 50, 2), entry(6, 7.7, 0, 66, 2)},
	})
	require.NoError(t, err)

	_, err = ComputeZScores(Measurement{WeightKg: 3.5, HeightCm: 50}, 0, SexUnknown, table)
	assert.NoError(t, err)

	_, err = ComputeZScores(Measurement{WeightKg: 7, HeightCm: 64}, 7, SexUnknown, table)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrData)
	assert.NotErrorIs(t, err, ErrInput)
}

func TestComputeZScores_BadInput(t *testing.T) {
	table := DefaultLinearApproxTable()

	for _, m := range []Measurement{
		{WeightKg: 0, HeightCm: 60},
		{WeightKg: -1, HeightCm: 60},
		{WeightKg: math.NaN(), HeightCm: 60},
		{WeightKg: 5, HeightCm: math.Inf(1)},
	} {
		_, err := ComputeZScores(m, 6, SexUnknown, table)
		assert.ErrorIs(t, err, ErrInput)
	}

	_, err := ComputeZScores(Measurement{WeightKg: 5, HeightCm: 60}, 6, SexUnknown, nil)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestMeasurement_Validate(t *testing.T) {
	assert.NoError(t, Measurement{WeightKg: 5, HeightCm: 60}.Validate())

	err := Measurement{WeightKg: 0.5, HeightCm: 60}.Validate()
	require.Error(t, err)
	ie, ok := AsInputError(err)
	require.True(t, ok)
	assert.Equal(t, "weight_kg", ie.Field)
	assert.Contains(t, ie.Message, "Invalid weight. Please enter a value between 0.5 and 40 kg.")

	err = Measurement{WeightKg: 5, HeightCm: 150}.Validate()
	ie, ok = AsInputError(err)
	require.True(t, ok)
	assert.Equal(t, "height_cm", ie.Field)
	assert.ErrorIs(t, err, ErrInput)
}

func TestAgeInMonths(t *testing.T) {
	dob := time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, AgeInMonths(dob, dob))
	assert.Equal(t, 0, AgeInMonths(dob, dob.AddDate(0, 0, -10)))
	assert.Equal(t, 6, AgeInMonths(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 5, AgeInMonths(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC)))
}
