package growthstd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cradlecare/cradlecare-hub/internal/domain/growth"
)

func TestLoadFile(t *testing.T) {
	table, err := LoadFile(filepath.Join("testdata", "district.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "district-pilot-2025", table.Version())

	e, err := table.Lookup(6, growth.SexFemale)
	require.NoError(t, err)
	assert.Equal(t, 7.7, e.WeightMedianKg)
	assert.Equal(t, 1.0, e.WeightSpreadKg)

	z, err := growth.ComputeZScores(growth.Measurement{WeightKg: 5.0, HeightCm: 58}, 6, growth.SexUnknown, table)
	require.NoError(t, err)
	assert.InDelta(t, -2.7, z.WeightForAge, 1e-9)
}

func TestParse_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty document", ""},
		{"no entries", "version: v1\nentries: {}\n"},
		{"missing version", "entries:\n  unknown:\n    - {age_months: 0, weight_median_kg: 3, weight_spread_kg: 1, height_median_cm: 50, height_spread_cm: 2}\n"},
		{"unknown field", "version: v1\nentries:\n  unknown:\n    - {age_months: 0, weight_median: 3}\n"},
		{"unknown sex", "version: v1\nentries:\n  other:\n    - {age_months: 0, weight_median_kg: 3, weight_spread_kg: 1, height_median_cm: 50, height_spread_cm: 2}\n"},
		{"decreasing medians", `version: v1
entries:
  unknown:
    - {age_months: 0, weight_median_kg: 4, weight_spread_kg: 1, height_median_cm: 50, height_spread_cm: 2}
    - {age_months: 1, weight_median_kg: 3, weight_spread_kg: 1, height_median_cm: 54, height_spread_cm: 2}
`},
		{"not yaml", "version: [unclosed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, growth.ErrConfiguration)
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join("testdata", "missing.yaml"))
	assert.ErrorIs(t, err, growth.ErrConfiguration)
}

func TestExport_RoundTrip(t *testing.T) {
	data, err := Export(growth.WHO2006Table(), "WHO 2006, 0-24 months")
	require.NoError(t, err)
	assert.Contains(t, string(data), "version: who-2006")

	table, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, growth.WHO2006Table().Entries(), table.Entries())
}
