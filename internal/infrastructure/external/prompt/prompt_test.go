package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cradlecare/cradlecare-hub/internal/domain/growth"
)

func TestRender(t *testing.T) {
	s := growth.Summary{
		AgeMonths:     6,
		WeightKg:      5,
		HeightCm:      58,
		WeightForAge:  -2.7,
		HeightForAge:  0,
		PrimaryFactor: growth.FactorUnderweight,
		Severity:      growth.SeverityModerate,
	}

	out, err := Render(s)
	require.NoError(t, err)

	assert.Contains(t, out, "Age: 6 months")
	assert.Contains(t, out, "Weight: 5.00 kg (weight-for-age z-score: -2.70)")
	assert.Contains(t, out, "Primary risk factor: Underweight")
	assert.Contains(t, out, `"risk_level": "Moderate Underweight"`)
	assert.NotContains(t, out, "immediate referral")
}

func TestRender_SevereAsksForReferral(t *testing.T) {
	out, err := Render(growth.Summary{
		AgeMonths:     10,
		WeightKg:      5,
		HeightCm:      62,
		WeightForAge:  -3.4,
		HeightForAge:  -3.1,
		PrimaryFactor: growth.FactorUnderweightAndStunting,
		Severity:      growth.SeveritySevere,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Underweight and Stunting")
	assert.Contains(t, out, "immediate referral")
}
