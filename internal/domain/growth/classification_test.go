package growth

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_Thresholds(t *testing.T) {
	tests := []struct {
		name string
		z    ZScorePair
		want Classification
	}{
		{"normal at median", ZScorePair{0, 0}, Classification{FactorNormal, SeverityNormal}},
		{"just above moderate", ZScorePair{-1.999, -1.999}, Classification{FactorNormal, SeverityNormal}},
		{"weight exactly -2 is moderate", ZScorePair{-2.0, 0}, Classification{FactorUnderweight, SeverityModerate}},
		{"weight between bands", ZScorePair{-2.7, 0}, Classification{FactorUnderweight, SeverityModerate}},
		{"weight just above severe", ZScorePair{-2.999, 0}, Classification{FactorUnderweight, SeverityModerate}},
		{"weight exactly -3 is severe", ZScorePair{-3.0, 0}, Classification{FactorUnderweight, SeveritySevere}},
		{"weight far below", ZScorePair{-3.7, 0}, Classification{FactorUnderweight, SeveritySevere}},
		{"height exactly -2 is moderate", ZScorePair{0, -2.0}, Classification{FactorStunting, SeverityModerate}},
		{"height exactly -3 is severe", ZScorePair{0, -3.0}, Classification{FactorStunting, SeveritySevere}},
		{"both moderate", ZScorePair{-2.5, -2.1}, Classification{FactorUnderweightAndStunting, SeverityModerate}},
		{"weight severe height moderate", ZScorePair{-3.5, -2.1}, Classification{FactorUnderweightAndStunting, SeveritySevere}},
		{"weight moderate height severe", ZScorePair{-2.1, -4}, Classification{FactorUnderweightAndStunting, SeveritySevere}},
		{"above median is normal", ZScorePair{3.5, 4}, Classification{FactorNormal, SeverityNormal}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.z))
		})
	}
}

func TestClassify_NonFinite(t *testing.T) {
	assert.Equal(t, Classification{FactorNormal, SeverityNormal},
		Classify(ZScorePair{math.NaN(), math.NaN()}))
	assert.Equal(t, Classification{FactorUnderweight, SeveritySevere},
		Classify(ZScorePair{math.Inf(-1), math.NaN()}))
	assert.Equal(t, Classification{FactorNormal, SeverityNormal},
		Classify(ZScorePair{math.Inf(1), 0}))
}

func TestClassify_Deterministic(t *testing.T) {
	for w := -5.0; w <= 1.0; w += 0.25 {
		for h := -5.0; h <= 1.0; h += 0.25 {
			z := ZScorePair{w, h}
			assert.Equal(t, Classify(z), Classify(z))
		}
	}
}

func TestClassify_MonotonicInWeight(t *testing.T) {
	for _, h := range []float64{1, -2, -2.5, -3, -4} {
		prev := Classify(ZScorePair{2, h}).Severity.Rank()
		for w := 2.0; w >= -6; w -= 0.05 {
			rank := Classify(ZScorePair{w, h}).Severity.Rank()
			assert.GreaterOrEqual(t, rank, prev, "severity dropped at w=%.2f h=%.2f", w, h)
			prev = rank
		}
	}
}

func TestClassification_RiskStatus(t *testing.T) {
	assert.Equal(t, "Normal", Classification{FactorNormal, SeverityNormal}.RiskStatus())
	assert.Equal(t, "Moderate Underweight", Classification{FactorUnderweight, SeverityModerate}.RiskStatus())
	assert.Equal(t, "Severe Stunting", Classification{FactorStunting, SeveritySevere}.RiskStatus())
	assert.Equal(t, "Severe Underweight and Stunting",
		Classification{FactorUnderweightAndStunting, SeveritySevere}.RiskStatus())
}

func TestSeverity_Max(t *testing.T) {
	assert.Equal(t, SeveritySevere, SeverityModerate.Max(SeveritySevere))
	assert.Equal(t, SeveritySevere, SeveritySevere.Max(SeverityNormal))
	assert.Equal(t, SeverityModerate, SeverityNormal.Max(SeverityModerate))
}
