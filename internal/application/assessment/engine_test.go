package assessment

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cradlecare/cradlecare-hub/internal/domain/growth"
	"github.com/cradlecare/cradlecare-hub/pkg/logger"
	"github.com/cradlecare/cradlecare-hub/pkg/timeutil"
)

var (
	birth      = timeutil.Date(2025, 1, 15)
	sixMonths  = timeutil.Date(2025, 7, 15)
	assessedAt = time.Date(2025, 7, 15, 9, 30, 0, 0, time.UTC)
)

func testTable(t *testing.T) *growth.SliceTable {
	t.Helper()
	table, err := growth.NewSliceTable("test-v1", map[growth.Sex][]growth.StandardEntry{
		growth.SexUnknown: {
			{AgeMonths: 0, WeightMedianKg: 3.3, WeightSpreadKg: 0.5, HeightMedianCm: 49.9, HeightSpreadCm: 1.9},
			{AgeMonths: 6, WeightMedianKg: 7.7, WeightSpreadKg: 1.0, HeightMedianCm: 58.0, HeightSpreadCm: 2.0},
		},
	})
	require.NoError(t, err)
	return table
}

func testInfant() growth.Infant {
	return growth.Infant{ID: "infant-1", DateOfBirth: birth, Sex: growth.SexUnknown}
}

func measure(w, h float64) growth.Measurement {
	return growth.Measurement{WeightKg: w, HeightCm: h, MeasuredAt: sixMonths}
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	base := []Option{
		WithClock(func() time.Time { return assessedAt }),
		WithIDGenerator(func() string { return "assessment-1" }),
	}
	e, err := NewEngine(testTable(t), append(base, opts...)...)
	require.NoError(t, err)
	return e
}

var failing = growth.GeneratorFunc(func(context.Context, growth.Summary) (growth.Advice, error) {
	return growth.Advice{}, errors.New("model process not running")
})

func TestNewEngine_RequiresTable(t *testing.T) {
	_, err := NewEngine(nil)
	assert.ErrorIs(t, err, growth.ErrConfiguration)
}

func TestAssess_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		weight   float64
		wantWFA  float64
		wantCase growth.Classification
	}{
		{"below median", 5.0, -2.7, growth.Classification{PrimaryFactor: growth.FactorUnderweight, Severity: growth.SeverityModerate}},
		{"far below median", 4.0, -3.7, growth.Classification{PrimaryFactor: growth.FactorUnderweight, Severity: growth.SeveritySevere}},
		{"at median", 7.7, 0, growth.Classification{PrimaryFactor: growth.FactorNormal, Severity: growth.SeverityNormal}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t)

			a, err := e.Assess(context.Background(), measure(tt.weight, 58), testInfant())
			require.NoError(t, err)

			assert.Equal(t, 6, a.AgeMonths)
			assert.InDelta(t, tt.wantWFA, a.ZScores.WeightForAge, 1e-9)
			assert.InDelta(t, 0, a.ZScores.HeightForAge, 1e-9)
			assert.Equal(t, tt.wantCase, a.Classification)
			assert.Equal(t, "assessment-1", a.ID)
			assert.Equal(t, "infant-1", a.InfantID)
			assert.Equal(t, "test-v1", a.StandardVersion)
			assert.Equal(t, assessedAt, a.AssessedAt)
			assert.Equal(t, growth.GeneratedByFallback, a.GeneratedBy)
			assert.NotEmpty(t, a.AdvisoryText)
		})
	}
}

func TestAssess_FallbackForEveryCategory(t *testing.T) {
	cases := []struct {
		weight, height float64
		want           growth.Classification
	}{
		{7.7, 58, growth.Classification{PrimaryFactor: growth.FactorNormal, Severity: growth.SeverityNormal}},
		{5.0, 58, growth.Classification{PrimaryFactor: growth.FactorUnderweight, Severity: growth.SeverityModerate}},
		{4.0, 58, growth.Classification{PrimaryFactor: growth.FactorUnderweight, Severity: growth.SeveritySevere}},
		{7.7, 53.5, growth.Classification{PrimaryFactor: growth.FactorStunting, Severity: growth.SeverityModerate}},
		{7.7, 51, growth.Classification{PrimaryFactor: growth.FactorStunting, Severity: growth.SeveritySevere}},
		{5.0, 53.5, growth.Classification{PrimaryFactor: growth.FactorUnderweightAndStunting, Severity: growth.SeverityModerate}},
		{4.0, 53.5, growth.Classification{PrimaryFactor: growth.FactorUnderweightAndStunting, Severity: growth.SeveritySevere}},
		{4.0, 51, growth.Classification{PrimaryFactor: growth.FactorUnderweightAndStunting, Severity: growth.SeveritySevere}},
	}

	e := newTestEngine(t, WithGenerator(failing))
	for _, c := range cases {
		o, err := e.AssessDetailed(context.Background(), measure(c.weight, c.height), testInfant())
		require.NoError(t, err)

		a := o.Assessment
		assert.Equal(t, c.want, a.Classification)
		assert.Equal(t, growth.GeneratedByFallback, a.GeneratedBy)
		assert.NotEmpty(t, strings.TrimSpace(a.AdvisoryText))
		assert.Equal(t, growth.FallbackAdvice(c.want).Suggestion, a.AdvisoryText)
		assert.Equal(t, c.want.RiskStatus(), a.RiskLevel)
		assert.ErrorIs(t, o.AdvisoryErr, growth.ErrAdvisoryUnavailable)
	}
}

func TestAssess_ModelAdvice(t *testing.T) {
	var got growth.Summary
	gen := growth.GeneratorFunc(func(_ context.Context, s growth.Summary) (growth.Advice, error) {
		got = s
		return growth.Advice{RiskLevel: "Moderate", Suggestion: "Add an egg to the daily diet."}, nil
	})
	e := newTestEngine(t, WithGenerator(gen))

	a, err := e.Assess(context.Background(), measure(5.0, 58), testInfant())
	require.NoError(t, err)

	assert.Equal(t, growth.GeneratedByModel, a.GeneratedBy)
	assert.Equal(t, "Add an egg to the daily diet.", a.AdvisoryText)
	assert.Equal(t, "Moderate", a.RiskLevel)

	assert.Equal(t, 6, got.AgeMonths)
	assert.Equal(t, -2.7, got.WeightForAge)
	assert.Equal(t, growth.FactorUnderweight, got.PrimaryFactor)
	assert.Equal(t, growth.SeverityModerate, got.Severity)
}

func TestAssess_GeneratorTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	hanging := growth.GeneratorFunc(func(ctx context.Context, _ growth.Summary) (growth.Advice, error) {
		<-release
		return growth.Advice{RiskLevel: "late", Suggestion: "late"}, nil
	})
	e := newTestEngine(t, WithGenerator(hanging), WithTimeout(20*time.Millisecond))

	start := time.Now()
	o, err := e.AssessDetailed(context.Background(), measure(5.0, 58), testInfant())
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, growth.GeneratedByFallback, o.Assessment.GeneratedBy)
	assert.ErrorIs(t, o.AdvisoryErr, context.DeadlineExceeded)
}

func TestAssess_MalformedAndPanickingGenerators(t *testing.T) {
	generators := map[string]growth.Generator{
		"empty suggestion": growth.GeneratorFunc(func(context.Context, growth.Summary) (growth.Advice, error) {
			return growth.Advice{RiskLevel: "Moderate"}, nil
		}),
		"empty risk level": growth.GeneratorFunc(func(context.Context, growth.Summary) (growth.Advice, error) {
			return growth.Advice{Suggestion: "eat"}, nil
		}),
		"panics": growth.GeneratorFunc(func(context.Context, growth.Summary) (growth.Advice, error) {
			panic("nil map")
		}),
	}

	for name, gen := range generators {
		t.Run(name, func(t *testing.T) {
			e := newTestEngine(t, WithGenerator(gen))
			o, err := e.AssessDetailed(context.Background(), measure(5.0, 58), testInfant())
			require.NoError(t, err)
			assert.Equal(t, growth.GeneratedByFallback, o.Assessment.GeneratedBy)
			assert.Equal(t, growth.FallbackAdvice(o.Assessment.Classification).Suggestion, o.Assessment.AdvisoryText)
			assert.ErrorIs(t, o.AdvisoryErr, growth.ErrAdvisoryUnavailable)
		})
	}
}

func TestAssess_NoGeneratorIsNotAFailure(t *testing.T) {
	e := newTestEngine(t)
	o, err := e.AssessDetailed(context.Background(), measure(5.0, 58), testInfant())
	require.NoError(t, err)
	assert.NoError(t, o.AdvisoryErr)
	assert.True(t, o.Assessment.IsFallback())
}

func TestAssess_CancelledContextStillAssesses(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := growth.GeneratorFunc(func(ctx context.Context, _ growth.Summary) (growth.Advice, error) {
		<-ctx.Done()
		return growth.Advice{}, ctx.Err()
	})
	e := newTestEngine(t, WithGenerator(gen))

	a, err := e.Assess(ctx, measure(4.0, 58), testInfant())
	require.NoError(t, err)
	assert.Equal(t, growth.GeneratedByFallback, a.GeneratedBy)
	assert.True(t, a.NeedsReferral())
}

func TestAssess_AgeClamp(t *testing.T) {
	e := newTestEngine(t)
	m := growth.Measurement{WeightKg: 3.3, HeightCm: 49.9, MeasuredAt: birth.AddDate(0, -2, 0)}

	a, err := e.Assess(context.Background(), m, testInfant())
	require.NoError(t, err)
	assert.Equal(t, 0, a.AgeMonths)
	assert.True(t, a.Classification.IsNormal())
}

func TestAssess_MissingMeasuredAtUsesClock(t *testing.T) {
	e := newTestEngine(t)
	m := growth.Measurement{WeightKg: 5.0, HeightCm: 58}

	a, err := e.Assess(context.Background(), m, testInfant())
	require.NoError(t, err)
	assert.Equal(t, assessedAt, a.Measurement.MeasuredAt)
	assert.Equal(t, 6, a.AgeMonths)
}

func TestAssess_Errors(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Assess(ctx, measure(0.2, 58), testInfant())
	assert.ErrorIs(t, err, growth.ErrInput)
	ie, ok := growth.AsInputError(err)
	require.True(t, ok)
	assert.Equal(t, "weight_kg", ie.Field)

	_, err = e.Assess(ctx, measure(5.0, 200), testInfant())
	assert.ErrorIs(t, err, growth.ErrInput)

	_, err = e.Assess(ctx, measure(5.0, 58), growth.Infant{ID: "no-dob"})
	assert.ErrorIs(t, err, growth.ErrInput)

	degenerate, err := growth.NewSliceTable("broken", map[growth.Sex][]growth.StandardEntry{
		growth.SexUnknown: {{AgeMonths: 6, WeightMedianKg: 7.7, WeightSpreadKg: 0, HeightMedianCm: 58, HeightSpreadCm: 2}},
	})
	require.NoError(t, err)
	broken, err := NewEngine(degenerate)
	require.NoError(t, err)

	_, err = broken.Assess(ctx, measure(5.0, 58), testInfant())
	assert.ErrorIs(t, err, growth.ErrData)
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []*Outcome
}

func (r *recordingObserver) ObserveAssessment(o *Outcome) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, o)
	r.mu.Unlock()
}

func TestAssess_ObserverAndWarnLog(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Output: &buf, Level: logger.LevelDebug})
	obs := &recordingObserver{}

	e := newTestEngine(t, WithGenerator(failing), WithObserver(obs), WithLogger(log))
	_, err := e.Assess(context.Background(), measure(5.0, 58), testInfant())
	require.NoError(t, err)

	require.Len(t, obs.outcomes, 1)
	assert.Error(t, obs.outcomes[0].AdvisoryErr)

	out := buf.String()
	assert.Contains(t, out, `"level":"WARN"`)
	assert.Contains(t, out, "model process not running")
	assert.Contains(t, out, `"infant_id":"infant-1"`)
}

func TestAssess_ConcurrentUse(t *testing.T) {
	e := newTestEngine(t, WithGenerator(failing))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := e.Assess(context.Background(), measure(5.0, 58), testInfant())
			assert.NoError(t, err)
			assert.Equal(t, growth.SeverityModerate, a.Classification.Severity)
		}()
	}
	wg.Wait()
}
