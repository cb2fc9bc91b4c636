package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cradlecare/cradlecare-hub/internal/application/assessment"
	"github.com/cradlecare/cradlecare-hub/internal/domain/growth"
	"github.com/cradlecare/cradlecare-hub/pkg/circuitbreaker"
)

func TestObserveAssessment(t *testing.T) {
	m := New()

	m.ObserveAssessment(&assessment.Outcome{
		Assessment: &growth.Assessment{
			Classification: growth.Classification{PrimaryFactor: growth.FactorUnderweight, Severity: growth.SeverityModerate},
			GeneratedBy:    growth.GeneratedByFallback,
		},
		AdvisoryLatency: 120 * time.Millisecond,
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.assessments.WithLabelValues("Underweight", "Moderate", "fallback")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.advisoryLatency))
}

func TestFailureKind(t *testing.T) {
	assert.Equal(t, "input", FailureKind(growth.NewInputError("weight_kg", "too low")))
	assert.Equal(t, "data", FailureKind(fmt.Errorf("assess: %w", growth.ErrData)))
	assert.Equal(t, "configuration", FailureKind(growth.ErrEmptyTable))
	assert.Equal(t, "internal", FailureKind(errors.New("db down")))

	m := New()
	m.ObserveFailure(growth.NewInputError("height_cm", "too tall"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("input")))
}

func TestBreakerAndCache(t *testing.T) {
	m := New()
	m.ObserveBreakerState("advisory-model", circuitbreaker.StateClosed, circuitbreaker.StateOpen)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.breakerState.WithLabelValues("advisory-model")))

	m.ObserveAdvisoryCache("miss")
	m.ObserveAdvisoryCache("miss")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.advisoryCache.WithLabelValues("miss")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveHTTPRequest(http.MethodPost, "/api/v1/infants/{id}/growth", 201, 30*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `cradlecare_http_requests_total{method="POST",route="/api/v1/infants/{id}/growth",status="201"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
