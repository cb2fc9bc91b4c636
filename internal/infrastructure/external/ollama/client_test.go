package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cradlecare/cradlecare-hub/internal/domain/growth"
)

var summary = growth.Summary{
	AgeMonths:     6,
	WeightKg:      5,
	HeightCm:      58,
	WeightForAge:  -2.7,
	PrimaryFactor: growth.FactorUnderweight,
	Severity:      growth.SeverityModerate,
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(DefaultConfig(srv.URL))
	require.NoError(t, err)
	return c, &calls
}

func TestClient_Generate(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "phi3", req.Model)
		assert.Equal(t, "json", req.Format)
		assert.False(t, req.Stream)
		assert.Contains(t, req.Prompt, "Age: 6 months")

		_ = json.NewEncoder(w).Encode(generateResponse{
			Model:    "phi3",
			Response: `{"risk_level":"Moderate Underweight","suggestion":"Counsel on feeding."}`,
			Done:     true,
		})
	})

	advice, err := c.Generate(context.Background(), summary)
	require.NoError(t, err)
	assert.Equal(t, "Counsel on feeding.", advice.Suggestion)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Generate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"model not loaded"}`))
		}},
		{"empty response", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"response":"","done":true}`))
		}},
		{"not json advice", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"response":"Feed the baby more.","done":true}`))
		}},
		{"missing suggestion", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"response":"{\"risk_level\":\"High\"}","done":true}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, calls := newTestClient(t, tt.handler)
			_, err := c.Generate(context.Background(), summary)
			assert.Error(t, err)
			assert.Equal(t, int32(1), calls.Load(), "no retries")
		})
	}
}

func TestClient_Generate_RespectsContext(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Generate(ctx, summary)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestClient_Ping(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/version", r.URL.Path)
		_, _ = w.Write([]byte(`{"version":"0.3.0"}`))
	})
	assert.NoError(t, c.Ping(context.Background()))
}

func TestNewClient_RequiresURL(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}
