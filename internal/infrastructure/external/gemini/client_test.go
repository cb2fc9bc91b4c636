package gemini

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cradlecare/cradlecare-hub/internal/domain/growth"
)

type fakeModel struct {
	resp   *genai.GenerateContentResponse
	err    error
	prompt string
	calls  int
}

func (f *fakeModel) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.calls++
	if len(parts) > 0 {
		if t, ok := parts[0].(genai.Text); ok {
			f.prompt = string(t)
		}
	}
	return f.resp, f.err
}

func textResponse(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

var summary = growth.Summary{
	AgeMonths:     8,
	WeightKg:      6.1,
	HeightCm:      63,
	WeightForAge:  -2.1,
	HeightForAge:  -2.4,
	PrimaryFactor: growth.FactorUnderweightAndStunting,
	Severity:      growth.SeverityModerate,
}

func TestClient_Generate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"plain json", `{"risk_level":"Moderate","suggestion":"Start supplementary feeding."}`},
		{"fenced json", "```json\n{\"risk_level\":\"Moderate\",\"suggestion\":\"Start supplementary feeding.\"}\n```"},
		{"bare fence", "```\n{\"risk_level\":\"Moderate\",\"suggestion\":\"Start supplementary feeding.\"}```"},
		{"extra keys", `{"risk_level":"Moderate","suggestion":"Start supplementary feeding.","confidence":"high"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeModel{resp: textResponse(genai.Text(tt.body))}
			c := newClient(m, Config{Model: "test"})

			advice, err := c.Generate(context.Background(), summary)
			require.NoError(t, err)
			assert.Equal(t, "Start supplementary feeding.", advice.Suggestion)
			assert.Contains(t, m.prompt, "Underweight and Stunting")
		})
	}
}

func TestClient_Generate_Failures(t *testing.T) {
	tests := []struct {
		name  string
		model *fakeModel
	}{
		{"api error", &fakeModel{err: errors.New("quota exceeded")}},
		{"no candidates", &fakeModel{resp: &genai.GenerateContentResponse{}}},
		{"nil content", &fakeModel{resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}}},
		{"non text part", &fakeModel{resp: textResponse(genai.Blob{MIMEType: "image/png"})}},
		{"prose", &fakeModel{resp: textResponse(genai.Text("The infant is underweight."))}},
		{"missing suggestion", &fakeModel{resp: textResponse(genai.Text(`{"risk_level":"x","score":3}`))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(tt.model, Config{})
			_, err := c.Generate(context.Background(), summary)
			assert.Error(t, err)
			assert.Equal(t, 1, tt.model.calls)
		})
	}
}

func TestClient_Generate_QuotaRespectsDeadline(t *testing.T) {
	m := &fakeModel{resp: textResponse(genai.Text(`{"risk_level":"a","suggestion":"b"}`))}
	c := newClient(m, Config{RequestsPerMinute: 1})

	_, err := c.Generate(context.Background(), summary)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Generate(ctx, summary)
	assert.Error(t, err)
	assert.Equal(t, 1, m.calls, "second call must not reach the API")
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("  {\"a\":1}\n"))
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), Config{})
	assert.Error(t, err)
}
