// Package gemini generates advisory text with Google Gemini.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/cradlecare/cradlecare-hub/internal/domain/growth"
	"github.com/cradlecare/cradlecare-hub/internal/infrastructure/external/prompt"
	"github.com/cradlecare/cradlecare-hub/pkg/logger"
)

// Config contains configuration for the Gemini client.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32

	// RequestsPerMinute keeps the client under the project quota. Zero
	// disables limiting.
	RequestsPerMinute int

	Logger *logger.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:            apiKey,
		Model:             "gemini-1.5-flash",
		Temperature:       0.2,
		RequestsPerMinute: 60,
	}
}

// ErrNoContent is returned when the response carries no text part.
var ErrNoContent = errors.New("gemini: no content returned")

// contentGenerator is the part of *genai.GenerativeModel the client uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Client implements growth.Generator with a Gemini model.
type Client struct {
	client  *genai.Client
	model   contentGenerator
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewClient creates a Gemini client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("genai client init failed: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(cfg.Temperature)
	model.SetCandidateCount(1)

	c := newClient(model, cfg)
	c.client = client
	return c, nil
}

func newClient(model contentGenerator, cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	c := &Client{
		model: model,
		log:   cfg.Logger.With(logger.Backend("gemini"), logger.String("model", cfg.Model)),
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return c
}

// Name identifies the backend.
func (c *Client) Name() string {
	return "gemini"
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Generate implements growth.Generator. When the quota limiter cannot grant
// a slot before ctx expires the call fails without reaching the API.
func (c *Client) Generate(ctx context.Context, s growth.Summary) (growth.Advice, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return growth.Advice{}, fmt.Errorf("gemini quota: %w", err)
		}
	}

	text, err := prompt.Render(s)
	if err != nil {
		return growth.Advice{}, err
	}

	resp, err := c.model.GenerateContent(ctx, genai.Text(text))
	if err != nil {
		return growth.Advice{}, fmt.Errorf("failed to generate content: %w", err)
	}

	raw, err := responseText(resp)
	if err != nil {
		return growth.Advice{}, err
	}

	advice, err := growth.ParseAdvice([]byte(stripFences(raw)))
	if err != nil {
		c.log.Warn("gemini returned malformed advice", logger.Int("length", len(raw)), logger.Err(err))
		return growth.Advice{}, err
	}
	return advice, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrNoContent
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", ErrNoContent
	}

	var b strings.Builder
	for _, part := range cand.Content.Parts {
		text, ok := part.(genai.Text)
		if !ok {
			return "", fmt.Errorf("response part is not text, received %T", part)
		}
		b.WriteString(string(text))
	}
	return b.String(), nil
}

// stripFences removes a markdown code fence around a JSON body.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
