// Package ollama generates advisory text with a local Ollama model.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/cradlecare/cradlecare-hub/internal/domain/growth"
	"github.com/cradlecare/cradlecare-hub/internal/infrastructure/external/prompt"
	"github.com/cradlecare/cradlecare-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains configuration for the Ollama client.
type Config struct {
	// BaseURL is the Ollama server, e.g. http://localhost:11434.
	BaseURL string

	// Model is the model tag, e.g. "phi3".
	Model string

	Temperature float64

	// Timeout caps one HTTP exchange. Callers usually set a shorter deadline
	// on ctx.
	Timeout time.Duration

	Logger *logger.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:     baseURL,
		Model:       "phi3",
		Temperature: 0.2,
		Timeout:     30 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// WIRE TYPES
// ══════════════════════════════════════════════════════════════════════════════

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Format  string         `json:"format"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("ollama: empty response")

// Client implements growth.Generator against the Ollama /api/generate endpoint.
// It makes exactly one attempt per call.
type Client struct {
	http  *resty.Client
	model string
	temp  float64
	log   *logger.Logger
}

// NewClient creates an Ollama client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("ollama: base URL is required")
	}
	if cfg.Model == "" {
		cfg.Model = "phi3"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:  httpClient,
		model: cfg.Model,
		temp:  cfg.Temperature,
		log:   cfg.Logger.With(logger.Backend("ollama"), logger.String("model", cfg.Model)),
	}, nil
}

// Name identifies the backend.
func (c *Client) Name() string {
	return "ollama"
}

// Generate implements growth.Generator.
func (c *Client) Generate(ctx context.Context, s growth.Summary) (growth.Advice, error) {
	text, err := prompt.Render(s)
	if err != nil {
		return growth.Advice{}, err
	}

	var (
		result  generateResponse
		failure errorResponse
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(generateRequest{
			Model:   c.model,
			Prompt:  text,
			Format:  "json",
			Stream:  false,
			Options: map[string]any{"temperature": c.temp},
		}).
		SetResult(&result).
		SetError(&failure).
		Post("/api/generate")
	if err != nil {
		return growth.Advice{}, fmt.Errorf("ollama generate: %w", err)
	}

	if resp.IsError() {
		c.log.Warn("ollama returned error status",
			logger.Int("status_code", resp.StatusCode()),
			logger.String("error", failure.Error),
		)
		return growth.Advice{}, fmt.Errorf("ollama generate: status %d: %s", resp.StatusCode(), failure.Error)
	}

	if result.Response == "" {
		return growth.Advice{}, ErrEmptyResponse
	}

	c.log.Debug("ollama responded", logger.Duration("round_trip", resp.Time()))

	return growth.ParseAdvice([]byte(result.Response))
}

// Ping checks that the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/api/version")
	if err != nil {
		return fmt.Errorf("ollama ping: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("ollama ping: status %d", resp.StatusCode())
	}
	return nil
}
