// Package llm talks to a local Ollama instance for answer generation.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	derrors "github.com/docdex/docdex/internal/errors"
)

// Default generation configuration.
const (
	DefaultModel       = "llama3.2"
	DefaultHost        = "http://localhost:11434"
	DefaultTemperature = 0.1
	DefaultTimeout     = 120 * time.Second
)

// Config configures the Ollama generation client.
type Config struct {
	Host        string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Client generates text via the Ollama /api/generate endpoint.
type Client struct {
	client *http.Client
	config Config
}

// generateRequest is the Ollama /api/generate request body.
type generateRequest struct {
	Model   string           `json:"model"`
	Prompt  string           `json:"prompt"`
	Stream  bool             `json:"stream"`
	Options *generateOptions `json:"options,omitempty"`
}

// generateOptions carries per-request model options.
type generateOptions struct {
	Temperature float64 `json:"temperature"`
}

// generateResponse is the Ollama /api/generate response body.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewClient creates an Ollama generation client.
func NewClient(cfg Config) *Client {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.config.Model
}

// Generate runs a single non-streaming completion. A non-nil
// temperature overrides the configured default for this request only.
func (c *Client) Generate(ctx context.Context, prompt string, temperature *float64) (string, error) {
	temp := c.config.Temperature
	if temperature != nil {
		temp = *temperature
	}

	reqBody := generateRequest{
		Model:   c.config.Model,
		Prompt:  prompt,
		Stream:  false,
		Options: &generateOptions{Temperature: temp},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", derrors.InternalError("failed to marshal generate request", err)
	}

	url := c.config.Host + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", derrors.InternalError("failed to create generate request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", derrors.New(derrors.ErrCodeNetworkUnavailable,
			fmt.Sprintf("Ollama is unreachable at %s", c.config.Host), err).
			WithSuggestion("start Ollama with 'ollama serve'")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", derrors.New(derrors.ErrCodeGenerationFailed,
			fmt.Sprintf("generation failed with status %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", derrors.New(derrors.ErrCodeGenerationFailed, "failed to decode generate response", err)
	}

	return genResp.Response, nil
}

// Available reports whether the Ollama host answers.
func (c *Client) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.Host+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}
