package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Default values for the Gemini translator.
const (
	DefaultModel    = "gemini-2.0-flash"
	DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	DefaultTimeout  = 10 * time.Second
)

// maxResponseBytes caps how much of an upstream body is read.
const maxResponseBytes = 1 << 20

// GeminiConfig configures a Gemini translator.
type GeminiConfig struct {
	APIKey   string // empty disables translation
	Model    string
	Endpoint string // base URL up to and including the API version
	Timeout  time.Duration
}

// Gemini implements Translator via the Gemini generateContent REST API.
type Gemini struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewGemini constructs a Gemini-backed translator. Zero fields of cfg take
// their defaults.
func NewGemini(cfg GeminiConfig) *Gemini {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Gemini{
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

// Configured reports whether an API key is present.
func (g *Gemini) Configured() bool {
	return g.apiKey != ""
}

// Model returns the model name requests are sent to.
func (g *Gemini) Model() string {
	return g.model
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Translate asks the model for a command and returns its cleaned first line.
func (g *Gemini) Translate(ctx context.Context, query string) (string, error) {
	if !g.Configured() {
		return "", fail(query, ErrNotConfigured)
	}

	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: buildPrompt(query)}}}},
	})
	if err != nil {
		return "", failf(query, fmt.Sprintf("Error converting natural language: %v", err), err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.endpoint, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", failf(query, fmt.Sprintf("Error converting natural language: %v", err), err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", transportError(query, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", transportError(query, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", failf(query, fmt.Sprintf("Gemini API error: %d - %s", resp.StatusCode, body), nil)
	}

	var result generateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", failf(query, fmt.Sprintf("Error converting natural language: %v", err), err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", failf(query, "No response from Gemini API", nil)
	}

	command := CleanCommand(result.Candidates[0].Content.Parts[0].Text)
	if command == "" {
		return "", fail(query, ErrEmptyCommand)
	}
	return command, nil
}

func transportError(query string, err error) *Error {
	if isTimeout(err) {
		return failf(query, "Gemini API request timed out", err)
	}
	return failf(query, fmt.Sprintf("Network error: %v", err), err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
