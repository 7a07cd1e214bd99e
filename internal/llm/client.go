// Package llm sends prompts to a hosted language-model service and returns
// the raw completion text.
//
// Providers register themselves by name (see the providers subpackage); the
// Client resolves one from configuration, checks its credential before any
// network traffic, and applies the configured timeout and retry policy.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harrison/qadocs/internal/models"
)

// Defaults for a completion request.
const (
	DefaultProvider    = "anthropic"
	DefaultMaxTokens   = 16000
	DefaultTemperature = 0.3
)

// Logger receives diagnostic messages from the client.
type Logger interface {
	LogDebug(message string)
	LogWarn(message string)
}

// Config selects a provider and the parameters of every request.
type Config struct {
	Provider    string
	Model       string
	MaxTokens   int
	Temperature float64

	// Timeout bounds each attempt. Zero leaves only the transport default.
	Timeout time.Duration

	// BaseURL overrides the provider's API endpoint.
	BaseURL string

	// APIKey overrides the provider's credential environment variable.
	APIKey string

	Retry RetryConfig
}

// Request is a single prompt. Zero-valued fields fall back to the client
// configuration.
type Request struct {
	Prompt      string
	Model       string
	MaxTokens   int
	Temperature *float64
}

// TokenUsage represents token consumption details for a call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response contains the completion result.
type Response struct {
	// RequestID uniquely identifies this call in logs.
	RequestID string

	// Content is the generated text, unmodified.
	Content string

	// Model is the model that answered.
	Model string

	Usage        TokenUsage
	FinishReason string

	// Attempts is the number of requests made, including the successful one.
	Attempts int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// WithLookupEnv replaces os.LookupEnv for credential resolution.
func WithLookupEnv(fn func(string) (string, bool)) ClientOption {
	return func(client *Client) {
		client.lookupEnv = fn
	}
}

// Client is a provider-agnostic completion client.
type Client struct {
	provider   Provider
	cfg        Config
	httpClient *http.Client
	logger     Logger
	lookupEnv  func(string) (string, bool)
}

// NewClient resolves the configured provider. It fails only for an unknown
// provider name; credentials are checked by CheckCredential and Complete.
func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	if cfg.Provider == "" {
		cfg.Provider = DefaultProvider
	}
	provider := GetProvider(cfg.Provider)
	if provider == nil {
		return nil, fmt.Errorf("unknown completion provider %q (available: %s)",
			cfg.Provider, strings.Join(ListProviders(), ", "))
	}
	if cfg.Model == "" {
		cfg.Model = provider.DefaultModel()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	c := &Client{
		provider:   provider,
		cfg:        cfg,
		httpClient: &http.Client{},
		lookupEnv:  os.LookupEnv,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ProviderName returns the resolved provider identifier.
func (c *Client) ProviderName() string {
	return c.provider.Name()
}

// Model returns the model used when a request does not name one.
func (c *Client) Model() string {
	return c.cfg.Model
}

// CheckCredential reports a CredentialMissingError when no API key is
// configured for the provider.
func (c *Client) CheckCredential() error {
	_, err := c.apiKey()
	return err
}

func (c *Client) apiKey() (string, error) {
	if c.cfg.APIKey != "" {
		return c.cfg.APIKey, nil
	}
	env := c.provider.CredentialEnv()
	if key, ok := c.lookupEnv(env); ok && strings.TrimSpace(key) != "" {
		return strings.TrimSpace(key), nil
	}
	return "", &models.CredentialMissingError{Provider: c.provider.Name(), EnvVar: env}
}

// Complete sends the prompt and returns the raw model text. Transient
// failures are retried according to the configured policy; every failure
// is returned as a *models.CompletionError.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("prompt is required")
	}
	key, err := c.apiKey()
	if err != nil {
		return nil, err
	}

	call := Call{
		Model:       c.cfg.Model,
		Prompt:      req.Prompt,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}
	if req.Model != "" {
		call.Model = req.Model
	}
	if req.MaxTokens > 0 {
		call.MaxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		call.Temperature = *req.Temperature
	}

	ep := Endpoint{APIKey: key, BaseURL: c.cfg.BaseURL, HTTPClient: c.httpClient}
	requestID := uuid.New().String()
	maxAttempts := c.cfg.Retry.attempts()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		c.debugf("completion request %s: provider=%s model=%s attempt=%d/%d prompt_chars=%d",
			requestID, c.provider.Name(), call.Model, attempt, maxAttempts, len(call.Prompt))

		resp, err := c.attempt(ctx, ep, call)
		if err == nil {
			resp.RequestID = requestID
			resp.Attempts = attempt
			if resp.Model == "" {
				resp.Model = call.Model
			}
			return resp, nil
		}
		lastErr = err

		if IsFatal(err) || ctx.Err() != nil || attempt == maxAttempts {
			break
		}

		backoff := c.cfg.Retry.Backoff(attempt)
		c.warnf("completion request %s failed (attempt %d/%d), retrying in %s: %v",
			requestID, attempt, maxAttempts, backoff.Round(time.Millisecond), err)

		select {
		case <-ctx.Done():
			return nil, c.wrap(ctx.Err())
		case <-time.After(backoff):
		}
	}

	return nil, c.wrap(lastErr)
}

func (c *Client) wrap(err error) error {
	return &models.CompletionError{
		Provider:   c.provider.Name(),
		StatusCode: StatusCode(err),
		Err:        err,
	}
}

func (c *Client) attempt(ctx context.Context, ep Endpoint, call Call) (*Response, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	return c.provider.Complete(ctx, ep, call)
}

func (c *Client) debugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.LogDebug(fmt.Sprintf(format, args...))
	}
}

func (c *Client) warnf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.LogWarn(fmt.Sprintf(format, args...))
	}
}
