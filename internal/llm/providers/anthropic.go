// Package providers implements completion provider adapters. Importing it
// registers every adapter with the llm registry.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/harrison/qadocs/internal/llm"
)

// maxResponseSize limits the response body to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// anthropicVersion is the API version to use.
const anthropicVersion = "2023-06-01"

// AnthropicProvider implements the Anthropic Messages API over plain HTTP.
type AnthropicProvider struct{}

func init() {
	llm.RegisterProvider(&AnthropicProvider{})
}

// Name returns the provider identifier.
func (a *AnthropicProvider) Name() string {
	return "anthropic"
}

// CredentialEnv returns the API key variable.
func (a *AnthropicProvider) CredentialEnv() string {
	return "ANTHROPIC_API_KEY"
}

// DefaultModel returns the model used when none is configured.
func (a *AnthropicProvider) DefaultModel() string {
	return "claude-sonnet-4-20250514"
}

// BuildURL constructs the Anthropic messages endpoint.
func (a *AnthropicProvider) BuildURL(baseURL string) string {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	return baseURL + "/v1/messages"
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete sends a single message and concatenates the text blocks of the
// reply.
func (a *AnthropicProvider) Complete(ctx context.Context, ep llm.Endpoint, call llm.Call) (*llm.Response, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:       call.Model,
		MaxTokens:   call.MaxTokens,
		Messages:    []anthropicMessage{{Role: "user", Content: call.Prompt}},
		Temperature: call.Temperature,
	})
	if err != nil {
		return nil, llm.NewFatalError(fmt.Errorf("build request body: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BuildURL(ep.BaseURL), bytes.NewReader(body))
	if err != nil {
		return nil, llm.NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", ep.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	client := ep.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, llm.NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, llm.NewTransientError(fmt.Errorf("read response body: %w", err))
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, llm.ClassifyStatus(httpResp.StatusCode, respBody)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, llm.NewFatalError(fmt.Errorf("parse anthropic response: %w", err))
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &llm.Response{
		Content: content.String(),
		Model:   resp.Model,
		Usage: llm.TokenUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		FinishReason: resp.StopReason,
	}, nil
}
