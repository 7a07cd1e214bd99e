package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harrison/qadocs/internal/llm"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements the Chat Completions API through go-openai.
// BaseURL lets it talk to any OpenAI-compatible server.
type OpenAIProvider struct{}

func init() {
	llm.RegisterProvider(&OpenAIProvider{})
}

// Name returns the provider identifier.
func (o *OpenAIProvider) Name() string {
	return "openai"
}

// CredentialEnv returns the API key variable.
func (o *OpenAIProvider) CredentialEnv() string {
	return "OPENAI_API_KEY"
}

// DefaultModel returns the model used when none is configured.
func (o *OpenAIProvider) DefaultModel() string {
	return openai.GPT4o
}

// Complete sends the prompt as a single user message.
func (o *OpenAIProvider) Complete(ctx context.Context, ep llm.Endpoint, call llm.Call) (*llm.Response, error) {
	cfg := openai.DefaultConfig(ep.APIKey)
	if ep.BaseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(ep.BaseURL, "/")
	}
	if ep.HTTPClient != nil {
		cfg.HTTPClient = ep.HTTPClient
	}
	client := openai.NewClientWithConfig(cfg)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: call.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: call.Prompt},
		},
		MaxTokens:   call.MaxTokens,
		Temperature: float32(call.Temperature),
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, llm.NewFatalError(errors.New("openai response has no choices"))
	}

	choice := resp.Choices[0]
	return &llm.Response{
		Content: choice.Message.Content,
		Model:   resp.Model,
		Usage: llm.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		FinishReason: string(choice.FinishReason),
	}, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return llm.ClassifyStatus(apiErr.HTTPStatusCode, []byte(apiErr.Message))
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return llm.ClassifyStatus(reqErr.HTTPStatusCode, []byte(reqErr.Error()))
	}
	return llm.NewTransientError(fmt.Errorf("openai request failed: %w", err))
}
