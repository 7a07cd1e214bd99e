package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/harrison/qadocs/internal/llm"
	"google.golang.org/genai"
)

// GeminiProvider implements the Gemini API through the genai SDK.
type GeminiProvider struct{}

func init() {
	llm.RegisterProvider(&GeminiProvider{})
}

// Name returns the provider identifier.
func (g *GeminiProvider) Name() string {
	return "gemini"
}

// CredentialEnv returns the API key variable.
func (g *GeminiProvider) CredentialEnv() string {
	return "GEMINI_API_KEY"
}

// DefaultModel returns the model used when none is configured.
func (g *GeminiProvider) DefaultModel() string {
	return "gemini-2.5-flash"
}

// Complete sends the prompt as a single user turn.
func (g *GeminiProvider) Complete(ctx context.Context, ep llm.Endpoint, call llm.Call) (*llm.Response, error) {
	cc := &genai.ClientConfig{
		APIKey:  ep.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if ep.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: ep.BaseURL}
	}
	if ep.HTTPClient != nil {
		cc.HTTPClient = ep.HTTPClient
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, llm.NewFatalError(fmt.Errorf("failed to create GenAI client: %w", err))
	}

	temperature := float32(call.Temperature)
	resp, err := client.Models.GenerateContent(ctx, call.Model,
		[]*genai.Content{genai.NewContentFromText(call.Prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			Temperature:     &temperature,
			MaxOutputTokens: int32(call.MaxTokens),
		})
	if err != nil {
		return nil, classifyGeminiError(err)
	}

	out := &llm.Response{
		Content: resp.Text(),
		Model:   resp.ModelVersion,
	}
	if len(resp.Candidates) > 0 {
		out.FinishReason = string(resp.Candidates[0].FinishReason)
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = llm.TokenUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code > 0 {
		return llm.ClassifyStatus(apiErr.Code, []byte(apiErr.Message))
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr.Code > 0 {
		return llm.ClassifyStatus(apiErrPtr.Code, []byte(apiErrPtr.Message))
	}
	return llm.NewTransientError(fmt.Errorf("gemini request failed: %w", err))
}
