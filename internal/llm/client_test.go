package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/harrison/qadocs/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider returns the queued errors in order, then succeeds.
type scriptedProvider struct {
	name  string
	mu    sync.Mutex
	errs  []error
	calls []Call
	keys  []string
}

func (p *scriptedProvider) Name() string          { return p.name }
func (p *scriptedProvider) CredentialEnv() string { return "SCRIPTED_API_KEY" }
func (p *scriptedProvider) DefaultModel() string  { return "scripted-1" }

func (p *scriptedProvider) Complete(ctx context.Context, ep Endpoint, call Call) (*Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	p.keys = append(p.keys, ep.APIKey)
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		return nil, err
	}
	return &Response{Content: "ok"}, nil
}

func newScripted(t *testing.T, errs ...error) *scriptedProvider {
	t.Helper()
	p := &scriptedProvider{name: "scripted-" + t.Name(), errs: errs}
	RegisterProvider(p)
	return p
}

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:       attempts,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 2,
		MaxBackoff:        5 * time.Millisecond,
	}
}

func noEnv(string) (string, bool) { return "", false }

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := NewClient(Config{Provider: "does-not-exist"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown completion provider")
}

func TestNewClient_Defaults(t *testing.T) {
	p := newScripted(t)
	c, err := NewClient(Config{Provider: p.name})
	require.NoError(t, err)
	assert.Equal(t, "scripted-1", c.Model())
	assert.Equal(t, p.name, c.ProviderName())
}

func TestCheckCredential(t *testing.T) {
	p := newScripted(t)

	c, err := NewClient(Config{Provider: p.name}, WithLookupEnv(noEnv))
	require.NoError(t, err)

	err = c.CheckCredential()
	var credErr *models.CredentialMissingError
	require.ErrorAs(t, err, &credErr)
	assert.Equal(t, "SCRIPTED_API_KEY", credErr.EnvVar)

	// no network call was attempted
	_, err = c.Complete(context.Background(), Request{Prompt: "x"})
	require.ErrorAs(t, err, &credErr)
	assert.Empty(t, p.calls)
}

func TestCheckCredential_FromEnv(t *testing.T) {
	p := newScripted(t)
	c, err := NewClient(Config{Provider: p.name}, WithLookupEnv(func(k string) (string, bool) {
		if k == "SCRIPTED_API_KEY" {
			return " env-key ", true
		}
		return "", false
	}))
	require.NoError(t, err)
	require.NoError(t, c.CheckCredential())

	_, err = c.Complete(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"env-key"}, p.keys)
}

func TestComplete_RequestParameters(t *testing.T) {
	p := newScripted(t)
	c, err := NewClient(Config{Provider: p.name, APIKey: "k", Temperature: 0.3})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), Request{Prompt: "first"})
	require.NoError(t, err)

	temp := 0.0
	_, err = c.Complete(context.Background(), Request{Prompt: "second", Model: "other", MaxTokens: 10, Temperature: &temp})
	require.NoError(t, err)

	require.Len(t, p.calls, 2)
	assert.Equal(t, Call{Model: "scripted-1", Prompt: "first", MaxTokens: DefaultMaxTokens, Temperature: 0.3}, p.calls[0])
	assert.Equal(t, Call{Model: "other", Prompt: "second", MaxTokens: 10, Temperature: 0}, p.calls[1])
}

func TestComplete_EmptyPrompt(t *testing.T) {
	p := newScripted(t)
	c, err := NewClient(Config{Provider: p.name, APIKey: "k"})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), Request{Prompt: "  "})
	assert.Error(t, err)
	assert.Empty(t, p.calls)
}

func TestComplete_SingleAttemptDoesNotRetry(t *testing.T) {
	p := newScripted(t, NewTransientError(errors.New("connection reset")))
	c, err := NewClient(Config{Provider: p.name, APIKey: "k", Retry: SingleAttempt()})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), Request{Prompt: "x"})
	var complErr *models.CompletionError
	require.ErrorAs(t, err, &complErr)
	assert.Zero(t, complErr.StatusCode)
	assert.Len(t, p.calls, 1)
}

func TestComplete_RetriesTransient(t *testing.T) {
	p := newScripted(t,
		ClassifyStatus(503, []byte("unavailable")),
		ClassifyStatus(429, []byte("slow down")),
	)
	c, err := NewClient(Config{Provider: p.name, APIKey: "k", Retry: fastRetry(3)})
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 3, resp.Attempts)
	assert.NotEmpty(t, resp.RequestID)
}

func TestComplete_FatalStopsRetry(t *testing.T) {
	p := newScripted(t, ClassifyStatus(401, []byte("invalid x-api-key")))
	c, err := NewClient(Config{Provider: p.name, APIKey: "k", Retry: fastRetry(3)})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), Request{Prompt: "x"})
	var complErr *models.CompletionError
	require.ErrorAs(t, err, &complErr)
	assert.Equal(t, 401, complErr.StatusCode)
	assert.Len(t, p.calls, 1)
}

func TestComplete_ExhaustsRetries(t *testing.T) {
	transient := NewTransientError(errors.New("timeout"))
	p := newScripted(t, transient, transient, transient, transient)
	c, err := NewClient(Config{Provider: p.name, APIKey: "k", Retry: fastRetry(3)})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, models.StageCompletion, models.StageOf(err))
	assert.Len(t, p.calls, 3)
}

func TestComplete_ContextCancelled(t *testing.T) {
	p := newScripted(t, NewTransientError(errors.New("timeout")))
	c, err := NewClient(Config{Provider: p.name, APIKey: "k", Retry: RetryConfig{
		MaxAttempts: 3, BackoffBase: time.Hour, BackoffMultiplier: 1, MaxBackoff: time.Hour,
	}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err = c.Complete(ctx, Request{Prompt: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{400, false},
		{401, false},
		{403, false},
		{404, false},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
	}

	for _, tt := range tests {
		err := ClassifyStatus(tt.status, []byte("body"))
		assert.Equal(t, tt.transient, IsTransient(err), "status %d", tt.status)
		assert.Equal(t, !tt.transient, IsFatal(err), "status %d", tt.status)
		assert.Equal(t, tt.status, StatusCode(err))
	}
}

func TestClassifyStatus_TruncatesBody(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	err := ClassifyStatus(500, long)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Len(t, se.Body, 203)
}

func TestRetryConfig_Backoff(t *testing.T) {
	cfg := RetryConfig{BackoffBase: 100 * time.Millisecond, BackoffMultiplier: 2, MaxBackoff: 300 * time.Millisecond}

	for i := 0; i < 20; i++ {
		first := cfg.Backoff(1)
		assert.GreaterOrEqual(t, first, 75*time.Millisecond)
		assert.LessOrEqual(t, first, 125*time.Millisecond)

		capped := cfg.Backoff(5)
		assert.LessOrEqual(t, capped, 375*time.Millisecond)
		assert.GreaterOrEqual(t, capped, 225*time.Millisecond)
	}
}

func TestRetryConfig_Attempts(t *testing.T) {
	assert.Equal(t, 1, RetryConfig{}.attempts())
	assert.Equal(t, 1, SingleAttempt().attempts())
	assert.Equal(t, 3, DefaultRetryConfig().attempts())
}
