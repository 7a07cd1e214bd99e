package llm

import (
	"context"
	"net/http"
	"sort"
	"sync"
)

// Endpoint is the connection detail handed to a provider for one call.
type Endpoint struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Call is a fully resolved completion request.
type Call struct {
	Model       string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Provider sends one completion request to a hosted model service.
// Implementations classify failures with NewTransientError and
// NewFatalError so the client can decide whether to retry.
type Provider interface {
	// Name returns the provider identifier (e.g., "anthropic").
	Name() string

	// CredentialEnv names the environment variable holding the API key.
	CredentialEnv() string

	// DefaultModel is used when no model is configured.
	DefaultModel() string

	// Complete performs a single request/response exchange.
	Complete(ctx context.Context, ep Endpoint, call Call) (*Response, error)
}

var (
	providerRegistry = make(map[string]Provider)
	providerMu       sync.RWMutex
)

// RegisterProvider adds a provider to the registry.
func RegisterProvider(p Provider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	providerRegistry[p.Name()] = p
}

// GetProvider retrieves a provider by name, or nil.
func GetProvider(name string) Provider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return providerRegistry[name]
}

// ListProviders returns all registered provider names, sorted.
func ListProviders() []string {
	providerMu.RLock()
	defer providerMu.RUnlock()

	names := make([]string, 0, len(providerRegistry))
	for name := range providerRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
