// Package config loads qadocs settings from .qadocs/config.yaml, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/qadocs/internal/confluence"
	"github.com/harrison/qadocs/internal/llm"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Dir is the per-project settings directory.
const Dir = ".qadocs"

// CompletionConfig configures the completion client.
type CompletionConfig struct {
	// Provider names a registered provider: anthropic, openai or gemini.
	Provider string `yaml:"provider"`

	// Model overrides the provider's default model.
	Model string `yaml:"model"`

	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`

	// Timeout bounds each completion request. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout"`

	// BaseURL overrides the provider endpoint (proxies, local gateways).
	BaseURL string `yaml:"base_url"`

	// MaxAttempts applies to command-line runs. The default is 1.
	MaxAttempts int `yaml:"max_attempts"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MaxUploadMB int    `yaml:"max_upload_mb"`

	// MaxAttempts applies to completions requested through the server.
	MaxAttempts int `yaml:"max_attempts"`

	// SessionTTL is how long an idle session is kept. Zero keeps sessions
	// until the process exits.
	SessionTTL time.Duration `yaml:"session_ttl"`

	// Timeout bounds one generate request end to end. Zero means none.
	Timeout time.Duration `yaml:"timeout"`
}

// Config represents the qadocs configuration.
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// LogDir is where run logs are written.
	LogDir string `yaml:"log_dir"`

	// OutputDir is where generated documents are written.
	OutputDir string `yaml:"output_dir"`

	Completion CompletionConfig  `yaml:"completion"`
	Server     ServerConfig      `yaml:"server"`
	Confluence confluence.Config `yaml:"confluence"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogDir:    filepath.Join(Dir, "logs"),
		OutputDir: ".",
		Completion: CompletionConfig{
			Provider:    llm.DefaultProvider,
			MaxTokens:   llm.DefaultMaxTokens,
			Temperature: llm.DefaultTemperature,
			Timeout:     5 * time.Minute,
			MaxAttempts: 1,
		},
		Server: ServerConfig{
			Addr:        "127.0.0.1:8080",
			MaxUploadMB: 32,
			MaxAttempts: llm.DefaultRetryConfig().MaxAttempts,
			SessionTTL:  2 * time.Hour,
			Timeout:     10 * time.Minute,
		},
	}
}

// yamlConfig mirrors Config with pointer fields so that keys absent from the
// file keep their defaults and durations can be written as strings ("90s").
type yamlConfig struct {
	LogLevel   *string `yaml:"log_level"`
	LogDir     *string `yaml:"log_dir"`
	OutputDir  *string `yaml:"output_dir"`
	Completion *struct {
		Provider    *string  `yaml:"provider"`
		Model       *string  `yaml:"model"`
		MaxTokens   *int     `yaml:"max_tokens"`
		Temperature *float64 `yaml:"temperature"`
		Timeout     *string  `yaml:"timeout"`
		BaseURL     *string  `yaml:"base_url"`
		MaxAttempts *int     `yaml:"max_attempts"`
	} `yaml:"completion"`
	Server *struct {
		Addr        *string `yaml:"addr"`
		MaxUploadMB *int    `yaml:"max_upload_mb"`
		MaxAttempts *int    `yaml:"max_attempts"`
		SessionTTL  *string `yaml:"session_ttl"`
		Timeout     *string `yaml:"timeout"`
	} `yaml:"server"`
	Confluence *confluence.Config `yaml:"confluence"`
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, returns default configuration without error.
// Values in the file override defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var y yamlConfig
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setString(&cfg.LogLevel, y.LogLevel)
	setString(&cfg.LogDir, y.LogDir)
	setString(&cfg.OutputDir, y.OutputDir)

	if c := y.Completion; c != nil {
		setString(&cfg.Completion.Provider, c.Provider)
		setString(&cfg.Completion.Model, c.Model)
		setString(&cfg.Completion.BaseURL, c.BaseURL)
		setInt(&cfg.Completion.MaxTokens, c.MaxTokens)
		setInt(&cfg.Completion.MaxAttempts, c.MaxAttempts)
		if c.Temperature != nil {
			cfg.Completion.Temperature = *c.Temperature
		}
		if err := setDuration(&cfg.Completion.Timeout, c.Timeout, "completion.timeout"); err != nil {
			return nil, err
		}
	}

	if s := y.Server; s != nil {
		setString(&cfg.Server.Addr, s.Addr)
		setInt(&cfg.Server.MaxUploadMB, s.MaxUploadMB)
		setInt(&cfg.Server.MaxAttempts, s.MaxAttempts)
		if err := setDuration(&cfg.Server.SessionTTL, s.SessionTTL, "server.session_ttl"); err != nil {
			return nil, err
		}
		if err := setDuration(&cfg.Server.Timeout, s.Timeout, "server.timeout"); err != nil {
			return nil, err
		}
	}

	if y.Confluence != nil {
		cfg.Confluence = *y.Confluence
	}

	return cfg, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, key string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(*v))
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, *v, err)
	}
	*dst = d
	return nil
}

// LoadConfigFromDir loads configuration from .qadocs/config.yaml in the specified directory.
// If the directory or file doesn't exist, returns default configuration without error.
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, Dir, "config.yaml"))
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set are not overridden and a missing file is not an
// error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Flags carries command-line overrides. Nil fields leave the configuration
// unchanged.
type Flags struct {
	LogLevel  *string
	LogDir    *string
	OutputDir *string
	Provider  *string
	Model     *string
	Addr      *string
}

// MergeWithFlags merges CLI flags into the configuration.
// Non-nil flag values override configuration values.
func (c *Config) MergeWithFlags(f Flags) {
	setString(&c.LogLevel, f.LogLevel)
	setString(&c.LogDir, f.LogDir)
	setString(&c.OutputDir, f.OutputDir)
	setString(&c.Completion.Provider, f.Provider)
	setString(&c.Completion.Model, f.Model)
	setString(&c.Server.Addr, f.Addr)
}

// MergeEnv fills Confluence settings from CONFLUENCE_* variables read
// through lookup. Environment values win over the file; the API token is
// only ever read from the environment.
func (c *Config) MergeEnv(lookup func(string) (string, bool)) {
	c.Confluence = confluence.ConfigFromEnv(lookup).Merge(c.Confluence)
}

// Validate validates the configuration values.
// Returns an error if any values are invalid.
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if llm.GetProvider(c.Completion.Provider) == nil {
		return fmt.Errorf("unknown completion.provider %q (available: %s)",
			c.Completion.Provider, strings.Join(llm.ListProviders(), ", "))
	}
	if c.Completion.MaxTokens <= 0 {
		return fmt.Errorf("completion.max_tokens must be > 0, got %d", c.Completion.MaxTokens)
	}
	if c.Completion.Temperature < 0 || c.Completion.Temperature > 2 {
		return fmt.Errorf("completion.temperature must be between 0 and 2, got %v", c.Completion.Temperature)
	}
	if c.Completion.Timeout < 0 {
		return fmt.Errorf("completion.timeout must be >= 0, got %v", c.Completion.Timeout)
	}
	if c.Completion.MaxAttempts < 1 {
		return fmt.Errorf("completion.max_attempts must be >= 1, got %d", c.Completion.MaxAttempts)
	}

	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be > 0, got %d", c.Server.MaxUploadMB)
	}
	if c.Server.MaxAttempts < 1 {
		return fmt.Errorf("server.max_attempts must be >= 1, got %d", c.Server.MaxAttempts)
	}
	if c.Server.SessionTTL < 0 {
		return fmt.Errorf("server.session_ttl must be >= 0, got %v", c.Server.SessionTTL)
	}
	if c.Server.Timeout < 0 {
		return fmt.Errorf("server.timeout must be >= 0, got %v", c.Server.Timeout)
	}

	return nil
}

// LLMConfig builds the completion client configuration. Command-line runs
// use completion.max_attempts; the server uses server.max_attempts with
// exponential backoff between attempts.
func (c *Config) LLMConfig(serverMode bool) llm.Config {
	retry := llm.SingleAttempt()
	attempts := c.Completion.MaxAttempts
	if serverMode {
		attempts = c.Server.MaxAttempts
	}
	if attempts > 1 {
		retry = llm.DefaultRetryConfig()
		retry.MaxAttempts = attempts
	}

	return llm.Config{
		Provider:    c.Completion.Provider,
		Model:       c.Completion.Model,
		MaxTokens:   c.Completion.MaxTokens,
		Temperature: c.Completion.Temperature,
		Timeout:     c.Completion.Timeout,
		BaseURL:     c.Completion.BaseURL,
		Retry:       retry,
	}
}

// MaxUploadBytes converts server.max_upload_mb to bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}
