// Package config loads the service configuration: built-in defaults, then an optional
// YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BerylCAtieno/forked/internal/provider"
	"github.com/BerylCAtieno/forked/internal/simulator"
)

// DefaultPath is read when present; a missing default file is not an error.
const DefaultPath = "forked.yaml"

var (
	ErrMissingAPIKey   = errors.New("provider API key is required")
	ErrUnknownProvider = errors.New("unknown provider")
	ErrUnknownPolicy   = errors.New("unknown provider failure policy")
	ErrInvalidValue    = errors.New("invalid configuration value")
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	LLM        LLMConfig        `yaml:"llm"`
	Generation GenerationConfig `yaml:"generation"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Host           string          `yaml:"host"`
	Port           int             `yaml:"port"`
	ReadTimeout    time.Duration   `yaml:"read_timeout"`
	WriteTimeout   time.Duration   `yaml:"write_timeout"`
	MetricsAddr    string          `yaml:"metrics_addr"`
	AllowedOrigins []string        `yaml:"allowed_origins"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`

	// TrustedProxies lists the IPs or CIDRs whose X-Forwarded-For is believed.
	// Empty means the peer address is always the client IP.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// RateLimitConfig applies per client IP to POST /generate. RPS <= 0, the default,
// disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini, openai
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`

	Timeout         time.Duration `yaml:"timeout"`
	Temperature     float32       `yaml:"temperature"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	MaxAttempts     int           `yaml:"max_attempts"`
	RetryWait       time.Duration `yaml:"retry_wait"`
}

type GenerationConfig struct {
	MinOutputLength   int    `yaml:"min_output_length"`
	OnProviderFailure string `yaml:"on_provider_failure"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// providerDefaults are applied to LLM fields left at zero.
var providerDefaults = map[string]LLMConfig{
	provider.NameGemini: {Temperature: 0.7, MaxOutputTokens: 1500, MaxAttempts: 1},
	provider.NameOpenAI: {Temperature: 0.8, MaxOutputTokens: 2500, MaxAttempts: 2},
}

var apiKeyEnv = map[string]string{
	provider.NameGemini: "GEMINI_API_KEY",
	provider.NameOpenAI: "OPENAI_API_KEY",
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           5000,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   150 * time.Second,
			MetricsAddr:    ":2112",
			AllowedOrigins: []string{"*"},
			RateLimit:      RateLimitConfig{Burst: 5},
		},
		LLM: LLMConfig{
			Provider:  provider.NameGemini,
			Timeout:   60 * time.Second,
			RetryWait: time.Second,
		},
		Generation: GenerationConfig{
			MinOutputLength:   100,
			OnProviderFailure: string(simulator.PolicyFallback),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration and validates it. path may be empty.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.applyProviderDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == DefaultPath {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("FORKED_PROVIDER"); v != "" {
		c.LLM.Provider = strings.ToLower(v)
	}
	if env, ok := apiKeyEnv[c.LLM.Provider]; ok {
		if v := os.Getenv(env); v != "" {
			c.LLM.APIKey = v
		}
	}
	c.LLM.Model = getEnv("FORKED_MODEL", c.LLM.Model)
	c.LLM.BaseURL = getEnv("FORKED_BASE_URL", c.LLM.BaseURL)
	c.Server.Host = getEnv("HOST", c.Server.Host)
	c.Generation.OnProviderFailure = getEnv("FORKED_ON_PROVIDER_FAILURE", c.Generation.OnProviderFailure)
	c.Log.Level = getEnv("FORKED_LOG_LEVEL", c.Log.Level)

	ints := []struct {
		key string
		dst *int
	}{
		{"PORT", &c.Server.Port},
		{"FORKED_MAX_ATTEMPTS", &c.LLM.MaxAttempts},
		{"FORKED_MIN_OUTPUT_LENGTH", &c.Generation.MinOutputLength},
	}
	for _, e := range ints {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidValue, e.key, v)
		}
		*e.dst = n
	}
	return nil
}

func (c *Config) applyProviderDefaults() {
	d, ok := providerDefaults[c.LLM.Provider]
	if !ok {
		return
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = d.Temperature
	}
	if c.LLM.MaxOutputTokens == 0 {
		c.LLM.MaxOutputTokens = d.MaxOutputTokens
	}
	if c.LLM.MaxAttempts == 0 {
		c.LLM.MaxAttempts = d.MaxAttempts
	}
}

func (c *Config) Validate() error {
	env, ok := apiKeyEnv[c.LLM.Provider]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.LLM.Provider)
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("%w: set %s", ErrMissingAPIKey, env)
	}
	if !simulator.Policy(c.Generation.OnProviderFailure).Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPolicy, c.Generation.OnProviderFailure)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: port %d", ErrInvalidValue, c.Server.Port)
	}
	if c.LLM.MaxAttempts < 1 {
		return fmt.Errorf("%w: max_attempts must be at least 1", ErrInvalidValue)
	}
	if c.Generation.MinOutputLength < 0 {
		return fmt.Errorf("%w: min_output_length must not be negative", ErrInvalidValue)
	}
	if budget := c.LLM.Budget(); c.Server.WriteTimeout > 0 && budget >= c.Server.WriteTimeout {
		return fmt.Errorf("%w: llm retry budget %s does not fit in write_timeout %s",
			ErrInvalidValue, budget, c.Server.WriteTimeout)
	}
	return nil
}

// Budget is the longest a simulation can spend on provider calls: every attempt
// running to its timeout plus the waits between attempts. Zero when calls are not
// time bounded.
func (l LLMConfig) Budget() time.Duration {
	if l.Timeout <= 0 || l.MaxAttempts < 1 {
		return 0
	}
	return time.Duration(l.MaxAttempts)*l.Timeout + time.Duration(l.MaxAttempts-1)*l.RetryWait
}

// Addr is the API listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) ProviderConfig() provider.Config {
	return provider.Config{
		Name:    c.LLM.Provider,
		APIKey:  c.LLM.APIKey,
		Model:   c.LLM.Model,
		BaseURL: c.LLM.BaseURL,
		Timeout: c.LLM.Timeout,
	}
}

func (c *Config) SimulatorOptions() simulator.Options {
	return simulator.Options{
		Temperature:     c.LLM.Temperature,
		MaxOutputTokens: c.LLM.MaxOutputTokens,
		MaxAttempts:     c.LLM.MaxAttempts,
		RetryWait:       c.LLM.RetryWait,
		MinOutputLength: c.Generation.MinOutputLength,
		OnFailure:       simulator.Policy(c.Generation.OnProviderFailure),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
