// Package config loads and validates the proxy configuration.
//
// Sources are layered in increasing precedence: built-in defaults, an
// optional TOML file, and NIMPROXY_-prefixed environment variables (with
// "__" separating sections, e.g. NIMPROXY_UPSTREAM__BASE_URL).
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "NIMPROXY_"

// Config is the full proxy configuration. Immutable after Load; the model
// table and toggles are injected into the adapter at construction time
// rather than consulted as process-wide flags.
type Config struct {
	Listen    string             `koanf:"listen" validate:"required"`
	Upstream  UpstreamConfig     `koanf:"upstream"`
	Reasoning ReasoningConfig    `koanf:"reasoning"`
	Defaults  GenerationDefaults `koanf:"defaults"`
	Models    ModelsConfig       `koanf:"models"`
}

// UpstreamConfig locates and authenticates the NIM backend.
type UpstreamConfig struct {
	BaseURL string `koanf:"base_url" validate:"required,url"`
	// APIKey may be left empty to defer to the OS keyring (see tokensource).
	APIKey string `koanf:"api_key"`
}

// ReasoningConfig holds the two reasoning toggles and the thinking-mode
// request encoding.
type ReasoningConfig struct {
	ShowReasoning     bool   `koanf:"show_reasoning"`
	ThinkingMode      bool   `koanf:"thinking_mode"`
	ThinkingInjection string `koanf:"thinking_injection" validate:"oneof=chat_template_kwargs system_prompt"`
}

// GenerationDefaults apply when the client request leaves a parameter unset.
type GenerationDefaults struct {
	Temperature float64 `koanf:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `koanf:"max_tokens" validate:"gt=0"`
}

// ModelsConfig is the per-deployment model routing policy.
type ModelsConfig struct {
	// Map holds exact caller-name → upstream-ID mappings. Its keys also feed
	// the /v1/models listing.
	Map map[string]string `koanf:"map"`
	// Fallbacks is the ordered substring ladder applied on a map miss.
	Fallbacks []FallbackRule `koanf:"fallbacks"`
	// Default catches everything the ladder does not.
	Default string `koanf:"default" validate:"required"`
}

// FallbackRule routes model names containing a keyword to an upstream ID.
type FallbackRule struct {
	Contains string `koanf:"contains" validate:"required"`
	Model    string `koanf:"model" validate:"required"`
}

// defaults returns the built-in configuration layer.
func defaults() map[string]any {
	return map[string]any{
		"listen":                       "127.0.0.1:8000",
		"upstream.base_url":            "https://integrate.api.nvidia.com/v1",
		"reasoning.show_reasoning":     true,
		"reasoning.thinking_mode":      true,
		"reasoning.thinking_injection": "chat_template_kwargs",
		"defaults.temperature":         0.6,
		"defaults.max_tokens":          8192,
		"models.default":               "nvidia/llama-3.1-nemotron-nano-8b-v1",
	}
}

// Load reads configuration from defaults, an optional TOML file at path, and
// the environment. environ is injectable for tests (pass os.Environ).
func Load(path string, environ func() []string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(".", env.Opt{
		Prefix:      envPrefix,
		EnvironFunc: environ,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.TrimPrefix(key, envPrefix)
			// "__" separates sections so single "_" survives inside key names.
			key = strings.ReplaceAll(strings.ToLower(key), "__", ".")
			return key, value
		},
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
