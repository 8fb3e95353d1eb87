// Package config resolves asum configuration from built-in defaults, the
// user's home file and the working directory file.
package config

import (
	"strings"
	"time"
)

// FileName is the configuration file name searched in both locations.
const FileName = "asum.toml"

// HomeSubdir is the directory under the user's home holding the fallback file and logs.
const HomeSubdir = ".asum"

// Provider names. Exactly one is active per invocation.
const (
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// providerAliases maps accepted spellings to provider names. The generic
// names refer to the backend classes: a local runtime or a hosted API.
var providerAliases = map[string]string{
	ProviderOllama: ProviderOllama,
	"local-model":  ProviderOllama,
	"local":        ProviderOllama,
	ProviderGemini: ProviderGemini,
	"hosted-api":   ProviderGemini,
	"google":       ProviderGemini,
	ProviderOpenAI: ProviderOpenAI,
}

// NormalizeProvider resolves an alias to a provider name.
func NormalizeProvider(name string) (string, bool) {
	p, ok := providerAliases[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Config represents the complete asum configuration.
type Config struct {
	General  GeneralConfig `mapstructure:"general" toml:"general"`
	Prompts  PromptsConfig `mapstructure:"prompts" toml:"prompts"`
	AIParams AIParams      `mapstructure:"ai_params" toml:"ai_params"`
	Ollama   OllamaConfig  `mapstructure:"ollama" toml:"ollama"`
	Gemini   GeminiConfig  `mapstructure:"gemini" toml:"gemini"`
	OpenAI   OpenAIConfig  `mapstructure:"openai" toml:"openai"`

	// Sources lists the files merged into this configuration, lowest priority first.
	Sources []string `mapstructure:"-" toml:"-"`
}

// GeneralConfig contains provider selection and diff limits.
type GeneralConfig struct {
	ActiveProvider    string   `mapstructure:"active_provider" toml:"active_provider" validate:"required,oneof=ollama gemini openai"`
	MaxDiffLength     int      `mapstructure:"max_diff_length" toml:"max_diff_length" validate:"gt=0"`
	TimeoutSeconds    int      `mapstructure:"timeout_seconds" toml:"timeout_seconds" validate:"gt=0"`
	IgnorePatterns    []string `mapstructure:"ignore_patterns" toml:"ignore_patterns"`
	IncludeExtensions []string `mapstructure:"include_extensions" toml:"include_extensions"`
	CopyToClipboard   bool     `mapstructure:"copy_to_clipboard" toml:"copy_to_clipboard"`
	RateLimitRetries  int      `mapstructure:"rate_limit_retries" toml:"rate_limit_retries" validate:"gte=0,lte=5"`
}

// PromptsConfig holds optional prompt overrides. Empty means built-in default.
type PromptsConfig struct {
	SystemPrompt string `mapstructure:"system_prompt" toml:"system_prompt,omitempty"`
	UserPrompt   string `mapstructure:"user_prompt" toml:"user_prompt,omitempty"`
}

// AIParams are generation parameters shared by every provider.
type AIParams struct {
	Temperature float64 `mapstructure:"temperature" toml:"temperature" validate:"gte=0,lte=2"`
	TopP        float64 `mapstructure:"top_p" toml:"top_p" validate:"gte=0,lte=1"`
	NumPredict  int     `mapstructure:"num_predict" toml:"num_predict" validate:"gt=0"`
}

// OllamaConfig configures the local runtime.
type OllamaConfig struct {
	URL    string `mapstructure:"url" toml:"url" validate:"required,url"`
	Model  string `mapstructure:"model" toml:"model" validate:"required"`
	Stream bool   `mapstructure:"stream" toml:"stream"`
}

// GeminiConfig configures the Google hosted API.
type GeminiConfig struct {
	APIKey  string `mapstructure:"api_key" toml:"api_key,omitempty"`
	Model   string `mapstructure:"model" toml:"model" validate:"required"`
	BaseURL string `mapstructure:"base_url" toml:"base_url" validate:"required,url"`
}

// OpenAIConfig configures an OpenAI compatible hosted API.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key" toml:"api_key,omitempty"`
	Model   string `mapstructure:"model" toml:"model" validate:"required"`
	BaseURL string `mapstructure:"base_url" toml:"base_url,omitempty" validate:"omitempty,url"`
}

// Timeout returns the provider call deadline.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.General.TimeoutSeconds) * time.Second
}

// ActiveModel returns the model identifier of the active provider.
func (c *Config) ActiveModel() string {
	switch c.General.ActiveProvider {
	case ProviderGemini:
		return c.Gemini.Model
	case ProviderOpenAI:
		return c.OpenAI.Model
	default:
		return c.Ollama.Model
	}
}

// SetActiveModel replaces the model of the active provider.
func (c *Config) SetActiveModel(model string) {
	switch c.General.ActiveProvider {
	case ProviderGemini:
		c.Gemini.Model = model
	case ProviderOpenAI:
		c.OpenAI.Model = model
	default:
		c.Ollama.Model = model
	}
}

// ActiveAPIKey returns the API key of the active provider, empty for local runtimes.
func (c *Config) ActiveAPIKey() string {
	switch c.General.ActiveProvider {
	case ProviderGemini:
		return c.Gemini.APIKey
	case ProviderOpenAI:
		return c.OpenAI.APIKey
	default:
		return ""
	}
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			ActiveProvider:    ProviderOllama,
			MaxDiffLength:     36000,
			TimeoutSeconds:    60,
			IgnorePatterns:    []string{},
			IncludeExtensions: []string{},
			CopyToClipboard:   true,
			RateLimitRetries:  0,
		},
		AIParams: AIParams{
			Temperature: 0.7,
			TopP:        1.0,
			NumPredict:  256,
		},
		Ollama: OllamaConfig{
			URL:   "http://localhost:11434/api/chat",
			Model: "llama3",
		},
		Gemini: GeminiConfig{
			Model:   "gemini-1.5-flash",
			BaseURL: "https://generativelanguage.googleapis.com",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
	}
}
