package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/asum-cli/asum/internal/pkg/errors"
)

// EnvPrefix is the environment variable prefix for overrides.
const EnvPrefix = "ASUM"

// Resolver loads configuration for one invocation.
// Priority: overrides > env > local file > home file > defaults
type Resolver struct {
	workDir   string
	homeDir   string
	useEnv    bool
	overrides map[string]interface{}
}

// NewResolver creates a resolver searching workDir and homeDir/.asum.
// An empty homeDir disables the home fallback.
func NewResolver(workDir, homeDir string) *Resolver {
	return &Resolver{
		workDir:   workDir,
		homeDir:   homeDir,
		useEnv:    true,
		overrides: make(map[string]interface{}),
	}
}

// NewDefaultResolver creates a resolver for the current directory and user home.
func NewDefaultResolver() (*Resolver, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrFileSystemError, "failed to get working directory")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		errors.Warn("home directory unavailable, skipping %s/%s: %v", HomeSubdir, FileName, err)
		home = ""
	}
	return NewResolver(wd, home), nil
}

// WithoutEnv disables environment overrides.
func (r *Resolver) WithoutEnv() *Resolver {
	r.useEnv = false
	return r
}

// SetOverride sets a value that wins over every other layer.
// This is used for command-line flag overrides that shouldn't persist.
func (r *Resolver) SetOverride(key string, value interface{}) {
	r.overrides[key] = value
}

// LocalPath returns the working directory configuration path.
func (r *Resolver) LocalPath() string {
	return filepath.Join(r.workDir, FileName)
}

// HomePath returns the home fallback path, or "" when no home is known.
func (r *Resolver) HomePath() string {
	if r.homeDir == "" {
		return ""
	}
	return filepath.Join(r.homeDir, HomeSubdir, FileName)
}

// LogDir returns the directory for daily log files, or "" when no home is known.
func (r *Resolver) LogDir() string {
	if r.homeDir == "" {
		return ""
	}
	return filepath.Join(r.homeDir, HomeSubdir, "logs")
}

// Resolve merges defaults, the home file and the local file field by field.
// Missing files are skipped; when neither exists the defaults are returned
// with an empty Sources list and a warning is logged.
func (r *Resolver) Resolve() (*Config, error) {
	v := newViper(r.useEnv)

	var sources []string
	for _, path := range []string{r.HomePath(), r.LocalPath()} {
		if path == "" {
			continue
		}
		loaded, err := mergeFile(v, path)
		if err != nil {
			return nil, err
		}
		if loaded {
			sources = append(sources, path)
			errors.Debug("merged configuration file %s", path)
		}
	}
	if len(sources) == 0 {
		errors.Warn("no configuration file found in %s; using built-in defaults", strings.Join(r.searchPaths(), " or "))
	}

	for key, value := range r.overrides {
		v.Set(key, value)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.Sources = sources
	return cfg, nil
}

func (r *Resolver) searchPaths() []string {
	paths := []string{r.LocalPath()}
	if home := r.HomePath(); home != "" {
		paths = append(paths, home)
	}
	return paths
}

// Verify checks that path exists, parses, and holds valid values when
// merged over the defaults. It reads nothing else and writes nothing.
func Verify(path string) error {
	if _, err := os.Stat(path); err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return errors.NewConfigNotFoundError(path)
		}
		return errors.Wrap(err, errors.ErrFileSystemError, "failed to stat configuration file")
	}

	v := newViper(false)
	if _, err := mergeFile(v, path); err != nil {
		return err
	}
	_, err := decode(v)
	return err
}

func newViper(useEnv bool) *viper.Viper {
	v := viper.New()
	v.SetConfigType("toml")
	setDefaults(v)
	if useEnv {
		bindEnvVars(v)
	}
	return v
}

// mergeFile reports whether path existed. Syntax is checked with go-toml so
// the error carries a line and column.
func mergeFile(v *viper.Viper, path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrFileSystemError, fmt.Sprintf("failed to read %s", path))
	}

	if err := checkSyntax(path, data); err != nil {
		return false, err
	}
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return false, errors.NewConfigParseError(path, 0, 0, err)
	}
	return true, nil
}

// checkSyntax reports malformed TOML with its position. Types are checked
// later by decode.
func checkSyntax(path string, data []byte) error {
	var doc map[string]interface{}
	err := toml.Unmarshal(data, &doc)
	if err == nil {
		return nil
	}

	var decErr *toml.DecodeError
	if stderrors.As(err, &decErr) {
		row, col := decErr.Position()
		return errors.NewConfigParseError(path, row, col, stderrors.New(decErr.Error()))
	}
	return errors.NewConfigParseError(path, 0, 0, err)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.NewConfigParseError("configuration", 0, 0, err).
			WithSuggestion("Check that every value has the expected type")
	}

	provider, ok := NormalizeProvider(cfg.General.ActiveProvider)
	if !ok {
		return nil, errors.NewConfigInvalidError(fmt.Sprintf(
			"unknown active_provider %q (expected ollama, gemini or openai)", cfg.General.ActiveProvider))
	}
	cfg.General.ActiveProvider = provider

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindEnvVars binds ASUM_SECTION_KEY for every known key. API keys also
// accept the vendor variable names.
func bindEnvVars(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range v.AllKeys() {
		_ = v.BindEnv(key, envName(key))
	}
	_ = v.BindEnv("gemini.api_key", envName("gemini.api_key"), "GEMINI_API_KEY")
	_ = v.BindEnv("openai.api_key", envName("openai.api_key"), "OPENAI_API_KEY")
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// setDefaults registers every key so env binding and unmarshal see them.
func setDefaults(v *viper.Viper) {
	d := Defaults()

	v.SetDefault("general.active_provider", d.General.ActiveProvider)
	v.SetDefault("general.max_diff_length", d.General.MaxDiffLength)
	v.SetDefault("general.timeout_seconds", d.General.TimeoutSeconds)
	v.SetDefault("general.ignore_patterns", d.General.IgnorePatterns)
	v.SetDefault("general.include_extensions", d.General.IncludeExtensions)
	v.SetDefault("general.copy_to_clipboard", d.General.CopyToClipboard)
	v.SetDefault("general.rate_limit_retries", d.General.RateLimitRetries)

	v.SetDefault("prompts.system_prompt", d.Prompts.SystemPrompt)
	v.SetDefault("prompts.user_prompt", d.Prompts.UserPrompt)

	v.SetDefault("ai_params.temperature", d.AIParams.Temperature)
	v.SetDefault("ai_params.top_p", d.AIParams.TopP)
	v.SetDefault("ai_params.num_predict", d.AIParams.NumPredict)

	v.SetDefault("ollama.url", d.Ollama.URL)
	v.SetDefault("ollama.model", d.Ollama.Model)
	v.SetDefault("ollama.stream", d.Ollama.Stream)

	v.SetDefault("gemini.api_key", d.Gemini.APIKey)
	v.SetDefault("gemini.model", d.Gemini.Model)
	v.SetDefault("gemini.base_url", d.Gemini.BaseURL)

	v.SetDefault("openai.api_key", d.OpenAI.APIKey)
	v.SetDefault("openai.model", d.OpenAI.Model)
	v.SetDefault("openai.base_url", d.OpenAI.BaseURL)
}

// WriteStarter writes cfg as TOML to path with 0600 permissions.
// An existing file is only replaced when force is set.
func WriteStarter(path string, cfg *Config, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return errors.New(errors.ErrInvalidArguments, fmt.Sprintf("config file already exists at %s", path)).
				WithSuggestion("Pass --force to overwrite it")
		}
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, errors.ErrFileSystemError, "failed to encode configuration")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, errors.ErrFileSystemError, "failed to create config directory")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(err, errors.ErrFileSystemError, "failed to write config file")
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0o600); err != nil {
		return errors.Wrap(err, errors.ErrFileSystemError, "failed to set config file permissions")
	}
	return nil
}
