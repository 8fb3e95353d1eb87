// Package app contains the application layer with business orchestration logic.
package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/asum-cli/asum/internal/pkg/ai"
	"github.com/asum-cli/asum/internal/pkg/clipboard"
	"github.com/asum-cli/asum/internal/pkg/config"
	"github.com/asum-cli/asum/internal/pkg/errors"
	"github.com/asum-cli/asum/internal/pkg/git"
	"github.com/asum-cli/asum/internal/pkg/message"
	"github.com/asum-cli/asum/internal/pkg/processor"
	"github.com/asum-cli/asum/internal/pkg/security"
	"github.com/asum-cli/asum/internal/pkg/ui"
)

// ConfigSource resolves the configuration for one invocation.
type ConfigSource interface {
	Resolve() (*config.Config, error)
}

// ProviderFactory builds the provider selected by the configuration.
type ProviderFactory func(cfg *config.Config) (ai.Provider, error)

// Result is the outcome of a successful Generate call.
type Result struct {
	// Message is nil when Empty is set.
	Message *message.CommitMessage
	// Empty means every staged change was filtered out or nothing is staged.
	// No provider was called.
	Empty    bool
	Filtered *processor.FilteredDiff
	Config   *config.Config
	Provider string
	Copied   bool
	Duration time.Duration
}

// Service runs the generate pipeline:
// resolve config → read staged diff → filter → build prompt → provider → normalize.
type Service struct {
	configs     ConfigSource
	gitClient   git.Client
	newProvider ProviderFactory
	uiManager   ui.Manager
	sink        clipboard.Sink
	retryConfig func(retries int) errors.RetryConfig
}

// NewService creates a Service with the given dependencies. A nil factory
// selects ai.NewProvider.
func NewService(
	configs ConfigSource,
	gitClient git.Client,
	newProvider ProviderFactory,
	uiManager ui.Manager,
	sink clipboard.Sink,
) *Service {
	if newProvider == nil {
		newProvider = ai.NewProvider
	}
	if sink == nil {
		sink = clipboard.Discard{}
	}
	return &Service{
		configs:     configs,
		gitClient:   gitClient,
		newProvider: newProvider,
		uiManager:   uiManager,
		sink:        sink,
		retryConfig: errors.RateLimitRetryConfig,
	}
}

// Verify checks a configuration file without touching anything else.
func (s *Service) Verify(path string) error {
	return config.Verify(path)
}

// Generate produces a commit message for the staged changes. An empty
// payload short-circuits with Result.Empty before any provider is built.
func (s *Service) Generate(ctx context.Context) (*Result, error) {
	start := time.Now()

	cfg, err := s.configs.Resolve()
	if err != nil {
		return nil, err
	}

	raw, err := s.gitClient.StagedDiff(ctx)
	if err != nil {
		return nil, err
	}

	filtered, err := processor.Filter(raw, cfg)
	if stderrors.Is(err, processor.ErrNothingToSummarize) {
		if filtered != nil && len(filtered.Ignored) > 0 {
			errors.Info("all %d staged file(s) were filtered out", len(filtered.Ignored))
		}
		return &Result{Empty: true, Filtered: filtered, Config: cfg, Duration: time.Since(start)}, nil
	}
	if err != nil {
		return nil, err
	}
	s.logFiltered(filtered, cfg)

	prompt := ai.BuildPrompt(filtered.Text, cfg.Prompts)

	provider, err := s.newProvider(cfg)
	if err != nil {
		return nil, err
	}
	s.logProvider(provider, cfg)

	text, err := s.callProvider(ctx, provider, prompt, cfg)
	if err != nil {
		return nil, err
	}

	msg, err := message.Normalize(text)
	if err != nil {
		errors.Debug("unusable model output: %q", security.SanitizeForLogging(text))
		return nil, err
	}
	for _, w := range msg.Warnings() {
		errors.Warn("%s", w)
	}

	result := &Result{
		Message:  msg,
		Filtered: filtered,
		Config:   cfg,
		Provider: provider.Name(),
	}
	result.Copied = s.copy(msg, cfg)
	result.Duration = time.Since(start)
	errors.Info("generated %q with %s in %v", msg.Header, provider.Name(), result.Duration.Round(time.Millisecond))
	return result, nil
}

// callProvider bounds each attempt by the configured timeout and retries only
// rate limited attempts, only when rate_limit_retries is positive.
func (s *Service) callProvider(ctx context.Context, provider ai.Provider, prompt ai.Prompt, cfg *config.Config) (string, error) {
	params := ai.ParamsFromConfig(cfg)
	timeout := cfg.Timeout()

	spinner := s.uiManager.ShowSpinner(fmt.Sprintf("Generating commit message with %s (%s)...", provider.Name(), params.Model))
	spinner.Start()
	defer spinner.Stop()

	var text string
	attempt := func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		out, err := provider.Generate(callCtx, prompt, params)
		if err != nil {
			if ctx.Err() == nil && stderrors.Is(callCtx.Err(), context.DeadlineExceeded) {
				return errors.NewTimeoutError(provider.Name(), timeout, err)
			}
			return err
		}
		text = out
		return nil
	}

	retries := cfg.General.RateLimitRetries
	if retries <= 0 {
		return text, attempt(ctx)
	}

	err := errors.Retry(ctx, s.retryConfig(retries), attempt, func(n int, err error, delay time.Duration) {
		errors.LogRetry(n, retries+1, err, delay)
		spinner.UpdateText(fmt.Sprintf("%s is rate limited, retrying in %v...", provider.Name(), delay.Round(time.Second)))
	})
	return text, err
}

func (s *Service) copy(msg *message.CommitMessage, cfg *config.Config) bool {
	if !cfg.General.CopyToClipboard {
		return false
	}
	if err := s.sink.Copy(msg.String()); err != nil {
		errors.Warn("%s", errors.FormatError(err))
		return false
	}
	return true
}

func (s *Service) logFiltered(filtered *processor.FilteredDiff, cfg *config.Config) {
	errors.Debug("diff: %d bytes raw, %d bytes sent, %d file(s) included, %d ignored",
		filtered.RawSize, len(filtered.Text), len(filtered.Included), len(filtered.Ignored))
	for _, ig := range filtered.Ignored {
		errors.Debug("ignored %s (%s)", ig.Segment.Path, ig.Reason)
	}
	if filtered.FileList {
		errors.Warn("no staged file matches general.include_extensions; sending the list of %d staged file(s) instead",
			len(filtered.Ignored))
	}
	if filtered.Truncated() {
		errors.Warn("diff truncated to %d bytes: %d file(s) omitted; increase general.max_diff_length to send more",
			cfg.General.MaxDiffLength, len(filtered.Omitted))
	}
}

func (s *Service) logProvider(provider ai.Provider, cfg *config.Config) {
	key := cfg.ActiveAPIKey()
	if provider.Name() == config.ProviderOllama {
		errors.Info("provider %s, model %s", provider.Name(), cfg.ActiveModel())
		return
	}
	errors.Info("provider %s, model %s, api key %s", provider.Name(), cfg.ActiveModel(), security.MaskAPIKey(key))
	if key != "" && !security.LooksLikeAPIKey(provider.Name(), key) && cfg.OpenAI.BaseURL == "" {
		errors.Warn("the %s api key does not look like a %s key", provider.Name(), provider.Name())
	}
}
