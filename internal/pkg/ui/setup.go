package ui

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/asum-cli/asum/internal/pkg/config"
	"github.com/asum-cli/asum/internal/pkg/security"
)

// RunInteractiveSetup asks for the provider and its connection details and
// returns a copy of base with the answers applied. Nothing is written.
func RunInteractiveSetup(base *config.Config) (*config.Config, error) {
	cfg := *base

	provider := cfg.General.ActiveProvider
	err := huh.NewSelect[string]().
		Title("Select AI Provider").
		Options(
			huh.NewOption("Ollama (local)", config.ProviderOllama),
			huh.NewOption("Google Gemini", config.ProviderGemini),
			huh.NewOption("OpenAI compatible", config.ProviderOpenAI),
		).
		Value(&provider).
		Run()
	if err != nil {
		return nil, err
	}
	cfg.General.ActiveProvider = provider

	var fields []huh.Field
	switch provider {
	case config.ProviderOllama:
		fields = append(fields,
			modelInput(&cfg.Ollama.Model),
			huh.NewInput().
				Title("Ollama URL").
				Description("Chat or generate endpoint of the local runtime").
				Value(&cfg.Ollama.URL).
				Validate(validateURL),
		)
	case config.ProviderGemini:
		fields = append(fields,
			huh.NewNote().Title("Privacy").Description(security.RemoteNotice),
			apiKeyInput(&cfg.Gemini.APIKey, "GEMINI_API_KEY"),
			modelInput(&cfg.Gemini.Model),
		)
	case config.ProviderOpenAI:
		fields = append(fields,
			huh.NewNote().Title("Privacy").Description(security.RemoteNotice),
			apiKeyInput(&cfg.OpenAI.APIKey, "OPENAI_API_KEY"),
			modelInput(&cfg.OpenAI.Model),
			huh.NewInput().
				Title("Base URL").
				Description("Optional, for OpenAI compatible servers").
				Value(&cfg.OpenAI.BaseURL).
				Validate(validateOptionalURL),
		)
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func modelInput(value *string) *huh.Input {
	return huh.NewInput().
		Title("Model Name").
		Description("Model to use").
		Value(value).
		Validate(validateModel)
}

func apiKeyInput(value *string, envVar string) *huh.Input {
	return huh.NewInput().
		Title("API Key").
		Description(fmt.Sprintf("Leave empty to read it from %s at run time", envVar)).
		Value(value).
		EchoMode(huh.EchoModePassword)
}

func validateModel(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	return nil
}

func validateURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("enter an http:// or https:// URL")
	}
	return nil
}

func validateOptionalURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return validateURL(s)
}
