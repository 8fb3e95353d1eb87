package ai

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/asum-cli/asum/internal/pkg/config"
	"github.com/asum-cli/asum/internal/pkg/errors"
)

// GeminiProvider calls the Google Generative Language REST API.
type GeminiProvider struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"system_instruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Reason string `json:"reason"`
		} `json:"details"`
	} `json:"error"`
}

// NewGeminiProvider creates a provider using the configured key and base URL.
func NewGeminiProvider(cfg config.GeminiConfig) *GeminiProvider {
	return &GeminiProvider{
		httpClient: newHTTPClient(),
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return config.ProviderGemini
}

func (p *GeminiProvider) endpoint(model string) string {
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent", p.baseURL, url.PathEscape(model))
}

// Generate sends the prompt and returns the text of the first candidate.
func (p *GeminiProvider) Generate(ctx context.Context, prompt Prompt, params Params) (string, error) {
	if strings.TrimSpace(p.apiKey) == "" {
		return "", errors.NewUnauthorizedError(p.Name())
	}

	payload := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt.User}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     params.Temperature,
			TopP:            params.TopP,
			MaxOutputTokens: params.MaxTokens,
		},
	}
	if prompt.System != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: prompt.System}}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode gemini request: %w", err)
	}

	endpoint := p.endpoint(params.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrConfigInvalid, "invalid gemini base_url "+p.baseURL)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

	errors.LogAPIRequest(p.Name(), endpoint, params.Model, prompt.Length())
	start := time.Now()

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", classifyTransportError(ctx, p.Name(), p.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errors.LogAPIResponse(p.Name(), resp.StatusCode, 0, time.Since(start))
		return "", p.statusError(resp)
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if ctx.Err() != nil {
			return "", classifyTransportError(ctx, p.Name(), p.baseURL, err)
		}
		return "", errors.NewBadResponseError(p.Name(), resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}

	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return "", errors.NewBadResponseError(p.Name(), resp.StatusCode,
			fmt.Errorf("prompt blocked: %s", out.PromptFeedback.BlockReason))
	}
	if len(out.Candidates) == 0 {
		return "", errors.NewBadResponseError(p.Name(), resp.StatusCode, stderrors.New("no candidates returned"))
	}

	var sb strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", errors.NewBadResponseError(p.Name(), resp.StatusCode,
			fmt.Errorf("empty candidate (finish reason %q)", out.Candidates[0].FinishReason))
	}

	errors.LogAPIResponse(p.Name(), resp.StatusCode, len(text), time.Since(start))
	return text, nil
}

func (p *GeminiProvider) statusError(resp *http.Response) error {
	raw := readErrorBody(resp.Body)

	var apiErr geminiError
	_ = json.Unmarshal([]byte(raw), &apiErr)
	msg := apiErr.Error.Message
	if msg == "" {
		msg = raw
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return errors.NewUnauthorizedError(p.Name())
	case resp.StatusCode == http.StatusBadRequest && isInvalidKey(apiErr):
		return errors.NewUnauthorizedError(p.Name())
	case resp.StatusCode == http.StatusTooManyRequests:
		return errors.NewRateLimitError(p.Name(), errors.ParseRetryAfterHeader(resp.Header.Get("Retry-After")))
	default:
		return errors.NewBadResponseError(p.Name(), resp.StatusCode, stderrors.New(msg))
	}
}

// isInvalidKey detects the 400 response Google returns for a malformed key.
func isInvalidKey(e geminiError) bool {
	for _, d := range e.Error.Details {
		if d.Reason == "API_KEY_INVALID" {
			return true
		}
	}
	return strings.Contains(e.Error.Message, "API key not valid")
}
