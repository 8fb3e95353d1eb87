package ai

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/asum-cli/asum/internal/pkg/config"
	"github.com/asum-cli/asum/internal/pkg/errors"
)

// ollamaGeneratePath selects the single-prompt endpoint instead of chat.
const ollamaGeneratePath = "/api/generate"

// OllamaProvider talks to a local Ollama runtime.
type OllamaProvider struct {
	httpClient *http.Client
	url        string
	stream     bool
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages,omitempty"`
	Prompt   string          `json:"prompt,omitempty"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

// ollamaChunk covers both the chat and generate response shapes. When
// streaming, one chunk arrives per line until Done.
type ollamaChunk struct {
	Message  *ollamaMessage `json:"message,omitempty"`
	Response string         `json:"response,omitempty"`
	Done     bool           `json:"done"`
	Error    string         `json:"error,omitempty"`
}

// NewOllamaProvider creates a provider for the configured runtime URL.
func NewOllamaProvider(cfg config.OllamaConfig) *OllamaProvider {
	return &OllamaProvider{
		httpClient: newHTTPClient(),
		url:        cfg.URL,
		stream:     cfg.Stream,
	}
}

// Name returns the provider name.
func (p *OllamaProvider) Name() string {
	return config.ProviderOllama
}

// Generate sends the prompt and returns the concatenated response text.
func (p *OllamaProvider) Generate(ctx context.Context, prompt Prompt, params Params) (string, error) {
	body, err := json.Marshal(p.buildRequest(prompt, params))
	if err != nil {
		return "", fmt.Errorf("encode ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrConfigInvalid, "invalid ollama url "+p.url)
	}
	req.Header.Set("Content-Type", "application/json")

	errors.LogAPIRequest(p.Name(), p.url, params.Model, prompt.Length())
	start := time.Now()

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", classifyTransportError(ctx, p.Name(), p.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errors.LogAPIResponse(p.Name(), resp.StatusCode, 0, time.Since(start))
		appErr := errors.NewBadResponseError(p.Name(), resp.StatusCode, stderrors.New(readErrorBody(resp.Body)))
		if resp.StatusCode == http.StatusNotFound {
			appErr.WithSuggestion(fmt.Sprintf("Pull the model first with 'ollama pull %s'", params.Model))
		}
		return "", appErr
	}

	text, err := p.readResponse(ctx, resp.Body)
	if err != nil {
		return "", err
	}
	errors.LogAPIResponse(p.Name(), resp.StatusCode, len(text), time.Since(start))
	return text, nil
}

func (p *OllamaProvider) buildRequest(prompt Prompt, params Params) ollamaRequest {
	req := ollamaRequest{
		Model:  params.Model,
		Stream: p.stream,
		Options: ollamaOptions{
			Temperature: params.Temperature,
			TopP:        params.TopP,
			NumPredict:  params.MaxTokens,
		},
	}
	if strings.HasSuffix(strings.TrimRight(p.url, "/"), ollamaGeneratePath) {
		req.Prompt = prompt.System + "\n\n" + prompt.User
		return req
	}
	req.Messages = []ollamaMessage{
		{Role: "system", Content: prompt.System},
		{Role: "user", Content: prompt.User},
	}
	return req
}

// readResponse decodes one object or a stream of newline-delimited chunks.
func (p *OllamaProvider) readResponse(ctx context.Context, r io.Reader) (string, error) {
	var sb strings.Builder
	dec := json.NewDecoder(r)
	for {
		var chunk ollamaChunk
		if err := dec.Decode(&chunk); err != nil {
			if err == io.EOF {
				break
			}
			if ctx.Err() != nil {
				return "", classifyTransportError(ctx, p.Name(), p.url, err)
			}
			return "", errors.NewBadResponseError(p.Name(), 0, fmt.Errorf("decode response: %w", err))
		}
		if chunk.Error != "" {
			return "", errors.NewBadResponseError(p.Name(), 0, stderrors.New(chunk.Error))
		}
		if chunk.Message != nil {
			sb.WriteString(chunk.Message.Content)
		}
		sb.WriteString(chunk.Response)
		if chunk.Done {
			break
		}
	}

	if strings.TrimSpace(sb.String()) == "" {
		return "", errors.NewBadResponseError(p.Name(), 0, stderrors.New("empty response"))
	}
	return sb.String(), nil
}
