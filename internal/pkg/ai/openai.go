package ai

import (
	"context"
	stderrors "errors"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/asum-cli/asum/internal/pkg/config"
	"github.com/asum-cli/asum/internal/pkg/errors"
)

// defaultOpenAIEndpoint is only used for logging and error messages.
const defaultOpenAIEndpoint = "https://api.openai.com/v1"

// OpenAIProvider calls an OpenAI compatible chat completion API.
type OpenAIProvider struct {
	client   *openai.Client
	apiKey   string
	endpoint string
}

// NewOpenAIProvider creates a provider from the [openai] section. A custom
// base_url points it at any compatible server, e.g. DeepSeek or a local proxy.
func NewOpenAIProvider(cfg config.OpenAIConfig) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	endpoint := defaultOpenAIEndpoint
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
		endpoint = clientConfig.BaseURL
	}
	clientConfig.HTTPClient = newHTTPClient()

	return &OpenAIProvider{
		client:   openai.NewClientWithConfig(clientConfig),
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
	}
}

// sendableFloat works around omitempty on the request fields: a configured
// 0 would be dropped and the server default used instead.
func sendableFloat(v float64) float32 {
	if v == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(v)
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return config.ProviderOpenAI
}

// Generate streams a chat completion and returns the concatenated deltas.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt Prompt, params Params) (string, error) {
	if strings.TrimSpace(p.apiKey) == "" && p.endpoint == defaultOpenAIEndpoint {
		return "", errors.NewUnauthorizedError(p.Name())
	}

	req := openai.ChatCompletionRequest{
		Model: params.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt.User},
		},
		Temperature: sendableFloat(params.Temperature),
		TopP:        sendableFloat(params.TopP),
		MaxTokens:   params.MaxTokens,
		Stream:      true,
	}

	errors.LogAPIRequest(p.Name(), p.endpoint, params.Model, prompt.Length())
	start := time.Now()

	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", p.wrapError(ctx, err)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", p.wrapError(ctx, err)
		}
		for _, choice := range chunk.Choices {
			sb.WriteString(choice.Delta.Content)
		}
	}

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", errors.NewBadResponseError(p.Name(), http.StatusOK, stderrors.New("empty completion"))
	}
	errors.LogAPIResponse(p.Name(), http.StatusOK, len(text), time.Since(start))
	return text, nil
}

// wrapError classifies go-openai errors by HTTP status.
func (p *OpenAIProvider) wrapError(ctx context.Context, err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case stderrors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case stderrors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return classifyTransportError(ctx, p.Name(), p.endpoint, err)
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.NewUnauthorizedError(p.Name())
	case http.StatusTooManyRequests:
		return errors.NewRateLimitError(p.Name(), 0)
	default:
		return errors.NewBadResponseError(p.Name(), status, err)
	}
}
