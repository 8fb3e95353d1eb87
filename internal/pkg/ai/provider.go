// Package ai renders prompts and sends them to one of the supported
// generation backends.
package ai

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/asum-cli/asum/internal/pkg/config"
	"github.com/asum-cli/asum/internal/pkg/errors"
)

// Provider generates text from a rendered prompt. Implementations return a
// single aggregated string even when the transport streams, and classify
// failures as provider AppErrors. They never retry.
type Provider interface {
	Generate(ctx context.Context, prompt Prompt, params Params) (string, error)
	Name() string
}

// Params are the generation parameters for one request.
type Params struct {
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// ParamsFromConfig returns the parameters for the active provider.
func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		Model:       cfg.ActiveModel(),
		Temperature: cfg.AIParams.Temperature,
		TopP:        cfg.AIParams.TopP,
		MaxTokens:   cfg.AIParams.NumPredict,
	}
}

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4 << 10

// newHTTPClient has no overall timeout; the caller's context bounds each request.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// classifyTransportError maps a failed round trip or body read.
func classifyTransportError(ctx context.Context, provider, endpoint string, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.NewTimeoutError(provider, 0, err)
	}
	if stderrors.Is(err, context.Canceled) {
		return errors.NewCancelledError(provider+" request", err)
	}
	if isConnectionRefused(err) {
		return errors.NewUnreachableError(provider, endpoint, err)
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.NewTimeoutError(provider, 0, err)
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if stderrors.As(err, &opErr) || stderrors.As(err, &dnsErr) {
		return errors.NewUnreachableError(provider, endpoint, err)
	}
	return errors.NewBadResponseError(provider, 0, err)
}

func isConnectionRefused(err error) bool {
	if stderrors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(err.Error(), "connection refused")
}

// readErrorBody returns a trimmed prefix of an error response body.
func readErrorBody(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(body))
}
