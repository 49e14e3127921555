package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tmc/langchaingo/llms/anthropic"
	"go.uber.org/zap"
)

type AnthropicProvider struct {
	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  *zap.Logger
}

func NewAnthropicProvider(cfg Config, client *http.Client, logger *zap.Logger) *AnthropicProvider {
	return &AnthropicProvider{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		timeout: cfg.Timeout,
		client:  client,
		logger:  logger,
	}
}

func (a *AnthropicProvider) Name() string { return "anthropic" }

func (a *AnthropicProvider) Generate(ctx context.Context, request *LLMRequest) (*LLMResponse, error) {
	rec := newStatusRecorder(a.client, "", "")

	opts := []anthropic.Option{
		anthropic.WithToken(a.apiKey),
		anthropic.WithHTTPClient(rec),
	}
	if a.model != "" {
		opts = append(opts, anthropic.WithModel(a.model))
	}
	if a.baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(a.baseURL))
	}

	model, err := anthropic.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create anthropic client: %w", err)
	}

	// Messages API has no JSON mode; the system prompt asks for JSON only.
	req := *request
	req.JSONMode = false

	start := time.Now()
	resp, err := generate(ctx, model, rec, &req, a.timeout)
	a.logger.Debug("anthropic completion",
		zap.String("model", a.model),
		zap.Int("status", rec.Status()),
		zap.Duration("latency", time.Since(start)),
		zap.Error(err))
	return resp, err
}
