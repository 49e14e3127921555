package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// OpenAIProvider talks to any OpenAI-compatible chat completion endpoint,
// OpenRouter included.
type OpenAIProvider struct {
	apiKey  string
	model   string
	baseURL string
	referer string
	title   string
	timeout time.Duration
	client  *http.Client
	logger  *zap.Logger
}

func NewOpenAIProvider(cfg Config, client *http.Client, logger *zap.Logger) *OpenAIProvider {
	return &OpenAIProvider{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		referer: cfg.Referer,
		title:   cfg.Title,
		timeout: cfg.Timeout,
		client:  client,
		logger:  logger,
	}
}

func (o *OpenAIProvider) Name() string { return "openai" }

func (o *OpenAIProvider) Generate(ctx context.Context, request *LLMRequest) (*LLMResponse, error) {
	rec := newStatusRecorder(o.client, o.referer, o.title)

	opts := []openai.Option{
		openai.WithToken(o.apiKey),
		openai.WithHTTPClient(rec),
	}
	if o.model != "" {
		opts = append(opts, openai.WithModel(o.model))
	}
	if o.baseURL != "" {
		opts = append(opts, openai.WithBaseURL(o.baseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	start := time.Now()
	resp, err := generate(ctx, model, rec, request, o.timeout)
	o.logger.Debug("openai completion",
		zap.String("model", o.model),
		zap.Int("status", rec.Status()),
		zap.Duration("latency", time.Since(start)),
		zap.Error(err))
	return resp, err
}
