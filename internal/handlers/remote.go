package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/steveharianto/Flightly/internal/llm"
	"github.com/steveharianto/Flightly/internal/models"
	"github.com/steveharianto/Flightly/internal/prompts"
	"github.com/steveharianto/Flightly/internal/telemetry"
)

// RemoteExtractor turns free text into a TravelRequest through an LLM.
// Every failure is returned as *llm.ProviderError.
type RemoteExtractor struct {
	provider llm.LLMProvider
	now      func() time.Time
	logger   *zap.Logger
	metrics  *telemetry.Metrics
}

func NewRemoteExtractor(provider llm.LLMProvider, logger *zap.Logger, metrics *telemetry.Metrics) *RemoteExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteExtractor{
		provider: provider,
		now:      time.Now,
		logger:   logger,
		metrics:  metrics,
	}
}

func (r *RemoteExtractor) Extract(ctx context.Context, text string) (*models.TravelRequest, error) {
	now := r.now()
	llmRequest := &llm.LLMRequest{
		System:      prompts.BuildExtractionPrompt(now),
		Prompt:      text,
		MaxTokens:   500,
		Temperature: 0.2,
		JSONMode:    true,
	}

	start := time.Now()
	llmResponse, err := r.provider.Generate(ctx, llmRequest)
	if err != nil {
		r.metrics.RecordRemote(r.provider.Name(), time.Since(start), string(llm.KindOf(err)))
		return nil, err
	}

	request, err := prompts.ParseLLMResponse(llmResponse.Content, now)
	if err != nil {
		r.logger.Warn("Failed to parse LLM response", zap.Error(err))
		r.metrics.RecordRemote(r.provider.Name(), time.Since(start), string(llm.KindMalformed))
		return nil, &llm.ProviderError{Kind: llm.KindMalformed, Err: err}
	}
	r.metrics.RecordRemote(r.provider.Name(), time.Since(start), "")

	if llmResponse.Usage != nil {
		r.logger.Debug("Remote extraction complete",
			zap.Int("input_tokens", llmResponse.Usage.InputTokens),
			zap.Int("output_tokens", llmResponse.Usage.OutputTokens))
	}
	return request, nil
}
