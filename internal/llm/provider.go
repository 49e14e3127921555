package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

// LLMProvider defines the interface for LLM providers
type LLMProvider interface {
	Name() string
	Generate(ctx context.Context, request *LLMRequest) (*LLMResponse, error)
}

// LLMRequest represents the structured request to LLM
type LLMRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// LLMResponse represents the raw response from LLM
type LLMResponse struct {
	Content string
	Usage   *Usage
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

// ErrUnknownProvider is returned by New for an unsupported provider name.
var ErrUnknownProvider = errors.New("unknown llm provider")

// Config selects and configures a provider.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
	Referer  string
	Title    string
}

// New builds the provider named by cfg.Provider.
func New(cfg Config, logger *zap.Logger) (LLMProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := &http.Client{Timeout: cfg.Timeout}

	switch strings.ToLower(cfg.Provider) {
	case "openai", "openrouter", "":
		return NewOpenAIProvider(cfg, client, logger), nil
	case "anthropic":
		return NewAnthropicProvider(cfg, client, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// generate sends a system+user exchange to model and classifies failures
// using the status captured by rec.
func generate(ctx context.Context, model llms.Model, rec *statusRecorder, request *LLMRequest, timeout time.Duration) (*LLMResponse, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, request.System),
		llms.TextParts(llms.ChatMessageTypeHuman, request.Prompt),
	}
	opts := []llms.CallOption{
		llms.WithTemperature(request.Temperature),
		llms.WithMaxTokens(request.MaxTokens),
	}
	if request.JSONMode {
		opts = append(opts, llms.WithJSONMode())
	}

	resp, err := model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, classify(ctx, rec.Status(), err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return nil, &ProviderError{Kind: KindMalformed, StatusCode: rec.Status(), Err: ErrEmptyResponse}
	}

	choice := resp.Choices[0]
	return &LLMResponse{
		Content: choice.Content,
		Usage:   usageFrom(choice.GenerationInfo),
	}, nil
}

// usageFrom reads token counts; OpenAI and Anthropic use different keys.
func usageFrom(info map[string]any) *Usage {
	if info == nil {
		return nil
	}
	u := &Usage{
		InputTokens:  firstInt(info, "PromptTokens", "InputTokens"),
		OutputTokens: firstInt(info, "CompletionTokens", "OutputTokens"),
	}
	if u.InputTokens == 0 && u.OutputTokens == 0 {
		return nil
	}
	return u
}

func firstInt(info map[string]any, keys ...string) int {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}
