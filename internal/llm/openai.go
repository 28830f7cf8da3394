package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"mailsorter/pkg/config"
	"mailsorter/pkg/metrics"
	"mailsorter/pkg/otel"
)

const (
	DefaultModel = openai.GPT4o

	// Temperature is fixed low so the model answers with a single label
	// consistently. Callers cannot change it.
	Temperature float32 = 0.3

	systemPrompt = "You are an expert email classifier. Reply with exactly one category name and nothing else."
)

var ErrEmptyCompletion = errors.New("model returned no choices")

// OpenAIClient sends one chat completion per prompt. The API key is supplied
// per call because it belongs to the end user, not the server.
type OpenAIClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewOpenAIClient(cfg config.ModelConfig) *OpenAIClient {
	model := cfg.Name
	if model == "" {
		model = DefaultModel
	}
	httpClient := &http.Client{}
	if cfg.TimeoutSeconds > 0 {
		httpClient.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &OpenAIClient{
		baseURL:    cfg.BaseURL,
		model:      model,
		httpClient: httpClient,
	}
}

// Model returns the model name requests are sent to.
func (c *OpenAIClient) Model() string {
	return c.model
}

// Complete 调用 chat completion，返回原始文本（未裁剪）
func (c *OpenAIClient) Complete(ctx context.Context, apiKey, prompt string) (string, error) {
	ctx, span := otel.StartSpan(ctx, "llm.Complete")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", c.model))

	ocfg := openai.DefaultConfig(apiKey)
	if c.baseURL != "" {
		ocfg.BaseURL = c.baseURL
	}
	ocfg.HTTPClient = c.httpClient
	client := openai.NewClientWithConfig(ocfg)

	start := time.Now()
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	latency := time.Since(start)
	if err != nil {
		metrics.RecordModelCallLatency(c.model, "error", latency)
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return "", err
	}
	metrics.RecordModelCallLatency(c.model, "success", latency)

	if len(resp.Choices) == 0 {
		span.SetStatus(codes.Error, "no choices")
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}
