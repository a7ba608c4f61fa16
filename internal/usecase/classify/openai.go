package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"feedctl/internal/resilience/circuitbreaker"
	"feedctl/internal/resilience/retry"
)

// OpenAIClassifier implements Classifier using OpenAI's chat completion API.
type OpenAIClassifier struct {
	client         *openai.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	timeout        time.Duration
}

func NewOpenAIClassifier(apiKey string) *OpenAIClassifier {
	return &OpenAIClassifier{
		client:         openai.NewClient(apiKey),
		circuitBreaker: circuitbreaker.New(circuitbreaker.OpenAIAPIConfig()),
		retryConfig:    retry.AIAPIConfig(),
		timeout:        60 * time.Second,
	}
}

func (o *OpenAIClassifier) Classify(ctx context.Context, title, summary, modelTag string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var result Result
	retryErr := retry.WithBackoff(ctx, o.retryConfig, func() error {
		cbResult, err := o.circuitBreaker.Execute(func() (interface{}, error) {
			return o.doClassify(ctx, title, summary, modelTag)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("openai api circuit breaker open, request rejected",
					slog.String("service", "openai-api"),
					slog.String("state", o.circuitBreaker.State().String()))
				return newClassifyError(ErrorProviderError, modelTag, ErrBreakerOpen)
			}
			return err
		}
		result = cbResult.(Result)
		return nil
	})
	if retryErr != nil {
		return Result{}, retryErr
	}
	return result, nil
}

func (o *OpenAIClassifier) doClassify(ctx context.Context, title, summary, modelTag string) (Result, error) {
	start := time.Now()

	slog.InfoContext(ctx, "starting classification", slog.String("model_tag", modelTag))

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: modelTag,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(title, summary)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "classification failed",
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return Result{}, newClassifyError(ErrorProviderError, modelTag, err)
	}

	if len(resp.Choices) == 0 {
		return Result{}, newClassifyError(ErrorInvalidResponse, modelTag, fmt.Errorf("empty response"))
	}

	payload, err := parseAndNormalize(resp.Choices[0].Message.Content, modelTag)
	if err != nil {
		return Result{}, err
	}

	inputTokens := resp.Usage.PromptTokens
	outputTokens := resp.Usage.CompletionTokens

	slog.InfoContext(ctx, "classification completed",
		slog.Int("input_tokens", inputTokens),
		slog.Int("output_tokens", outputTokens),
		slog.Duration("duration", duration))

	return Result{
		Payload: payload,
		Usage: Usage{
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
			CostUSD:      costUSD(modelTag, inputTokens, outputTokens),
		},
	}, nil
}

// BreakerOpen reports whether the OpenAI circuit breaker is currently open,
// for the readiness probe to surface provider-level degradation.
func (o *OpenAIClassifier) BreakerOpen() bool {
	return o.circuitBreaker.IsOpen()
}

// BreakerState returns the circuit breaker's state as gobreaker's
// 0=closed/1=half-open/2=open encoding, for the breaker_state gauge.
func (o *OpenAIClassifier) BreakerState() int {
	return int(o.circuitBreaker.State())
}
