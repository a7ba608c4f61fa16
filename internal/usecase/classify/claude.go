package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"feedctl/internal/resilience/circuitbreaker"
	"feedctl/internal/resilience/retry"
)

// ClaudeClassifier implements Classifier using Anthropic's Claude API.
type ClaudeClassifier struct {
	client         anthropic.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	maxTokens      int64
	timeout        time.Duration
}

func NewClaudeClassifier(apiKey string) *ClaudeClassifier {
	return &ClaudeClassifier{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		circuitBreaker: circuitbreaker.New(circuitbreaker.ClaudeAPIConfig()),
		retryConfig:    retry.AIAPIConfig(),
		maxTokens:      1024,
		timeout:        60 * time.Second,
	}
}

func (c *ClaudeClassifier) Classify(ctx context.Context, title, summary, modelTag string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var result Result
	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		cbResult, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doClassify(ctx, title, summary, modelTag)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("claude api circuit breaker open, request rejected",
					slog.String("service", "claude-api"),
					slog.String("state", c.circuitBreaker.State().String()))
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

func (c *ClaudeClassifier) doClassify(ctx context.Context, title, summary, modelTag string) (Result, error) {
	requestID := uuid.New().String()
	start := time.Now()

	slog.InfoContext(ctx, "starting classification",
		slog.String("request_id", requestID),
		slog.String("model_tag", modelTag))

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(modelTag),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildUserPrompt(title, summary))),
		},
	})
	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "classification failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return Result{}, newClassifyError(ErrorProviderError, modelTag, err)
	}

	if len(message.Content) == 0 {
		return Result{}, newClassifyError(ErrorInvalidResponse, modelTag, fmt.Errorf("empty response"))
	}
	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return Result{}, newClassifyError(ErrorInvalidResponse, modelTag, fmt.Errorf("unexpected response content type"))
	}

	payload, err := parseAndNormalize(textBlock.Text, modelTag)
	if err != nil {
		return Result{}, err
	}

	inputTokens := int(message.Usage.InputTokens)
	outputTokens := int(message.Usage.OutputTokens)

	slog.InfoContext(ctx, "classification completed",
		slog.String("request_id", requestID),
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

// BreakerOpen reports whether the Claude circuit breaker is currently open,
// for the readiness probe to surface provider-level degradation.
func (c *ClaudeClassifier) BreakerOpen() bool {
	return c.circuitBreaker.IsOpen()
}

// BreakerState returns the circuit breaker's state as gobreaker's
// 0=closed/1=half-open/2=open encoding, for the breaker_state gauge.
func (c *ClaudeClassifier) BreakerState() int {
	return int(c.circuitBreaker.State())
}
