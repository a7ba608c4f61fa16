package classify

import (
	"context"
	"fmt"
	"strings"
)

// Router selects a Classifier by model tag prefix: "claude-*" routes to
// Claude, "gpt-*" and "o<digit>*" route to OpenAI. It implements Classifier
// itself so callers never need to resolve a provider by hand.
type Router struct {
	Claude *ClaudeClassifier
	OpenAI *OpenAIClassifier
}

func NewRouter(claude *ClaudeClassifier, openai *OpenAIClassifier) *Router {
	return &Router{Claude: claude, OpenAI: openai}
}

func (r *Router) Classify(ctx context.Context, title, summary, modelTag string) (Result, error) {
	c, err := r.resolve(modelTag)
	if err != nil {
		return Result{}, err
	}
	return c.Classify(ctx, title, summary, modelTag)
}

func (r *Router) resolve(modelTag string) (Classifier, error) {
	switch {
	case strings.HasPrefix(modelTag, "claude-"):
		if r.Claude == nil {
			return nil, fmt.Errorf("classify: no claude classifier configured for model tag %q", modelTag)
		}
		return r.Claude, nil
	case strings.HasPrefix(modelTag, "gpt-"), isOpenAIReasoningTag(modelTag):
		if r.OpenAI == nil {
			return nil, fmt.Errorf("classify: no openai classifier configured for model tag %q", modelTag)
		}
		return r.OpenAI, nil
	default:
		return nil, fmt.Errorf("classify: unrecognized model tag %q", modelTag)
	}
}

// isOpenAIReasoningTag matches OpenAI's "o<digit>" reasoning model family
// (o1, o1-mini, o3, ...).
func isOpenAIReasoningTag(modelTag string) bool {
	if len(modelTag) < 2 || modelTag[0] != 'o' {
		return false
	}
	return modelTag[1] >= '0' && modelTag[1] <= '9'
}

// BreakerStatus reports breaker-open state for every configured provider,
// keyed by provider name, for the readiness probe.
func (r *Router) BreakerStatus() map[string]bool {
	status := make(map[string]bool, 2)
	if r.Claude != nil {
		status["claude"] = r.Claude.BreakerOpen()
	}
	if r.OpenAI != nil {
		status["openai"] = r.OpenAI.BreakerOpen()
	}
	return status
}
