package classify

import "testing"

func TestResolve_ClaudePrefix(t *testing.T) {
	r := &Router{Claude: NewClaudeClassifier("test-key")}
	c, err := r.resolve("claude-sonnet-4-5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != r.Claude {
		t.Error("expected claude classifier resolved for claude- prefix")
	}
}

func TestResolve_GPTPrefix(t *testing.T) {
	r := &Router{OpenAI: NewOpenAIClassifier("test-key")}
	c, err := r.resolve("gpt-4o")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != r.OpenAI {
		t.Error("expected openai classifier resolved for gpt- prefix")
	}
}

func TestResolve_OpenAIReasoningPrefix(t *testing.T) {
	r := &Router{OpenAI: NewOpenAIClassifier("test-key")}
	for _, tag := range []string{"o1", "o1-mini", "o3"} {
		c, err := r.resolve(tag)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", tag, err)
		}
		if c != r.OpenAI {
			t.Errorf("expected openai classifier resolved for %s", tag)
		}
	}
}

func TestResolve_UnrecognizedTag(t *testing.T) {
	r := &Router{}
	if _, err := r.resolve("mistral-large"); err == nil {
		t.Fatal("expected error for unrecognized model tag")
	}
}

func TestResolve_MissingProviderConfigured(t *testing.T) {
	r := &Router{}
	if _, err := r.resolve("claude-sonnet-4-5"); err == nil {
		t.Fatal("expected error when no claude classifier is configured")
	}
}

func TestIsOpenAIReasoningTag(t *testing.T) {
	cases := map[string]bool{
		"o1":        true,
		"o1-mini":   true,
		"o3":        true,
		"openai":    false,
		"gpt-4o":    false,
		"o":         false,
		"":          false,
	}
	for tag, want := range cases {
		if got := isOpenAIReasoningTag(tag); got != want {
			t.Errorf("isOpenAIReasoningTag(%q) = %v, want %v", tag, got, want)
		}
	}
}
