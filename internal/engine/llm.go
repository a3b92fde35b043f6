package engine

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anatolykoptev/go-kit/llm"
)

// Completer sends one single-turn prompt to the reasoning model and returns its text reply.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, system, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, system, prompt string) (string, error) {
	return f(ctx, system, prompt)
}

// NewLLM builds the go-kit LLM client from config. Temperature and max tokens are fixed
// at construction so every classification request shares the same contract.
func NewLLM(c Config) Completer {
	client := llm.NewClient(c.LLMAPIBase, c.LLMAPIKey, c.LLMModel,
		llm.WithFallbackKeys(c.LLMAPIKeyFallbacks),
		llm.WithMaxTokens(c.LLMMaxTokens),
		llm.WithTemperature(c.LLMTemperature),
		llm.WithHTTPClient(&http.Client{Timeout: c.LLMTimeout}),
	)
	return CompleterFunc(func(ctx context.Context, system, prompt string) (string, error) {
		metrics.LLMCalls.Add(1)
		resp, err := client.Complete(ctx, system, prompt)
		if err != nil {
			metrics.LLMErrors.Add(1)
			return "", err
		}
		return resp, nil
	})
}

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

var errNoJSONObject = errors.New("no JSON object in model reply")

// extractJSONObject returns the outermost {...} span of raw, tolerating prose around it.
func extractJSONObject(raw string) (string, error) {
	raw = stripFences(raw)
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return "", errNoJSONObject
	}
	return raw[start : end+1], nil
}
