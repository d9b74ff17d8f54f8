// Package llm wraps the hosted language models used to narrate comparisons.
package llm

import (
	"context"
	"errors"
)

// ErrMissingAPIKey is returned when a provider has no credentials configured.
var ErrMissingAPIKey = errors.New("llm: api key not set")

// Provider is the interface for all LLM providers.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
	// AdaptInstructions transforms raw instructions into model-specific formats
	AdaptInstructions(rawInstructions string) string
}

// Options understood by every provider.
const (
	OptModel       = "model"
	OptTemperature = "temperature"
	OptAPIKey      = "api_key"
	OptMaxTokens   = "max_tokens"
)

func stringOpt(options map[string]interface{}, key, fallback string) string {
	if v, ok := options[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func floatOpt(options map[string]interface{}, key string, fallback float64) float64 {
	switch v := options[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	}
	return fallback
}

func intOpt(options map[string]interface{}, key string, fallback int) int {
	switch v := options[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}
