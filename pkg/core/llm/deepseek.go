package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"fin_dashboard/pkg/core/logging"
)

const deepSeekURL = "https://api.deepseek.com/chat/completions"

// DeepSeekProvider calls the OpenAI-compatible DeepSeek chat endpoint.
type DeepSeekProvider struct {
	APIKey     string // falls back to DEEPSEEK_API_KEY
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

var _ Provider = (*DeepSeekProvider)(nil)

type chatRequest struct {
	Messages       []Message      `json:"messages"`
	Model          string         `json:"model"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat ResponseFormat `json:"response_format"`
	Stream         bool           `json:"stream"`
	Temperature    float64        `json:"temperature"`
}

type Message struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *DeepSeekProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	apiKey := stringOpt(options, OptAPIKey, p.APIKey)
	if apiKey == "" {
		apiKey = os.Getenv("DEEPSEEK_API_KEY")
	}
	if apiKey == "" {
		return "", fmt.Errorf("deepseek: %w (DEEPSEEK_API_KEY)", ErrMissingAPIKey)
	}

	model := stringOpt(options, OptModel, p.Model)
	if model == "" {
		model = "deepseek-chat"
	}
	url := p.BaseURL
	if url == "" {
		url = deepSeekURL
	}

	var messages []Message
	if systemPrompt != "" {
		messages = append(messages, Message{Content: systemPrompt, Role: "system"})
	}
	messages = append(messages, Message{Content: prompt, Role: "user"})

	body, err := json.Marshal(chatRequest{
		Messages:       messages,
		Model:          model,
		MaxTokens:      intOpt(options, OptMaxTokens, 1024),
		ResponseFormat: ResponseFormat{Type: "text"},
		Temperature:    floatOpt(options, OptTemperature, 0.2),
	})
	if err != nil {
		return "", fmt.Errorf("deepseek: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("deepseek: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	client := p.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	logging.Component("llm").Debug().Str("provider", "deepseek").Str("model", model).Msg("generate")

	res, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepseek: call: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("deepseek: read body: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("deepseek: status=%d body=%s", res.StatusCode, string(raw))
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("deepseek: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("deepseek: no choices in response")
	}
	return out.Choices[0].Message.Content, nil
}

func (p *DeepSeekProvider) AdaptInstructions(raw string) string {
	return raw
}
