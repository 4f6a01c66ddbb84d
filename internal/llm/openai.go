package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"family-os/internal/config"
	"family-os/internal/shared"
)

const groqAPIURL = "https://api.groq.com/openai/v1"

// chatClient talks to any OpenAI-compatible chat completions endpoint.
type chatClient struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	httpClient  *http.Client
}

// NewOpenAIClient creates a client for the OpenAI API (or a compatible base URL).
func NewOpenAIClient(cfg *config.Config) Client {
	return newChatClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg)
}

// NewGroqClient creates a client for the Groq API.
func NewGroqClient(cfg *config.Config) Client {
	return newChatClient(groqAPIURL, cfg.GroqAPIKey, cfg.GroqModel, cfg)
}

func newChatClient(baseURL, apiKey, model string, cfg *config.Config) *chatClient {
	return &chatClient{
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		temperature: 0.7,
		httpClient: &http.Client{
			Timeout: cfg.LLMTimeout,
		},
	}
}

// GenerateContent sends a prompt to the chat model in JSON mode and returns the generated text.
func (c *chatClient) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	reqBody := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{
				"role":    "user",
				"content": prompt,
			},
		},
		"temperature":     c.temperature,
		"response_format": map[string]string{"type": "json_object"},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return ContentResponse{}, fmt.Errorf("chat api error: status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}

	var chatResp struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return ContentResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return ContentResponse{}, fmt.Errorf("%w: no content generated", ErrMalformedOutput)
	}

	model := chatResp.Model
	if model == "" {
		model = c.model
	}

	return ContentResponse{
		Content: chatResp.Choices[0].Message.Content,
		Usage: shared.TokenUsage{
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
			TotalTokens:      chatResp.Usage.TotalTokens,
			Model:            model,
		},
	}, nil
}

// Close is a no-op; the HTTP client holds no resources worth releasing.
func (c *chatClient) Close() error {
	return nil
}
