package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	OpenAIProvider = "openai"
	OpenAIKeyEnv   = "OPENAI_API_KEY"

	defaultOpenAIURL   = "https://api.openai.com/v1"
	defaultOpenAIModel = "gpt-4o"
	openAIMaxTokens    = 150
	openAITemperature  = 0.5
)

// OpenAI is a minimal client for OpenAI's chat completions API.
type OpenAI struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func newOpenAI(settings map[string]string, o options) (*OpenAI, error) {
	key := settings["api_key"]
	if key == "" {
		key = o.getenv(OpenAIKeyEnv)
	}
	if key == "" {
		return nil, fmt.Errorf("%w: set ai.openai.api_key or %s", ErrNoAPIKey, OpenAIKeyEnv)
	}
	model := settings["model"]
	if model == "" {
		model = defaultOpenAIModel
	}
	baseURL := o.baseURL
	if baseURL == "" {
		baseURL = defaultOpenAIURL
	}
	return &OpenAI{
		apiKey:     key,
		model:      model,
		baseURL:    baseURL,
		httpClient: o.client,
	}, nil
}

func (c *OpenAI) Summarize(ctx context.Context, lines []string) (string, error) {
	if len(lines) == 0 {
		return "", nil
	}
	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": Prompt(lines)},
		},
		"temperature": openAITemperature,
		"max_tokens":  openAIMaxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal openai payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call openai: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("openai responded with status %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}

	if len(parsed.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
