package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sqlscout/sqlscout/internal/errors"
)

const (
	defaultHTTPTimeout = 60 * time.Second
	defaultMaxTokens   = 2000
)

// Client implements the Gateway interface with multiple provider support
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new gateway client with the given configuration
func NewClient(config Config) (*Client, error) {
	c := &Client{
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
	}

	if err := c.Configure(config); err != nil {
		return nil, err
	}

	return c, nil
}

// Configure validates and applies the client configuration
func (c *Client) Configure(config Config) error {
	if config.Provider == "" {
		return errors.New(errors.ErrTypeConfig, "provider is required")
	}

	if config.Model == "" {
		return errors.New(errors.ErrTypeConfig, "model is required")
	}

	switch config.Provider {
	case ProviderOpenAI:
		if config.APIKey == "" {
			return errors.New(errors.ErrTypeConfig, "API key is required for OpenAI provider")
		}

		if config.BaseURL == "" {
			config.BaseURL = "https://api.openai.com/v1"
		}
	case ProviderAnthropic:
		if config.APIKey == "" {
			return errors.New(errors.ErrTypeConfig, "API key is required for Anthropic provider")
		}

		if config.BaseURL == "" {
			config.BaseURL = "https://api.anthropic.com/v1"
		}
	case ProviderLocal, ProviderOllama:
		if config.BaseURL == "" {
			config.BaseURL = "http://localhost:11434"
		}
	default:
		return errors.Newf(errors.ErrTypeConfig, "unsupported provider: %s", config.Provider)
	}

	if config.MaxTokens <= 0 {
		config.MaxTokens = defaultMaxTokens
	}

	c.config = config

	return nil
}

// Chat sends a prompt to the configured provider and returns the raw
// response text
func (c *Client) Chat(ctx context.Context, prompt string) (string, error) {
	switch c.config.Provider {
	case ProviderOpenAI:
		return c.chatOpenAI(ctx, prompt)
	case ProviderAnthropic:
		return c.chatAnthropic(ctx, prompt)
	case ProviderLocal, ProviderOllama:
		return c.chatOllama(ctx, prompt)
	default:
		return "", errors.Newf(errors.ErrTypeConfig, "unsupported provider: %s", c.config.Provider)
	}
}

// OpenAI API structures
type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
	Error   *openAIError   `json:"error,omitempty"`
}

type openAIChoice struct {
	Message openAIMessage `json:"message"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// chatOpenAI handles OpenAI chat completion calls
func (c *Client) chatOpenAI(ctx context.Context, prompt string) (string, error) {
	reqBody := openAIRequest{
		Model: c.config.Model,
		Messages: []openAIMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	}

	respBody, err := c.makeRequest(ctx, "/chat/completions", reqBody, map[string]string{
		"Authorization": "Bearer " + c.config.APIKey,
	})
	if err != nil {
		return "", err
	}

	var response openAIResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", errors.Wrap(err, errors.ErrTypeLLM, "failed to parse OpenAI response")
	}

	if response.Error != nil {
		return "", errors.Newf(errors.ErrTypeLLM, "OpenAI API error: %s", response.Error.Message)
	}

	if len(response.Choices) == 0 {
		return "", errors.New(errors.ErrTypeLLM, "no response from OpenAI")
	}

	return response.Choices[0].Message.Content, nil
}

// Anthropic API structures
type anthropicRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	MaxTokens int                `json:"max_tokens"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Error   *anthropicError    `json:"error,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// chatAnthropic handles Anthropic messages calls
func (c *Client) chatAnthropic(ctx context.Context, prompt string) (string, error) {
	reqBody := anthropicRequest{
		Model:     c.config.Model,
		MaxTokens: c.config.MaxTokens,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}

	respBody, err := c.makeRequest(ctx, "/messages", reqBody, map[string]string{
		"x-api-key":         c.config.APIKey,
		"anthropic-version": "2023-06-01",
	})
	if err != nil {
		return "", err
	}

	var response anthropicResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", errors.Wrap(err, errors.ErrTypeLLM, "failed to parse Anthropic response")
	}

	if response.Error != nil {
		return "", errors.Newf(errors.ErrTypeLLM, "Anthropic API error: %s", response.Error.Message)
	}

	if len(response.Content) == 0 {
		return "", errors.New(errors.ErrTypeLLM, "no response from Anthropic")
	}

	return response.Content[0].Text, nil
}

// Ollama API structures
type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// chatOllama handles Ollama generate calls
func (c *Client) chatOllama(ctx context.Context, prompt string) (string, error) {
	reqBody := ollamaRequest{
		Model:  c.config.Model,
		Prompt: prompt,
		Stream: false,
	}

	respBody, err := c.makeRequest(ctx, "/api/generate", reqBody, nil)
	if err != nil {
		return "", err
	}

	var response ollamaResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", errors.Wrap(err, errors.ErrTypeLLM, "failed to parse Ollama response")
	}

	if response.Error != "" {
		return "", errors.Newf(errors.ErrTypeLLM, "Ollama API error: %s", response.Error)
	}

	return response.Response, nil
}

// makeRequest makes an HTTP request to the provider API
func (c *Client) makeRequest(
	ctx context.Context,
	endpoint string,
	reqBody interface{},
	headers map[string]string,
) ([]byte, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeLLM, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.config.BaseURL+endpoint,
		bytes.NewBuffer(jsonBody),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeLLM, "failed to create request")
	}

	req.Header.Set("Content-Type", "application/json")

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeLLM, "failed to make request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeLLM, "failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(
			errors.ErrTypeLLM,
			"API request failed with status %d: %s",
			resp.StatusCode,
			fmt.Sprintf("%.200s", string(body)),
		)
	}

	return body, nil
}
