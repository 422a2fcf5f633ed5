package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "missing provider",
			config:  Config{Model: "gpt-4"},
			wantErr: true,
		},
		{
			name:    "missing model",
			config:  Config{Provider: ProviderOpenAI, APIKey: "k"},
			wantErr: true,
		},
		{
			name:    "openai without key",
			config:  Config{Provider: ProviderOpenAI, Model: "gpt-4"},
			wantErr: true,
		},
		{
			name:    "anthropic without key",
			config:  Config{Provider: ProviderAnthropic, Model: "claude"},
			wantErr: true,
		},
		{
			name:   "ollama without key is fine",
			config: Config{Provider: ProviderOllama, Model: "llama3"},
		},
		{
			name:   "local provider",
			config: Config{Provider: ProviderLocal, Model: "llama3"},
		},
		{
			name:    "unsupported provider",
			config:  Config{Provider: "carrier-pigeon", Model: "m"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.config)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestChatOpenAI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "hello", req.Messages[0].Content)

		_ = json.NewEncoder(w).Encode(openAIResponse{
			Choices: []openAIChoice{
				{Message: openAIMessage{Role: "assistant", Content: `[{"type": "stop_action"}]`}},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{
		Provider: ProviderOpenAI,
		Model:    "gpt-4",
		APIKey:   "test-key",
		BaseURL:  server.URL,
	})
	require.NoError(t, err)

	response, err := client.Chat(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, `[{"type": "stop_action"}]`, response)
}

func TestChatAnthropic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		_ = json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicContent{{Type: "text", Text: "answer"}},
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{
		Provider: ProviderAnthropic,
		Model:    "claude",
		APIKey:   "test-key",
		BaseURL:  server.URL,
	})
	require.NoError(t, err)

	response, err := client.Chat(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, "answer", response)
}

func TestChatOllama(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)

		_ = json.NewEncoder(w).Encode(ollamaResponse{Response: "local answer", Done: true})
	}))
	defer server.Close()

	client, err := NewClient(Config{
		Provider: ProviderOllama,
		Model:    "llama3",
		BaseURL:  server.URL,
	})
	require.NoError(t, err)

	response, err := client.Chat(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, "local answer", response)
}

func TestChatHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewClient(Config{
		Provider: ProviderOllama,
		Model:    "llama3",
		BaseURL:  server.URL,
	})
	require.NoError(t, err)

	_, err = client.Chat(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestChatAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(openAIResponse{
			Error: &openAIError{Message: "model overloaded", Type: "overloaded"},
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{
		Provider: ProviderOpenAI,
		Model:    "gpt-4",
		APIKey:   "k",
		BaseURL:  server.URL,
	})
	require.NoError(t, err)

	_, err = client.Chat(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestStaticGateway(t *testing.T) {
	gateway := &StaticGateway{Response: "fixed"}

	response, err := gateway.Chat(context.Background(), "anything")
	require.NoError(t, err)

	assert.Equal(t, "fixed", response)
}
