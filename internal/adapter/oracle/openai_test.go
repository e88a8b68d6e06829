package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"notes-quiz/internal/config"
	"notes-quiz/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model          string `json:"model"`
	MaxTokens      int    `json:"max_tokens"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newChatServer(t *testing.T, status int, content string, got *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		if got != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]interface{}{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": content},
			}},
		})
	}))
}

func TestOpenAIOracle_GenerateJSON(t *testing.T) {
	var got chatRequest
	srv := newChatServer(t, http.StatusOK, "```json\n{\"verdict\":\"exact\"}\n```", &got)
	defer srv.Close()

	o := NewOpenAIOracle(config.LLMConfig{BaseURL: srv.URL, APIKey: "test", Model: "test-model", Timeout: time.Second})
	obj, err := o.GenerateJSON(context.Background(), domain.OracleRequest{
		Prompt:      "Grade this",
		System:      "You are a strict grader",
		Temperature: 0.2,
		MaxTokens:   1000,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"verdict":"exact"}`, string(obj))

	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, 1000, got.MaxTokens)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "Grade this", got.Messages[1].Content)
}

func TestOpenAIOracle_Generate(t *testing.T) {
	var got chatRequest
	srv := newChatServer(t, http.StatusOK, "Backpropagation applies the chain rule.", &got)
	defer srv.Close()

	o := NewOpenAIOracle(config.LLMConfig{BaseURL: srv.URL, Model: "test-model", Timeout: time.Second})
	text, err := o.Generate(context.Background(), domain.OracleRequest{Prompt: "Explain backprop"})
	require.NoError(t, err)
	assert.Equal(t, "Backpropagation applies the chain rule.", text)
	assert.Nil(t, got.ResponseFormat)
	assert.Len(t, got.Messages, 1)
}

func TestOpenAIOracle_ServerError(t *testing.T) {
	srv := newChatServer(t, http.StatusServiceUnavailable, "", nil)
	defer srv.Close()

	o := NewOpenAIOracle(config.LLMConfig{BaseURL: srv.URL, Model: "test-model", Timeout: time.Second})
	_, err := o.GenerateJSON(context.Background(), domain.OracleRequest{Prompt: "x"})
	assert.ErrorIs(t, err, domain.ErrNoUsableOutput)
}

func TestNew(t *testing.T) {
	o, err := New(config.LLMConfig{Provider: "openai", Model: "m"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIOracle{}, o)

	o, err = New(config.LLMConfig{Provider: "ollama", BaseURL: "http://localhost:11434", Model: "m"})
	require.NoError(t, err)
	assert.IsType(t, &LangchainOracle{}, o)

	_, err = New(config.LLMConfig{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}
