package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider(" OpenAI ")
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p)

	_, err = ParseProvider("mistral")
	assert.Error(t, err)
}

func TestNewCompleter(t *testing.T) {
	tests := []struct {
		provider Provider
		model    string
		want     string
	}{
		{ProviderGoogle, "", "gemini-2.5-flash"},
		{ProviderOpenAI, "gpt-4.1", "gpt-4.1"},
		{ProviderAnthropic, "", "claude-sonnet-4-20250514"},
	}
	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			c, err := NewCompleter(tt.provider, "key", tt.model, time.Second)
			require.NoError(t, err)
			assert.Equal(t, tt.provider, c.Provider())
			assert.Equal(t, tt.want, c.Model())
		})
	}
}

func TestNewCompleter_RequiresKey(t *testing.T) {
	_, err := NewCompleter(ProviderOpenAI, "", "", time.Second)
	assert.Error(t, err)
}

func TestAPIError_Retryable(t *testing.T) {
	assert.True(t, (&APIError{StatusCode: 429}).Retryable())
	assert.True(t, (&APIError{StatusCode: 503}).Retryable())
	assert.False(t, (&APIError{StatusCode: 400}).Retryable())
	assert.False(t, (&APIError{StatusCode: 401}).Retryable())
}

func TestOpenAIClient_Complete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","model":"test-model","choices":[{"message":{"role":"assistant","content":"{\"ok\":true}"}}],"usage":{"prompt_tokens":12,"completion_tokens":3}}`))
	}))
	defer ts.Close()

	c := NewOpenAIClient("test-key", "test-model")
	c.baseURL = ts.URL

	resp, err := c.Complete(context.Background(), []Message{
		{Role: "system", Content: "Answer in JSON."},
		{Role: "user", Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, resp.Content)
	assert.Equal(t, 12, resp.InputTokens)
	assert.Equal(t, 3, resp.OutputTokens)
}

func TestOpenAIClient_APIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := NewOpenAIClient("k", "m")
	c.baseURL = ts.URL

	_, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.True(t, apiErr.Retryable())
}

func TestGoogleClient_FoldsSystemPrompt(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/models/gem:generateContent")
		assert.Equal(t, "k", r.URL.Query().Get("key"))

		var req googleRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "user", req.Contents[0].Role)
		assert.True(t, strings.HasPrefix(req.Contents[0].Parts[0].Text, "rules\n\n"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"part one "},{"text":"part two"}]}}],"usageMetadata":{"promptTokenCount":5,"candidatesTokenCount":4}}`))
	}))
	defer ts.Close()

	c := NewGoogleClient("k", "gem")
	c.baseURL = ts.URL

	resp, err := c.Complete(context.Background(), []Message{
		{Role: "system", Content: "rules"},
		{Role: "user", Content: "question"},
	})
	require.NoError(t, err)
	assert.Equal(t, "part one part two", resp.Content)
	assert.Equal(t, 5, resp.InputTokens)
}

func TestGoogleClient_NoCandidates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer ts.Close()

	c := NewGoogleClient("k", "gem")
	c.baseURL = ts.URL

	_, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "q"}})
	assert.Error(t, err)
}

func TestAnthropicClient_Complete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/messages"), r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-test", body["model"])
		assert.NotEmpty(t, body["system"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-test",
			"content": [{"type": "text", "text": "{\"classification\":\"CRITICAL\"}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 20, "output_tokens": 7}
		}`))
	}))
	defer ts.Close()

	c := NewAnthropicClient("k", "claude-test", time.Second, option.WithBaseURL(ts.URL))

	resp, err := c.Complete(context.Background(), []Message{
		{Role: "system", Content: "rules"},
		{Role: "user", Content: "question"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"classification":"CRITICAL"}`, resp.Content)
	assert.Equal(t, 20, resp.InputTokens)
	assert.Equal(t, 7, resp.OutputTokens)
	assert.Equal(t, "claude-test", resp.Model)
}
