package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chatServer answers chat completions with a fixed reply and keeps the last
// decoded request for inspection.
type chatServer struct {
	*httptest.Server

	mu       sync.Mutex
	lastReq  openai.ChatCompletionRequest
	lastAuth string
	lastPath string
}

func newChatServer(t *testing.T, status int, body map[string]any) *chatServer {
	t.Helper()
	cs := &chatServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		cs.mu.Lock()
		cs.lastReq = req
		cs.lastAuth = r.Header.Get("Authorization")
		cs.lastPath = r.URL.Path
		cs.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *chatServer) request() (openai.ChatCompletionRequest, string, string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.lastReq, cs.lastAuth, cs.lastPath
}

func completion(content, finish string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1234567890,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
		"usage": map[string]any{
			"prompt_tokens":     40,
			"completion_tokens": 25,
			"total_tokens":      65,
		},
	}
}

func apiError(kind, message string) map[string]any {
	return map[string]any{"error": map[string]any{"type": kind, "message": message}}
}

func TestOpenAIProvider_SendsTutorRequest(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, completion("Gravity pulls things toward each other.", "stop"))
	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	req := UserPrompt("You are a patient tutor.", "Student's message:\nWhat is gravity?", 180, 0.7)
	resp, err := p.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "Gravity pulls things toward each other.", resp.Content)
	assert.Equal(t, "end", resp.StopReason)
	assert.Equal(t, Usage{InputTokens: 40, OutputTokens: 25, TotalTokens: 65}, resp.Usage)

	wire, auth, path := srv.request()
	assert.Equal(t, "/v1/chat/completions", path)
	assert.Equal(t, "Bearer test-key", auth)
	assert.Equal(t, "gpt-4o-mini", wire.Model)
	assert.Equal(t, 180, wire.MaxCompletionTokens)
	assert.InDelta(t, 0.7, wire.Temperature, 1e-6)
	require.Len(t, wire.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, wire.Messages[0].Role)
	assert.Equal(t, "You are a patient tutor.", wire.Messages[0].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, wire.Messages[1].Role)
	assert.Equal(t, "Student's message:\nWhat is gravity?", wire.Messages[1].Content)
}

func TestOpenAIProvider_AssistantTurnsKeepTheirRole(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, completion("Sure.", "stop"))
	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "gpt-4o", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), Request{
		Messages: []Message{
			{Role: RoleUser, Content: "What is a volcano?"},
			{Role: RoleAssistant, Content: "A volcano is an opening in the crust."},
			{Role: RoleUser, Content: "for example?"},
		},
		MaxTokens: 64,
	})
	require.NoError(t, err)

	wire, _, _ := srv.request()
	require.Len(t, wire.Messages, 3, "no system message when System is empty")
	assert.Equal(t, openai.ChatMessageRoleAssistant, wire.Messages[1].Role)
}

func TestOpenAIProvider_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   map[string]any
		check  func(t *testing.T, resp *Response, err error)
	}{
		{"rate limit", http.StatusTooManyRequests, apiError("tokens", "Rate limit exceeded"),
			func(t *testing.T, _ *Response, err error) {
				var rl *ErrRateLimit
				assert.ErrorAs(t, err, &rl)
			}},
		{"server error", http.StatusInternalServerError, apiError("server_error", "Internal server error"),
			func(t *testing.T, _ *Response, err error) {
				var unavail *ErrProviderUnavailable
				assert.ErrorAs(t, err, &unavail)
			}},
		{"empty content", http.StatusOK, completion("", "stop"),
			func(t *testing.T, _ *Response, err error) {
				var invalid *ErrInvalidResponse
				assert.ErrorAs(t, err, &invalid)
			}},
		{"truncated", http.StatusOK, completion("Plants make food from", "length"),
			func(t *testing.T, resp *Response, err error) {
				require.NoError(t, err)
				assert.Equal(t, "max_tokens", resp.StopReason)
			}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newChatServer(t, tt.status, tt.body)
			p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "gpt-4o-mini", BaseURL: srv.URL + "/v1"})
			require.NoError(t, err)

			resp, err := p.Generate(context.Background(), UserPrompt("sys", "test", 100, 0.5))
			tt.check(t, resp, err)
		})
	}
}

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider(OpenAIConfig{Model: "gpt-4o"})
	require.Error(t, err)
}

func TestOpenRouterProvider_UsesOpenAIWireFormat(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, completion("Photosynthesis turns light into sugar.", "stop"))
	p, err := NewOpenRouterProvider(OpenRouterConfig{
		APIKey:  "sk-or-test",
		Model:   "anthropic/claude-3-haiku",
		BaseURL: srv.URL + "/api/v1",
	})
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-3-haiku", p.ModelID(), "vendor-prefixed IDs pass through")

	resp, err := p.Generate(context.Background(), UserPrompt("You are a tutor.", "What is photosynthesis?", 220, 0.6))
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis turns light into sugar.", resp.Content)

	wire, auth, path := srv.request()
	assert.Equal(t, "/api/v1/chat/completions", path)
	assert.Equal(t, "Bearer sk-or-test", auth)
	assert.Equal(t, "anthropic/claude-3-haiku", wire.Model)
	assert.Equal(t, 220, wire.MaxCompletionTokens)
	assert.InDelta(t, 0.6, wire.Temperature, 1e-6)
	require.Len(t, wire.Messages, 2)
	assert.Equal(t, "You are a tutor.", wire.Messages[0].Content)
}

func TestNewOpenRouterProvider_Config(t *testing.T) {
	_, err := NewOpenRouterProvider(OpenRouterConfig{Model: "google/gemini-2.0-flash-exp"})
	require.Error(t, err, "API key is required")

	p, err := NewOpenRouterProvider(OpenRouterConfig{APIKey: "sk-or-test", Model: "google/gemini-2.0-flash-exp"})
	require.NoError(t, err)
	assert.Equal(t, "google/gemini-2.0-flash-exp", p.ModelID())
}
