package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
)

func TestLLMService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chat":
			var req chatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.False(t, req.Stream)
			assert.Len(t, req.Messages, 2)
			if req.Options != nil {
				assert.Equal(t, 10, req.Options.NumPredict)
			}
			_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"chat reply"},"done":true}`))
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	svc := NewLLMService(LLMConfig{BaseURL: server.URL, HTTPClient: server.Client()})
	assert.Equal(t, DefaultLLMModel, svc.ModelName())

	out, err := svc.Chat(context.Background(), []driven.ChatMessage{
		{Role: driven.ChatRoleSystem, Content: "ctx"},
		{Role: driven.ChatRoleUser, Content: "q"},
	}, driven.ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, "chat reply", out)

	out, err = svc.Chat(context.Background(), []driven.ChatMessage{
		{Role: driven.ChatRoleUser, Content: "q"},
		{Role: driven.ChatRoleAssistant, Content: "a"},
	}, driven.ChatOptions{MaxTokens: 10})
	require.NoError(t, err)
	assert.Equal(t, "chat reply", out)

	assert.NoError(t, svc.Ping(context.Background()))
}

func TestNewOptions(t *testing.T) {
	zero := 0.0
	assert.Nil(t, newOptions(driven.ChatOptions{}))

	opts := newOptions(driven.ChatOptions{Temperature: &zero})
	require.NotNil(t, opts)
	require.NotNil(t, opts.Temperature)
	assert.InDelta(t, 0.0, *opts.Temperature, 0)

	opts = newOptions(driven.ChatOptions{MaxTokens: 10})
	require.NotNil(t, opts)
	assert.Nil(t, opts.Temperature)
}
