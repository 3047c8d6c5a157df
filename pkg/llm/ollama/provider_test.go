package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mnp-assistant-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatSendsHistoryAndOptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "qwen2.5", body.Model)
		assert.False(t, body.Stream)
		assert.Len(t, body.Messages, 2)
		assert.Equal(t, 256, body.Options.NumPredict)
		assert.InDelta(t, 0.3, body.Options.Temperature, 1e-9)
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"MNP予約番号は15日間有効です。"},"done":true}`))
	}))
	defer srv.Close()

	p := NewProvider(srv.URL, "qwen2.5")
	out, err := p.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "sys"},
		{Role: llm.RoleUser, Content: "有効期限は？"},
	}, llm.WithMaxTokens(256))
	require.NoError(t, err)
	assert.Equal(t, "MNP予約番号は15日間有効です。", out)
}

func TestChatReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewProvider(srv.URL, "m").Generate(context.Background(), "hi")
	var statusErr *llm.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, "ollama", statusErr.Provider)
	assert.True(t, llm.IsTransient(err))
}
