package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pairloop/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatReply(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
}

func TestCallWithMessagesSuccess(t *testing.T) {
	var gotPath string
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(chatReply("LONG: ETHUSDT"))
	}))
	defer srv.Close()

	c := &OpenAIChatClient{BaseURL: srv.URL + "/v1", APIKey: "sk-test", Model: "m"}
	out, err := c.CallWithMessages(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "LONG: ETHUSDT", out)
	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "Bearer sk-test", gotAuth)
}

func TestCallWithMessagesNormalizesFullURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		json.NewEncoder(w).Encode(chatReply("ok"))
	}))
	defer srv.Close()

	// 配置里写了完整路径也不应重复拼接
	c := &OpenAIChatClient{BaseURL: srv.URL + "/v1/chat/completions", Model: "m"}
	_, err := c.CallWithMessages(context.Background(), "", "user")
	assert.NoError(t, err)
}

func TestCallWithMessagesRetriesOn429(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(chatReply("recovered"))
	}))
	defer srv.Close()

	c := &OpenAIChatClient{BaseURL: srv.URL, Model: "m", MaxRetries: 2, Timeout: 5 * time.Second}
	out, err := c.CallWithMessages(context.Background(), "", "user")
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Equal(t, 2, attempts)
}

func TestCallWithMessagesGivesUpOn400(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "bad model"}})
	}))
	defer srv.Close()

	c := &OpenAIChatClient{BaseURL: srv.URL, Model: "m", MaxRetries: 3}
	_, err := c.CallWithMessages(context.Background(), "", "user")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad model")
	assert.Equal(t, 1, attempts)
}

func TestFromConfigDisabled(t *testing.T) {
	assert.Nil(t, FromConfig(config.AIConfig{Enabled: false}))

	p := FromConfig(config.AIConfig{Enabled: true, Provider: "deepseek", Model: "m"})
	require.NotNil(t, p)
	assert.Equal(t, "deepseek", p.ID())
	assert.True(t, p.Enabled())
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "", maskKey(""))
	assert.Equal(t, "****", maskKey("abc"))
	assert.Equal(t, "****6789", maskKey("sk-123456789"))
}
