package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/crimson-sun/healthguard/internal/connector/httpclient"
)

func completionServer(t *testing.T, content string, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk-test", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		var req chatRequest
		assert.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, DefaultModel, req.Model)
		assert.Equal(t, DefaultTemperature, req.Temperature)
		assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, "user", req.Messages[1].Role)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate(t *testing.T) {
	srv := completionServer(t, `{"classification":"x"}`, nil)
	c := New(srv.URL, "gsk-test", WithLogger(zaptest.NewLogger(t)))

	got, err := c.Generate(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, `{"classification":"x"}`, got)
	assert.True(t, c.Available())
	assert.Equal(t, DefaultModel, c.Model())
}

func TestGenerateUnavailableWithoutKey(t *testing.T) {
	c := New("", "")
	assert.False(t, c.Available())
	_, err := c.Generate(context.Background(), "sys", "user")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGenerateNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "gsk-test").Generate(context.Background(), "sys", "user")
	assert.Error(t, err)
}

func TestGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"error":"invalid key"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "gsk-test").Generate(context.Background(), "sys", "user")
	var apiErr *httpclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.StatusCode)
}

func TestGenerateRateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := completionServer(t, "ok", &calls)
	c := New(srv.URL, "gsk-test", WithRateLimit(1, 1))

	_, err := c.Generate(context.Background(), "sys", "user")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Generate(ctx, "sys", "user")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := New(srv.URL, "gsk-test").Generate(ctx, "sys", "user")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
