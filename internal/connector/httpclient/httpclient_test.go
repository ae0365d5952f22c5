package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSON_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"healthguard","version":1}`))
	}))
	defer srv.Close()

	var dest struct {
		Name    string `json:"name"`
		Version int    `json:"version"`
	}
	require.NoError(t, New(srv.URL, "tok").GetJSON(context.Background(), "/info", nil, &dest))
	assert.Equal(t, "healthguard", dest.Name)
	assert.Equal(t, 1, dest.Version)
}

func TestGetJSON_BearerAuth(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	require.NoError(t, New(srv.URL, "secret-token-123").GetJSON(context.Background(), "/", nil, &struct{}{}))
	assert.Equal(t, "Bearer secret-token-123", gotAuth.Load())

	require.NoError(t, New(srv.URL, "").GetJSON(context.Background(), "/", nil, &struct{}{}))
	assert.Equal(t, "", gotAuth.Load())
}

func TestGetJSON_QueryParams(t *testing.T) {
	var gotQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.RawQuery)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	q := url.Values{"module": {"FI"}, "limit": {"10"}}
	require.NoError(t, New(srv.URL, "tok").GetJSON(context.Background(), "/logs", q, &struct{}{}))
	// url.Values.Encode sorts keys alphabetically
	assert.Equal(t, "limit=10&module=FI", gotQuery.Load())
}

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		var in map[string]string
		assert.NoError(t, json.Unmarshal(body, &in))
		json.NewEncoder(w).Encode(map[string]string{"echo": in["msg"]})
	}))
	defer srv.Close()

	var dest struct {
		Echo string `json:"echo"`
	}
	require.NoError(t, New(srv.URL, "tok").PostJSON(context.Background(), "/echo", map[string]string{"msg": "hi"}, &dest))
	assert.Equal(t, "hi", dest.Echo)
}

func TestPostJSON_RetryResendsBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"n":1}`, string(body))
		if calls.Add(1) == 1 {
			w.WriteHeader(502)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", WithBackoff(time.Millisecond))
	require.NoError(t, c.PostJSON(context.Background(), "/", map[string]int{"n": 1}, nil))
	assert.Equal(t, int32(2), calls.Load())
}

func TestPostJSON_MarshalError(t *testing.T) {
	err := New("http://unused", "tok").PostJSON(context.Background(), "/", make(chan int), nil)
	assert.Error(t, err)
}

func TestGetJSON_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(400)
		w.Write([]byte(`{"error":"bad request"}`))
	}))
	defer srv.Close()

	err := New(srv.URL, "tok").GetJSON(context.Background(), "/bad", nil, &struct{}{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.StatusCode)
	assert.Equal(t, `{"error":"bad request"}`, apiErr.Body)
}

func TestGetJSON_RateLimit_RetryAfter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(429)
			w.Write([]byte(`rate limited`))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var dest struct {
		OK bool `json:"ok"`
	}
	start := time.Now()
	require.NoError(t, New(srv.URL, "tok").GetJSON(context.Background(), "/", nil, &dest))
	assert.True(t, dest.OK)
	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetJSON_RetryOn5xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(503)
			w.Write([]byte(`service unavailable`))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var dest struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, New(srv.URL, "tok", WithBackoff(time.Millisecond)).GetJSON(context.Background(), "/", nil, &dest))
	assert.True(t, dest.OK)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetJSON_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(429)
		w.Write([]byte(`rate limited`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(srv.URL, "tok").GetJSON(ctx, "/", nil, &struct{}{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetJSON_MaxRetriesExceeded(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(429)
		w.Write([]byte(`rate limited`))
	}))
	defer srv.Close()

	err := New(srv.URL, "tok").GetJSON(context.Background(), "/", nil, &struct{}{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 429, apiErr.StatusCode)
	// 1 initial + 3 retries = 4 total calls
	assert.Equal(t, int32(4), calls.Load())
}
