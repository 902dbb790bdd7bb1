package huggingface

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/guidebot/pkg/llm"
	"github.com/kart-io/guidebot/pkg/utils/httpclient"
)

const testAPIKey = "test-key"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultEndpoint, cfg.BaseURL)
	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(map[string]any{
		"base_url":    "http://localhost:9999/embed",
		"api_key":     testAPIKey,
		"timeout":     time.Second,
		"max_retries": 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999/embed", p.config.BaseURL)
	assert.Equal(t, time.Second, p.config.Timeout)
	assert.Equal(t, 2, p.config.MaxRetries)
	assert.Equal(t, ProviderName, p.Name())
}

func TestRegistered(t *testing.T) {
	p, err := llm.NewEmbeddingProvider(ProviderName, map[string]any{"api_key": testAPIKey})
	require.NoError(t, err)
	assert.Equal(t, ProviderName, p.Name())
}

func TestEmbed(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer "+testAPIKey, r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embedding":[0.5,-0.25,1]}`))
	}))
	defer server.Close()

	p, err := NewProvider(map[string]any{"base_url": server.URL, "api_key": testAPIKey})
	require.NoError(t, err)

	emb, err := p.Embed(context.Background(), "كيف أضيف منتجا؟")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.25, 1}, emb)
	assert.JSONEq(t, `{"inputs":"كيف أضيف منتجا؟"}`, gotBody)
}

func TestEmbed_NoAuthHeaderWithoutKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"embedding":[1]}`))
	}))
	defer server.Close()

	p, err := NewProvider(map[string]any{"base_url": server.URL})
	require.NoError(t, err)
	_, err = p.Embed(context.Background(), "hi")
	require.NoError(t, err)
}

func TestEmbed_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "missing field",
			status: http.StatusOK,
			body:   `{"vector":[1,2]}`,
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrEmptyEmbedding) },
		},
		{
			name:   "empty field",
			status: http.StatusOK,
			body:   `{"embedding":[]}`,
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrEmptyEmbedding) },
		},
		{
			name:   "malformed body",
			status: http.StatusOK,
			body:   `{"embedding":`,
			check:  func(t *testing.T, err error) { assert.Error(t, err) },
		},
		{
			name:   "server error",
			status: http.StatusServiceUnavailable,
			body:   `{"error":"loading"}`,
			check: func(t *testing.T, err error) {
				var se *httpclient.StatusError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls++
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p := NewProviderWithConfig(&Config{BaseURL: server.URL, Timeout: time.Second})
			_, err := p.Embed(context.Background(), "hello")
			tt.check(t, err)
			assert.Equal(t, 1, calls, "no internal retry")
		})
	}
}

func TestEmbed_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"embedding":[1]}`))
	}))
	defer server.Close()

	p := NewProviderWithConfig(&Config{BaseURL: server.URL, Timeout: 20 * time.Millisecond})
	_, err := p.Embed(context.Background(), "hello")
	assert.Error(t, err)
}
