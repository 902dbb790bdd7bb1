package grok

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/guidebot/pkg/llm"
	"github.com/kart-io/guidebot/pkg/utils/json"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "https://api.x.ai/grok", cfg.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestRegistered(t *testing.T) {
	p, err := llm.NewGenerationProvider(ProviderName, nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderName, p.Name())
}

func TestGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer grok-key", r.Header.Get("Authorization"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Context: c\n\nUser Query: q", req["prompt"])

		_, _ = w.Write([]byte(`{"response":"Click the heart icon."}`))
	}))
	defer server.Close()

	p, err := NewProvider(map[string]any{"base_url": server.URL, "api_key": "grok-key"})
	require.NoError(t, err)

	out, err := p.Generate(context.Background(), "Context: c\n\nUser Query: q")
	require.NoError(t, err)
	assert.Equal(t, "Click the heart icon.", out)
}

func TestGenerate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"empty response", http.StatusOK, `{"response":""}`},
		{"missing response", http.StatusOK, `{"text":"hi"}`},
		{"bad gateway", http.StatusBadGateway, `upstream down`},
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad key"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p := NewProviderWithConfig(&Config{BaseURL: server.URL, Timeout: time.Second})
			out, err := p.Generate(context.Background(), "prompt")
			assert.Error(t, err)
			assert.Empty(t, out)
		})
	}
}

func TestGenerate_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte(`{"response":"late"}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	p := NewProviderWithConfig(&Config{BaseURL: server.URL, Timeout: time.Second})
	_, err := p.Generate(ctx, "prompt")
	assert.Error(t, err)
}
