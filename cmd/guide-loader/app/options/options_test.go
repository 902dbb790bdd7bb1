package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storeopts "github.com/kart-io/guidebot/pkg/options/store"
)

func TestLoaderOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *LoaderOptions)
		wantErr string
	}{
		{"defaults", func(*LoaderOptions) {}, ""},
		{"memory backend", func(o *LoaderOptions) { o.StoreOptions.Backend = storeopts.BackendMemory }, "not persistent"},
		{"bad strategy", func(o *LoaderOptions) { o.CorpusOptions.Strategy = "parallel" }, "corpus.strategy"},
		{"relative embedding url", func(o *LoaderOptions) { o.EmbeddingOptions.BaseURL = "/embed" }, "embedding.base-url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewLoaderOptions()
			tt.mutate(o)
			require.NoError(t, o.Complete())

			err := o.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoaderOptions_Flags(t *testing.T) {
	o := NewLoaderOptions()
	fss := o.Flags()

	require.NoError(t, fss.FlagSet("corpus").Parse([]string{"--corpus.strategy=pooled", "--corpus.concurrency=8"}))
	assert.Equal(t, "pooled", o.CorpusOptions.Strategy)
	assert.Equal(t, 8, o.CorpusOptions.Concurrency)

	cfg := o.Config()
	assert.Same(t, o.CorpusOptions, cfg.CorpusOptions)
	assert.Same(t, o.LogOptions, cfg.LogOptions)
}
