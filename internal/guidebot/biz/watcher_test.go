package biz

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/guidebot/internal/guidebot/store"
)

func TestCorpusWatcher_ReloadsOnChange(t *testing.T) {
	ctx := context.Background()
	path := writeCorpus(t, t.TempDir(), "passages:\n  - first\n")

	s := store.NewMemoryStore()
	log := &captureLogger{}
	loader := NewCorpusLoader(&mockEmbedding{fallback: []float32{1, 0}}, s, WithLoaderLogger(log))

	w := NewCorpusWatcher(path, loader, log)
	w.debounce = 20 * time.Millisecond
	reloads := make(chan *LoadReport, 4)
	w.reloaded = func(r *LoadReport, err error) {
		if err == nil {
			reloads <- r
		}
	}

	require.NoError(t, w.Start(ctx))
	defer func() { assert.NoError(t, w.Stop(ctx)) }()
	assert.Error(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(path, []byte("passages:\n  - first\n  - second\n"), 0o644))

	select {
	case r := <-reloads:
		assert.Equal(t, 2, r.Total)
		assert.Equal(t, 2, r.Guides)
	case <-time.After(5 * time.Second):
		t.Fatal("corpus was not reloaded")
	}
}

func TestCorpusWatcher_InvalidFileKeepsStore(t *testing.T) {
	ctx := context.Background()
	path := writeCorpus(t, t.TempDir(), "passages:\n  - first\n")

	s := store.NewMemoryStore()
	require.NoError(t, s.Upsert(ctx, "first", []float32{1, 0}))
	log := &captureLogger{}
	loader := NewCorpusLoader(&mockEmbedding{fallback: []float32{1, 0}}, s, WithLoaderLogger(log))

	w := NewCorpusWatcher(path, loader, log)
	w.debounce = 20 * time.Millisecond
	failures := make(chan error, 4)
	w.reloaded = func(_ *LoadReport, err error) {
		if err != nil {
			failures <- err
		}
	}

	require.NoError(t, w.Start(ctx))
	defer func() { assert.NoError(t, w.Stop(ctx)) }()

	require.NoError(t, os.WriteFile(path, []byte("passages: ["), 0o644))

	select {
	case err := <-failures:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("invalid corpus file was not reported")
	}

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCorpusWatcher_StopWithoutStart(t *testing.T) {
	w := NewCorpusWatcher("/tmp/none.yaml", nil, &captureLogger{})
	assert.Equal(t, "corpus-watcher", w.Name())
	assert.NoError(t, w.Stop(context.Background()))
}

func TestCorpusWatcher_MissingDirectory(t *testing.T) {
	w := NewCorpusWatcher("/nonexistent/dir/corpus.yaml", nil, &captureLogger{})
	assert.Error(t, w.Start(context.Background()))
}
