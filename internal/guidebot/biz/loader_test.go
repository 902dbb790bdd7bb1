package biz

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/guidebot/internal/guidebot/metrics"
	"github.com/kart-io/guidebot/internal/guidebot/store"
	"github.com/kart-io/guidebot/pkg/errors"
	"github.com/kart-io/guidebot/pkg/infra/pool"
)

// storedContents 按内容排序返回库中全部条目。
func storedContents(t *testing.T, s store.GuideStore) []string {
	t.Helper()
	entries, err := s.TopK(context.Background(), []float32{1, 0, 0}, 100)
	require.NoError(t, err)
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Content
	}
	sort.Strings(out)
	return out
}

func newCorpusPool(t *testing.T) *pool.Pool {
	t.Helper()
	p, err := pool.NewPool(pool.CorpusPool, pool.CorpusPoolConfig(4))
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func TestCorpusLoader_Sequential(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	m := metrics.New()
	log := &captureLogger{}

	loader := NewCorpusLoader(&mockEmbedding{fallback: []float32{1, 0, 0}}, s,
		WithLoaderLogger(log), WithLoaderMetrics(m))

	report, err := loader.Load(ctx, DefaultPassages)
	require.NoError(t, err)
	assert.Equal(t, "sequential", report.Strategy)
	assert.Equal(t, 6, report.Total)
	assert.Equal(t, 6, report.Loaded)
	assert.Zero(t, report.Failed)
	assert.Equal(t, 6, report.Guides)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	_, ok := log.find("Corpus loaded")
	assert.True(t, ok)
	assert.Equal(t, uint64(6), m.Snapshot().PassagesLoaded)
}

func TestCorpusLoader_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	loader := NewCorpusLoader(&mockEmbedding{fallback: []float32{1, 0, 0}}, s, WithLoaderLogger(&captureLogger{}))

	_, err := loader.Load(ctx, DefaultPassages)
	require.NoError(t, err)
	_, err = loader.Load(ctx, DefaultPassages)
	require.NoError(t, err)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultPassages), n)
}

func TestCorpusLoader_FailuresAggregatedAfterAllAttempts(t *testing.T) {
	for _, tt := range []struct {
		name     string
		strategy func(t *testing.T) LoadStrategy
	}{
		{"sequential", func(*testing.T) LoadStrategy { return SequentialStrategy{} }},
		{"pooled", func(t *testing.T) LoadStrategy { return NewPooledStrategy(newCorpusPool(t)) }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := store.NewMemoryStore()
			emb := &mockEmbedding{
				fallback: []float32{1, 0, 0},
				failOn:   map[string]bool{"b": true, "d": true},
			}
			log := &captureLogger{}
			loader := NewCorpusLoader(emb, s, WithStrategy(tt.strategy(t)), WithLoaderLogger(log))

			report, err := loader.Load(ctx, []string{"a", "b", "c", "d", "e"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCorpusLoadFailed))
			assert.Contains(t, err.Error(), "passage 1")
			assert.Contains(t, err.Error(), "passage 3")

			require.NotNil(t, report)
			assert.Equal(t, 5, report.Total)
			assert.Equal(t, 3, report.Loaded)
			assert.Equal(t, 2, report.Failed)
			assert.Equal(t, int64(5), emb.calls.Load())
			assert.Equal(t, []string{"a", "c", "e"}, storedContents(t, s))

			entry, ok := log.find("Corpus load finished with failures")
			require.True(t, ok)
			assert.Equal(t, 2, entry.value("failed"))
		})
	}
}

func TestCorpusLoader_DimensionMismatchIsPerPassage(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	emb := &mockEmbedding{
		fallback: []float32{1, 0, 0},
		vectors:  map[string][]float32{"short": {1, 0}},
	}
	loader := NewCorpusLoader(emb, s, WithLoaderLogger(&captureLogger{}))

	report, err := loader.Load(ctx, []string{"a", "short", "c"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	assert.Equal(t, 2, report.Loaded)
}

func TestCorpusLoader_StrategiesProduceSameState(t *testing.T) {
	ctx := context.Background()
	emb := &mockEmbedding{
		vectors: map[string][]float32{
			DefaultPassages[0]: {1, 0, 0},
			DefaultPassages[1]: {0, 1, 0},
			DefaultPassages[2]: {0, 0, 1},
			DefaultPassages[3]: {1, 1, 0},
			DefaultPassages[4]: {0, 1, 1},
			DefaultPassages[5]: {1, 0, 1},
		},
	}

	seq := store.NewMemoryStore()
	_, err := NewCorpusLoader(emb, seq, WithLoaderLogger(&captureLogger{})).Load(ctx, DefaultPassages)
	require.NoError(t, err)

	pooled := store.NewMemoryStore()
	loader := NewCorpusLoader(emb, pooled,
		WithStrategy(NewPooledStrategy(newCorpusPool(t))), WithLoaderLogger(&captureLogger{}))
	report, err := loader.Load(ctx, DefaultPassages)
	require.NoError(t, err)
	assert.Equal(t, "pooled", report.Strategy)

	assert.Equal(t, storedContents(t, seq), storedContents(t, pooled))

	query := []float32{1, 1, 0}
	a, err := seq.TopK(ctx, query, 1)
	require.NoError(t, err)
	b, err := pooled.TopK(ctx, query, 1)
	require.NoError(t, err)
	assert.Equal(t, a[0].Content, b[0].Content)
}

func TestPooledStrategy_SubmitRejected(t *testing.T) {
	strategy := NewPooledStrategy(rejectSubmitter{err: pool.ErrPoolOverload})
	called := false

	errs := strategy.Run(context.Background(), []string{"a", "b"}, func(context.Context, string) error {
		called = true
		return nil
	})

	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.ErrorIs(t, err, pool.ErrPoolOverload)
	}
	assert.False(t, called)
}

func TestStartupLoad(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	log := &captureLogger{}
	loader := NewCorpusLoader(&mockEmbedding{fallback: []float32{1, 0}}, s, WithLoaderLogger(log))

	task := NewStartupLoad(loader, []string{"x", "y"}, log)
	assert.Equal(t, "corpus-startup-load", task.Name())
	require.NoError(t, task.Start(ctx))
	task.Wait()
	require.NoError(t, task.Stop(ctx))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStartupLoad_LogsFailure(t *testing.T) {
	ctx := context.Background()
	log := &captureLogger{}
	loader := NewCorpusLoader(&mockEmbedding{err: assert.AnError}, store.NewMemoryStore(), WithLoaderLogger(log))

	task := NewStartupLoad(loader, []string{"x"}, log)
	require.NoError(t, task.Start(ctx))
	task.Wait()

	_, ok := log.find("Startup corpus load failed")
	assert.True(t, ok, log.dump())
}
