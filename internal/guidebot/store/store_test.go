package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testGuideStore 对任意 GuideStore 实现运行同一组行为测试。
func testGuideStore(t *testing.T, newStore func(t *testing.T) GuideStore) {
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		s := newStore(t)
		got, err := s.TopK(ctx, []float32{1, 0, 0}, 3)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("ranks by cosine similarity", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Upsert(ctx, "refund policy", []float32{1, 0, 0}))
		require.NoError(t, s.Upsert(ctx, "shipping times", []float32{0, 1, 0}))
		require.NoError(t, s.Upsert(ctx, "returns window", []float32{0.9, 0.1, 0}))

		got, err := s.TopK(ctx, []float32{1, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "refund policy", got[0].Content)
		assert.Equal(t, "returns window", got[1].Content)
		assert.InDelta(t, 1.0, got[0].Score, 1e-6)
		assert.GreaterOrEqual(t, got[0].Score, got[1].Score)
	})

	t.Run("k larger than store", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Upsert(ctx, "a", []float32{1, 0}))
		require.NoError(t, s.Upsert(ctx, "b", []float32{0, 1}))

		got, err := s.TopK(ctx, []float32{1, 1}, 10)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("non-positive k", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Upsert(ctx, "a", []float32{1, 0}))

		for _, k := range []int{0, -1} {
			got, err := s.TopK(ctx, []float32{1, 0}, k)
			require.NoError(t, err)
			assert.Empty(t, got)
		}
	})

	t.Run("ties keep insertion order", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Upsert(ctx, "first", []float32{1, 0}))
		require.NoError(t, s.Upsert(ctx, "second", []float32{2, 0}))
		require.NoError(t, s.Upsert(ctx, "third", []float32{5, 0}))

		got, err := s.TopK(ctx, []float32{1, 0}, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second", "third"}, contents(got))
	})

	t.Run("upsert is idempotent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Upsert(ctx, "a", []float32{1, 0}))
		require.NoError(t, s.Upsert(ctx, "a", []float32{1, 0}))

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("upsert replaces embedding and keeps position", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Upsert(ctx, "a", []float32{0, 1}))
		require.NoError(t, s.Upsert(ctx, "b", []float32{1, 0}))
		require.NoError(t, s.Upsert(ctx, "a", []float32{1, 0}))

		got, err := s.TopK(ctx, []float32{1, 0}, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, contents(got))

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("zero vector scores zero", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Upsert(ctx, "zero", []float32{0, 0}))

		got, err := s.TopK(ctx, []float32{1, 0}, 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Zero(t, got[0].Score)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Upsert(ctx, "a", []float32{1, 0, 0}))

		assert.ErrorIs(t, s.Upsert(ctx, "b", []float32{1, 0}), ErrDimensionMismatch)
		assert.ErrorIs(t, s.Upsert(ctx, "c", nil), ErrDimensionMismatch)

		_, err := s.TopK(ctx, []float32{1, 0}, 1)
		assert.ErrorIs(t, err, ErrDimensionMismatch)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("empty embedding on empty store", func(t *testing.T) {
		s := newStore(t)
		assert.ErrorIs(t, s.Upsert(ctx, "a", []float32{}), ErrDimensionMismatch)
	})

	t.Run("concurrent upsert and topk", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Upsert(ctx, "seed", []float32{1, 1}))

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(2)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, s.Upsert(ctx, fmt.Sprintf("p%d", i), []float32{float32(i), 1}))
			}(i)
			go func() {
				defer wg.Done()
				_, err := s.TopK(ctx, []float32{1, 0}, 3)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 9, n)
	})
}

func TestMemoryStore(t *testing.T) {
	testGuideStore(t, func(*testing.T) GuideStore { return NewMemoryStore() })
}

func TestMemoryStore_CopiesEmbedding(t *testing.T) {
	s := NewMemoryStore()
	vec := []float32{1, 0}
	require.NoError(t, s.Upsert(context.Background(), "a", vec))
	vec[0] = 0

	got, err := s.TopK(context.Background(), []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, got[0].Embedding)
}

func TestMemoryStore_TopKReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Upsert(ctx, "a", []float32{1, 0}))

	got, err := s.TopK(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	got[0].Embedding[0] = -1

	again, err := s.TopK(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, again[0].Embedding)
	assert.InDelta(t, 1.0, again[0].Score, 1e-9)
}

func TestDimensionGuard_FailedFirstWrite(t *testing.T) {
	ctx := context.Background()
	stored := 0
	g := &dimensionGuard{load: func(context.Context) (int, error) { return stored, nil }}

	err := g.admit(ctx, 2, func() error { return ErrStoreUnavailable })
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	// 失败的写入不能留下维度
	require.NoError(t, g.admit(ctx, 3, func() error { stored = 3; return nil }))
	assert.ErrorIs(t, g.admit(ctx, 2, func() error { return nil }), ErrDimensionMismatch)
}

func TestDimensionGuard_ReloadsWhileEmpty(t *testing.T) {
	ctx := context.Background()
	stored, loads := 0, 0
	g := &dimensionGuard{load: func(context.Context) (int, error) {
		loads++
		return stored, nil
	}}

	empty, err := g.check(ctx, 2)
	require.NoError(t, err)
	assert.True(t, empty)

	// 另一个进程写入后重新加载
	stored = 2
	empty, err = g.check(ctx, 2)
	require.NoError(t, err)
	assert.False(t, empty)

	_, err = g.check(ctx, 3)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 2, loads)
}
