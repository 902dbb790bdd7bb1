package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis 内存版 Redis 命令子集。
type fakeRedis struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
	sets   int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(_ context.Context, key string) *goredis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return goredis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *goredis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	return goredis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *goredis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return goredis.NewIntResult(n, nil)
}

var _ RedisCmdable = (*fakeRedis)(nil)

func TestCachedEmbeddingProvider_HitAfterMiss(t *testing.T) {
	inner := &mockProvider{name: "stub"}
	rdb := newFakeRedis()
	cached := NewCachedEmbeddingProvider(inner, rdb, nil)

	first, err := cached.Embed(context.Background(), "wishlist")
	require.NoError(t, err)
	second, err := cached.Embed(context.Background(), "wishlist")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, rdb.sets)
	assert.Equal(t, "stub-cached", cached.Name())
}

func TestCachedEmbeddingProvider_KeyDoesNotLeakText(t *testing.T) {
	rdb := newFakeRedis()
	cached := NewCachedEmbeddingProvider(&mockProvider{name: "stub"}, rdb, nil)

	_, err := cached.Embed(context.Background(), "secret question")
	require.NoError(t, err)

	for k := range rdb.data {
		assert.NotContains(t, k, "secret")
		assert.Contains(t, k, "emb:")
	}
}

func TestCachedEmbeddingProvider_RedisErrorFallsBack(t *testing.T) {
	inner := &mockProvider{name: "stub"}
	rdb := newFakeRedis()
	rdb.getErr = errors.New("connection refused")
	cached := NewCachedEmbeddingProvider(inner, rdb, nil)

	emb, err := cached.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, emb, 3)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedEmbeddingProvider_CorruptEntryReplaced(t *testing.T) {
	inner := &mockProvider{name: "stub"}
	rdb := newFakeRedis()
	cached := NewCachedEmbeddingProvider(inner, rdb, nil)
	rdb.data[cached.cacheKey("hello")] = "not-json"

	emb, err := cached.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, emb, 3)
	assert.Equal(t, 1, inner.calls)
	assert.NotEqual(t, "not-json", rdb.data[cached.cacheKey("hello")])
}

func TestCachedEmbeddingProvider_ProviderErrorNotCached(t *testing.T) {
	inner := &mockProvider{name: "stub", err: errors.New("boom")}
	rdb := newFakeRedis()
	cached := NewCachedEmbeddingProvider(inner, rdb, nil)

	_, err := cached.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Empty(t, rdb.data)
}

func TestCachedEmbeddingProvider_Disabled(t *testing.T) {
	inner := &mockProvider{name: "stub"}
	rdb := newFakeRedis()
	cached := NewCachedEmbeddingProvider(inner, rdb, &EmbeddingCacheConfig{Enabled: false})

	_, _ = cached.Embed(context.Background(), "a")
	_, _ = cached.Embed(context.Background(), "a")
	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, rdb.sets)
}
