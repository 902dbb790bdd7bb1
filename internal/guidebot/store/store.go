// Package store 保存指南段落及其向量，并按余弦相似度检索。
//
// 所有后端共享同一套语义：
//   - content 是唯一键，Upsert 幂等；
//   - 库中所有向量维度相同，第一条写入的向量决定维度；
//   - TopK 按相似度降序返回，分数相同时按插入顺序。
package store

import (
	"context"
	"sync"
)

// GuideEntry 一条指南段落。
type GuideEntry struct {
	// Content 段落原文，唯一键。
	Content string `json:"content"`
	// Embedding 段落向量。
	Embedding []float32 `json:"embedding"`
}

// ScoredEntry 检索结果。
type ScoredEntry struct {
	GuideEntry
	// Score 与查询向量的余弦相似度。
	Score float64 `json:"score"`
}

// GuideStore 定义指南存储接口。实现必须支持并发读写。
type GuideStore interface {
	// Upsert 按 content 插入或替换向量。
	Upsert(ctx context.Context, content string, embedding []float32) error

	// TopK 返回与 query 最相似的 k 条段落。
	TopK(ctx context.Context, query []float32, k int) ([]ScoredEntry, error)

	// Count 返回段落数量。
	Count(ctx context.Context) (int, error)
}

// dimensionGuard 记录库的向量维度。
// 维度一旦确定就不会改变，所以只缓存非零值；库为空时每次都从存储重新加载，
// 其他进程（如 guide-loader）写入的数据因此能被看到。
type dimensionGuard struct {
	mu   sync.Mutex
	dim  int
	load func(ctx context.Context) (int, error)
}

// get 返回当前维度，0 表示库为空。
func (g *dimensionGuard) get(ctx context.Context) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.getLocked(ctx)
}

func (g *dimensionGuard) getLocked(ctx context.Context) (int, error) {
	if g.dim > 0 || g.load == nil {
		return g.dim, nil
	}
	dim, err := g.load(ctx)
	if err != nil {
		return 0, err
	}
	g.dim = dim
	return dim, nil
}

// admit 校验写入向量的维度后执行 write。
// 库为空时 write 在锁内完成，成功后才以 n 确定维度。
func (g *dimensionGuard) admit(ctx context.Context, n int, write func() error) error {
	if n == 0 {
		return ErrDimensionMismatch.WithMessage("embedding is empty")
	}

	g.mu.Lock()
	dim, err := g.getLocked(ctx)
	if err != nil {
		g.mu.Unlock()
		return err
	}
	if dim == 0 {
		defer g.mu.Unlock()
		if err := write(); err != nil {
			return err
		}
		g.dim = n
		return nil
	}
	g.mu.Unlock()

	if n != dim {
		return ErrDimensionMismatch.WithMessagef("embedding has %d dimensions, store has %d", n, dim)
	}
	return write()
}

// check 校验查询向量维度。空库不校验。
func (g *dimensionGuard) check(ctx context.Context, n int) (empty bool, err error) {
	dim, err := g.get(ctx)
	if err != nil {
		return false, err
	}
	if dim == 0 {
		return true, nil
	}
	if n != dim {
		return false, ErrDimensionMismatch.WithMessagef("query has %d dimensions, store has %d", n, dim)
	}
	return false, nil
}
