package store

import (
	"math"
	"sort"
)

// CosineSimilarity 计算两个等长向量的余弦相似度。任一向量模为 0 时返回 0。
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// rank 对按插入顺序排列的 entries 打分并取前 k 条。
// 稳定排序保证同分时保持插入顺序。
func rank(entries []GuideEntry, query []float32, k int) []ScoredEntry {
	if k <= 0 || len(entries) == 0 {
		return []ScoredEntry{}
	}

	scored := make([]ScoredEntry, len(entries))
	for i, e := range entries {
		scored[i] = ScoredEntry{GuideEntry: e, Score: CosineSimilarity(query, e.Embedding)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	// 返回副本，调用方不能改动库中的向量
	for i := range scored {
		scored[i].Embedding = append([]float32(nil), scored[i].Embedding...)
	}
	return scored
}
