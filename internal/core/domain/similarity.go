package domain

import (
	"math"
	"sort"
)

// CosineSimilarity returns dot(a,b)/(|a||b|).
// Vectors of different length, empty vectors and zero-magnitude vectors
// score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
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

// RankChunks scores every embedded chunk against query and returns the top k
// by descending similarity. Ties keep the chunks' input order. Chunks without
// an embedding are skipped. k <= 0 yields no results.
func RankChunks(chunks []Chunk, query []float32, k int) []ScoredChunk {
	if k <= 0 {
		return []ScoredChunk{}
	}

	scored := make([]ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		if !c.HasEmbedding() {
			continue
		}
		scored = append(scored, ScoredChunk{
			Chunk:      c,
			Similarity: CosineSimilarity(query, c.Embedding),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
