package similarity

import (
	"math"
	"sort"
)

// CosineSimilarity returns the cosine of the angle between two sparse weighted
// term vectors. Terms are visited in sorted order so the result does not depend
// on argument order. It is 0 when either vector has zero norm.
func CosineSimilarity(a, b map[string]float64) float64 {
	terms := make([]string, 0, len(a)+len(b))
	for t := range a {
		terms = append(terms, t)
	}
	for t := range b {
		if _, ok := a[t]; !ok {
			terms = append(terms, t)
		}
	}
	sort.Strings(terms)

	var dot, normA, normB float64
	for _, t := range terms {
		va, vb := a[t], b[t]
		dot += va * vb
		normA += va * va
		normB += vb * vb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / math.Sqrt(normA*normB)
	if sim > 1 {
		return 1
	}
	return sim
}
