package similarity

import (
	"math"
	"sort"
)

// Neighbor is one ranked similarity lookup result.
type Neighbor struct {
	ID    string
	Score float64
}

// Matrix caches pairwise cosine similarity over a VectorStore. It is
// symmetric by construction: each (i,j) pair is computed once and served for
// both lookup directions, and the diagonal is exactly 1.0.
//
// Computation is O(n²) pairwise comparisons, which is fine at batch scale
// (tens to a few hundred items); this is not an index for large corpora.
type Matrix struct {
	ids   []string
	index map[string]int
	cells [][]float64
}

// BuildMatrix computes the full pairwise similarity matrix for the store's
// current contents, in the store's insertion order.
func BuildMatrix(store *VectorStore) *Matrix {
	ids := store.IDs()
	m := &Matrix{
		ids:   ids,
		index: make(map[string]int, len(ids)),
		cells: make([][]float64, len(ids)),
	}
	for i, id := range ids {
		m.index[id] = i
		m.cells[i] = make([]float64, len(ids))
		m.cells[i][i] = 1.0
	}

	for i := 0; i < len(ids); i++ {
		a, _ := store.Get(ids[i])
		for j := i + 1; j < len(ids); j++ {
			b, _ := store.Get(ids[j])
			score := Cosine(a, b)
			m.cells[i][j] = score
			m.cells[j][i] = score
		}
	}
	return m
}

// Get returns the similarity between two items, reporting false when either
// id is unknown. Unknown ids are expected for items that failed enrichment
// and are skipped by callers rather than treated as fatal.
func (m *Matrix) Get(id1, id2 string) (float64, bool) {
	i, ok := m.index[id1]
	if !ok {
		return 0, false
	}
	j, ok := m.index[id2]
	if !ok {
		return 0, false
	}
	return m.cells[i][j], true
}

// Neighbors returns every item whose similarity to id meets minThreshold,
// ranked descending by score with ties broken by identifier.
func (m *Matrix) Neighbors(id string, minThreshold float64) []Neighbor {
	i, ok := m.index[id]
	if !ok {
		return nil
	}

	neighbors := make([]Neighbor, 0)
	for j, other := range m.ids {
		if j == i {
			continue
		}
		if score := m.cells[i][j]; score >= minThreshold {
			neighbors = append(neighbors, Neighbor{ID: other, Score: score})
		}
	}

	sort.Slice(neighbors, func(a, b int) bool {
		if neighbors[a].Score != neighbors[b].Score {
			return neighbors[a].Score > neighbors[b].Score
		}
		return neighbors[a].ID < neighbors[b].ID
	})
	return neighbors
}

// IDs returns the matrix row identifiers in build order.
func (m *Matrix) IDs() []string {
	return append([]string(nil), m.ids...)
}

// Cosine computes cosine similarity clamped to [0,1]. Negative cosine values
// are floored to 0 (opposite content has no meaning in this domain), and a
// zero-magnitude vector yields 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
