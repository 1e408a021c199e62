package similarity

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is returned when a vector's length differs from the
// store's fixed dimensionality. It rejects the single write, never the batch.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Entry pairs an item identifier with its stored vector.
type Entry struct {
	ID     string
	Vector []float32
}

// VectorStore maps item identifiers to fixed-length embedding vectors.
// It does not produce vectors; that is the embedding provider's job.
// Iteration follows insertion order so downstream similarity computation is
// reproducible for identical input.
type VectorStore struct {
	dims    int
	ids     []string
	vectors map[string][]float32
}

// NewVectorStore creates a store with the given dimensionality. Pass 0 to
// let the first insert fix the dimensionality.
func NewVectorStore(dims int) *VectorStore {
	return &VectorStore{
		dims:    dims,
		vectors: make(map[string][]float32),
	}
}

// Put stores the vector for id, enforcing the store's dimensionality.
// Re-inserting an existing id replaces its vector without changing the
// original insertion position.
func (s *VectorStore) Put(id string, vector []float32) error {
	if id == "" {
		return fmt.Errorf("vector id is required")
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty vector for %s", ErrDimensionMismatch, id)
	}
	if s.dims == 0 {
		s.dims = len(vector)
	}
	if len(vector) != s.dims {
		return fmt.Errorf("%w: got %d components for %s, store holds %d", ErrDimensionMismatch, len(vector), id, s.dims)
	}

	if _, exists := s.vectors[id]; !exists {
		s.ids = append(s.ids, id)
	}
	s.vectors[id] = append([]float32(nil), vector...)
	return nil
}

// Get returns the vector for id, reporting whether it exists.
func (s *VectorStore) Get(id string) ([]float32, bool) {
	vec, ok := s.vectors[id]
	return vec, ok
}

// All returns every (id, vector) pair in insertion order.
func (s *VectorStore) All() []Entry {
	entries := make([]Entry, 0, len(s.ids))
	for _, id := range s.ids {
		entries = append(entries, Entry{ID: id, Vector: s.vectors[id]})
	}
	return entries
}

// IDs returns the stored identifiers in insertion order.
func (s *VectorStore) IDs() []string {
	return append([]string(nil), s.ids...)
}

// Len returns the number of stored vectors.
func (s *VectorStore) Len() int {
	return len(s.ids)
}

// Dimensions returns the store's fixed dimensionality (0 before first insert).
func (s *VectorStore) Dimensions() int {
	return s.dims
}
