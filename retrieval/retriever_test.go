package retrieval

import (
	"errors"
	"fmt"
	"testing"

	"signalsift/similarity"
	"signalsift/types"
)

type staticSource struct {
	items []*types.ContentItem
}

func (s *staticSource) ScoredItems() []*types.ContentItem { return s.items }

func scoredItem(id string, composite, quality float64) *types.ContentItem {
	return &types.ContentItem{
		ID:                   id,
		ExtractionConfidence: 0.9,
		Score:                &types.RelevanceScore{Composite: composite, Quality: quality},
	}
}

func TestSearchFilterOnlyRanksByComposite(t *testing.T) {
	source := &staticSource{items: []*types.ContentItem{
		scoredItem("low", 0.40, 0.5),
		scoredItem("high", 0.90, 0.8),
		scoredItem("mid", 0.70, 0.6),
	}}
	r := NewRetriever(source)

	results, err := r.Search(Query{MinRelevance: 0.5})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results above 0.5, got %d", len(results))
	}
	if results[0].Item.ID != "high" || results[1].Item.ID != "mid" {
		t.Errorf("expected high, mid; got %s, %s", results[0].Item.ID, results[1].Item.ID)
	}
	if results[0].Score != 0.90 {
		t.Errorf("filter-only score should be composite, got %f", results[0].Score)
	}
}

func TestSearchVectorModeRanksBySimilarity(t *testing.T) {
	near := scoredItem("near", 0.30, 0.5)
	near.Embedding = []float32{0.99, 0.01}
	far := scoredItem("far", 0.95, 0.9)
	far.Embedding = []float32{0, 1}
	unembedded := scoredItem("bare", 0.95, 0.9)

	r := NewRetriever(&staticSource{items: []*types.ContentItem{far, near, unembedded}})

	results, err := r.Search(Query{Vector: []float32{1, 0}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	// Similarity outranks composite, and items without embeddings are
	// invisible to vector queries.
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Item.ID != "near" {
		t.Errorf("expected most similar first, got %s", results[0].Item.ID)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("results not ordered by similarity: %f <= %f", results[0].Score, results[1].Score)
	}
}

func TestSearchVectorDimensionMismatch(t *testing.T) {
	item := scoredItem("a", 0.9, 0.9)
	item.Embedding = []float32{1, 0, 0}
	r := NewRetriever(&staticSource{items: []*types.ContentItem{item}})

	_, err := r.Search(Query{Vector: []float32{1, 0}})
	if !errors.Is(err, similarity.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSearchConjunctiveFilters(t *testing.T) {
	tagged := scoredItem("tagged", 0.80, 0.9)
	tagged.BatchID = "b1"
	tagged.Metadata.Tags = []string{"energy", "policy"}

	wrongBatch := scoredItem("wrong-batch", 0.80, 0.9)
	wrongBatch.BatchID = "b2"
	wrongBatch.Metadata.Tags = []string{"energy"}

	lowQuality := scoredItem("low-quality", 0.80, 0.4)
	lowQuality.BatchID = "b1"
	lowQuality.Metadata.Tags = []string{"energy"}

	shaky := scoredItem("shaky", 0.80, 0.9)
	shaky.BatchID = "b1"
	shaky.Metadata.Tags = []string{"energy"}
	shaky.ExtractionConfidence = 0.2

	r := NewRetriever(&staticSource{items: []*types.ContentItem{tagged, wrongBatch, lowQuality, shaky}})

	results, err := r.Search(Query{
		BatchID:                 "b1",
		Tags:                    []string{"energy", "markets"},
		HighQualityOnly:         true,
		MinExtractionConfidence: 0.5,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Item.ID != "tagged" {
		t.Fatalf("expected only the fully-matching item, got %v", resultIDs(results))
	}

	// Tag filtering is any-of: a different wanted tag set still matches.
	results, err = r.Search(Query{BatchID: "b1", Tags: []string{"policy"}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Item.ID != "tagged" {
		t.Fatalf("expected tag any-of match, got %v", resultIDs(results))
	}
}

func TestSearchDefaultLimitAndTieBreak(t *testing.T) {
	items := make([]*types.ContentItem, 0, 25)
	for i := 0; i < 25; i++ {
		items = append(items, scoredItem(fmt.Sprintf("item-%02d", i), 0.8, 0.8))
	}
	r := NewRetriever(&staticSource{items: items})

	results, err := r.Search(Query{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 20 {
		t.Fatalf("expected default limit of 20, got %d", len(results))
	}
	// Equal scores fall back to identifier order.
	for i := 1; i < len(results); i++ {
		if results[i-1].Item.ID >= results[i].Item.ID {
			t.Fatalf("tie-break not by id at index %d: %s >= %s", i, results[i-1].Item.ID, results[i].Item.ID)
		}
	}

	results, err = r.Search(Query{Limit: 5})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("expected explicit limit of 5, got %d", len(results))
	}
}

func TestSearchIsIdempotent(t *testing.T) {
	source := &staticSource{items: []*types.ContentItem{
		scoredItem("a", 0.9, 0.9),
		scoredItem("b", 0.7, 0.7),
		scoredItem("c", 0.6, 0.6),
	}}
	r := NewRetriever(source)
	q := Query{MinRelevance: 0.65}

	first, err := r.Search(q)
	if err != nil {
		t.Fatalf("first search: %v", err)
	}
	second, err := r.Search(q)
	if err != nil {
		t.Fatalf("second search: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("result sizes differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Item.ID != second[i].Item.ID || first[i].Score != second[i].Score {
			t.Errorf("result %d differs between runs", i)
		}
	}
}

func TestCountIgnoresLimit(t *testing.T) {
	items := make([]*types.ContentItem, 0, 30)
	for i := 0; i < 30; i++ {
		items = append(items, scoredItem(fmt.Sprintf("item-%02d", i), 0.8, 0.8))
	}
	r := NewRetriever(&staticSource{items: items})

	if got := r.Count(Query{Limit: 5}); got != 30 {
		t.Fatalf("count should ignore limit, got %d", got)
	}
	if got := r.Count(Query{MinRelevance: 0.9}); got != 0 {
		t.Fatalf("expected no items above 0.9, got %d", got)
	}
}

func resultIDs(results []Result) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Item.ID)
	}
	return ids
}
