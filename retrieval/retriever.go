package retrieval

import (
	"fmt"
	"sort"

	"signalsift/config"
	"signalsift/similarity"
	"signalsift/types"
)

// Query selects scored items from a processed corpus. When Vector is set
// the results are ranked by cosine similarity against each item's stored
// embedding; otherwise they are ranked by composite relevance. All filters
// are conjunctive.
type Query struct {
	Vector []float32 `json:"vector,omitempty"`

	BatchID                 string   `json:"batch_id,omitempty"`
	Tags                    []string `json:"tags,omitempty"`
	MinRelevance            float64  `json:"min_relevance,omitempty"`
	MinExtractionConfidence float64  `json:"min_extraction_confidence,omitempty"`
	HighQualityOnly         bool     `json:"high_quality_only,omitempty"`

	Limit int `json:"limit,omitempty"`
}

// Result pairs an item with the score that ranked it: cosine similarity in
// vector mode, composite relevance in filter-only mode.
type Result struct {
	Item  *types.ContentItem `json:"item"`
	Score float64            `json:"score"`
}

// ItemSource is the corpus the retriever reads from. The pipeline's
// in-memory index and the persistent record store both satisfy it.
type ItemSource interface {
	ScoredItems() []*types.ContentItem
}

// Retriever answers queries over scored items without mutating them.
type Retriever struct {
	source ItemSource
}

// NewRetriever creates a retriever over the given corpus.
func NewRetriever(source ItemSource) *Retriever {
	return &Retriever{source: source}
}

// Search filters and ranks the corpus for one query. Searching never
// mutates the corpus, so repeating a query returns identical results.
func (r *Retriever) Search(q Query) ([]Result, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = config.DefaultResultLimit
	}

	candidates := r.source.ScoredItems()
	results := make([]Result, 0, len(candidates))

	for _, item := range candidates {
		if !matchesFilters(item, q) {
			continue
		}

		if len(q.Vector) > 0 {
			if len(item.Embedding) == 0 {
				continue
			}
			if len(item.Embedding) != len(q.Vector) {
				return nil, fmt.Errorf("query vector has %d dimensions, corpus has %d: %w",
					len(q.Vector), len(item.Embedding), similarity.ErrDimensionMismatch)
			}
			results = append(results, Result{Item: item, Score: similarity.Cosine(q.Vector, item.Embedding)})
			continue
		}

		score := 0.0
		if item.Score != nil {
			score = item.Score.Composite
		}
		results = append(results, Result{Item: item, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Item.ID < results[j].Item.ID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Count reports how many corpus items satisfy the query's filters,
// ignoring limit and ranking.
func (r *Retriever) Count(q Query) int {
	count := 0
	for _, item := range r.source.ScoredItems() {
		if matchesFilters(item, q) {
			count++
		}
	}
	return count
}

// matchesFilters applies every filter the query sets. A missing score
// counts as zero relevance rather than an error.
func matchesFilters(item *types.ContentItem, q Query) bool {
	if q.BatchID != "" && item.BatchID != q.BatchID {
		return false
	}
	if item.ExtractionConfidence < q.MinExtractionConfidence {
		return false
	}

	composite := 0.0
	quality := 0.0
	if item.Score != nil {
		composite = item.Score.Composite
		quality = item.Score.Quality
	}
	if composite < q.MinRelevance {
		return false
	}
	if q.HighQualityOnly && quality < config.HighQualityMinScore {
		return false
	}

	if len(q.Tags) > 0 && !hasAnyTag(item, q.Tags) {
		return false
	}
	return true
}

// hasAnyTag reports whether the item carries at least one of the wanted
// tags.
func hasAnyTag(item *types.ContentItem, wanted []string) bool {
	if len(item.Metadata.Tags) == 0 {
		return false
	}
	have := make(map[string]struct{}, len(item.Metadata.Tags))
	for _, tag := range item.Metadata.Tags {
		have[tag] = struct{}{}
	}
	for _, tag := range wanted {
		if _, ok := have[tag]; ok {
			return true
		}
	}
	return false
}
