package types

import (
	"sort"
	"strings"
	"time"
)

// SimilarityTier classifies how tightly a cluster's members relate.
type SimilarityTier string

const (
	TierExactDuplicate SimilarityTier = "exact_duplicate"
	TierSameStory      SimilarityTier = "same_story"
	TierRelatedContent SimilarityTier = "related_content"
	TierUniqueContent  SimilarityTier = "unique_content"
)

// ContentCluster is a group of two or more mutually similar content items.
// Member order is sorted lexicographically so repeated runs over the same
// input produce byte-identical output.
type ContentCluster struct {
	ID               string         `json:"id"`
	BatchID          string         `json:"batch_id,omitempty"`
	MemberIDs        []string       `json:"member_ids"`
	RepresentativeID string         `json:"representative_id,omitempty"`
	Summary          string         `json:"summary,omitempty"`
	Tier             SimilarityTier `json:"tier"`

	// Confidence is the mean pairwise similarity among members; Cohesion is
	// Confidence minus the standard deviation of those similarities.
	Confidence float64 `json:"confidence"`
	Cohesion   float64 `json:"cohesion"`

	// Aggregates over the member items.
	TotalWordCount    int     `json:"total_word_count"`
	AvgExtractionConf float64 `json:"avg_extraction_confidence"`
	DistinctDomains   int     `json:"distinct_domains"`

	CreatedAt time.Time `json:"created_at"`
}

// Size returns the member count.
func (c *ContentCluster) Size() int {
	return len(c.MemberIDs)
}

// ClusterIDFor derives a deterministic cluster identifier from its member
// set, so identical input always maps to the same cluster IDs.
func ClusterIDFor(memberIDs []string) string {
	sorted := append([]string(nil), memberIDs...)
	sort.Strings(sorted)
	return "cl-" + GenerateID(strings.Join(sorted, "|"))
}
