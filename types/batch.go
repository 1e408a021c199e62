package types

import "time"

// BatchReport summarizes what happened to a batch, including partial
// failures. Every response carries one; silent data loss is not allowed.
type BatchReport struct {
	TotalItems       int      `json:"total_items"`
	SkippedItems     int      `json:"skipped_items"`
	ExactDuplicates  int      `json:"exact_duplicates"`
	DegradedDefaults int      `json:"degraded_defaults"`
	IncludedCount    int      `json:"included_count"`
	ExcludedCount    int      `json:"excluded_count"`
	ReviewCount      int      `json:"review_count"`
	Warnings         []string `json:"warnings,omitempty"`
}

// BatchResult is the batch output contract: finalized clusters plus every
// surviving item (cluster members and unique items alike), each scored and
// decided. The retrieval layer indexes this combined set.
type BatchResult struct {
	BatchID     string            `json:"batch_id"`
	Clusters    []*ContentCluster `json:"clusters"`
	Items       []*ContentItem    `json:"items"`
	Report      BatchReport       `json:"report"`
	ProcessedAt time.Time         `json:"processed_at"`
}

// UniqueItems returns the items that were not absorbed into any cluster.
func (r *BatchResult) UniqueItems() []*ContentItem {
	out := make([]*ContentItem, 0, len(r.Items))
	for _, item := range r.Items {
		if item.ClusterID == "" {
			out = append(out, item)
		}
	}
	return out
}

// Representatives returns the cluster representative items.
func (r *BatchResult) Representatives() []*ContentItem {
	out := make([]*ContentItem, 0, len(r.Clusters))
	for _, item := range r.Items {
		if item.IsRepresentative {
			out = append(out, item)
		}
	}
	return out
}
