package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Metadata carries the structured fields the pipeline actually reads.
// Extra is an opaque passthrough bag for round-tripping upstream fields;
// clustering and scoring never branch on it.
type Metadata struct {
	Domain    string            `json:"domain,omitempty"`
	Tags      []string          `json:"tags,omitempty"`
	Author    string            `json:"author,omitempty"`
	FetchedAt time.Time         `json:"fetched_at,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// ContentItem represents a single unit of ingested content with metadata
// and the fields assigned as it moves through the pipeline.
type ContentItem struct {
	ID                   string     `json:"id"`
	Title                string     `json:"title"`
	Body                 string     `json:"body"`
	Summary              string     `json:"summary,omitempty"`
	URL                  string     `json:"url"`
	WordCount            int        `json:"word_count,omitempty"`
	ExtractionConfidence float64    `json:"extraction_confidence"`
	PublishedAt          *time.Time `json:"published_at,omitempty"`
	Metadata             Metadata   `json:"metadata,omitempty"`
	BatchID              string     `json:"batch_id,omitempty"`
	ExtractionError      string     `json:"extraction_error,omitempty"`

	// Assigned during the pipeline. An item belongs to at most one cluster:
	// either ClusterID is empty (unique item) or it names the owning cluster.
	Embedding        []float32 `json:"embedding,omitempty"`
	ClusterID        string    `json:"cluster_id,omitempty"`
	ParentID         string    `json:"parent_id,omitempty"`
	IsRepresentative bool      `json:"is_representative,omitempty"`
	AbsorbedCount    int       `json:"absorbed_count,omitempty"`

	Signals  *ScoringSignals `json:"signals,omitempty"`
	Score    *RelevanceScore `json:"score,omitempty"`
	Decision Decision        `json:"decision,omitempty"`
}

// Validate enforces the batch input contract. A failing item is rejected
// individually; the batch continues without it.
func (c *ContentItem) Validate() error {
	if c == nil {
		return fmt.Errorf("nil item")
	}
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("item id is required")
	}
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("item %s: title is required", c.ID)
	}
	if strings.TrimSpace(c.Body) == "" {
		return fmt.Errorf("item %s: body is required", c.ID)
	}
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("item %s: source URL is required", c.ID)
	}
	if c.ExtractionConfidence < 0 || c.ExtractionConfidence > 1 {
		return fmt.Errorf("item %s: extraction confidence %.3f outside [0,1]", c.ID, c.ExtractionConfidence)
	}
	return nil
}

// EmbeddingText returns the most comprehensive text available for embedding.
// Priority order: Body > Summary > Title.
func (c *ContentItem) EmbeddingText() string {
	if c.Body != "" {
		return c.Body
	}
	if c.Summary != "" {
		return c.Summary
	}
	return c.Title
}

// SourceDomain returns the originating domain, falling back to the host
// parsed from the source URL when metadata does not carry one.
func (c *ContentItem) SourceDomain() string {
	if c.Metadata.Domain != "" {
		return c.Metadata.Domain
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// AgeDays returns the item age in days relative to now, or -1 when no
// publication timestamp is available.
func (c *ContentItem) AgeDays(now time.Time) float64 {
	if c.PublishedAt == nil || c.PublishedAt.IsZero() {
		return -1
	}
	return now.Sub(*c.PublishedAt).Hours() / 24
}

// GenerateID creates a short, stable ID by hashing the provided string input
func GenerateID(input string) string {
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16]
}
