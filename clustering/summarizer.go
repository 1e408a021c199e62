package clustering

import (
	"context"
	"fmt"
	"log"
	"strings"

	"signalsift/types"
)

// SummaryGenerator is the minimal text-generation capability the summarizer
// needs. The pipeline wires a live or synthetic provider here; the
// summarizer never knows which.
type SummaryGenerator interface {
	Summarize(ctx context.Context, texts []string) (string, error)
}

// Summarizer attaches a consolidated narrative to each finalized cluster by
// asking the text-generation collaborator to merge the members' coverage.
type Summarizer struct {
	gen SummaryGenerator
}

// NewSummarizer creates a summarizer using the given generator.
func NewSummarizer(gen SummaryGenerator) *Summarizer {
	return &Summarizer{gen: gen}
}

// Summarize requests the consolidated summary for one cluster and stores it
// on the cluster record. On provider failure the cluster falls back to the
// representative member's own summary (or title) so scoring can proceed;
// the error is returned for the caller to record as a warning.
func (s *Summarizer) Summarize(ctx context.Context, cluster *types.ContentCluster, members []*types.ContentItem) error {
	texts := make([]string, 0, len(members))
	for _, item := range members {
		text := item.Summary
		if text == "" {
			text = item.Body
		}
		texts = append(texts, fmt.Sprintf("%s\n%s", item.Title, firstWords(text, 200)))
	}

	summary, err := s.gen.Summarize(ctx, texts)
	if err == nil && strings.TrimSpace(summary) != "" {
		cluster.Summary = strings.TrimSpace(summary)
		return nil
	}

	// Degrade to the representative's own material rather than blocking.
	for _, item := range members {
		if item.ID == cluster.RepresentativeID {
			if item.Summary != "" {
				cluster.Summary = item.Summary
			} else {
				cluster.Summary = item.Title
			}
			break
		}
	}

	if err != nil {
		log.Printf("Warning: summary generation failed for cluster %s: %v", cluster.ID, err)
		return fmt.Errorf("summarizing cluster %s: %w", cluster.ID, err)
	}
	return nil
}

// firstWords truncates text to at most n whitespace-separated words.
func firstWords(text string, n int) string {
	fields := strings.Fields(text)
	if len(fields) <= n {
		return strings.Join(fields, " ")
	}
	return strings.Join(fields[:n], " ")
}
