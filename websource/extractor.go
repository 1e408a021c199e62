package websource

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	readability "github.com/go-shiori/go-readability"

	"signalsift/types"
)

const (
	WorkerCount      = 5
	extractorTimeout = 30 * time.Second
)

// ExtractAllContent fetches and extracts full content for all items using a
// worker pool. Failures are recorded on the item and lower its extraction
// confidence; they never abort the batch.
func ExtractAllContent(items []*types.ContentItem) {
	var wg sync.WaitGroup
	itemChan := make(chan *types.ContentItem, len(items))

	for i := 0; i < WorkerCount; i++ {
		go func(workerID int) {
			for item := range itemChan {
				if err := extractContent(item); err != nil {
					item.ExtractionError = err.Error()
					fallbackToSummary(item)
					log.Printf("[Worker %d] Failed to extract %s: %v", workerID, item.URL, err)
				}
				wg.Done()
			}
		}(i)
	}

	for _, item := range items {
		wg.Add(1)
		itemChan <- item
	}

	wg.Wait()
	close(itemChan)
}

// extractContent fetches and extracts the readable text for a single item,
// then derives its word count and extraction confidence.
func extractContent(item *types.ContentItem) error {
	if item.URL == "" {
		return fmt.Errorf("item URL is empty")
	}

	article, err := readability.FromURL(item.URL, extractorTimeout)
	if err != nil {
		return fmt.Errorf("readability extraction failed: %w", err)
	}

	item.Body = strings.TrimSpace(article.TextContent)
	if item.Summary == "" {
		item.Summary = article.Excerpt
	}
	if item.Metadata.Author == "" {
		item.Metadata.Author = article.Byline
	}

	item.WordCount = len(strings.Fields(item.Body))
	item.ExtractionConfidence = confidenceFor(item.WordCount)

	log.Printf("✓ Extracted: %s (%d words)", item.Title, item.WordCount)
	return nil
}

// fallbackToSummary keeps a failed item processable by promoting its feed
// summary to the body at reduced confidence.
func fallbackToSummary(item *types.ContentItem) {
	if item.Body == "" && item.Summary != "" {
		item.Body = item.Summary
	}
	item.WordCount = len(strings.Fields(item.Body))
	item.ExtractionConfidence = 0.3
}

// confidenceFor maps extracted length to confidence: full articles read
// cleanly, fragments are suspect.
func confidenceFor(wordCount int) float64 {
	switch {
	case wordCount >= 300:
		return 0.95
	case wordCount >= 100:
		return 0.8
	case wordCount >= 30:
		return 0.6
	default:
		return 0.4
	}
}
