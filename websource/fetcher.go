package websource

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"

	"signalsift/types"
)

// FeedPresets maps short names to feed URLs for the CLI and demo client.
var FeedPresets = map[string]string{
	"bbc":     "https://feeds.bbci.co.uk/news/rss.xml",
	"reuters": "https://www.reutersagency.com/feed/",
	"hn":      "https://news.ycombinator.com/rss",
	"verge":   "https://www.theverge.com/rss/index.xml",
}

// ResolveFeedURL maps a preset name to its URL, passing through anything
// that is not a preset.
func ResolveFeedURL(nameOrURL string) string {
	if url, ok := FeedPresets[nameOrURL]; ok {
		return url
	}
	return nameOrURL
}

// FetchFeed retrieves and parses an RSS/Atom feed, returning content items
// carrying feed-level metadata. Bodies are filled in by the extractor.
func FetchFeed(feedURL string, maxCount int) ([]*types.ContentItem, error) {
	parser := gofeed.NewParser()
	feed, err := parser.ParseURL(feedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	count := len(feed.Items)
	if maxCount > 0 && count > maxCount {
		count = maxCount
	}

	items := make([]*types.ContentItem, 0, count)
	for i := 0; i < count; i++ {
		entry := feed.Items[i]
		items = append(items, feedEntryToItem(entry))
	}
	return items, nil
}

// feedEntryToItem converts one feed entry. Items without a link still get a
// stable id from their GUID or title.
func feedEntryToItem(entry *gofeed.Item) *types.ContentItem {
	id := entry.GUID
	if id == "" && entry.Link != "" {
		id = entry.Link
	}
	if id == "" {
		id = entry.Title
	}

	summary := entry.Description
	if summary == "" {
		summary = entry.Content
	}

	author := ""
	if entry.Author != nil {
		author = entry.Author.Name
	}

	item := &types.ContentItem{
		ID:      types.GenerateID(id),
		Title:   strings.TrimSpace(entry.Title),
		URL:     entry.Link,
		Summary: strings.TrimSpace(summary),
		Metadata: types.Metadata{
			Author:    author,
			Tags:      append([]string(nil), entry.Categories...),
			FetchedAt: time.Now().UTC(),
		},
	}

	if ts := parseEntryTime(entry); ts != nil {
		item.PublishedAt = ts
	}
	return item
}

// parseEntryTime prefers the feed parser's parsed timestamps and falls back
// to lenient parsing of the raw strings, which many feeds format loosely.
func parseEntryTime(entry *gofeed.Item) *time.Time {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed
	}
	if entry.UpdatedParsed != nil {
		return entry.UpdatedParsed
	}
	for _, raw := range []string{entry.Published, entry.Updated} {
		if raw == "" {
			continue
		}
		if ts, err := dateparse.ParseAny(raw); err == nil {
			return &ts
		}
	}
	return nil
}
