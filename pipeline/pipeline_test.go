package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"signalsift/scoring"
	"signalsift/types"
)

// fakeEmbedder returns canned vectors keyed by text, or a forced error.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) ModelName() string { return "fake-embedder" }

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, ok := f.vectors[text]
		if !ok {
			return nil, fmt.Errorf("no canned vector for %q", text)
		}
		out[i] = vec
	}
	return out, nil
}

// fakeGenerator returns canned signals and a fixed summary.
type fakeGenerator struct {
	signals    map[string]*types.ScoringSignals
	signalsErr error
	summary    string
	calls      int
}

func (f *fakeGenerator) ModelName() string { return "fake-generator" }

func (f *fakeGenerator) Summarize(_ context.Context, texts []string) (string, error) {
	return f.summary, nil
}

func (f *fakeGenerator) ExtractSignals(_ context.Context, title, _ string, _ []string) (*types.ScoringSignals, error) {
	f.calls++
	if f.signalsErr != nil {
		return nil, f.signalsErr
	}
	return f.signals[title], nil
}

// fakeSeenFilter remembers fingerprints in a map.
type fakeSeenFilter struct {
	seen map[string]bool
}

func (f *fakeSeenFilter) Exists(fp string) (bool, error) { return f.seen[fp], nil }
func (f *fakeSeenFilter) Add(fp string) error            { f.seen[fp] = true; return nil }

// fakeSink captures saved results and can fail on demand.
type fakeSink struct {
	saved []*types.BatchResult
	err   error
}

func (f *fakeSink) SaveBatch(_ context.Context, result *types.BatchResult) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, result)
	return nil
}

func goodItem(id, title, body string) *types.ContentItem {
	return &types.ContentItem{
		ID:                   id,
		Title:                title,
		Body:                 body,
		URL:                  "https://example.com/" + id,
		ExtractionConfidence: 0.9,
		WordCount:            100,
	}
}

func testConfig() Config {
	return Config{
		Themes:            []string{"markets"},
		ProviderCallDelay: -1,
	}
}

func strongSignals() *types.ScoringSignals {
	return &types.ScoringSignals{
		Alignments: []types.AlignmentAssessment{{Theme: "markets", Alignment: 0.9}},
		Classifications: []types.TopicClassification{
			{Category: "markets", Confidence: 0.8, Actionability: 0.6, Risk: 0.4, StakeholderRelevance: 0.4},
		},
		Quality: &types.QualityMetrics{FactualDensity: 0.8, SourceAuthority: 0.8, Clarity: 0.8, Completeness: 0.8, VerificationLevel: 0.8},
	}
}

func TestProcessBatchClustersScoresAndReports(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"rates body one": {1, 0},
		"rates body two": {0.99, 0.14},
		"sports body":    {0, 1},
	}}
	gen := &fakeGenerator{
		summary: "consolidated coverage",
		signals: map[string]*types.ScoringSignals{
			"Rates up":     strongSignals(),
			"Rates higher": strongSignals(),
			"Match report": nil, // no signals: defaults apply
		},
	}
	sink := &fakeSink{}
	p := New(testConfig(), embedder, gen, WithSink(sink))

	items := []*types.ContentItem{
		goodItem("a1", "Rates up", "rates body one"),
		goodItem("a2", "Rates higher", "rates body two"),
		goodItem("b1", "Match report", "sports body"),
	}

	result, err := p.ProcessBatch(context.Background(), items, BatchOptions{})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}

	if len(result.Clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(result.Clusters))
	}
	cluster := result.Clusters[0]
	if cluster.Size() != 2 {
		t.Errorf("expected cluster of 2, got %d", cluster.Size())
	}
	if cluster.Summary != "consolidated coverage" {
		t.Errorf("expected generated summary, got %q", cluster.Summary)
	}
	if cluster.BatchID != result.BatchID {
		t.Errorf("cluster batch id %q != %q", cluster.BatchID, result.BatchID)
	}

	unique := result.UniqueItems()
	if len(unique) != 1 || unique[0].ID != "b1" {
		t.Errorf("expected b1 unique, got %v", unique)
	}

	report := result.Report
	if report.TotalItems != 3 || report.SkippedItems != 0 {
		t.Errorf("unexpected totals: %+v", report)
	}
	if report.IncludedCount+report.ExcludedCount+report.ReviewCount != 3 {
		t.Errorf("decision counts must cover every surviving item: %+v", report)
	}
	// The signal-less item degrades quality and temporal; the other two
	// degrade temporal only (no timestamps).
	if report.DegradedDefaults != 4 {
		t.Errorf("expected 4 degraded defaults, got %d", report.DegradedDefaults)
	}

	for _, item := range result.Items {
		if item.Score == nil || item.Decision == "" {
			t.Errorf("item %s left unscored", item.ID)
		}
	}

	if len(sink.saved) != 1 {
		t.Fatalf("expected 1 persisted batch, got %d", len(sink.saved))
	}
}

func TestProcessBatchSkipsMalformedItems(t *testing.T) {
	p := New(testConfig(), nil, nil)

	items := []*types.ContentItem{
		goodItem("ok", "Fine", "fine body"),
		{ID: "bad", Title: "", Body: "body", URL: "https://example.com/x", ExtractionConfidence: 0.5},
		{ID: "worse", Title: "t", Body: "b", URL: "https://example.com/y", ExtractionConfidence: 1.5},
	}

	result, err := p.ProcessBatch(context.Background(), items, BatchOptions{})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if result.Report.SkippedItems != 2 {
		t.Errorf("expected 2 skipped, got %d", result.Report.SkippedItems)
	}
	if len(result.Items) != 1 || result.Items[0].ID != "ok" {
		t.Errorf("expected only the valid item to survive, got %v", result.Items)
	}
	if len(result.Report.Warnings) < 2 {
		t.Errorf("expected warnings for skipped items, got %v", result.Report.Warnings)
	}
}

func TestProcessBatchFiltersCrossBatchRepeats(t *testing.T) {
	filter := &fakeSeenFilter{seen: map[string]bool{}}
	fp := func(item *types.ContentItem) (string, error) { return item.URL, nil }
	p := New(testConfig(), nil, nil, WithSeenFilter(filter, fp))

	first, err := p.ProcessBatch(context.Background(), []*types.ContentItem{
		goodItem("a", "Story", "body"),
	}, BatchOptions{})
	if err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if first.Report.ExactDuplicates != 0 || len(first.Items) != 1 {
		t.Fatalf("first batch should pass through, got %+v", first.Report)
	}

	second, err := p.ProcessBatch(context.Background(), []*types.ContentItem{
		goodItem("a", "Story", "body"),
		goodItem("b", "Fresh", "fresh body"),
	}, BatchOptions{})
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if second.Report.ExactDuplicates != 1 {
		t.Errorf("expected 1 repeat, got %d", second.Report.ExactDuplicates)
	}
	if len(second.Items) != 1 || second.Items[0].ID != "b" {
		t.Errorf("expected only the fresh item, got %v", second.Items)
	}
}

func TestProcessBatchDegradesWhenEmbeddingsFail(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("provider down")}
	p := New(testConfig(), embedder, nil)

	result, err := p.ProcessBatch(context.Background(), []*types.ContentItem{
		goodItem("a", "One", "body one"),
		goodItem("b", "Two", "body two"),
	}, BatchOptions{})
	if err != nil {
		t.Fatalf("embedding failure must not fail the batch: %v", err)
	}

	if len(result.Clusters) != 0 {
		t.Errorf("unembedded items must not cluster, got %d clusters", len(result.Clusters))
	}
	if len(result.UniqueItems()) != 2 {
		t.Errorf("expected both items unique, got %d", len(result.UniqueItems()))
	}
	for _, item := range result.Items {
		if item.Score == nil {
			t.Errorf("item %s should still be scored", item.ID)
		}
	}
	if len(result.Report.Warnings) == 0 {
		t.Error("expected an embeddings warning")
	}
}

func TestProcessBatchAbortsOnInvalidWeights(t *testing.T) {
	p := New(testConfig(), nil, nil)

	bad := scoring.Weights{Topical: 0.5, Strategic: 0.5, Quality: 0.5, Temporal: 0.5}
	_, err := p.ProcessBatch(context.Background(), []*types.ContentItem{
		goodItem("a", "Story", "body"),
	}, BatchOptions{Weights: &bad})
	if !errors.Is(err, scoring.ErrInvalidWeights) {
		t.Fatalf("expected ErrInvalidWeights, got %v", err)
	}
}

func TestSinkFailureIsWarningNotError(t *testing.T) {
	sink := &fakeSink{err: errors.New("redis down")}
	p := New(testConfig(), nil, nil, WithSink(sink))

	result, err := p.ProcessBatch(context.Background(), []*types.ContentItem{
		goodItem("a", "Story", "body"),
	}, BatchOptions{})
	if err != nil {
		t.Fatalf("sink failure must not fail the batch: %v", err)
	}
	found := false
	for _, w := range result.Report.Warnings {
		if len(w) > 0 {
			found = true
		}
	}
	if !found {
		t.Error("expected a persistence warning")
	}
}

func TestScoredItemsIndexAccumulatesAcrossBatches(t *testing.T) {
	p := New(testConfig(), nil, nil)

	if _, err := p.ProcessBatch(context.Background(), []*types.ContentItem{
		goodItem("a", "One", "body one"),
	}, BatchOptions{}); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if _, err := p.ProcessBatch(context.Background(), []*types.ContentItem{
		goodItem("b", "Two", "body two"),
	}, BatchOptions{}); err != nil {
		t.Fatalf("second batch: %v", err)
	}

	corpus := p.ScoredItems()
	if len(corpus) != 2 {
		t.Fatalf("expected 2 indexed items, got %d", len(corpus))
	}
	if corpus[0].ID != "a" || corpus[1].ID != "b" {
		t.Errorf("corpus should be ordered by id, got %s, %s", corpus[0].ID, corpus[1].ID)
	}
}
