package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"signalsift/clustering"
	"signalsift/config"
	"signalsift/providers"
	"signalsift/scoring"
	"signalsift/similarity"
	"signalsift/types"
)

// Config holds pipeline-wide settings. Zero values fall back to the
// documented defaults.
type Config struct {
	// Themes the signal extractor assesses each item against.
	Themes []string

	Clustering clustering.BuilderConfig
	Scoring    scoring.EngineConfig

	// ProviderCallDelay paces per-item generation calls so batches stay
	// under provider rate limits.
	ProviderCallDelay time.Duration
	// EnrichmentTimeout bounds each provider call.
	EnrichmentTimeout time.Duration
}

// SeenFilter answers cross-batch repeat questions, usually backed by
// RedisBloom. A positive answer may be a false positive.
type SeenFilter interface {
	Exists(fingerprint string) (bool, error)
	Add(fingerprint string) error
}

// Fingerprinter derives the repeat-detection fingerprint for an item.
type Fingerprinter func(item *types.ContentItem) (string, error)

// BatchSink receives finished batch results. The Redis record store and the
// S3 archive both satisfy it; sink failures are reported as warnings, never
// as batch failures.
type BatchSink interface {
	SaveBatch(ctx context.Context, result *types.BatchResult) error
}

// Pipeline runs the full batch flow: validate, prefilter, enrich, cluster,
// summarize, score, persist. It also keeps an in-memory index of every
// scored item for the retrieval layer.
type Pipeline struct {
	cfg         Config
	embedder    providers.EmbeddingsProvider
	generator   providers.TextGenerator
	seen        SeenFilter
	fingerprint Fingerprinter
	sinks       []BatchSink

	mu     sync.RWMutex
	corpus map[string]*types.ContentItem
}

// Option customizes a pipeline at construction time.
type Option func(*Pipeline)

// WithSeenFilter wires the cross-batch repeat prefilter.
func WithSeenFilter(filter SeenFilter, fp Fingerprinter) Option {
	return func(p *Pipeline) {
		p.seen = filter
		p.fingerprint = fp
	}
}

// WithSink adds a destination for finished batches.
func WithSink(sink BatchSink) Option {
	return func(p *Pipeline) {
		p.sinks = append(p.sinks, sink)
	}
}

// New creates a pipeline. Both providers are optional: without an embedder
// every item stays unique, without a generator items score with defaults.
func New(cfg Config, embedder providers.EmbeddingsProvider, generator providers.TextGenerator, opts ...Option) *Pipeline {
	cfg = applyPipelineDefaults(cfg)
	p := &Pipeline{
		cfg:       cfg,
		embedder:  embedder,
		generator: generator,
		corpus:    make(map[string]*types.ContentItem),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// BatchOptions are per-call overrides.
type BatchOptions struct {
	// Weights overrides the configured composite weights for this batch.
	Weights *scoring.Weights
}

// ProcessBatch runs one batch end to end and returns its result. The only
// hard failure is an invalid weight configuration; per-item problems are
// reported in the batch report instead.
func (p *Pipeline) ProcessBatch(ctx context.Context, items []*types.ContentItem, opts BatchOptions) (*types.BatchResult, error) {
	scoringCfg := p.cfg.Scoring
	if opts.Weights != nil {
		scoringCfg.Weights = *opts.Weights
	}
	engine, err := scoring.NewEngine(scoringCfg)
	if err != nil {
		return nil, fmt.Errorf("scoring configuration: %w", err)
	}

	batchID := uuid.New().String()
	report := types.BatchReport{TotalItems: len(items)}

	accepted := p.admit(items, batchID, &report)

	p.enrich(ctx, accepted, &report)

	clusters, warnings := p.cluster(ctx, accepted)
	report.Warnings = append(report.Warnings, warnings...)

	outcome := engine.ScoreBatch(accepted)
	report.DegradedDefaults += outcome.DegradedDefaults
	report.IncludedCount = outcome.Included
	report.ExcludedCount = outcome.Excluded
	report.ReviewCount = outcome.Review

	result := &types.BatchResult{
		BatchID:     batchID,
		Clusters:    clusters,
		Items:       accepted,
		Report:      report,
		ProcessedAt: time.Now().UTC(),
	}

	for _, sink := range p.sinks {
		if err := sink.SaveBatch(ctx, result); err != nil {
			log.Printf("Warning: persisting batch %s: %v", batchID, err)
			result.Report.Warnings = append(result.Report.Warnings, fmt.Sprintf("persistence: %v", err))
		}
	}

	p.index(accepted)
	return result, nil
}

// admit validates items and filters cross-batch repeats. Malformed items
// and repeats are dropped from the batch with their counts recorded.
func (p *Pipeline) admit(items []*types.ContentItem, batchID string, report *types.BatchReport) []*types.ContentItem {
	accepted := make([]*types.ContentItem, 0, len(items))
	for _, item := range items {
		if err := item.Validate(); err != nil {
			report.SkippedItems++
			report.Warnings = append(report.Warnings, fmt.Sprintf("malformed item: %v", err))
			log.Printf("Warning: skipping malformed item: %v", err)
			continue
		}

		if p.seen != nil && p.fingerprint != nil {
			fp, err := p.fingerprint(item)
			if err == nil {
				if exists, err := p.seen.Exists(fp); err == nil && exists {
					report.ExactDuplicates++
					continue
				}
				if err := p.seen.Add(fp); err != nil {
					log.Printf("Warning: recording fingerprint for %s: %v", item.ID, err)
				}
			}
		}

		item.BatchID = batchID
		accepted = append(accepted, item)
	}
	return accepted
}

// enrich obtains embeddings and scoring signals. Embedding failures leave
// items unembedded (they stay unique downstream); generation failures leave
// signals nil so scoring falls back to defaults. Both degrade, neither
// aborts.
func (p *Pipeline) enrich(ctx context.Context, items []*types.ContentItem, report *types.BatchReport) {
	if len(items) == 0 {
		return
	}

	if p.embedder != nil {
		texts := make([]string, len(items))
		for i, item := range items {
			texts[i] = item.EmbeddingText()
		}

		embedCtx, cancel := context.WithTimeout(ctx, p.cfg.EnrichmentTimeout)
		vectors, err := p.embedder.EmbedTexts(embedCtx, texts)
		cancel()
		if err != nil {
			log.Printf("Warning: embedding batch failed, items stay unclustered: %v", err)
			report.Warnings = append(report.Warnings, fmt.Sprintf("embeddings: %v", err))
		} else {
			for i, item := range items {
				item.Embedding = vectors[i]
			}
		}
	}

	if p.generator == nil {
		return
	}
	for i, item := range items {
		if i > 0 {
			pause(ctx, p.cfg.ProviderCallDelay)
		}

		genCtx, cancel := context.WithTimeout(ctx, p.cfg.EnrichmentTimeout)
		signals, err := p.generator.ExtractSignals(genCtx, item.Title, item.Body, p.cfg.Themes)
		cancel()
		if err != nil {
			log.Printf("Warning: signal extraction failed for %s: %v", item.ID, err)
			report.Warnings = append(report.Warnings, fmt.Sprintf("signals for %s: %v", item.ID, err))
			continue
		}
		item.Signals = signals
	}
}

// cluster builds the similarity structures and finalized clusters, then
// attaches consolidated summaries.
func (p *Pipeline) cluster(ctx context.Context, items []*types.ContentItem) ([]*types.ContentCluster, []string) {
	store := similarity.NewVectorStore(0)
	for _, item := range items {
		if len(item.Embedding) == 0 {
			continue
		}
		if err := store.Put(item.ID, item.Embedding); err != nil {
			log.Printf("Warning: indexing embedding for %s: %v", item.ID, err)
		}
	}

	matrix := similarity.BuildMatrix(store)
	built := clustering.NewBuilder(p.cfg.Clustering).Build(items, matrix)

	warnings := make([]string, 0)
	if p.generator != nil {
		byID := make(map[string]*types.ContentItem, len(items))
		for _, item := range items {
			byID[item.ID] = item
		}

		summarizer := clustering.NewSummarizer(p.generator)
		for _, cluster := range built.Clusters {
			members := make([]*types.ContentItem, 0, len(cluster.MemberIDs))
			for _, id := range cluster.MemberIDs {
				if item := byID[id]; item != nil {
					members = append(members, item)
				}
			}

			sumCtx, cancel := context.WithTimeout(ctx, p.cfg.EnrichmentTimeout)
			err := summarizer.Summarize(sumCtx, cluster, members)
			cancel()
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("summary for cluster %s: %v", cluster.ID, err))
			}
		}
	}

	return built.Clusters, warnings
}

// index adds scored items to the retrieval corpus, replacing earlier
// versions of the same id.
func (p *Pipeline) index(items []*types.ContentItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, item := range items {
		p.corpus[item.ID] = item
	}
}

// ScoredItems returns a snapshot of the retrieval corpus ordered by id.
// Satisfies retrieval.ItemSource.
func (p *Pipeline) ScoredItems() []*types.ContentItem {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*types.ContentItem, 0, len(p.corpus))
	for _, item := range p.corpus {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// pause sleeps for the given duration unless the context finishes first.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func applyPipelineDefaults(cfg Config) Config {
	if cfg.ProviderCallDelay == 0 {
		cfg.ProviderCallDelay = config.ProviderCallDelay
	}
	if cfg.EnrichmentTimeout == 0 {
		cfg.EnrichmentTimeout = config.EnrichmentTimeout
	}
	return cfg
}
