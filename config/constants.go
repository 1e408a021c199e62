package config

import "time"

// Similarity Tier Constants
const (
	// ExactDuplicateThreshold classifies clusters whose members are near-verbatim copies
	ExactDuplicateThreshold = 0.95

	// SameStoryThreshold is the minimum pairwise similarity for a clustering edge
	SameStoryThreshold = 0.85

	// RelatedContentThreshold classifies loosely related coverage
	RelatedContentThreshold = 0.70

	// MergeThreshold is the minimum inter-cluster similarity for a merge
	MergeThreshold = 0.90
)

// Cluster Shape Constants
const (
	// MinClusterSize is the smallest member count a cluster may have
	MinClusterSize = 2

	// MaxClusterSize is the largest member count before the split pass
	MaxClusterSize = 10

	// SplitConfidenceDiscount is applied to sub-cluster confidence after a split
	SplitConfidenceDiscount = 0.9
)

// Scoring Weight Constants (defaults; overridable per request)
const (
	// TopicalWeight scales the topical-alignment sub-score
	TopicalWeight = 0.4

	// StrategicWeight scales the strategic-priority sub-score
	StrategicWeight = 0.3

	// QualityWeight scales the content-quality sub-score
	QualityWeight = 0.2

	// TemporalWeight scales the temporal-relevance sub-score
	TemporalWeight = 0.1

	// WeightTolerance is the floating-point slack allowed when weights are summed
	WeightTolerance = 1e-6
)

// Decision Threshold Constants
const (
	// IncludeThreshold is the minimum composite score for an Include decision
	IncludeThreshold = 0.65

	// ReviewThreshold is the minimum composite score for a ManualReview decision
	ReviewThreshold = 0.55
)

// Scoring Default Constants
const (
	// NeutralQualityScore is used when no quality metrics are supplied
	NeutralQualityScore = 0.5

	// NeutralTemporalScore is used when no publication timestamp is available
	NeutralTemporalScore = 0.5

	// TrendTermBonus is the momentum contribution of each trend-indicating term
	TrendTermBonus = 0.1

	// TrendMomentumCap is the maximum trend momentum bonus
	TrendMomentumCap = 0.3
)

// Retrieval Constants
const (
	// DefaultResultLimit caps retrieval results when no limit is requested
	DefaultResultLimit = 20

	// HighQualityMinScore is the quality floor applied by the high-quality-only filter
	HighQualityMinScore = 0.7
)

// Enrichment Constants
const (
	// ProviderCallDelay is the minimum pause between external provider calls
	ProviderCallDelay = 250 * time.Millisecond

	// EnrichmentTimeout bounds a single embedding or generation request
	EnrichmentTimeout = 30 * time.Second
)
