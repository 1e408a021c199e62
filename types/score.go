package types

import "time"

// Decision is the ternary relevance outcome for an item or cluster representative.
type Decision string

const (
	DecisionInclude      Decision = "include"
	DecisionExclude      Decision = "exclude"
	DecisionManualReview Decision = "manual_review"
)

// RelevanceScore holds the four independent sub-scores and the composite
// derived from them. The composite is always recomputed from the sub-scores
// with the active weight set, never assigned directly.
type RelevanceScore struct {
	Topical   float64   `json:"topical"`
	Strategic float64   `json:"strategic"`
	Quality   float64   `json:"quality"`
	Temporal  float64   `json:"temporal"`
	Composite float64   `json:"composite"`
	ScoredAt  time.Time `json:"scored_at"`
}

// AlignmentAssessment rates how well an item matches one tracked theme.
type AlignmentAssessment struct {
	Theme     string  `json:"theme"`
	Alignment float64 `json:"alignment"` // [0,1]
}

// TopicClassification is a strategic category assignment with modifiers.
type TopicClassification struct {
	Category             string  `json:"category"`
	Confidence           float64 `json:"confidence"`            // [0,1]
	Actionability        float64 `json:"actionability"`         // [0,1]
	Risk                 float64 `json:"risk"`                  // [0,1]
	StakeholderRelevance float64 `json:"stakeholder_relevance"` // [0,1]
}

// QualityMetrics are the five content-quality sub-metrics, each in [0,1].
type QualityMetrics struct {
	FactualDensity    float64 `json:"factual_density"`
	SourceAuthority   float64 `json:"source_authority"`
	Clarity           float64 `json:"clarity"`
	Completeness      float64 `json:"completeness"`
	VerificationLevel float64 `json:"verification_level"`
}

// ScoringSignals bundles the precomputed inputs the scoring engine consumes.
// Any missing piece degrades that sub-score to its documented default.
type ScoringSignals struct {
	Alignments      []AlignmentAssessment `json:"alignments,omitempty"`
	Classifications []TopicClassification `json:"classifications,omitempty"`
	Quality         *QualityMetrics       `json:"quality,omitempty"`
	TrendTermCount  int                   `json:"trend_term_count,omitempty"`
}
