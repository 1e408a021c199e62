package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"signalsift/config"
	"signalsift/types"
)

// ErrInvalidWeights is a structural configuration error: it invalidates
// every composite score, so it aborts the whole scoring batch.
var ErrInvalidWeights = errors.New("composite weights must sum to 1.0")

// topAlignmentWeights combine the top alignment assessments by rank. When
// fewer than three assessments exist the weights renormalize over the ones
// present.
var topAlignmentWeights = []float64{0.5, 0.3, 0.2}

// Weights are the composite-score weights for the four sub-scores.
type Weights struct {
	Topical   float64 `json:"topical"`
	Strategic float64 `json:"strategic"`
	Quality   float64 `json:"quality"`
	Temporal  float64 `json:"temporal"`
}

// DefaultWeights returns the documented default weight set.
func DefaultWeights() Weights {
	return Weights{
		Topical:   config.TopicalWeight,
		Strategic: config.StrategicWeight,
		Quality:   config.QualityWeight,
		Temporal:  config.TemporalWeight,
	}
}

// Validate checks that the weights sum to 1.0 within floating-point
// tolerance.
func (w Weights) Validate() error {
	sum := w.Topical + w.Strategic + w.Quality + w.Temporal
	if math.Abs(sum-1.0) > config.WeightTolerance {
		return fmt.Errorf("%w: got %.9f", ErrInvalidWeights, sum)
	}
	return nil
}

// EngineConfig holds scoring configuration. Zero-valued thresholds and
// weights fall back to the documented defaults.
type EngineConfig struct {
	Weights          Weights
	IncludeThreshold float64 // Default: 0.65
	ReviewThreshold  float64 // Default: 0.55

	// RequireTopicalEvidence forces Exclude when an item carries zero
	// alignment assessments, regardless of composite score.
	RequireTopicalEvidence bool

	// MinActionability downgrades Include to ManualReview when the top
	// classification's actionability falls below it. Never upgrades.
	MinActionability float64

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// Engine computes relevance scores and decisions for items and cluster
// representatives.
type Engine struct {
	cfg EngineConfig
}

// BatchOutcome reports what a scoring pass did.
type BatchOutcome struct {
	Included         int
	Excluded         int
	Review           int
	DegradedDefaults int
}

// NewEngine validates the configuration and creates an engine. An invalid
// weight set is a hard error; per-item data problems never are.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	cfg = applyEngineDefaults(cfg)
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	if cfg.IncludeThreshold < cfg.ReviewThreshold {
		return nil, fmt.Errorf("include threshold %.2f below review threshold %.2f", cfg.IncludeThreshold, cfg.ReviewThreshold)
	}
	return &Engine{cfg: cfg}, nil
}

// ScoreBatch scores every item in place. A failure computing any one
// sub-score degrades it to its documented default rather than failing the
// item; nothing here aborts the batch.
func (e *Engine) ScoreBatch(items []*types.ContentItem) BatchOutcome {
	outcome := BatchOutcome{}
	for _, item := range items {
		degraded := e.ScoreItem(item)
		outcome.DegradedDefaults += degraded
		switch item.Decision {
		case types.DecisionInclude:
			outcome.Included++
		case types.DecisionManualReview:
			outcome.Review++
		default:
			outcome.Excluded++
		}
	}
	return outcome
}

// ScoreItem computes the four sub-scores and composite for one item,
// attaches the RelevanceScore and Decision, and returns how many sub-scores
// fell back to a documented default.
func (e *Engine) ScoreItem(item *types.ContentItem) int {
	signals := item.Signals
	degraded := 0

	topical := topicalScore(signals)
	strategic := strategicScore(signals)

	quality, qualityDefaulted := qualityScore(signals)
	if qualityDefaulted {
		degraded++
	}
	temporal, temporalDefaulted := e.temporalScore(item, signals)
	if temporalDefaulted {
		degraded++
	}

	w := e.cfg.Weights
	composite := w.Topical*topical + w.Strategic*strategic + w.Quality*quality + w.Temporal*temporal
	composite = clamp01(composite)

	item.Score = &types.RelevanceScore{
		Topical:   topical,
		Strategic: strategic,
		Quality:   quality,
		Temporal:  temporal,
		Composite: composite,
		ScoredAt:  e.cfg.Now().UTC(),
	}
	item.Decision = e.decide(composite, signals)
	return degraded
}

// decide maps the composite score to a decision and applies the hard
// overrides. Overrides only ever move a decision downward.
func (e *Engine) decide(composite float64, signals *types.ScoringSignals) types.Decision {
	decision := types.DecisionExclude
	switch {
	case composite >= e.cfg.IncludeThreshold:
		decision = types.DecisionInclude
	case composite >= e.cfg.ReviewThreshold:
		decision = types.DecisionManualReview
	}

	if e.cfg.RequireTopicalEvidence && (signals == nil || len(signals.Alignments) == 0) {
		return types.DecisionExclude
	}

	if decision == types.DecisionInclude && e.cfg.MinActionability > 0 {
		if actionability(signals) < e.cfg.MinActionability {
			decision = types.DecisionManualReview
		}
	}

	return decision
}

// topicalScore combines the top three alignment assessments by value with
// weights 0.5/0.3/0.2, renormalized over however many exist. Zero
// assessments yield 0.0.
func topicalScore(signals *types.ScoringSignals) float64 {
	if signals == nil || len(signals.Alignments) == 0 {
		return 0.0
	}

	ranked := append([]types.AlignmentAssessment(nil), signals.Alignments...)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Alignment != ranked[j].Alignment {
			return ranked[i].Alignment > ranked[j].Alignment
		}
		return ranked[i].Theme < ranked[j].Theme
	})

	n := len(ranked)
	if n > len(topAlignmentWeights) {
		n = len(topAlignmentWeights)
	}

	weightSum := 0.0
	score := 0.0
	for i := 0; i < n; i++ {
		score += topAlignmentWeights[i] * clamp01(ranked[i].Alignment)
		weightSum += topAlignmentWeights[i]
	}
	return clamp01(score / weightSum)
}

// strategicScore takes the highest-confidence classification as the base
// and boosts it by the actionability, risk, and stakeholder modifiers.
func strategicScore(signals *types.ScoringSignals) float64 {
	top := topClassification(signals)
	if top == nil {
		return 0.0
	}

	base := clamp01(top.Confidence)
	multiplier := 1 +
		0.3*clamp01(top.Actionability) +
		0.2*clamp01(top.Risk) +
		0.2*clamp01(top.StakeholderRelevance)
	return clamp01(base * multiplier)
}

// qualityScore is a fixed weighted sum of the five quality sub-metrics.
// When no metrics are supplied it defaults to neutral rather than
// penalizing the item.
func qualityScore(signals *types.ScoringSignals) (float64, bool) {
	if signals == nil || signals.Quality == nil {
		return config.NeutralQualityScore, true
	}
	q := signals.Quality
	score := 0.25*clamp01(q.FactualDensity) +
		0.25*clamp01(q.SourceAuthority) +
		0.20*clamp01(q.Clarity) +
		0.20*clamp01(q.Completeness) +
		0.10*clamp01(q.VerificationLevel)
	return clamp01(score), false
}

// temporalScore blends a recency curve over item age with a trend momentum
// bonus, 80/20. Without a publication timestamp the score defaults to
// neutral.
func (e *Engine) temporalScore(item *types.ContentItem, signals *types.ScoringSignals) (float64, bool) {
	ageDays := item.AgeDays(e.cfg.Now())
	if ageDays < 0 {
		return config.NeutralTemporalScore, true
	}

	recency := recencyForAge(ageDays)

	momentum := 0.0
	if signals != nil {
		momentum = float64(signals.TrendTermCount) * config.TrendTermBonus
		if momentum > config.TrendMomentumCap {
			momentum = config.TrendMomentumCap
		}
	}

	return clamp01(0.8*recency + 0.2*momentum), false
}

// recencyForAge maps item age in days onto the stepped recency curve.
func recencyForAge(ageDays float64) float64 {
	switch {
	case ageDays <= 1:
		return 1.0
	case ageDays <= 7:
		return 0.9
	case ageDays <= 30:
		return 0.7
	case ageDays <= 90:
		return 0.5
	case ageDays <= 180:
		return 0.3
	default:
		return 0.1
	}
}

func topClassification(signals *types.ScoringSignals) *types.TopicClassification {
	if signals == nil || len(signals.Classifications) == 0 {
		return nil
	}
	best := &signals.Classifications[0]
	for i := 1; i < len(signals.Classifications); i++ {
		c := &signals.Classifications[i]
		if c.Confidence > best.Confidence {
			best = c
		}
	}
	return best
}

func actionability(signals *types.ScoringSignals) float64 {
	top := topClassification(signals)
	if top == nil {
		return 0.0
	}
	return clamp01(top.Actionability)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func applyEngineDefaults(cfg EngineConfig) EngineConfig {
	zero := Weights{}
	if cfg.Weights == zero {
		cfg.Weights = DefaultWeights()
	}
	if cfg.IncludeThreshold == 0 {
		cfg.IncludeThreshold = config.IncludeThreshold
	}
	if cfg.ReviewThreshold == 0 {
		cfg.ReviewThreshold = config.ReviewThreshold
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return cfg
}
