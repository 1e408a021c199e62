package clustering

import (
	"log"
	"math"
	"sort"
	"time"

	"signalsift/config"
	"signalsift/similarity"
	"signalsift/types"
)

// BuilderConfig holds clustering thresholds. Zero values fall back to the
// documented defaults.
type BuilderConfig struct {
	SameStoryThreshold float64 // Default: 0.85
	MergeThreshold     float64 // Default: 0.90
	MaxClusterSize     int     // Default: 10
	MinClusterSize     int     // Default: 2
	SplitDiscount      float64 // Default: 0.9
}

// Builder partitions a batch of content items into clusters of mutually
// similar items, using a similarity matrix as the sole similarity oracle.
type Builder struct {
	cfg BuilderConfig
}

// BuildResult contains the finalized clusters and the ids of items that
// remain unique (unclustered).
type BuildResult struct {
	Clusters  []*types.ContentCluster
	UniqueIDs []string
}

// NewBuilder creates a cluster builder with defaults applied.
func NewBuilder(cfg BuilderConfig) *Builder {
	return &Builder{cfg: applyBuilderDefaults(cfg)}
}

// Build discovers clusters by connected components over the similarity
// graph, splits oversized clusters, then runs a single greedy merge pass.
// Items absent from the matrix (failed enrichment) stay unique.
//
// The merge pass is deliberately order-dependent: clusters are scanned once
// in a fixed order and each cluster participates in at most one merge.
// Downstream consumers depend on this tie-break behavior.
func (b *Builder) Build(items []*types.ContentItem, matrix *similarity.Matrix) BuildResult {
	byID := make(map[string]*types.ContentItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	known := make(map[string]struct{})
	for _, id := range matrix.IDs() {
		if _, ok := byID[id]; ok {
			known[id] = struct{}{}
		}
	}

	unique := make([]string, 0)
	for _, item := range items {
		if _, ok := known[item.ID]; !ok {
			unique = append(unique, item.ID)
		}
	}

	components := b.connectedComponents(known, matrix)

	clusters := make([]*memberSet, 0, len(components))
	for _, component := range components {
		if len(component) < b.cfg.MinClusterSize {
			unique = append(unique, component...)
			continue
		}
		clusters = append(clusters, newMemberSet(component))
	}

	clusters, spilled := b.splitOversized(clusters, matrix, byID)
	unique = append(unique, spilled...)

	clusters = b.mergePass(clusters, matrix)

	result := BuildResult{UniqueIDs: unique}
	for _, set := range clusters {
		result.Clusters = append(result.Clusters, b.finalize(set, matrix, byID))
	}

	sort.Slice(result.Clusters, func(i, j int) bool {
		a, c := result.Clusters[i], result.Clusters[j]
		if a.Size() != c.Size() {
			return a.Size() > c.Size()
		}
		if a.Confidence != c.Confidence {
			return a.Confidence > c.Confidence
		}
		return a.ID < c.ID
	})
	sort.Strings(result.UniqueIDs)

	return result
}

// connectedComponents finds maximal groups of items linked by similarity
// edges at or above the same-story threshold, via iterative DFS. Start nodes
// and neighbor expansion are ordered so output is deterministic.
func (b *Builder) connectedComponents(known map[string]struct{}, matrix *similarity.Matrix) [][]string {
	ids := make([]string, 0, len(known))
	for id := range known {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	visited := make(map[string]bool, len(ids))
	components := make([][]string, 0)

	for _, start := range ids {
		if visited[start] {
			continue
		}
		component := make([]string, 0)
		stack := []string{start}
		visited[start] = true

		for len(stack) > 0 {
			current := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, current)

			neighbors := matrix.Neighbors(current, b.cfg.SameStoryThreshold)
			for _, next := range neighbors {
				if _, ok := known[next.ID]; !ok {
					continue
				}
				if visited[next.ID] {
					continue
				}
				visited[next.ID] = true
				stack = append(stack, next.ID)
			}
		}

		sort.Strings(component)
		components = append(components, component)
	}

	return components
}

// splitOversized chops clusters larger than MaxClusterSize into ordered
// chunks. Members are sorted by source URL (then id) as a stable tiebreak,
// so the split boundary is reproducible. Chunks below the minimum size are
// returned to the unique pool instead of forming degenerate clusters.
func (b *Builder) splitOversized(clusters []*memberSet, matrix *similarity.Matrix, byID map[string]*types.ContentItem) ([]*memberSet, []string) {
	out := make([]*memberSet, 0, len(clusters))
	spilled := make([]string, 0)

	for _, set := range clusters {
		if len(set.ids) <= b.cfg.MaxClusterSize {
			out = append(out, set)
			continue
		}

		parentMean, _ := pairStats(set.ids, matrix)
		log.Printf("Splitting cluster of %d members (max %d)", len(set.ids), b.cfg.MaxClusterSize)

		ordered := append([]string(nil), set.ids...)
		sort.Slice(ordered, func(i, j int) bool {
			a, c := byID[ordered[i]], byID[ordered[j]]
			if a != nil && c != nil && a.URL != c.URL {
				return a.URL < c.URL
			}
			return ordered[i] < ordered[j]
		})

		for start := 0; start < len(ordered); start += b.cfg.MaxClusterSize {
			end := start + b.cfg.MaxClusterSize
			if end > len(ordered) {
				end = len(ordered)
			}
			chunk := ordered[start:end]
			if len(chunk) < b.cfg.MinClusterSize {
				spilled = append(spilled, chunk...)
				continue
			}
			sub := newMemberSet(chunk)
			// The split boundary is arbitrary, so sub-clusters inherit a
			// discounted confidence rather than a recomputed one.
			sub.confidence = parentMean * b.cfg.SplitDiscount
			sub.fromSplit = true
			out = append(out, sub)
		}
	}

	return out, spilled
}

// mergePass runs the single greedy merge scan. The first pair whose mean
// inter-cluster similarity meets the threshold is merged; both indexes are
// then marked used for the remainder of the pass.
func (b *Builder) mergePass(clusters []*memberSet, matrix *similarity.Matrix) []*memberSet {
	used := make([]bool, len(clusters))
	out := make([]*memberSet, 0, len(clusters))

	for i := 0; i < len(clusters); i++ {
		if used[i] {
			continue
		}
		merged := false
		for j := i + 1; j < len(clusters); j++ {
			if used[j] {
				continue
			}
			if interClusterSimilarity(clusters[i], clusters[j], matrix) < b.cfg.MergeThreshold {
				continue
			}

			combined := newMemberSet(append(append([]string(nil), clusters[i].ids...), clusters[j].ids...))
			combined.confidence = weightedConfidence(clusters[i], clusters[j], matrix)
			combined.merged = true
			out = append(out, combined)

			used[i] = true
			used[j] = true
			merged = true
			break
		}
		if !merged {
			out = append(out, clusters[i])
		}
	}

	return out
}

// finalize turns a member set into a ContentCluster with statistics,
// aggregates, tier classification, and item mutations (cluster id, parent
// id, representative flag).
func (b *Builder) finalize(set *memberSet, matrix *similarity.Matrix, byID map[string]*types.ContentItem) *types.ContentCluster {
	mean, std := pairStats(set.ids, matrix)

	confidence := mean
	if set.fromSplit || set.merged {
		confidence = set.confidence
	}
	cohesion := confidence - std
	if cohesion < 0 {
		cohesion = 0
	}

	cluster := &types.ContentCluster{
		ID:         types.ClusterIDFor(set.ids),
		MemberIDs:  append([]string(nil), set.ids...),
		Tier:       classifyTier(mean),
		Confidence: confidence,
		Cohesion:   cohesion,
		CreatedAt:  time.Now().UTC(),
	}

	domains := make(map[string]struct{})
	confSum := 0.0
	repID := ""
	repConf := -1.0
	for _, id := range set.ids {
		item := byID[id]
		if item == nil {
			continue
		}
		cluster.TotalWordCount += item.WordCount
		confSum += item.ExtractionConfidence
		if d := item.SourceDomain(); d != "" {
			domains[d] = struct{}{}
		}
		if item.ExtractionConfidence > repConf || (item.ExtractionConfidence == repConf && id < repID) {
			repConf = item.ExtractionConfidence
			repID = id
		}
		if cluster.BatchID == "" {
			cluster.BatchID = item.BatchID
		}
	}
	if n := len(set.ids); n > 0 {
		cluster.AvgExtractionConf = confSum / float64(n)
	}
	cluster.DistinctDomains = len(domains)
	cluster.RepresentativeID = repID

	for _, id := range set.ids {
		item := byID[id]
		if item == nil {
			continue
		}
		item.ClusterID = cluster.ID
		if id == repID {
			item.IsRepresentative = true
			item.ParentID = ""
			item.AbsorbedCount = len(set.ids) - 1
		} else {
			item.IsRepresentative = false
			item.ParentID = repID
			item.AbsorbedCount = 0
		}
	}

	return cluster
}

// classifyTier derives the similarity tier from average intra-cluster
// similarity.
func classifyTier(avgSimilarity float64) types.SimilarityTier {
	switch {
	case avgSimilarity >= config.ExactDuplicateThreshold:
		return types.TierExactDuplicate
	case avgSimilarity >= config.SameStoryThreshold:
		return types.TierSameStory
	case avgSimilarity >= config.RelatedContentThreshold:
		return types.TierRelatedContent
	default:
		return types.TierUniqueContent
	}
}

// pairStats returns the mean and standard deviation of all pairwise
// similarities among the members. Lookups for unknown ids are skipped, and
// a member set with zero valid pairs degenerates to (0, 0) rather than
// dividing by zero.
func pairStats(ids []string, matrix *similarity.Matrix) (mean, std float64) {
	scores := make([]float64, 0, len(ids)*(len(ids)-1)/2)
	for i := 0; i < len(ids)-1; i++ {
		for j := i + 1; j < len(ids); j++ {
			if score, ok := matrix.Get(ids[i], ids[j]); ok {
				scores = append(scores, score)
			}
		}
	}
	if len(scores) == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	mean = sum / float64(len(scores))

	variance := 0.0
	for _, s := range scores {
		variance += (s - mean) * (s - mean)
	}
	std = math.Sqrt(variance / float64(len(scores)))
	return mean, std
}

// interClusterSimilarity is the mean pairwise similarity between every
// member of a and every member of b.
func interClusterSimilarity(a, b *memberSet, matrix *similarity.Matrix) float64 {
	sum := 0.0
	count := 0
	for _, ai := range a.ids {
		for _, bi := range b.ids {
			if score, ok := matrix.Get(ai, bi); ok {
				sum += score
				count++
			}
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// weightedConfidence combines two cluster confidences weighted by member
// count.
func weightedConfidence(a, b *memberSet, matrix *similarity.Matrix) float64 {
	confA := a.confidence
	if !a.fromSplit && !a.merged {
		confA, _ = pairStats(a.ids, matrix)
	}
	confB := b.confidence
	if !b.fromSplit && !b.merged {
		confB, _ = pairStats(b.ids, matrix)
	}

	total := float64(len(a.ids) + len(b.ids))
	return (confA*float64(len(a.ids)) + confB*float64(len(b.ids))) / total
}

// memberSet is the builder's working representation of a cluster before
// finalization.
type memberSet struct {
	ids        []string
	confidence float64
	fromSplit  bool
	merged     bool
}

func newMemberSet(ids []string) *memberSet {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return &memberSet{ids: sorted}
}

func applyBuilderDefaults(cfg BuilderConfig) BuilderConfig {
	if cfg.SameStoryThreshold == 0 {
		cfg.SameStoryThreshold = config.SameStoryThreshold
	}
	if cfg.MergeThreshold == 0 {
		cfg.MergeThreshold = config.MergeThreshold
	}
	if cfg.MaxClusterSize == 0 {
		cfg.MaxClusterSize = config.MaxClusterSize
	}
	if cfg.MinClusterSize == 0 {
		cfg.MinClusterSize = config.MinClusterSize
	}
	if cfg.SplitDiscount == 0 {
		cfg.SplitDiscount = config.SplitConfidenceDiscount
	}
	return cfg
}
