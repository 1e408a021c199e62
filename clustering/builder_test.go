package clustering

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"

	"signalsift/similarity"
	"signalsift/types"
)

// unitVector returns a 2D unit vector at the given angle, so the cosine
// similarity of two vectors is exactly the cosine of the angle between them.
func unitVector(angleDeg float64) []float32 {
	rad := angleDeg * math.Pi / 180
	return []float32{float32(math.Cos(rad)), float32(math.Sin(rad))}
}

func buildMatrix(t *testing.T, vectors map[string][]float32, order []string) *similarity.Matrix {
	t.Helper()
	store := similarity.NewVectorStore(0)
	for _, id := range order {
		if err := store.Put(id, vectors[id]); err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}
	return similarity.BuildMatrix(store)
}

func testItem(id, url string, conf float64) *types.ContentItem {
	return &types.ContentItem{
		ID:                   id,
		Title:                "title " + id,
		Body:                 "body " + id,
		URL:                  url,
		ExtractionConfidence: conf,
	}
}

func TestNearDuplicatePairFormsExactDuplicateCluster(t *testing.T) {
	// cos(14°) ≈ 0.970, above both the clustering edge and the
	// exact-duplicate tier threshold.
	vectors := map[string][]float32{
		"a": unitVector(0),
		"b": unitVector(14),
	}
	items := []*types.ContentItem{
		testItem("a", "https://one.example/a", 0.9),
		testItem("b", "https://two.example/b", 0.8),
	}
	matrix := buildMatrix(t, vectors, []string{"a", "b"})

	result := NewBuilder(BuilderConfig{}).Build(items, matrix)

	if len(result.Clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(result.Clusters))
	}
	cluster := result.Clusters[0]
	if cluster.Size() != 2 {
		t.Fatalf("expected cluster of size 2, got %d", cluster.Size())
	}
	if cluster.Tier != types.TierExactDuplicate {
		t.Errorf("expected tier %s, got %s", types.TierExactDuplicate, cluster.Tier)
	}
	if len(result.UniqueIDs) != 0 {
		t.Errorf("expected no unique items, got %v", result.UniqueIDs)
	}

	// Representative is the member with the higher extraction confidence.
	if cluster.RepresentativeID != "a" {
		t.Errorf("expected representative a, got %s", cluster.RepresentativeID)
	}
	if !items[0].IsRepresentative || items[0].AbsorbedCount != 1 {
		t.Errorf("representative flags wrong: %+v", items[0])
	}
	if items[1].ParentID != "a" || items[1].IsRepresentative {
		t.Errorf("absorbed member flags wrong: %+v", items[1])
	}
}

func TestChainConnectivityClustersAllThree(t *testing.T) {
	// a-b and b-c sit above the edge threshold (cos 26° ≈ 0.899) while a-c
	// does not (cos 52° ≈ 0.616). Graph connectivity, not pairwise-uniform
	// similarity, determines membership.
	vectors := map[string][]float32{
		"a": unitVector(0),
		"b": unitVector(26),
		"c": unitVector(52),
		"d": unitVector(90),
	}
	items := []*types.ContentItem{
		testItem("a", "https://s.example/a", 0.9),
		testItem("b", "https://s.example/b", 0.9),
		testItem("c", "https://s.example/c", 0.9),
		testItem("d", "https://s.example/d", 0.9),
	}
	matrix := buildMatrix(t, vectors, []string{"a", "b", "c", "d"})

	result := NewBuilder(BuilderConfig{}).Build(items, matrix)

	if len(result.Clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(result.Clusters))
	}
	if got := result.Clusters[0].MemberIDs; !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("expected members [a b c], got %v", got)
	}
	if !reflect.DeepEqual(result.UniqueIDs, []string{"d"}) {
		t.Errorf("expected d unique, got %v", result.UniqueIDs)
	}
}

func TestOversizedClusterSplitsWithDiscountedConfidence(t *testing.T) {
	vectors := make(map[string][]float32)
	order := make([]string, 0, 15)
	items := make([]*types.ContentItem, 0, 15)
	for i := 0; i < 15; i++ {
		id := fmt.Sprintf("item-%02d", i)
		// Tiny angular spread keeps every pair above the edge threshold.
		vectors[id] = unitVector(float64(i) * 0.2)
		order = append(order, id)
		items = append(items, testItem(id, fmt.Sprintf("https://s.example/%02d", i), 0.9))
	}
	matrix := buildMatrix(t, vectors, order)

	// Merge threshold pushed above any real similarity so the split result
	// is observable on its own.
	builder := NewBuilder(BuilderConfig{MaxClusterSize: 10, MergeThreshold: 1.1})
	result := builder.Build(items, matrix)

	if len(result.Clusters) != 2 {
		t.Fatalf("expected exactly 2 sub-clusters, got %d", len(result.Clusters))
	}
	sizes := []int{result.Clusters[0].Size(), result.Clusters[1].Size()}
	if sizes[0] != 10 || sizes[1] != 5 {
		t.Fatalf("expected sizes 10 and 5, got %v", sizes)
	}

	parentMean := meanPairwise(t, order, matrix)
	for _, cluster := range result.Clusters {
		want := parentMean * 0.9
		if math.Abs(cluster.Confidence-want) > 1e-9 {
			t.Errorf("cluster %s: expected confidence %.6f (parent × 0.9), got %.6f", cluster.ID, want, cluster.Confidence)
		}
		if cluster.Size() > 10 {
			t.Errorf("cluster %s exceeds max size after split: %d", cluster.ID, cluster.Size())
		}
	}
}

func TestSplitChunksMergeBackWhenThresholdMet(t *testing.T) {
	vectors := make(map[string][]float32)
	order := make([]string, 0, 12)
	items := make([]*types.ContentItem, 0, 12)
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("item-%02d", i)
		vectors[id] = unitVector(float64(i) * 0.1)
		order = append(order, id)
		items = append(items, testItem(id, fmt.Sprintf("https://s.example/%02d", i), 0.9))
	}
	matrix := buildMatrix(t, vectors, order)

	// Default merge threshold (0.9): the two near-identical chunks re-merge
	// in the single greedy pass, with count-weighted confidence.
	result := NewBuilder(BuilderConfig{MaxClusterSize: 10}).Build(items, matrix)

	if len(result.Clusters) != 1 {
		t.Fatalf("expected chunks to merge into 1 cluster, got %d", len(result.Clusters))
	}
	merged := result.Clusters[0]
	if merged.Size() != 12 {
		t.Fatalf("expected 12 members after merge, got %d", merged.Size())
	}

	parentMean := meanPairwise(t, order, matrix)
	want := parentMean * 0.9 // both inputs carried the same discounted confidence
	if math.Abs(merged.Confidence-want) > 1e-9 {
		t.Errorf("expected count-weighted confidence %.6f, got %.6f", want, merged.Confidence)
	}
}

func TestClusteringIsDeterministic(t *testing.T) {
	vectors := map[string][]float32{
		"e": unitVector(1),
		"a": unitVector(0),
		"c": unitVector(60),
		"b": unitVector(2),
		"d": unitVector(61),
	}
	order := []string{"e", "a", "c", "b", "d"}

	run := func() BuildResult {
		items := []*types.ContentItem{
			testItem("e", "https://s.example/e", 0.5),
			testItem("a", "https://s.example/a", 0.9),
			testItem("c", "https://s.example/c", 0.7),
			testItem("b", "https://s.example/b", 0.6),
			testItem("d", "https://s.example/d", 0.8),
		}
		return NewBuilder(BuilderConfig{}).Build(items, buildMatrix(t, vectors, order))
	}

	first := run()
	second := run()

	if len(first.Clusters) != len(second.Clusters) {
		t.Fatalf("cluster counts differ between runs: %d vs %d", len(first.Clusters), len(second.Clusters))
	}
	for i := range first.Clusters {
		if first.Clusters[i].ID != second.Clusters[i].ID {
			t.Errorf("cluster %d id differs: %s vs %s", i, first.Clusters[i].ID, second.Clusters[i].ID)
		}
		if !reflect.DeepEqual(first.Clusters[i].MemberIDs, second.Clusters[i].MemberIDs) {
			t.Errorf("cluster %d membership differs", i)
		}
	}
	if !reflect.DeepEqual(first.UniqueIDs, second.UniqueIDs) {
		t.Errorf("unique ids differ: %v vs %v", first.UniqueIDs, second.UniqueIDs)
	}
}

func TestItemsWithoutEmbeddingsStayUnique(t *testing.T) {
	vectors := map[string][]float32{
		"a": unitVector(0),
		"b": unitVector(5),
	}
	items := []*types.ContentItem{
		testItem("a", "https://s.example/a", 0.9),
		testItem("b", "https://s.example/b", 0.9),
		testItem("no-vector", "https://s.example/x", 0.9),
	}
	matrix := buildMatrix(t, vectors, []string{"a", "b"})

	result := NewBuilder(BuilderConfig{}).Build(items, matrix)

	if len(result.Clusters) != 1 || result.Clusters[0].Size() != 2 {
		t.Fatalf("expected one cluster of 2, got %+v", result.Clusters)
	}
	if !reflect.DeepEqual(result.UniqueIDs, []string{"no-vector"}) {
		t.Errorf("expected no-vector unique, got %v", result.UniqueIDs)
	}
	if items[2].ClusterID != "" {
		t.Errorf("unenriched item must not be cluster-assigned: %+v", items[2])
	}
}

func TestNoEmittedClusterBelowMinimumSize(t *testing.T) {
	// Eleven items: chunking at max 10 would leave a 1-item remainder,
	// which must return to the unique pool.
	vectors := make(map[string][]float32)
	order := make([]string, 0, 11)
	items := make([]*types.ContentItem, 0, 11)
	for i := 0; i < 11; i++ {
		id := fmt.Sprintf("item-%02d", i)
		vectors[id] = unitVector(float64(i) * 0.1)
		order = append(order, id)
		items = append(items, testItem(id, fmt.Sprintf("https://s.example/%02d", i), 0.9))
	}
	matrix := buildMatrix(t, vectors, order)

	result := NewBuilder(BuilderConfig{MaxClusterSize: 10, MergeThreshold: 1.1}).Build(items, matrix)

	for _, cluster := range result.Clusters {
		if cluster.Size() < 2 {
			t.Errorf("emitted cluster %s has %d members", cluster.ID, cluster.Size())
		}
	}
	if len(result.UniqueIDs) != 1 {
		t.Errorf("expected 1 spilled unique item, got %v", result.UniqueIDs)
	}
}

func meanPairwise(t *testing.T, ids []string, matrix *similarity.Matrix) float64 {
	t.Helper()
	sum := 0.0
	count := 0
	for i := 0; i < len(ids)-1; i++ {
		for j := i + 1; j < len(ids); j++ {
			score, ok := matrix.Get(ids[i], ids[j])
			if !ok {
				t.Fatalf("missing pair %s-%s", ids[i], ids[j])
			}
			sum += score
			count++
		}
	}
	return sum / float64(count)
}

type fakeGenerator struct {
	summary string
	err     error
	calls   int
}

func (f *fakeGenerator) Summarize(ctx context.Context, texts []string) (string, error) {
	f.calls++
	return f.summary, f.err
}

func TestSummarizerAttachesGeneratedSummary(t *testing.T) {
	gen := &fakeGenerator{summary: "consolidated coverage"}
	cluster := &types.ContentCluster{ID: "cl-1", RepresentativeID: "a", MemberIDs: []string{"a", "b"}}
	members := []*types.ContentItem{
		{ID: "a", Title: "Title A", Summary: "summary a"},
		{ID: "b", Title: "Title B", Summary: "summary b"},
	}

	if err := NewSummarizer(gen).Summarize(context.Background(), cluster, members); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cluster.Summary != "consolidated coverage" {
		t.Errorf("expected generated summary, got %q", cluster.Summary)
	}
	if gen.calls != 1 {
		t.Errorf("expected 1 generator call, got %d", gen.calls)
	}
}

func TestSummarizerFallsBackToRepresentativeOnFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("provider down")}
	cluster := &types.ContentCluster{ID: "cl-1", RepresentativeID: "a", MemberIDs: []string{"a", "b"}}
	members := []*types.ContentItem{
		{ID: "a", Title: "Title A", Summary: "representative summary"},
		{ID: "b", Title: "Title B"},
	}

	err := NewSummarizer(gen).Summarize(context.Background(), cluster, members)
	if err == nil {
		t.Fatal("expected error to surface for warning collection")
	}
	if cluster.Summary != "representative summary" {
		t.Errorf("expected fallback to representative summary, got %q", cluster.Summary)
	}
}
