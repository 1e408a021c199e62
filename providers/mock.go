package providers

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"signalsift/types"
)

// MockEmbeddings is a deterministic offline embeddings provider. It hashes
// each token into a fixed-size bag-of-words vector and L2-normalizes it, so
// texts sharing vocabulary land close together and repeated runs produce
// identical vectors.
type MockEmbeddings struct {
	dims int
}

// NewMockEmbeddings creates a mock provider; dims <= 0 selects a small
// default dimensionality.
func NewMockEmbeddings(dims int) *MockEmbeddings {
	if dims <= 0 {
		dims = 64
	}
	return &MockEmbeddings{dims: dims}
}

func (m *MockEmbeddings) ModelName() string { return fmt.Sprintf("mock-bow-%d", m.dims) }

func (m *MockEmbeddings) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = m.embed(text)
	}
	return out, nil
}

func (m *MockEmbeddings) embed(text string) []float32 {
	vec := make([]float32, m.dims)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%uint32(m.dims)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

// MockGenerator is a deterministic offline text generator. Summaries are
// assembled from the member texts and signals are derived from simple
// lexical overlap, so pipeline runs are reproducible without network
// access.
type MockGenerator struct{}

func NewMockGenerator() *MockGenerator { return &MockGenerator{} }

func (g *MockGenerator) ModelName() string { return "mock-generator" }

func (g *MockGenerator) Summarize(_ context.Context, texts []string) (string, error) {
	if len(texts) == 0 {
		return "", nil
	}
	first := strings.TrimSpace(texts[0])
	if idx := strings.IndexByte(first, '\n'); idx > 0 {
		first = first[:idx]
	}
	if len(texts) == 1 {
		return first, nil
	}
	return fmt.Sprintf("%s (consolidated from %d sources)", first, len(texts)), nil
}

// ExtractSignals scores theme alignment by token overlap between the theme
// name and the content, and derives quality heuristics from text length.
func (g *MockGenerator) ExtractSignals(_ context.Context, title, body string, themes []string) (*types.ScoringSignals, error) {
	tokens := make(map[string]struct{})
	for _, token := range tokenize(title + " " + body) {
		tokens[token] = struct{}{}
	}

	signals := &types.ScoringSignals{}
	for _, theme := range themes {
		themeTokens := tokenize(theme)
		if len(themeTokens) == 0 {
			continue
		}
		hits := 0
		for _, token := range themeTokens {
			if _, ok := tokens[token]; ok {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		signals.Alignments = append(signals.Alignments, types.AlignmentAssessment{
			Theme:     theme,
			Alignment: float64(hits) / float64(len(themeTokens)),
		})
	}

	if len(signals.Alignments) > 0 {
		top := signals.Alignments[0]
		for _, a := range signals.Alignments[1:] {
			if a.Alignment > top.Alignment {
				top = a
			}
		}
		signals.Classifications = []types.TopicClassification{{
			Category:             top.Theme,
			Confidence:           top.Alignment,
			Actionability:        0.5,
			Risk:                 0.3,
			StakeholderRelevance: 0.4,
		}}
	}

	words := len(strings.Fields(body))
	completeness := math.Min(float64(words)/400.0, 1.0)
	signals.Quality = &types.QualityMetrics{
		FactualDensity:    0.5,
		SourceAuthority:   0.5,
		Clarity:           0.6,
		Completeness:      completeness,
		VerificationLevel: 0.3,
	}
	return signals, nil
}

// tokenize lowercases and splits text on non-letter, non-digit runes.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		letter := r >= 'a' && r <= 'z' || r >= '0' && r <= '9'
		return !letter
	})
}
