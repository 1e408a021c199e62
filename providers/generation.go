package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"signalsift/types"
)

// ErrGenerationUnavailable marks a text-generation failure the pipeline
// degrades around: affected items score with documented defaults instead of
// generated signals.
var ErrGenerationUnavailable = errors.New("generation provider unavailable")

// TextGenerator abstracts the generation capabilities enrichment needs:
// consolidated cluster summaries and per-item scoring signals.
type TextGenerator interface {
	Summarize(ctx context.Context, texts []string) (string, error)
	ExtractSignals(ctx context.Context, title, body string, themes []string) (*types.ScoringSignals, error)
	ModelName() string
}

// NewDefaultTextGenerator returns a generator based on the environment.
// SIGNALSIFT_MOCK_PROVIDERS=true selects the deterministic synthetic
// generator; otherwise OpenAI is used when OPENAI_API_KEY is set. Returns
// nil when nothing is configured.
func NewDefaultTextGenerator(preferredModel string) TextGenerator {
	if os.Getenv("SIGNALSIFT_MOCK_PROVIDERS") == "true" {
		return NewMockGenerator()
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		model := preferredModel
		if model == "" {
			model = "gpt-4o-mini"
		}
		return &OpenAIGenerator{apiKey: apiKey, model: model}
	}
	return nil
}

// OpenAIGenerator implements TextGenerator using the OpenAI Chat
// Completions API.
// Endpoint: POST https://api.openai.com/v1/chat/completions
type OpenAIGenerator struct {
	apiKey   string
	model    string
	endpoint string
}

func (o *OpenAIGenerator) ModelName() string { return o.model }

// Summarize asks the model to merge several member texts into one short
// consolidated summary.
func (o *OpenAIGenerator) Summarize(ctx context.Context, texts []string) (string, error) {
	if len(texts) == 0 {
		return "", nil
	}

	var sb strings.Builder
	for i, text := range texts {
		fmt.Fprintf(&sb, "--- Source %d ---\n%s\n\n", i+1, text)
	}

	prompt := "The following sources cover the same story. Write a single neutral " +
		"summary of at most three sentences that merges their coverage. Reply " +
		"with the summary only.\n\n" + sb.String()

	reply, err := o.chat(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// signalsPayload is the JSON shape the extraction prompt requests.
type signalsPayload struct {
	Alignments []struct {
		Theme     string  `json:"theme"`
		Alignment float64 `json:"alignment"`
	} `json:"alignments"`
	Classifications []struct {
		Category             string  `json:"category"`
		Confidence           float64 `json:"confidence"`
		Actionability        float64 `json:"actionability"`
		Risk                 float64 `json:"risk"`
		StakeholderRelevance float64 `json:"stakeholder_relevance"`
	} `json:"classifications"`
	Quality *struct {
		FactualDensity    float64 `json:"factual_density"`
		SourceAuthority   float64 `json:"source_authority"`
		Clarity           float64 `json:"clarity"`
		Completeness      float64 `json:"completeness"`
		VerificationLevel float64 `json:"verification_level"`
	} `json:"quality"`
	TrendTermCount int `json:"trend_term_count"`
}

// ExtractSignals asks the model to assess one item against the configured
// themes and returns the parsed scoring signals.
func (o *OpenAIGenerator) ExtractSignals(ctx context.Context, title, body string, themes []string) (*types.ScoringSignals, error) {
	prompt := fmt.Sprintf(`Assess the following content against these themes: %s.
Reply with JSON only, no prose, using this shape:
{"alignments":[{"theme":"...","alignment":0.0}],"classifications":[{"category":"...","confidence":0.0,"actionability":0.0,"risk":0.0,"stakeholder_relevance":0.0}],"quality":{"factual_density":0.0,"source_authority":0.0,"clarity":0.0,"completeness":0.0,"verification_level":0.0},"trend_term_count":0}
All numbers are in [0,1] except trend_term_count, a non-negative integer.
Include an alignment entry only for themes the content genuinely touches.

Title: %s

Body:
%s`, strings.Join(themes, ", "), title, firstChars(body, 6000))

	reply, err := o.chat(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var parsed signalsPayload
	if err := json.Unmarshal([]byte(stripCodeFences(reply)), &parsed); err != nil {
		return nil, fmt.Errorf("%w: parsing signals reply: %v", ErrGenerationUnavailable, err)
	}

	signals := &types.ScoringSignals{TrendTermCount: parsed.TrendTermCount}
	for _, a := range parsed.Alignments {
		signals.Alignments = append(signals.Alignments, types.AlignmentAssessment{
			Theme:     a.Theme,
			Alignment: a.Alignment,
		})
	}
	for _, c := range parsed.Classifications {
		signals.Classifications = append(signals.Classifications, types.TopicClassification{
			Category:             c.Category,
			Confidence:           c.Confidence,
			Actionability:        c.Actionability,
			Risk:                 c.Risk,
			StakeholderRelevance: c.StakeholderRelevance,
		})
	}
	if parsed.Quality != nil {
		signals.Quality = &types.QualityMetrics{
			FactualDensity:    parsed.Quality.FactualDensity,
			SourceAuthority:   parsed.Quality.SourceAuthority,
			Clarity:           parsed.Quality.Clarity,
			Completeness:      parsed.Quality.Completeness,
			VerificationLevel: parsed.Quality.VerificationLevel,
		}
	}
	return signals, nil
}

// chat sends a single-message chat completion request and returns the
// first choice's content.
func (o *OpenAIGenerator) chat(ctx context.Context, prompt string) (string, error) {
	endpoint := o.endpoint
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1/chat/completions"
	}

	payload := map[string]interface{}{
		"model": o.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": 0,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", o.apiKey))
	if org := os.Getenv("OPENAI_ORG_ID"); org != "" {
		req.Header.Set("OpenAI-Organization", org)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body map[string]interface{}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return "", fmt.Errorf("%w: status %d: %v", ErrGenerationUnavailable, resp.StatusCode, body)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrGenerationUnavailable)
	}
	return parsed.Choices[0].Message.Content, nil
}

// stripCodeFences unwraps a reply the model wrapped in a markdown code
// block.
func stripCodeFences(reply string) string {
	trimmed := strings.TrimSpace(reply)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// firstChars truncates text to at most n bytes without splitting the
// trailing rune boundary mid-word.
func firstChars(text string, n int) string {
	if len(text) <= n {
		return text
	}
	cut := text[:n]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return cut
}
