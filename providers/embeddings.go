package providers

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

// ErrEmbeddingsUnavailable marks an enrichment failure the pipeline can
// degrade around: the affected item is excluded from clustering but keeps
// flowing through scoring.
var ErrEmbeddingsUnavailable = errors.New("embeddings provider unavailable")

// EmbeddingsProvider abstracts a text->embedding generator
// Implementations should return one embedding vector per input text.
type EmbeddingsProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// NewDefaultEmbeddingsProvider returns an embeddings provider based on the
// environment. SIGNALSIFT_MOCK_PROVIDERS=true selects the deterministic
// synthetic provider; otherwise Cohere is preferred when COHERE_API_KEY is
// set, then OpenAI when OPENAI_API_KEY is set. Returns nil when nothing is
// configured.
func NewDefaultEmbeddingsProvider(preferredModel string) EmbeddingsProvider {
	if os.Getenv("SIGNALSIFT_MOCK_PROVIDERS") == "true" {
		return NewMockEmbeddings(0)
	}

	if cohereKey := os.Getenv("COHERE_API_KEY"); cohereKey != "" {
		model := preferredModel
		if model == "" || !strings.HasPrefix(model, "embed-") {
			model = "embed-english-v3.0"
		}
		// Force HTTP/1.1 to avoid HTTP/2 protocol errors against the
		// Cohere endpoint.
		httpClient := &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
				ForceAttemptHTTP2: false,
			},
		}
		client := cohereclient.NewClient(
			cohereclient.WithToken(cohereKey),
			cohereclient.WithHTTPClient(httpClient),
		)
		return &CohereEmbeddings{client: client, model: model}
	}

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		model := preferredModel
		if model == "" {
			model = "text-embedding-3-small"
		}
		return &OpenAIEmbeddings{apiKey: apiKey, model: model}
	}
	return nil
}

// CohereEmbeddings implements EmbeddingsProvider using the Cohere Embed API (v2)
// Docs: https://docs.cohere.com/reference/embed
// SDK: github.com/cohere-ai/cohere-go/v2
type CohereEmbeddings struct {
	client *cohereclient.Client
	model  string
}

func (c *CohereEmbeddings) ModelName() string { return c.model }

func (c *CohereEmbeddings) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	resp, err := c.client.V2.Embed(
		ctx,
		&cohere.V2EmbedRequest{
			Texts:          texts,
			Model:          c.model,
			InputType:      cohere.EmbedInputTypeSearchDocument,
			EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: cohere embed: %v", ErrEmbeddingsUnavailable, err)
	}
	if resp == nil || resp.Embeddings == nil || resp.Embeddings.Float == nil {
		return nil, fmt.Errorf("%w: cohere embed returned no float embeddings", ErrEmbeddingsUnavailable)
	}

	floats := resp.Embeddings.Float
	if len(floats) != len(texts) {
		return nil, fmt.Errorf("%w: embedding count mismatch", ErrEmbeddingsUnavailable)
	}

	out := make([][]float32, len(floats))
	for i, vec := range floats {
		fv := make([]float32, len(vec))
		for j, v := range vec {
			fv[j] = float32(v)
		}
		out[i] = fv
	}
	return out, nil
}

// OpenAIEmbeddings implements EmbeddingsProvider using the OpenAI Embeddings API
// Endpoint: POST https://api.openai.com/v1/embeddings
// Request: {"input": ["text1", ...], "model": "text-embedding-3-small"}
// Response: {"data": [{"embedding": [...], "index": 0}, ...]}
type OpenAIEmbeddings struct {
	apiKey   string
	model    string
	endpoint string
}

func (o *OpenAIEmbeddings) ModelName() string { return o.model }

func (o *OpenAIEmbeddings) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	endpoint := o.endpoint
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1/embeddings"
	}

	payload := map[string]interface{}{
		"input": texts,
		"model": o.model,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", o.apiKey))
	if org := os.Getenv("OPENAI_ORG_ID"); org != "" {
		req.Header.Set("OpenAI-Organization", org)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingsUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body map[string]interface{}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return nil, fmt.Errorf("%w: status %d: %v", ErrEmbeddingsUnavailable, resp.StatusCode, body)
	}

	var parsed struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingsUnavailable, err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("%w: embedding count mismatch", ErrEmbeddingsUnavailable)
	}

	out := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}
