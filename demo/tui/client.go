package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"signalsift/retrieval"
	"signalsift/types"
)

// APIClient is a thin HTTP client for the signalsift API
type APIClient struct {
	baseURL string
	client  *http.Client
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Health checks whether the API is reachable
func (c *APIClient) Health() error {
	resp, err := c.client.Get(c.baseURL + "/api/health")
	if err != nil {
		return fmt.Errorf("failed to reach API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return nil
}

// IngestFeed asks the server to fetch, extract, and process one feed batch
func (c *APIClient) IngestFeed(feed string, count int) (*types.BatchResult, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"feed":  feed,
		"count": count,
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Post(c.baseURL+"/api/pipeline/ingest-feed", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to ingest feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	var result types.BatchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// Query runs a retrieval query over the scored corpus
func (c *APIClient) Query(q retrieval.Query) ([]retrieval.Result, error) {
	payload, err := json.Marshal(q)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Post(c.baseURL+"/api/retrieval/query", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Results []retrieval.Result `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return parsed.Results, nil
}
