package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"signalsift/pipeline"
	"signalsift/scoring"
	"signalsift/types"
	"signalsift/websource"
)

// RegisterPipelineRoutes registers batch processing endpoints.
func RegisterPipelineRoutes(r *gin.Engine, pipe *pipeline.Pipeline) {
	g := r.Group("/api/pipeline")
	g.POST("/process", handleProcessBatch(pipe))
	g.POST("/ingest-feed", handleIngestFeed(pipe))

	r.GET("/api/health", handleHealth)
}

// ProcessBatchRequest represents one batch submission. Weights override the
// configured composite weights for this batch only.
type ProcessBatchRequest struct {
	Items   []*types.ContentItem `json:"items" binding:"required"`
	Weights *scoring.Weights     `json:"weights,omitempty"`
}

// IngestFeedRequest pulls a feed, extracts full content, and runs the
// result through the pipeline as one batch.
type IngestFeedRequest struct {
	Feed  string `json:"feed" binding:"required"` // preset name or URL
	Count int    `json:"count,omitempty"`
}

// handleProcessBatch runs a submitted batch through the pipeline
func handleProcessBatch(pipe *pipeline.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ProcessBatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result, err := pipe.ProcessBatch(c.Request.Context(), req.Items, pipeline.BatchOptions{Weights: req.Weights})
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, scoring.ErrInvalidWeights) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// handleIngestFeed fetches a feed and processes its articles as a batch
func handleIngestFeed(pipe *pipeline.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req IngestFeedRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		count := req.Count
		if count <= 0 {
			count = 10
		}

		items, err := websource.FetchFeed(websource.ResolveFeedURL(req.Feed), count)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch feed: " + err.Error()})
			return
		}
		websource.ExtractAllContent(items)

		result, err := pipe.ProcessBatch(c.Request.Context(), items, pipeline.BatchOptions{})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// handleHealth reports liveness
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}
