package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"signalsift/retrieval"
)

// RegisterRetrievalRoutes registers corpus query endpoints.
func RegisterRetrievalRoutes(r *gin.Engine, retriever *retrieval.Retriever) {
	g := r.Group("/api/retrieval")
	g.POST("/query", handleQuery(retriever))
	g.GET("/count", handleCount(retriever))
}

// handleQuery runs one retrieval query over the scored corpus
func handleQuery(retriever *retrieval.Retriever) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q retrieval.Query
		if err := c.ShouldBindJSON(&q); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		results, err := retriever.Search(q)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"results": results,
			"count":   len(results),
		})
	}
}

// handleCount reports how many corpus items match the given filters
func handleCount(retriever *retrieval.Retriever) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := retrieval.Query{
			BatchID: c.Query("batch_id"),
		}
		if v := c.Query("min_relevance"); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid min_relevance: " + err.Error()})
				return
			}
			q.MinRelevance = f
		}
		if v := c.Query("high_quality_only"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid high_quality_only: " + err.Error()})
				return
			}
			q.HighQualityOnly = b
		}

		c.JSON(http.StatusOK, gin.H{"count": retriever.Count(q)})
	}
}
