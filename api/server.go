package api

import (
	"github.com/gin-gonic/gin"

	"signalsift/pipeline"
	"signalsift/retrieval"
)

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(pipe *pipeline.Pipeline, retriever *retrieval.Retriever) *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())

	// Register resource routers
	RegisterPipelineRoutes(r, pipe)
	RegisterRetrievalRoutes(r, retriever)
	return r
}
