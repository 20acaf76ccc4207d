package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Authorizer     Authorizer
	RequestTimeout time.Duration
}

// NewRouter builds the gin engine with the health check and the /api/v1 routes.
func NewRouter(rag *RAGController, opts RouterOptions) *gin.Engine {
	router := gin.Default()
	router.Use(CORSMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "DocChat API",
			"version": Version,
		})
	})

	apiV1 := router.Group("/api/v1", AuthMiddleware(opts.Authorizer), TimeoutMiddleware(opts.RequestTimeout))
	{
		apiV1.POST("/ingest", rag.Ingest)
		apiV1.POST("/chat", rag.Chat)
		apiV1.POST("/retrieval/debug", rag.DebugRetrieval)
		apiV1.GET("/documents", rag.ListDocuments)
		apiV1.DELETE("/documents/:id", rag.DeleteDocument)
	}

	return router
}
