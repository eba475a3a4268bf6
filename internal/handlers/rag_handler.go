package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RAGStatus reports whether the knowledge base is initialized and how many
// chunks it holds.
func (handlers *Handlers) RAGStatus(c *gin.Context) {
	c.JSON(http.StatusOK, handlers.rag.Status(c.Request.Context()))
}

// RAGInitialize ingests the documents directory into the vector store.
func (handlers *Handlers) RAGInitialize(c *gin.Context) {
	chunks, err := handlers.rag.Initialize(c.Request.Context())
	if err != nil {
		handlers.logger.WithError(err).Error("Knowledge base initialization failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to initialize knowledge base",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"message":         "Knowledge base initialized successfully",
		"document_chunks": chunks,
	})
}

// RAGClear drops and recreates the knowledge base collection.
func (handlers *Handlers) RAGClear(c *gin.Context) {
	if err := handlers.rag.Clear(c.Request.Context()); err != nil {
		handlers.logger.WithError(err).Error("Knowledge base clear failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to clear knowledge base",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Knowledge base cleared successfully",
	})
}
