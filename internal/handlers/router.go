package handlers

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const apiVersion = "1.0.0"

// Router builds the full HTTP surface. Knowledge-base mutations are the
// only routes behind the auth middleware; chat and read-only endpoints are
// open, matching the public advisory surface.
func (handlers *Handlers) Router() *gin.Engine {
	router := gin.New()
	router.Use(handlers.Recovery(), handlers.RequestLogging(), cors.Default())

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	auth := router.Group("/auth")
	{
		auth.POST("/register", handlers.Register)
		auth.POST("/login", handlers.Login)
	}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/chat", handlers.Chat)
		v1.GET("/agents", handlers.Agents)
		v1.GET("/examples", handlers.Examples)
		v1.GET("/system/info", handlers.SystemInfo)

		v1.GET("/rag/status", handlers.RAGStatus)
		v1.POST("/rag/initialize", handlers.AuthRequired(), handlers.RAGInitialize)
		v1.POST("/rag/clear", handlers.AuthRequired(), handlers.RAGClear)

		v1.POST("/workflows/weather-alert", handlers.WeatherAlert)
		v1.GET("/alerts/recent", handlers.RecentAlerts)
	}

	return router
}

func (handlers *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "AI Crop Advisor API is running",
		"status":  "healthy",
		"version": apiVersion,
	})
}

func (handlers *Handlers) Health(c *gin.Context) {
	status := handlers.rag.Status(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"service":         "AI Crop Advisor API",
		"rag_initialized": status.RAGEnabled,
	})
}

func (handlers *Handlers) SystemInfo(c *gin.Context) {
	ragStatus := handlers.rag.Status(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"system":  "AI Crop Advisor",
		"version": apiVersion,
		"components": gin.H{
			"http":            "running",
			"gemini_ai":       "integrated",
			"rag_system":      ragStatus.Status,
			"multi_agent":     "active",
			"vector_database": "chromadb",
		},
		"rag_system":        ragStatus,
		"agents":            []string{"agronomist", "weather_advisor"},
		"supported_crops":   []string{"maize", "beans", "wheat"},
		"supported_regions": []string{"Central Kenya", "Western Kenya", "Eastern Kenya", "Rift Valley"},
	})
}
