package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crop-advisor-api/internal/models"
)

// Chat answers one farmer question. Degraded per-role answers still return
// 200; only unrecoverable internal failures surface as 500 via the
// recovery middleware.
func (handlers *Handlers) Chat(c *gin.Context) {
	var request models.ChatRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	response := handlers.chat.HandleChat(c.Request.Context(), &request)

	c.JSON(http.StatusOK, response)
}

// Agents returns the static role catalog.
func (handlers *Handlers) Agents(c *gin.Context) {
	configs := handlers.catalog.Configs()

	agents := make([]gin.H, 0, len(configs))
	for _, role := range []models.Role{models.RoleAgronomist, models.RoleWeatherAdvisor} {
		config, ok := configs[role]
		if !ok {
			continue
		}
		agents = append(agents, gin.H{
			"type":         string(role),
			"name":         config.Name,
			"capabilities": config.Capabilities,
			"model":        "Gemini",
		})
	}

	c.JSON(http.StatusOK, gin.H{"agents": agents})
}

// Examples returns sample questions with the roles expected to answer them.
func (handlers *Handlers) Examples(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"example_questions": []gin.H{
			{
				"question":        "When is the best time to plant maize in Central Kenya?",
				"type":            "planting_timing",
				"expected_agents": []string{"agronomist"},
			},
			{
				"question":        "How do I control maize stalk borer?",
				"type":            "pest_control",
				"expected_agents": []string{"agronomist"},
			},
			{
				"question":        "Should I plant if heavy rain is forecast next week?",
				"type":            "weather_decision",
				"expected_agents": []string{"agronomist", "weather_advisor"},
			},
			{
				"question":        "What fertilizer should I use for maize?",
				"type":            "fertilizer",
				"expected_agents": []string{"agronomist"},
			},
			{
				"question":        "How does weather affect maize growth?",
				"type":            "combined",
				"expected_agents": []string{"agronomist", "weather_advisor"},
			},
		},
	})
}
