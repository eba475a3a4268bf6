package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"crop-advisor-api/internal/models"
)

// WeatherAlert runs the weather-alert workflow for a location and persists
// the resulting alert.
func (handlers *Handlers) WeatherAlert(c *gin.Context) {
	var request models.WeatherAlertRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	response, err := handlers.chat.RunWeatherAlert(c.Request.Context(), &request)
	if err != nil {
		handlers.logger.WithError(err).Error("Weather alert workflow failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "weather alert workflow failed"})
		return
	}

	c.JSON(http.StatusOK, response)
}

// RecentAlerts reads the alert log filtered to a trailing window in hours
// (default 24, capped to a week).
func (handlers *Handlers) RecentAlerts(c *gin.Context) {
	hours := 24
	if raw := c.Query("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "hours must be a positive integer"})
			return
		}
		hours = parsed
	}
	if hours > 168 {
		hours = 168
	}

	c.JSON(http.StatusOK, handlers.alerts.Recent(time.Duration(hours)*time.Hour))
}
