package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"

	"crop-advisor-api/internal/config"
	"crop-advisor-api/internal/models"
	"crop-advisor-api/internal/pkg/logger"
)

// WeatherProvider yields current observations for a location.
type WeatherProvider interface {
	Current(ctx context.Context, location string) (*models.WeatherObservation, error)
	Simulate(location string) *models.WeatherObservation
}

// WeatherService fetches live weather from OpenWeatherMap. Transient 5xx
// and transport failures are retried with backoff; a circuit breaker keeps
// a flapping provider from slowing every request. Callers fall back to
// Simulate when Current fails.
type WeatherService struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	config     config.WeatherConfig
	logger     *logger.Logger
}

func NewWeatherService(config config.WeatherConfig, log *logger.Logger) *WeatherService {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweathermap",
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	service := &WeatherService{
		httpClient: &http.Client{Timeout: config.Timeout},
		breaker:    breaker,
		config:     config,
		logger:     log,
	}

	log.Info("Weather service initialized",
		"base_url", config.BaseURL,
		"live_provider", config.APIKey != "")

	return service
}

type openWeatherResponse struct {
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
		Pressure int     `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// Current fetches a live observation. Every failure path returns a wrapped
// provider error; it never fabricates data itself.
func (service *WeatherService) Current(ctx context.Context, location string) (*models.WeatherObservation, error) {
	startTime := time.Now()

	if service.config.APIKey == "" {
		return nil, models.NewConfigError("weather provider API key not configured")
	}

	result, err := service.breaker.Execute(func() (interface{}, error) {
		return service.fetchWithRetry(ctx, location)
	})

	service.logger.LogService("openweathermap", "current_weather", time.Since(startTime), map[string]interface{}{
		"location": location,
	}, err)

	if err != nil {
		return nil, models.WrapExternalError("WEATHER", err)
	}

	return result.(*models.WeatherObservation), nil
}

func (service *WeatherService) fetchWithRetry(ctx context.Context, location string) (*models.WeatherObservation, error) {
	operation := func() (*models.WeatherObservation, error) {
		endpoint := fmt.Sprintf("%s/weather?q=%s&appid=%s&units=metric",
			service.config.BaseURL, url.QueryEscape(location), service.config.APIKey)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		resp, err := service.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("weather provider returned %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, backoff.Permanent(fmt.Errorf("weather provider returned %d: %s", resp.StatusCode, string(raw)))
		}

		var parsed openWeatherResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to decode weather response: %w", err))
		}

		condition := "unknown"
		if len(parsed.Weather) > 0 {
			condition = parsed.Weather[0].Description
		}

		return &models.WeatherObservation{
			Location:    location,
			Condition:   condition,
			Temperature: parsed.Main.Temp,
			Humidity:    parsed.Main.Humidity,
			Pressure:    parsed.Main.Pressure,
			WindSpeed:   parsed.Wind.Speed,
			RetrievedAt: time.Now(),
			Simulated:   false,
		}, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(service.config.MaxRetries)))
}

var simulatedConditions = []string{"heavy rain", "light rain", "sunny", "cloudy", "dry spell"}

// Simulate produces a pseudo-random observation tagged as simulated so
// downstream consumers can surface its provenance.
func (service *WeatherService) Simulate(location string) *models.WeatherObservation {
	return &models.WeatherObservation{
		Location:    location,
		Condition:   simulatedConditions[rand.Intn(len(simulatedConditions))],
		Temperature: float64(20 + rand.Intn(16)),
		Humidity:    40 + rand.Intn(51),
		Pressure:    1000 + rand.Intn(25),
		WindSpeed:   float64(rand.Intn(10)) + rand.Float64(),
		RetrievedAt: time.Now(),
		Simulated:   true,
	}
}
