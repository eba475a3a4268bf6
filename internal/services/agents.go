package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crop-advisor-api/internal/models"
	"crop-advisor-api/internal/pkg/logger"
)

// FallbackResponse is what a role answers when its provider call fails.
// Callers never see a raw provider error.
const FallbackResponse = "I apologize, but I encountered an issue while processing your request. Please try again in a moment."

const agentTemperature float32 = 0.3

// AgentConfig is the immutable per-role configuration. The dispatch table
// below is the single place a new role has to be registered.
type AgentConfig struct {
	Role         models.Role
	Name         string
	SystemPrompt string
	Confidence   float64
	Capabilities []string
}

func DefaultAgentConfigs() map[models.Role]AgentConfig {
	return map[models.Role]AgentConfig{
		models.RoleAgronomist: {
			Role: models.RoleAgronomist,
			Name: "Agronomist",
			SystemPrompt: `You are an expert agronomist specializing in maize cultivation in Kenya.
Provide practical, actionable advice for small-scale farmers. Focus on:
- Planting timing and techniques
- Soil preparation and fertilizer recommendations
- Pest and disease management
- Water management and irrigation
- Harvesting and post-harvest handling

Be specific to Kenyan growing conditions and use simple, clear language.`,
			Confidence:   0.85,
			Capabilities: []string{"planting advice", "pest diagnosis", "fertilizer recommendations"},
		},
		models.RoleWeatherAdvisor: {
			Role: models.RoleWeatherAdvisor,
			Name: "Weather Advisor",
			SystemPrompt: `You are a weather advisor for farmers in Kenya.
Provide weather-based agricultural recommendations focusing on:
- Optimal planting windows based on rainfall patterns
- Weather risk management (drought, heavy rain, storms)
- Harvest timing considering weather forecasts
- Microclimate considerations for different Kenyan regions

Base your advice on typical Kenyan weather patterns and seasons.`,
			Confidence:   0.80,
			Capabilities: []string{"planting windows", "weather risk alerts", "harvest timing"},
		},
	}
}

// AgentService generates one role's answer per call. It holds only immutable
// configuration, so concurrent invocations for different roles are safe.
type AgentService struct {
	completion CompletionService
	configs    map[models.Role]AgentConfig
	logger     *logger.Logger
}

func NewAgentService(completion CompletionService, log *logger.Logger) *AgentService {
	service := &AgentService{
		completion: completion,
		configs:    DefaultAgentConfigs(),
		logger:     log,
	}

	log.Info("Agent service initialized", "roles_configured", len(service.configs))

	return service
}

func (service *AgentService) Configs() map[models.Role]AgentConfig {
	configs := make(map[models.Role]AgentConfig, len(service.configs))
	for role, config := range service.configs {
		configs[role] = config
	}
	return configs
}

// Generate produces the AgentResult for one role. A provider failure
// degrades the result (fallback text, near-zero confidence) instead of
// returning an error, so downstream composition stays uniform.
func (service *AgentService) Generate(ctx context.Context, role models.Role, userMessage, context string) models.AgentResult {
	startTime := time.Now()

	config, known := service.configs[role]
	if !known {
		// unreachable while the classifier and the dispatch table agree
		return models.AgentResult{
			Role:       role,
			Text:       fmt.Sprintf("The %s is currently unavailable. Please try again later.", role.DisplayName()),
			Confidence: 0.1,
		}
	}

	prompt := service.buildPrompt(config, userMessage, context)

	temperature := agentTemperature
	resp, err := service.completion.GenerateContent(ctx, &GenerationRequest{
		Prompt:      prompt,
		SystemRole:  config.SystemPrompt,
		Temperature: &temperature,
		MaxTokens:   1024,
	})

	if err != nil {
		service.logger.LogAgent("", string(role), "generate_response", time.Since(startTime), map[string]interface{}{
			"message_length": len(userMessage),
		}, err)

		return models.AgentResult{
			Role:       role,
			Text:       FallbackResponse,
			Confidence: 0.1,
			Sources:    nil,
		}
	}

	service.logger.LogAgent("", string(role), "generate_response", time.Since(startTime), map[string]interface{}{
		"message_length":  len(userMessage),
		"response_length": len(resp.Content),
		"tokens_used":     resp.TokensUsed,
	}, nil)

	return models.AgentResult{
		Role:       role,
		Text:       resp.Content,
		Confidence: config.Confidence,
		Sources:    extractSourcesFromContext(context),
	}
}

func (service *AgentService) buildPrompt(config AgentConfig, userMessage, context string) string {
	return fmt.Sprintf(`You are: %s

Context information:
%s

User question: %s

Please provide a helpful, accurate response based on the context and your expertise:`,
		config.SystemPrompt, context, userMessage)
}

// extractSourcesFromContext recovers knowledge-base attributions from the
// formatted context block. When none are present the model itself is the
// source.
func extractSourcesFromContext(context string) []models.Source {
	var sources []models.Source

	if strings.Contains(context, "From ") && strings.Contains(context, "relevance:") {
		for _, line := range strings.Split(context, "\n") {
			if !strings.HasPrefix(line, "From ") {
				continue
			}
			rest := strings.TrimPrefix(line, "From ")
			name, _, found := strings.Cut(rest, " (relevance:")
			if !found {
				continue
			}
			sources = append(sources, models.Source{
				Kind:     "document",
				Name:     name,
				Provider: "agricultural_knowledge_base",
			})
		}
	}

	if len(sources) == 0 {
		sources = append(sources, models.Source{
			Kind:     "ai_model",
			Name:     "Gemini",
			Provider: "google",
		})
	}

	return sources
}
