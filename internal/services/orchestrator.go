package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crop-advisor-api/internal/models"
	"crop-advisor-api/internal/pkg/logger"
)

// Classifier picks the ordered roles for a query.
type Classifier interface {
	Classify(query string) []models.Role
}

// ResponseGenerator produces one role's (possibly degraded) result.
type ResponseGenerator interface {
	Generate(ctx context.Context, role models.Role, userMessage, context string) models.AgentResult
	Configs() map[models.Role]AgentConfig
}

// ContextRetriever returns a formatted knowledge-base context block.
type ContextRetriever interface {
	Context(ctx context.Context, query string, maxResults int) string
}

// ConversationStore keeps best-effort conversation memory.
type ConversationStore interface {
	GetConversationContext(ctx context.Context, conversationID string) (*models.ConversationContext, error)
	UpdateConversationContext(ctx context.Context, conversation *models.ConversationContext) error
}

// Orchestrator coordinates one chat request: classify, invoke each role in
// order over shared per-request state, and compose the combined answer.
// Weather is fetched at most once per request and shared through that state.
type Orchestrator struct {
	classifier    Classifier
	agents        ResponseGenerator
	retriever     ContextRetriever
	weather       WeatherProvider
	riskAnalyzer  *RiskAnalyzer
	alerts        *AlertStore
	conversations ConversationStore
	completion    CompletionService
	logger        *logger.Logger

	defaultLocation string
	defaultCrop     string

	startTime time.Time
}

func NewOrchestrator(
	classifier Classifier,
	agents ResponseGenerator,
	retriever ContextRetriever,
	weather WeatherProvider,
	riskAnalyzer *RiskAnalyzer,
	alerts *AlertStore,
	conversations ConversationStore,
	completion CompletionService,
	defaultLocation string,
	defaultCrop string,
	log *logger.Logger) *Orchestrator {

	orchestrator := &Orchestrator{
		classifier:      classifier,
		agents:          agents,
		retriever:       retriever,
		weather:         weather,
		riskAnalyzer:    riskAnalyzer,
		alerts:          alerts,
		conversations:   conversations,
		completion:      completion,
		logger:          log,
		defaultLocation: defaultLocation,
		defaultCrop:     defaultCrop,
		startTime:       time.Now(),
	}

	log.Info("Orchestrator initialized",
		"default_location", defaultLocation,
		"default_crop", defaultCrop)

	return orchestrator
}

// HandleChat answers one farmer question. Per-role failures degrade that
// role's result only; the request itself still succeeds with a partial
// answer.
func (orchestrator *Orchestrator) HandleChat(ctx context.Context, request *models.ChatRequest) *models.ChatResponse {
	startTime := time.Now()
	requestID := models.GenerateRequestID()

	location := request.Location
	if location == "" {
		location = orchestrator.defaultLocation
	}

	cropType := request.CropType
	if cropType == "" {
		cropType = orchestrator.defaultCrop
	}

	conversationID := request.ConversationID
	if conversationID == "" {
		conversationID = models.NewConversationID()
	}

	state := models.NewSharedState(location, cropType)
	state.AppendContext(fmt.Sprintf("Location: %s, Crop: %s", location, cropType))

	roles := orchestrator.classifier.Classify(request.Message)

	orchestrator.logger.Info("Chat request classified",
		"request_id", requestID,
		"roles", roles,
		"location", location,
		"crop", cropType)

	results := make([]models.AgentResult, 0, len(roles))

	for _, role := range roles {
		stepStart := time.Now()

		roleContext := orchestrator.buildRoleContext(ctx, role, request.Message, state)
		result := orchestrator.agents.Generate(ctx, role, request.Message, roleContext)
		results = append(results, result)

		// later roles in this request see earlier roles' conclusions
		state.AppendContext(fmt.Sprintf("The %s concluded: %s", role.DisplayName(), result.Text))

		orchestrator.logger.LogAgent(requestID, string(role), "handle_chat_step", time.Since(stepStart), map[string]interface{}{
			"confidence": result.Confidence,
			"degraded":   result.Confidence <= 0.1,
		}, nil)
	}

	response := &models.ChatResponse{
		Response:          composeResponse(results),
		ConversationID:    conversationID,
		AgentBreakdown:    results,
		FollowUpQuestions: models.FollowUpQuestions,
	}

	go orchestrator.updateMemoryAsync(conversationID, request.Message, roles)

	orchestrator.logger.LogService("orchestrator", "handle_chat", time.Since(startTime), map[string]interface{}{
		"request_id": requestID,
		"roles":      len(roles),
	}, nil)

	return response
}

// buildRoleContext assembles the prompt context for one role. The weather
// advisor fetches the observation into shared state; the agronomist reads
// it back only when a weather advisor ran earlier in this same request,
// and always folds in knowledge-base context.
func (orchestrator *Orchestrator) buildRoleContext(ctx context.Context, role models.Role, message string, state *models.SharedState) string {
	parts := []string{state.Context()}

	switch role {
	case models.RoleWeatherAdvisor:
		if state.Weather == nil {
			state.Weather = orchestrator.fetchObservation(ctx, state.Location, true)
		}
		parts = append(parts, weatherSummary(state.Weather))

	case models.RoleAgronomist:
		if state.Weather != nil {
			parts = append(parts, weatherSummary(state.Weather))
		}
		ragContext := orchestrator.retriever.Context(ctx, message, 3)
		parts = append(parts, "Relevant Agricultural Knowledge:\n"+ragContext)
	}

	return strings.Join(parts, "\n\n")
}

// fetchObservation prefers the live provider and falls back to the
// simulator; the provenance flag travels with the observation either way.
func (orchestrator *Orchestrator) fetchObservation(ctx context.Context, location string, useRealWeather bool) *models.WeatherObservation {
	if useRealWeather {
		observation, err := orchestrator.weather.Current(ctx, location)
		if err == nil {
			return observation
		}
		orchestrator.logger.WithError(err).Warn("Live weather unavailable, using simulator")
	}

	return orchestrator.weather.Simulate(location)
}

// composeResponse joins role results into one user-facing answer: a single
// result is returned verbatim, additional results get an attribution
// phrase naming their role.
func composeResponse(results []models.AgentResult) string {
	if len(results) == 0 {
		return "I'm not sure how to help with that. Could you provide more details about your agricultural question?"
	}

	if len(results) == 1 {
		return results[0].Text
	}

	var builder strings.Builder
	builder.WriteString(results[0].Text)

	for _, result := range results[1:] {
		builder.WriteString(fmt.Sprintf("\n\nAdditionally, from a %s perspective: %s", result.Role.DisplayName(), result.Text))
	}

	return builder.String()
}

func weatherSummary(observation *models.WeatherObservation) string {
	provenance := "live reading"
	if observation.Simulated {
		provenance = "simulated data"
	}

	return fmt.Sprintf("Current weather for %s (%s): %s, %.1f°C, %d%% humidity, wind %.1f m/s.",
		observation.Location, provenance, observation.Condition,
		observation.Temperature, observation.Humidity, observation.WindSpeed)
}

func (orchestrator *Orchestrator) updateMemoryAsync(conversationID, query string, roles []models.Role) {
	if orchestrator.conversations == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conversation, err := orchestrator.conversations.GetConversationContext(ctx, conversationID)
	if err != nil {
		orchestrator.logger.WithError(err).Warn("Failed to load conversation memory")
		return
	}

	conversation.MessageCount++
	conversation.LastQuery = query
	conversation.LastRoles = roles
	conversation.UpdatedAt = time.Now()

	if err := orchestrator.conversations.UpdateConversationContext(ctx, conversation); err != nil {
		orchestrator.logger.WithError(err).Warn("Failed to update conversation memory")
	}
}

// RunWeatherAlert executes the weather-alert workflow: observe, assess,
// generate short advice, and append the alert to the bounded log.
func (orchestrator *Orchestrator) RunWeatherAlert(ctx context.Context, request *models.WeatherAlertRequest) (*models.WeatherAlertResponse, error) {
	location := request.Location
	if location == "" {
		location = orchestrator.defaultLocation
	}

	observation := orchestrator.fetchObservation(ctx, location, request.UseRealWeather)
	assessment := orchestrator.riskAnalyzer.Assess(observation)
	advice := orchestrator.generateAlertAdvice(ctx, location, observation, &assessment)

	record, err := orchestrator.alerts.Append(models.AlertRecord{
		Location:    location,
		Observation: *observation,
		Assessment:  assessment,
		Advice:      advice,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		// the alert itself is still valid; persistence failure is logged,
		// not propagated to the caller
		orchestrator.logger.WithError(err).Error("Failed to persist weather alert")
	}

	return &models.WeatherAlertResponse{
		Workflow:    "weather_alert",
		Location:    location,
		WeatherData: *observation,
		Assessment:  assessment,
		AIAdvice:    advice,
		Timestamp:   record.CreatedAt,
	}, nil
}

func (orchestrator *Orchestrator) generateAlertAdvice(ctx context.Context, location string, observation *models.WeatherObservation, assessment *models.RiskAssessment) string {
	prompt := fmt.Sprintf(`As a weather advisor for Kenyan farmers, provide brief, actionable advice for maize cultivation.

Location: %s
Weather Condition: %s
Temperature: %.1f°C
Humidity: %d%%
Risk Level: %s

Provide 2-3 specific recommendations for maize farmers in this weather:`,
		location, observation.Condition, observation.Temperature, observation.Humidity, assessment.RiskLevel)

	temperature := agentTemperature
	resp, err := orchestrator.completion.GenerateContent(ctx, &GenerationRequest{
		Prompt:      prompt,
		Temperature: &temperature,
		MaxTokens:   512,
	})
	if err != nil {
		orchestrator.logger.WithError(err).Warn("Alert advice generation failed, using rule-based recommendations")
		return strings.Join(assessment.Recommendations, " ")
	}

	return resp.Content
}

func (orchestrator *Orchestrator) Uptime() time.Duration {
	return time.Since(orchestrator.startTime)
}
