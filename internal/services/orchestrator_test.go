package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"crop-advisor-api/internal/models"
)

type scriptedAgents struct {
	responses map[models.Role]string
	contexts  map[models.Role]string
}

func newScriptedAgents(responses map[models.Role]string) *scriptedAgents {
	return &scriptedAgents{
		responses: responses,
		contexts:  make(map[models.Role]string),
	}
}

func (agents *scriptedAgents) Generate(ctx context.Context, role models.Role, userMessage, context string) models.AgentResult {
	agents.contexts[role] = context
	return models.AgentResult{
		Role:       role,
		Text:       agents.responses[role],
		Confidence: 0.8,
	}
}

func (agents *scriptedAgents) Configs() map[models.Role]AgentConfig {
	return DefaultAgentConfigs()
}

type stubRetriever struct {
	block string
	calls int
}

func (retriever *stubRetriever) Context(ctx context.Context, query string, maxResults int) string {
	retriever.calls++
	return retriever.block
}

type stubWeather struct {
	observation *models.WeatherObservation
	err         error

	currentCalls  int
	simulateCalls int
}

func (weather *stubWeather) Current(ctx context.Context, location string) (*models.WeatherObservation, error) {
	weather.currentCalls++
	if weather.err != nil {
		return nil, weather.err
	}
	return weather.observation, nil
}

func (weather *stubWeather) Simulate(location string) *models.WeatherObservation {
	weather.simulateCalls++
	return &models.WeatherObservation{
		Location:    location,
		Condition:   "sunny",
		Temperature: 25,
		Humidity:    60,
		RetrievedAt: time.Now(),
		Simulated:   true,
	}
}

func newTestOrchestrator(t *testing.T, agents ResponseGenerator, retriever ContextRetriever, weather WeatherProvider, completion CompletionService) (*Orchestrator, *AlertStore) {
	t.Helper()

	store := newTestAlertStore(t)
	orchestrator := NewOrchestrator(
		NewQueryClassifier(),
		agents,
		retriever,
		weather,
		NewRiskAnalyzer(),
		store,
		nil,
		completion,
		"Central Kenya",
		"maize",
		testLogger(),
	)
	return orchestrator, store
}

func TestHandleChatSingleRole(t *testing.T) {
	agents := newScriptedAgents(map[models.Role]string{
		models.RoleAgronomist: "Apply DAP fertilizer at planting.",
	})
	weather := &stubWeather{}
	orchestrator, _ := newTestOrchestrator(t, agents, &stubRetriever{block: ContextNoMatches}, weather, &fakeCompletion{content: "advice"})

	response := orchestrator.HandleChat(context.Background(), &models.ChatRequest{
		Message: "What fertilizer should I use for maize?",
	})

	if response.Response != "Apply DAP fertilizer at planting." {
		t.Errorf("single-role response must be verbatim, got %q", response.Response)
	}
	if len(response.AgentBreakdown) != 1 {
		t.Fatalf("breakdown = %d entries, want 1", len(response.AgentBreakdown))
	}
	if response.AgentBreakdown[0].Role != models.RoleAgronomist {
		t.Errorf("role = %s, want agronomist", response.AgentBreakdown[0].Role)
	}
	if !strings.HasPrefix(response.ConversationID, "conv_") {
		t.Errorf("conversation id = %q, want generated conv_ prefix", response.ConversationID)
	}
	if len(response.FollowUpQuestions) != len(models.FollowUpQuestions) {
		t.Errorf("follow-up questions = %d, want %d", len(response.FollowUpQuestions), len(models.FollowUpQuestions))
	}
	if weather.currentCalls != 0 || weather.simulateCalls != 0 {
		t.Error("weather must not be fetched for an agronomy-only query")
	}
}

func TestHandleChatTwoRolesComposition(t *testing.T) {
	agents := newScriptedAgents(map[models.Role]string{
		models.RoleAgronomist:     "Wait until the soil is moist.",
		models.RoleWeatherAdvisor: "Rain is expected within three days.",
	})
	orchestrator, _ := newTestOrchestrator(t, agents, &stubRetriever{block: ContextNoMatches}, &stubWeather{err: errors.New("offline")}, &fakeCompletion{content: "advice"})

	response := orchestrator.HandleChat(context.Background(), &models.ChatRequest{
		Message: "Should I plant before the rain?",
	})

	want := "Wait until the soil is moist.\n\nAdditionally, from a weather advisor perspective: Rain is expected within three days."
	if response.Response != want {
		t.Errorf("composed response = %q, want %q", response.Response, want)
	}
	if len(response.AgentBreakdown) != 2 {
		t.Fatalf("breakdown = %d entries, want 2", len(response.AgentBreakdown))
	}
	if response.AgentBreakdown[0].Role != models.RoleAgronomist {
		t.Error("agronomist must come first in the breakdown")
	}
}

func TestHandleChatSharesContextBetweenRoles(t *testing.T) {
	agents := newScriptedAgents(map[models.Role]string{
		models.RoleAgronomist:     "agronomy answer",
		models.RoleWeatherAdvisor: "weather answer",
	})
	retriever := &stubRetriever{block: "From maize_guide.txt (relevance: 0.80): plant early"}
	weather := &stubWeather{observation: &models.WeatherObservation{
		Location:    "Central Kenya",
		Condition:   "light rain",
		Temperature: 22,
		Humidity:    70,
		RetrievedAt: time.Now(),
	}}
	orchestrator, _ := newTestOrchestrator(t, agents, retriever, weather, &fakeCompletion{content: "advice"})

	orchestrator.HandleChat(context.Background(), &models.ChatRequest{
		Message:  "Should I plant before the rain?",
		Location: "Central Kenya",
	})

	agronomistContext := agents.contexts[models.RoleAgronomist]
	if !strings.Contains(agronomistContext, "Location: Central Kenya, Crop: maize") {
		t.Errorf("agronomist context missing request framing: %q", agronomistContext)
	}
	if !strings.Contains(agronomistContext, "Relevant Agricultural Knowledge:") {
		t.Errorf("agronomist context missing knowledge block: %q", agronomistContext)
	}

	weatherContext := agents.contexts[models.RoleWeatherAdvisor]
	if !strings.Contains(weatherContext, "light rain") {
		t.Errorf("weather advisor context missing observation: %q", weatherContext)
	}
	if !strings.Contains(weatherContext, "live reading") {
		t.Errorf("weather advisor context missing provenance: %q", weatherContext)
	}
	if !strings.Contains(weatherContext, "The agronomist concluded: agronomy answer") {
		t.Errorf("weather advisor context missing earlier conclusion: %q", weatherContext)
	}

	if weather.currentCalls != 1 {
		t.Errorf("live weather fetched %d times, want exactly 1 per request", weather.currentCalls)
	}
	if retriever.calls != 1 {
		t.Errorf("knowledge base queried %d times, want 1", retriever.calls)
	}
}

func TestHandleChatKeepsConversationID(t *testing.T) {
	agents := newScriptedAgents(map[models.Role]string{models.RoleAgronomist: "answer"})
	orchestrator, _ := newTestOrchestrator(t, agents, &stubRetriever{block: ContextNoMatches}, &stubWeather{}, &fakeCompletion{content: "advice"})

	response := orchestrator.HandleChat(context.Background(), &models.ChatRequest{
		Message:        "maize question",
		ConversationID: "conv_existing",
	})

	if response.ConversationID != "conv_existing" {
		t.Errorf("conversation id = %q, want conv_existing", response.ConversationID)
	}
}

func TestHandleChatDegradedRoleStillAnswers(t *testing.T) {
	agents := newScriptedAgents(map[models.Role]string{
		models.RoleAgronomist:     "healthy answer",
		models.RoleWeatherAdvisor: FallbackResponse,
	})
	orchestrator, _ := newTestOrchestrator(t, agents, &stubRetriever{block: ContextNoMatches}, &stubWeather{err: errors.New("offline")}, &fakeCompletion{content: "advice"})

	response := orchestrator.HandleChat(context.Background(), &models.ChatRequest{
		Message: "Should I plant before the rain?",
	})

	if !strings.Contains(response.Response, "healthy answer") {
		t.Errorf("healthy role's answer missing: %q", response.Response)
	}
	if !strings.Contains(response.Response, FallbackResponse) {
		t.Errorf("degraded role must still contribute the fallback text: %q", response.Response)
	}
}

func TestRunWeatherAlertFallsBackToSimulator(t *testing.T) {
	agents := newScriptedAgents(nil)
	weather := &stubWeather{err: errors.New("provider down")}
	completion := &fakeCompletion{err: errors.New("model down")}
	orchestrator, store := newTestOrchestrator(t, agents, &stubRetriever{}, weather, completion)

	response, err := orchestrator.RunWeatherAlert(context.Background(), &models.WeatherAlertRequest{
		Location:       "Western Kenya",
		UseRealWeather: true,
	})
	if err != nil {
		t.Fatalf("RunWeatherAlert failed: %v", err)
	}

	if !response.WeatherData.Simulated {
		t.Error("observation must be marked simulated after provider failure")
	}
	if weather.currentCalls != 1 || weather.simulateCalls != 1 {
		t.Errorf("current calls = %d, simulate calls = %d; want 1 and 1", weather.currentCalls, weather.simulateCalls)
	}

	wantAdvice := strings.Join(response.Assessment.Recommendations, " ")
	if response.AIAdvice != wantAdvice {
		t.Errorf("advice = %q, want rule-based recommendations %q", response.AIAdvice, wantAdvice)
	}

	if store.Count() != 1 {
		t.Errorf("alert log holds %d records, want 1", store.Count())
	}
}

func TestRunWeatherAlertHighRisk(t *testing.T) {
	agents := newScriptedAgents(nil)
	weather := &stubWeather{observation: &models.WeatherObservation{
		Location:    "Central Kenya",
		Condition:   "clear sky",
		Temperature: 38,
		Humidity:    50,
		RetrievedAt: time.Now(),
	}}
	completion := &fakeCompletion{content: "Irrigate before dawn."}
	orchestrator, store := newTestOrchestrator(t, agents, &stubRetriever{}, weather, completion)

	response, err := orchestrator.RunWeatherAlert(context.Background(), &models.WeatherAlertRequest{
		Location:       "Central Kenya",
		UseRealWeather: true,
	})
	if err != nil {
		t.Fatalf("RunWeatherAlert failed: %v", err)
	}

	if response.Assessment.RiskLevel != models.RiskLevelHigh {
		t.Errorf("risk level = %s, want high", response.Assessment.RiskLevel)
	}
	if response.AIAdvice != "Irrigate before dawn." {
		t.Errorf("advice = %q, want model content", response.AIAdvice)
	}
	if response.Workflow != "weather_alert" {
		t.Errorf("workflow = %q, want weather_alert", response.Workflow)
	}

	record, ok := store.Oldest()
	if !ok {
		t.Fatal("alert was not persisted")
	}
	if record.Assessment.RiskLevel != models.RiskLevelHigh {
		t.Errorf("persisted risk level = %s, want high", record.Assessment.RiskLevel)
	}
}

func TestRunWeatherAlertDefaultsLocation(t *testing.T) {
	agents := newScriptedAgents(nil)
	orchestrator, _ := newTestOrchestrator(t, agents, &stubRetriever{}, &stubWeather{}, &fakeCompletion{content: "advice"})

	response, err := orchestrator.RunWeatherAlert(context.Background(), &models.WeatherAlertRequest{})
	if err != nil {
		t.Fatal(err)
	}

	if response.Location != "Central Kenya" {
		t.Errorf("location = %q, want configured default", response.Location)
	}
}

func TestComposeResponse(t *testing.T) {
	if got := composeResponse(nil); !strings.Contains(got, "more details") {
		t.Errorf("empty results composition = %q", got)
	}

	single := composeResponse([]models.AgentResult{{Role: models.RoleAgronomist, Text: "only answer"}})
	if single != "only answer" {
		t.Errorf("single result must be verbatim, got %q", single)
	}
}
