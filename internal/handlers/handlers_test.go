package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"crop-advisor-api/internal/models"
	"crop-advisor-api/internal/pkg/logger"
	"crop-advisor-api/internal/services"
)

type mockChat struct {
	lastChatRequest *models.ChatRequest
	alertErr        error
}

func (mock *mockChat) HandleChat(ctx context.Context, request *models.ChatRequest) *models.ChatResponse {
	mock.lastChatRequest = request
	return &models.ChatResponse{
		Response:       "canned answer",
		ConversationID: "conv_test",
		AgentBreakdown: []models.AgentResult{
			{Role: models.RoleAgronomist, Text: "canned answer", Confidence: 0.85},
		},
		FollowUpQuestions: models.FollowUpQuestions,
	}
}

func (mock *mockChat) RunWeatherAlert(ctx context.Context, request *models.WeatherAlertRequest) (*models.WeatherAlertResponse, error) {
	if mock.alertErr != nil {
		return nil, mock.alertErr
	}
	return &models.WeatherAlertResponse{
		Workflow:  "weather_alert",
		Location:  request.Location,
		Timestamp: time.Now(),
	}, nil
}

type mockKnowledgeBase struct {
	initErr     error
	clearErr    error
	initialized bool
}

func (mock *mockKnowledgeBase) Initialize(ctx context.Context) (int, error) {
	if mock.initErr != nil {
		return 0, mock.initErr
	}
	mock.initialized = true
	return 3, nil
}

func (mock *mockKnowledgeBase) Status(ctx context.Context) services.KnowledgeBaseStatus {
	if !mock.initialized {
		return services.KnowledgeBaseStatus{Status: "not_initialized"}
	}
	return services.KnowledgeBaseStatus{Status: "initialized", DocumentChunks: 3, RAGEnabled: true}
}

func (mock *mockKnowledgeBase) Clear(ctx context.Context) error {
	if mock.clearErr != nil {
		return mock.clearErr
	}
	mock.initialized = false
	return nil
}

type mockAlertReader struct{}

func (mock *mockAlertReader) Recent(window time.Duration) models.RecentAlertsResponse {
	return models.RecentAlertsResponse{
		Alerts:       []models.AlertRecord{},
		CountsByRisk: map[models.RiskLevel]int{},
		WindowHours:  int(window.Hours()),
	}
}

type mockAuthProvider struct {
	registerErr error
	loginErr    error
}

func (mock *mockAuthProvider) Register(ctx context.Context, email, password string) (*models.User, error) {
	if mock.registerErr != nil {
		return nil, mock.registerErr
	}
	return &models.User{ID: "user-1", Email: email}, nil
}

func (mock *mockAuthProvider) Login(ctx context.Context, email, password string) (*models.TokenResponse, error) {
	if mock.loginErr != nil {
		return nil, mock.loginErr
	}
	return &models.TokenResponse{AccessToken: "issued-token", TokenType: "bearer"}, nil
}

func (mock *mockAuthProvider) VerifyToken(token string) (string, error) {
	if token != "valid-token" {
		return "", errors.New("invalid token")
	}
	return "user-1", nil
}

type mockCatalog struct{}

func (mock *mockCatalog) Configs() map[models.Role]services.AgentConfig {
	return services.DefaultAgentConfigs()
}

type testHarness struct {
	router *gin.Engine
	chat   *mockChat
	rag    *mockKnowledgeBase
	auth   *mockAuthProvider
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	chat := &mockChat{}
	rag := &mockKnowledgeBase{}
	auth := &mockAuthProvider{}

	handlers := New(chat, rag, &mockAlertReader{}, auth, &mockCatalog{}, logger.New("fatal", ""))

	return &testHarness{
		router: handlers.Router(),
		chat:   chat,
		rag:    rag,
		auth:   auth,
	}
}

func (harness *testHarness) request(t *testing.T, method, path, body, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	harness.router.ServeHTTP(recorder, req)

	decoded := map[string]interface{}{}
	if recorder.Body.Len() > 0 {
		if err := json.Unmarshal(recorder.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("response is not JSON: %v\n%s", err, recorder.Body.String())
		}
	}

	return recorder, decoded
}

func TestChatRejectsMissingMessage(t *testing.T) {
	harness := newTestHarness(t)

	recorder, body := harness.request(t, http.MethodPost, "/api/v1/chat", `{"location": "Central Kenya"}`, "")

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}
	if _, ok := body["error"]; !ok {
		t.Error("400 body missing error field")
	}
}

func TestChatReturnsComposedAnswer(t *testing.T) {
	harness := newTestHarness(t)

	recorder, body := harness.request(t, http.MethodPost, "/api/v1/chat", `{"message": "When should I plant maize?"}`, "")

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	if body["response"] != "canned answer" {
		t.Errorf("response = %v", body["response"])
	}
	if body["conversation_id"] != "conv_test" {
		t.Errorf("conversation_id = %v", body["conversation_id"])
	}
	if questions, ok := body["follow_up_questions"].([]interface{}); !ok || len(questions) == 0 {
		t.Error("follow_up_questions missing")
	}
	if harness.chat.lastChatRequest.Message != "When should I plant maize?" {
		t.Errorf("handler forwarded message %q", harness.chat.lastChatRequest.Message)
	}
}

func TestRAGInitializeRequiresAuth(t *testing.T) {
	harness := newTestHarness(t)

	recorder, _ := harness.request(t, http.MethodPost, "/api/v1/rag/initialize", "", "")
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", recorder.Code)
	}

	recorder, _ = harness.request(t, http.MethodPost, "/api/v1/rag/initialize", "", "forged-token")
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", recorder.Code)
	}

	recorder, body := harness.request(t, http.MethodPost, "/api/v1/rag/initialize", "", "valid-token")
	if recorder.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d, want 200", recorder.Code)
	}
	if body["success"] != true {
		t.Errorf("success = %v", body["success"])
	}
	if body["document_chunks"] != float64(3) {
		t.Errorf("document_chunks = %v, want 3", body["document_chunks"])
	}
}

func TestRAGInitializeFailure(t *testing.T) {
	harness := newTestHarness(t)
	harness.rag.initErr = errors.New("no documents")

	recorder, body := harness.request(t, http.MethodPost, "/api/v1/rag/initialize", "", "valid-token")

	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", recorder.Code)
	}
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
}

func TestRAGStatusIsPublic(t *testing.T) {
	harness := newTestHarness(t)

	recorder, body := harness.request(t, http.MethodGet, "/api/v1/rag/status", "", "")

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	if body["status"] != "not_initialized" {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestRecentAlertsWindowParam(t *testing.T) {
	harness := newTestHarness(t)

	recorder, body := harness.request(t, http.MethodGet, "/api/v1/alerts/recent", "", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("default: status = %d, want 200", recorder.Code)
	}
	if body["window_hours"] != float64(24) {
		t.Errorf("default window = %v, want 24", body["window_hours"])
	}

	recorder, body = harness.request(t, http.MethodGet, "/api/v1/alerts/recent?hours=500", "", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("capped: status = %d, want 200", recorder.Code)
	}
	if body["window_hours"] != float64(168) {
		t.Errorf("capped window = %v, want 168", body["window_hours"])
	}

	for _, raw := range []string{"abc", "0", "-4"} {
		recorder, _ = harness.request(t, http.MethodGet, "/api/v1/alerts/recent?hours="+raw, "", "")
		if recorder.Code != http.StatusBadRequest {
			t.Errorf("hours=%s: status = %d, want 400", raw, recorder.Code)
		}
	}
}

func TestWeatherAlertEndpoint(t *testing.T) {
	harness := newTestHarness(t)

	recorder, body := harness.request(t, http.MethodPost, "/api/v1/workflows/weather-alert", `{"location": "Western Kenya"}`, "")

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	if body["workflow"] != "weather_alert" {
		t.Errorf("workflow = %v", body["workflow"])
	}
	if body["location"] != "Western Kenya" {
		t.Errorf("location = %v", body["location"])
	}
}

func TestWeatherAlertFailure(t *testing.T) {
	harness := newTestHarness(t)
	harness.chat.alertErr = errors.New("workflow exploded")

	recorder, _ := harness.request(t, http.MethodPost, "/api/v1/workflows/weather-alert", `{}`, "")

	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", recorder.Code)
	}
}

func TestRegister(t *testing.T) {
	harness := newTestHarness(t)

	recorder, body := harness.request(t, http.MethodPost, "/auth/register", `{"email": "farmer@example.com", "password": "long-enough-password"}`, "")
	if recorder.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", recorder.Code)
	}
	if body["email"] != "farmer@example.com" {
		t.Errorf("email = %v", body["email"])
	}
	if _, ok := body["password_hash"]; ok {
		t.Error("register response leaked the password hash")
	}

	recorder, _ = harness.request(t, http.MethodPost, "/auth/register", `{"email": "farmer@example.com", "password": "short"}`, "")
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("short password: status = %d, want 400", recorder.Code)
	}

	harness.auth.registerErr = services.ErrUserExists
	recorder, _ = harness.request(t, http.MethodPost, "/auth/register", `{"email": "farmer@example.com", "password": "long-enough-password"}`, "")
	if recorder.Code != http.StatusConflict {
		t.Errorf("duplicate: status = %d, want 409", recorder.Code)
	}
}

func TestLogin(t *testing.T) {
	harness := newTestHarness(t)

	recorder, body := harness.request(t, http.MethodPost, "/auth/login", `{"email": "farmer@example.com", "password": "long-enough-password"}`, "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	if body["access_token"] != "issued-token" {
		t.Errorf("access_token = %v", body["access_token"])
	}

	harness.auth.loginErr = services.ErrInvalidCredentials
	recorder, _ = harness.request(t, http.MethodPost, "/auth/login", `{"email": "farmer@example.com", "password": "wrong"}`, "")
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("bad credentials: status = %d, want 401", recorder.Code)
	}
}

func TestHealthAndRoot(t *testing.T) {
	harness := newTestHarness(t)

	recorder, body := harness.request(t, http.MethodGet, "/health", "", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", recorder.Code)
	}
	if body["status"] != "healthy" {
		t.Errorf("health body = %v", body)
	}

	recorder, _ = harness.request(t, http.MethodGet, "/", "", "")
	if recorder.Code != http.StatusOK {
		t.Errorf("root status = %d, want 200", recorder.Code)
	}
}

func TestAgentsCatalog(t *testing.T) {
	harness := newTestHarness(t)

	recorder, body := harness.request(t, http.MethodGet, "/api/v1/agents", "", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}

	agents, ok := body["agents"].([]interface{})
	if !ok || len(agents) != 2 {
		t.Fatalf("agents = %v, want 2 entries", body["agents"])
	}

	first, _ := agents[0].(map[string]interface{})
	if first["type"] != "agronomist" {
		t.Errorf("first agent = %v, want agronomist", first["type"])
	}
}
