package handlers

import (
	"context"
	"time"

	"crop-advisor-api/internal/models"
	"crop-advisor-api/internal/pkg/logger"
	"crop-advisor-api/internal/services"
)

// ChatService is the coordinator surface the HTTP layer depends on.
type ChatService interface {
	HandleChat(ctx context.Context, request *models.ChatRequest) *models.ChatResponse
	RunWeatherAlert(ctx context.Context, request *models.WeatherAlertRequest) (*models.WeatherAlertResponse, error)
}

// KnowledgeBase exposes knowledge-base lifecycle management.
type KnowledgeBase interface {
	Initialize(ctx context.Context) (int, error)
	Status(ctx context.Context) services.KnowledgeBaseStatus
	Clear(ctx context.Context) error
}

// AlertReader reads the persisted alert log.
type AlertReader interface {
	Recent(window time.Duration) models.RecentAlertsResponse
}

// AuthProvider issues and verifies bearer tokens.
type AuthProvider interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.TokenResponse, error)
	VerifyToken(token string) (string, error)
}

// AgentCatalog lists the configured roles for the static catalog endpoint.
type AgentCatalog interface {
	Configs() map[models.Role]services.AgentConfig
}

// Handlers bundles every dependency the HTTP surface needs. All fields are
// long-lived service objects injected at startup; handlers hold no mutable
// state of their own.
type Handlers struct {
	chat    ChatService
	rag     KnowledgeBase
	alerts  AlertReader
	auth    AuthProvider
	catalog AgentCatalog
	logger  *logger.Logger
}

func New(chat ChatService, rag KnowledgeBase, alerts AlertReader, auth AuthProvider, catalog AgentCatalog, log *logger.Logger) *Handlers {
	return &Handlers{
		chat:    chat,
		rag:     rag,
		alerts:  alerts,
		auth:    auth,
		catalog: catalog,
		logger:  log,
	}
}
