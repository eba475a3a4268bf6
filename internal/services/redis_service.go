package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"crop-advisor-api/internal/config"
	"crop-advisor-api/internal/models"
	"crop-advisor-api/internal/pkg/logger"
)

// ErrUserNotFound is returned when an email has no stored identity.
var ErrUserNotFound = errors.New("user not found")

// ErrUserExists is returned when registering an already-known email.
var ErrUserExists = errors.New("user already exists")

const (
	conversationKeyPrefix = "conversation:"
	userKeyPrefix         = "user:"
	conversationTTL       = 24 * time.Hour
)

// RedisService persists conversation memory and user identities. Both are
// secondary to the advisory core: conversation writes are best effort, only
// the auth paths treat Redis errors as failures.
type RedisService struct {
	client *redis.Client
	logger *logger.Logger
	config config.RedisConfig
}

func NewRedisService(config config.RedisConfig, log *logger.Logger) (*RedisService, error) {
	opt, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	opt.PoolSize = config.PoolSize
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opt)

	service := &RedisService{
		client: client,
		logger: log,
		config: config,
	}

	if err := service.testConnection(); err != nil {
		return nil, fmt.Errorf("connection to Redis failed: %w", err)
	}

	log.Info("Redis service initialized",
		"url", config.URL,
		"pool_size", config.PoolSize)

	return service, nil
}

func (service *RedisService) testConnection() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return service.client.Ping(ctx).Err()
}

func (service *RedisService) GetConversationContext(ctx context.Context, conversationID string) (*models.ConversationContext, error) {
	raw, err := service.client.Get(ctx, conversationKeyPrefix+conversationID).Result()
	if errors.Is(err, redis.Nil) {
		return &models.ConversationContext{
			ConversationID: conversationID,
			UpdatedAt:      time.Now(),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation context: %w", err)
	}

	var conversation models.ConversationContext
	if err := json.Unmarshal([]byte(raw), &conversation); err != nil {
		return nil, fmt.Errorf("conversation context is corrupt: %w", err)
	}

	return &conversation, nil
}

func (service *RedisService) UpdateConversationContext(ctx context.Context, conversation *models.ConversationContext) error {
	startTime := time.Now()

	encoded, err := json.Marshal(conversation)
	if err != nil {
		return fmt.Errorf("failed to encode conversation context: %w", err)
	}

	err = service.client.Set(ctx, conversationKeyPrefix+conversation.ConversationID, encoded, conversationTTL).Err()

	service.logger.LogService("redis", "update_conversation", time.Since(startTime), map[string]interface{}{
		"conversation_id": conversation.ConversationID,
		"message_count":   conversation.MessageCount,
	}, err)

	return err
}

func (service *RedisService) CreateUser(ctx context.Context, user *models.User) error {
	encoded, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	created, err := service.client.SetNX(ctx, userKeyPrefix+user.Email, encoded, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to store user: %w", err)
	}
	if !created {
		return ErrUserExists
	}

	return nil
}

func (service *RedisService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	raw, err := service.client.Get(ctx, userKeyPrefix+email).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("user record is corrupt: %w", err)
	}

	return &user, nil
}

func (service *RedisService) HealthCheck(ctx context.Context) error {
	healthCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return service.client.Ping(healthCtx).Err()
}

func (service *RedisService) Close() error {
	return service.client.Close()
}
