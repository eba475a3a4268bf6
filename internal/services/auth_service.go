package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"crop-advisor-api/internal/config"
	"crop-advisor-api/internal/models"
	"crop-advisor-api/internal/pkg/logger"
)

// ErrInvalidCredentials covers both unknown emails and wrong passwords so
// login failures do not reveal which one it was.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserStore is the identity persistence the auth service depends on.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// AuthService issues and verifies bearer tokens. Passwords are stored only
// as bcrypt hashes; the signing secret comes from configuration and is
// checked at startup.
type AuthService struct {
	users  UserStore
	config config.AuthConfig
	logger *logger.Logger
}

func NewAuthService(users UserStore, config config.AuthConfig, log *logger.Logger) (*AuthService, error) {
	if config.JWTSecret == "" {
		return nil, models.NewConfigError("JWT secret required")
	}

	return &AuthService{
		users:  users,
		config: config,
		logger: log,
	}, nil
}

func (service *AuthService) Register(ctx context.Context, email, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(email),
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}

	if err := service.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	service.logger.Info("User registered", "user_id", user.ID)

	return user, nil
}

func (service *AuthService) Login(ctx context.Context, email, password string) (*models.TokenResponse, error) {
	user, err := service.users.GetUserByEmail(ctx, strings.ToLower(email))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(service.config.TokenTTL)

	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"iat":   time.Now().Unix(),
		"exp":   expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(service.config.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	service.logger.Info("User logged in", "user_id", user.ID)

	return &models.TokenResponse{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
	}, nil
}

// VerifyToken validates a bearer token and returns the subject user id.
func (service *AuthService) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(service.config.JWTSecret), nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token claims")
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return "", errors.New("token missing subject")
	}

	return subject, nil
}
