package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"crop-advisor-api/internal/config"
	"crop-advisor-api/internal/models"
)

type memoryUserStore struct {
	users map[string]*models.User
}

func newMemoryUserStore() *memoryUserStore {
	return &memoryUserStore{users: make(map[string]*models.User)}
}

func (store *memoryUserStore) CreateUser(ctx context.Context, user *models.User) error {
	if _, exists := store.users[user.Email]; exists {
		return ErrUserExists
	}
	store.users[user.Email] = user
	return nil
}

func (store *memoryUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, exists := store.users[email]
	if !exists {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret: "test-signing-secret",
		TokenTTL:  time.Hour,
	}
}

func newTestAuthService(t *testing.T) (*AuthService, *memoryUserStore) {
	t.Helper()

	store := newMemoryUserStore()
	service, err := NewAuthService(store, testAuthConfig(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return service, store
}

func TestAuthServiceRequiresSecret(t *testing.T) {
	_, err := NewAuthService(newMemoryUserStore(), config.AuthConfig{TokenTTL: time.Hour}, testLogger())
	if err == nil {
		t.Fatal("expected an error for an empty signing secret")
	}
}

func TestRegisterLoginVerifyRoundTrip(t *testing.T) {
	service, _ := newTestAuthService(t)
	ctx := context.Background()

	user, err := service.Register(ctx, "farmer@example.com", "long-enough-password")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.PasswordHash == "long-enough-password" {
		t.Fatal("password stored in plaintext")
	}

	token, err := service.Login(ctx, "farmer@example.com", "long-enough-password")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if token.TokenType != "bearer" {
		t.Errorf("token type = %q, want bearer", token.TokenType)
	}
	if !token.ExpiresAt.After(time.Now()) {
		t.Error("token already expired at issue time")
	}

	subject, err := service.VerifyToken(token.AccessToken)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if subject != user.ID {
		t.Errorf("subject = %q, want user id %q", subject, user.ID)
	}
}

func TestRegisterLowercasesEmail(t *testing.T) {
	service, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := service.Register(ctx, "Farmer@Example.COM", "long-enough-password"); err != nil {
		t.Fatal(err)
	}

	if _, err := service.Login(ctx, "farmer@example.com", "long-enough-password"); err != nil {
		t.Errorf("login with lowercased email failed: %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	service, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := service.Register(ctx, "farmer@example.com", "long-enough-password"); err != nil {
		t.Fatal(err)
	}

	_, err := service.Register(ctx, "farmer@example.com", "another-password")
	if !errors.Is(err, ErrUserExists) {
		t.Errorf("err = %v, want ErrUserExists", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	service, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := service.Register(ctx, "farmer@example.com", "long-enough-password"); err != nil {
		t.Fatal(err)
	}

	if _, err := service.Login(ctx, "farmer@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: err = %v, want ErrInvalidCredentials", err)
	}

	if _, err := service.Login(ctx, "nobody@example.com", "long-enough-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestVerifyTokenRejectsForgeries(t *testing.T) {
	service, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := service.VerifyToken("not-a-token"); err == nil {
		t.Error("garbage token accepted")
	}

	otherStore := newMemoryUserStore()
	other, err := NewAuthService(otherStore, config.AuthConfig{JWTSecret: "different-secret", TokenTTL: time.Hour}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Register(ctx, "farmer@example.com", "long-enough-password"); err != nil {
		t.Fatal(err)
	}
	foreign, err := other.Login(ctx, "farmer@example.com", "long-enough-password")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := service.VerifyToken(foreign.AccessToken); err == nil {
		t.Error("token signed with a different secret accepted")
	}
}
