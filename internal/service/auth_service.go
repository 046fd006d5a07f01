package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// AuthService issues tenant-scoped access tokens.
type AuthService struct {
	store  repository.Store
	tokens *auth.TokenManager
	logger *zap.Logger
}

func NewAuthService(cfg config.AuthConfig, store repository.Store, logger *zap.Logger) *AuthService {
	return &AuthService{
		store:  store,
		tokens: auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		logger: logger,
	}
}

// TokenManager exposes the manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// Login verifies credentials and returns a signed token with its expiry.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, time.Time, *domain.User, error) {
	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if util.IsNoRows(err) {
			return "", time.Time{}, nil, util.NewUnauthorized("invalid credentials")
		}
		return "", time.Time{}, nil, util.MapError(err)
	}
	if !user.IsActive {
		return "", time.Time{}, nil, util.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return "", time.Time{}, nil, util.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.TenantID)
	if err != nil {
		return "", time.Time{}, nil, util.NewInternalError(err)
	}
	s.logger.Info("user logged in", zap.String("user_id", user.ID), zap.String("tenant_id", user.TenantID))
	return token, expiresAt, user, nil
}
