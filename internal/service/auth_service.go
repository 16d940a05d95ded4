package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Jlndre/Capstone-eLife/internal/auth"
	"github.com/Jlndre/Capstone-eLife/internal/config"
	"github.com/Jlndre/Capstone-eLife/internal/domain"
	"github.com/Jlndre/Capstone-eLife/internal/repository"
	apperrors "github.com/Jlndre/Capstone-eLife/pkg/util/errorutil"
)

// AuthService exchanges pensioner credentials for access tokens.
type AuthService struct {
	users    repository.UserRepository
	tokenMgr *auth.TokenManager
	logger   *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, users repository.UserRepository, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := time.Duration(cfg.Auth.AccessTokenTTLHours) * time.Hour
	return &AuthService{
		users:    users,
		tokenMgr: auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.App.Name, ttl),
		logger:   logger,
	}
}

// Login authenticates by pensioner number and password. Unknown numbers and
// wrong passwords fail the same way.
func (s *AuthService) Login(ctx context.Context, pensionerNumber, password string) (*domain.User, string, time.Time, error) {
	pensionerNumber = strings.TrimSpace(pensionerNumber)
	if pensionerNumber == "" || password == "" {
		return nil, "", time.Time{}, apperrors.NewInputError("pensioner_number and password are required", nil)
	}

	user, err := s.users.GetByPensionerNumber(ctx, pensionerNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.logger.Info("login rejected", zap.String("user_id", user.ID))
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
