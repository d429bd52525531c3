package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/loan-backoffice/internal/auth"
	"github.com/spec-kit/loan-backoffice/internal/config"
	"github.com/spec-kit/loan-backoffice/internal/domain"
	"github.com/spec-kit/loan-backoffice/internal/events"
	"github.com/spec-kit/loan-backoffice/internal/observability"
	"github.com/spec-kit/loan-backoffice/internal/repository"
	apperrors "github.com/spec-kit/loan-backoffice/pkg/util/errorutil"
)

// LoginThrottle limits repeated failed sign-ins for one email.
type LoginThrottle interface {
	Allow(ctx context.Context, email string) (bool, error)
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

// LoginResult is a successful sign-in: the identity and its session token.
type LoginResult struct {
	Identity  *domain.Identity
	Token     string
	ExpiresAt time.Time
}

// AuthService verifies credentials and issues sessions.
type AuthService struct {
	accounts  repository.AccountRepository
	tokenMgr  *auth.TokenManager
	throttle  LoginThrottle
	dispatch  events.Dispatcher
	dummyHash string
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// AuthDependencies encapsulates requirements for auth service.
type AuthDependencies struct {
	AccountRepo  repository.AccountRepository
	TokenManager *auth.TokenManager
	Throttle     LoginThrottle
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Metrics      *observability.Metrics
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tokenMgr := deps.TokenManager
	if tokenMgr == nil {
		tokenMgr = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL())
	}

	// Compared against when the account is unknown so every failure costs
	// one bcrypt evaluation.
	dummyHash, err := auth.HashPassword("placeholder-password-for-timing", cfg.Auth.BcryptCost)
	if err != nil {
		logger.Warn("unable to prepare dummy hash", zap.Error(err))
	}

	return &AuthService{
		accounts:  deps.AccountRepo,
		tokenMgr:  tokenMgr,
		throttle:  deps.Throttle,
		dispatch:  deps.Dispatcher,
		dummyHash: dummyHash,
		logger:    logger,
		metrics:   deps.Metrics,
	}
}

// Authenticate checks an email/password pair. Unknown email and wrong
// password are indistinguishable to the caller. Nothing is written.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*domain.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		s.burnHash(password)
		return nil, apperrors.NewInvalidCredentials()
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.burnHash(password)
			return nil, apperrors.NewInvalidCredentials()
		}
		return nil, apperrors.NewInternalError(err)
	}
	if account.PasswordHash == "" {
		s.burnHash(password)
		return nil, apperrors.NewInvalidCredentials()
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, apperrors.NewInvalidCredentials()
	}

	return domain.IdentityOf(account), nil
}

// Login authenticates and issues a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if s.throttle != nil {
		allowed, err := s.throttle.Allow(ctx, email)
		if err != nil {
			s.logger.Warn("login throttle unavailable", zap.Error(err))
			allowed = true
		}
		if !allowed {
			s.metrics.RecordLogin("throttled")
			return nil, apperrors.NewTooManyAttempts("too many failed login attempts, try again later")
		}
	}

	identity, err := s.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			s.metrics.RecordLogin("invalid")
			s.recordFailure(ctx, email)
		} else {
			s.metrics.RecordLogin("error")
		}
		return nil, err
	}

	token, expiresAt, err := s.tokenMgr.Issue(identity)
	if err != nil {
		s.metrics.RecordLogin("error")
		return nil, apperrors.NewInternalError(err)
	}

	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, email); err != nil {
			s.logger.Warn("unable to reset login throttle", zap.Error(err))
		}
	}
	s.metrics.RecordLogin("success")
	s.logger.Info("login succeeded", zap.String("account_id", identity.ID), zap.String("role", string(identity.Role)))
	s.publish(ctx, events.EventLogin, identity.ID)

	return &LoginResult{Identity: identity, Token: token, ExpiresAt: expiresAt}, nil
}

// Logout records the sign-out. Sessions are stateless, so the token stays
// valid until it expires; the caller clears the cookie.
func (s *AuthService) Logout(ctx context.Context, session domain.Session) error {
	if session.AccountID == "" {
		return nil
	}
	s.publish(ctx, events.EventLogout, session.AccountID)
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) burnHash(password string) {
	if s.dummyHash == "" {
		return
	}
	_ = auth.ComparePassword(s.dummyHash, password)
}

func (s *AuthService) recordFailure(ctx context.Context, email string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.RecordFailure(ctx, email); err != nil {
		s.logger.Warn("unable to record login failure", zap.Error(err))
	}
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, accountID string) {
	if s.dispatch == nil {
		return
	}
	_ = s.dispatch.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ActorID:   accountID,
		SubjectID: accountID,
		Timestamp: time.Now().UTC(),
	})
}
