package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lethalgem/accountability-app/internal/auth"
	"github.com/lethalgem/accountability-app/internal/config"
	"github.com/lethalgem/accountability-app/internal/domain"
	"github.com/lethalgem/accountability-app/internal/repository"
	apperrors "github.com/lethalgem/accountability-app/pkg/util/errorutil"
)

const registrationClosedMessage = "registration is closed: this app supports exactly two users"

// AuthService coordinates registration and login flows.
type AuthService struct {
	store             repository.Store
	tokenMgr          *auth.TokenManager
	bcryptCost        int
	minPasswordLength int
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// Profile is the caller and, once paired, their partner.
type Profile struct {
	User    *domain.User
	Partner *domain.User
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, store repository.Store) *AuthService {
	return &AuthService{
		store:             store,
		tokenMgr:          auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL()),
		bcryptCost:        cfg.BcryptCost,
		minPasswordLength: cfg.MinPasswordLength,
	}
}

// Register creates one of the two accounts and seats it in the pair.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, apperrors.NewValidationError("name, email and password are required", nil)
	}
	if !strings.Contains(email, "@") {
		return nil, apperrors.NewValidationError("invalid email", nil)
	}
	if len(password) < s.minPasswordLength {
		return nil, apperrors.NewValidationError(fmt.Sprintf("password must be at least %d characters", s.minPasswordLength), nil)
	}

	pair, err := s.store.Pairs().Get(ctx)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternalError(fmt.Errorf("load pair: %w", err))
	}
	if pair.Full() {
		return nil, apperrors.NewRegistrationClosed(registrationClosedMessage)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{Name: name, Email: email, PasswordHash: hash}
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		_, err := tx.Pairs().Join(ctx, user.ID)
		return err
	})
	switch {
	case errors.Is(err, repository.ErrDuplicateEmail):
		return nil, apperrors.NewConflict("email already registered", nil)
	case errors.Is(err, repository.ErrPairFull):
		return nil, apperrors.NewRegistrationClosed(registrationClosedMessage)
	case err != nil:
		return nil, apperrors.NewInternalError(fmt.Errorf("register user: %w", err))
	}

	return s.issue(user)
}

// Login authenticates a user by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}

	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized(auth.ErrInvalidCredentials.Error())
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("load user: %w", err))
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized(auth.ErrInvalidCredentials.Error())
	}
	return s.issue(user)
}

// Me resolves the caller's profile and partner.
func (s *AuthService) Me(ctx context.Context, userID int64) (*Profile, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user")
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("load user: %w", err))
	}

	profile := &Profile{User: user}
	partner, err := partnerUser(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	profile.Partner = partner
	return profile, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("sign token: %w", err))
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// partnerUser loads the other pair member, or nil while the pair is open.
func partnerUser(ctx context.Context, store repository.Store, userID int64) (*domain.User, error) {
	pair, err := store.Pairs().Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("load pair: %w", err))
	}
	partnerID, ok := pair.Partner(userID)
	if !ok {
		return nil, nil
	}
	partner, err := store.Users().GetByID(ctx, partnerID)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("load partner: %w", err))
	}
	return partner, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
