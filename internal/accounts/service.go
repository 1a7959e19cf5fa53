package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/NeuroShelf10/Neuroestante/pkg/auth"
	"github.com/NeuroShelf10/Neuroestante/pkg/auth/session"
	"github.com/NeuroShelf10/Neuroestante/pkg/config"
	"github.com/NeuroShelf10/Neuroestante/pkg/db/models"
	"github.com/NeuroShelf10/Neuroestante/pkg/enums"
	pkgerrors "github.com/NeuroShelf10/Neuroestante/pkg/errors"
	"github.com/NeuroShelf10/Neuroestante/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the account behavior needed by controllers.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*AccountResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, userID uuid.UUID, accessID, refreshToken string) (*RefreshResponse, error)
	Logout(ctx context.Context, accessID string) error
	AcceptConsent(ctx context.Context, userID uuid.UUID) (*AccountResponse, error)
	Profile(ctx context.Context, userID uuid.UUID) (*AccountResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*AccountResponse, error)
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type changeNotifier interface {
	NotifyChanged(ctx context.Context, accountID uuid.UUID)
}

type service struct {
	repo        Repository
	session     sessionManager
	notifier    changeNotifier
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
}

// ServiceParams bundles the dependencies required to build the account service.
type ServiceParams struct {
	Repo           Repository
	SessionManager sessionManager
	Notifier       changeNotifier
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
}

// NewService constructs an account service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("account repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &service{
		repo:        params.Repo,
		session:     params.SessionManager,
		notifier:    params.Notifier,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*AccountResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check account email")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	account := &models.Account{
		Email:              email,
		Name:               name,
		LicenseNumber:      req.LicenseNumber,
		PasswordHash:       passwordHash,
		SubscriptionStatus: enums.SubscriptionStatusPending,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create account")
	}

	resp := FromModel(account)
	return &resp, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	account, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	accessID := session.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID: account.ID,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.session.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Account:      FromModel(account),
	}, nil
}

func (s *service) Refresh(ctx context.Context, userID uuid.UUID, accessID, refreshToken string) (*RefreshResponse, error) {
	newAccessID, newRefreshToken, err := s.session.Rotate(ctx, accessID, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotate session")
	}

	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID: userID,
		JTI:    newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &RefreshResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
	}, nil
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke session")
	}
	return nil
}

// AcceptConsent records consent exactly once and signals watchers so open
// access streams pick up the transition immediately.
func (s *service) AcceptConsent(ctx context.Context, userID uuid.UUID) (*AccountResponse, error) {
	if err := s.repo.AcceptConsent(ctx, userID, time.Now().UTC()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "accept consent")
	}

	account, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, wrapLookup(err)
	}

	if s.notifier != nil {
		s.notifier.NotifyChanged(ctx, userID)
	}

	resp := FromModel(account)
	return &resp, nil
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*AccountResponse, error) {
	account, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, wrapLookup(err)
	}
	resp := FromModel(account)
	return &resp, nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*AccountResponse, error) {
	account, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, wrapLookup(err)
	}

	account.Name = strings.TrimSpace(req.Name)
	if account.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	account.LicenseNumber = req.LicenseNumber

	if err := s.repo.UpdateProfile(ctx, account); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
	}

	resp := FromModel(account)
	return &resp, nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.Account, error) {
	input := strings.TrimSpace(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	account, err := s.repo.FindByEmail(ctx, strings.ToLower(input))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup account")
	}

	valid, err := security.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	// Opportunistic upgrade when hashing parameters were strengthened.
	if security.NeedsRehash(account.PasswordHash, s.passwordCfg) {
		if rehash, err := security.HashPassword(password, s.passwordCfg); err == nil {
			if err := s.repo.UpdatePasswordHash(ctx, account.ID, rehash); err == nil {
				account.PasswordHash = rehash
			}
		}
	}

	return account, nil
}

func wrapLookup(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup account")
}
