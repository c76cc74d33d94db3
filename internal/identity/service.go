package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eshop/storefront/internal/users"
	pkgAuth "github.com/eshop/storefront/pkg/auth"
	"github.com/eshop/storefront/pkg/auth/session"
	"github.com/eshop/storefront/pkg/config"
	"github.com/eshop/storefront/pkg/db"
	"github.com/eshop/storefront/pkg/db/models"
	"github.com/eshop/storefront/pkg/enums"
	pkgerrors "github.com/eshop/storefront/pkg/errors"
	"github.com/eshop/storefront/pkg/security"
	"github.com/google/uuid"
)

const invalidCredentialsMessage = "invalid credentials"

// Provider is the identity backend behind signup, login, and logout.
type Provider interface {
	Signup(ctx context.Context, req SignupRequest) (*Grant, error)
	Login(ctx context.Context, req LoginRequest) (*Grant, error)
	Logout(ctx context.Context, accessID string) error
	Restore(ctx context.Context, accessID string, userID uuid.UUID) (Session, error)
	Refresh(ctx context.Context, req RefreshRequest) (*Grant, error)
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (session.Rotation, error)
	Lookup(ctx context.Context, accessID string) (session.Record, error)
	Revoke(ctx context.Context, accessID string) error
}

// ServiceParams bundles the dependencies required to build the provider.
type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	Clock          func() time.Time
}

type service struct {
	users       userRepository
	session     sessionManager
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	now         func() time.Time
}

// NewService constructs the identity provider.
func NewService(params ServiceParams) (Provider, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		users:       params.UserRepo,
		session:     params.SessionManager,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		now:         clock,
	}, nil
}

func (s *service) Signup(ctx context.Context, req SignupRequest) (*Grant, error) {
	email := users.NormalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if err := security.CheckPolicy(req.Password); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !db.IsNotFound(err) {
		return nil, pkgerrors.Remote(err, "check user email")
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = strings.SplitN(email, "@", 2)[0]
	}
	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		Role:         enums.UserRoleCustomer,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Remote(err, "create user")
	}

	return s.issue(ctx, user)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*Grant, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user)
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return nil
	}
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Remote(err, "revoke session")
	}
	return nil
}

// Restore rebuilds the identity of a live session, e.g. after a restart.
func (s *service) Restore(ctx context.Context, accessID string, userID uuid.UUID) (Session, error) {
	rec, err := s.session.Lookup(ctx, accessID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return Session{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired")
		}
		return Session{}, pkgerrors.Remote(err, "lookup session")
	}
	if rec.UserID != userID {
		return Session{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return Session{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired")
		}
		return Session{}, pkgerrors.Remote(err, "load user")
	}
	return sessionFromUser(user), nil
}

func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*Grant, error) {
	rotated, err := s.session.Rotate(ctx, req.AccessID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Remote(err, "rotate session")
	}
	user, err := s.users.FindByID(ctx, rotated.UserID)
	if err != nil {
		_ = s.session.Revoke(ctx, rotated.AccessID)
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Remote(err, "load user")
	}
	return s.mint(user, rotated.AccessID, rotated.RefreshToken, s.now().UTC())
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := users.NormalizeEmail(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, input)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Remote(err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) issue(ctx context.Context, user *models.User) (*Grant, error) {
	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Remote(err, "update last login")
	}
	user.LastLoginAt = &now

	accessID := session.NewAccessID()
	refreshToken, err := s.session.Generate(ctx, accessID, user.ID)
	if err != nil {
		return nil, pkgerrors.Remote(err, "store refresh token")
	}
	return s.mint(user, accessID, refreshToken, now)
}

func (s *service) mint(user *models.User, accessID, refreshToken string, now time.Time) (*Grant, error) {
	sess := sessionFromUser(user)
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        sess.Role(),
		JTI:         accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &Grant{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(time.Duration(s.jwtCfg.ExpirationMinutes) * time.Minute),
		AccessID:     accessID,
		Session:      sess,
		User:         users.FromModel(user),
	}, nil
}
