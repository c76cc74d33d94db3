package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eshop/storefront/internal/users"
	pkgAuth "github.com/eshop/storefront/pkg/auth"
	"github.com/eshop/storefront/pkg/auth/session"
	"github.com/eshop/storefront/pkg/config"
	"github.com/eshop/storefront/pkg/db/models"
	"github.com/eshop/storefront/pkg/enums"
	pkgerrors "github.com/eshop/storefront/pkg/errors"
	"github.com/eshop/storefront/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubUserRepo struct {
	byEmail   map[string]*models.User
	findErr   error
	lastLogin time.Time
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byEmail: map[string]*models.User{}}
}

func (s *stubUserRepo) Create(_ context.Context, dto users.CreateUserDTO) (*models.User, error) {
	u := dto.ToModel()
	s.byEmail[u.Email] = u
	return u, nil
}

func (s *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if u, ok := s.byEmail[email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range s.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) UpdateLastLogin(_ context.Context, _ uuid.UUID, at time.Time) error {
	s.lastLogin = at
	return nil
}

type stubSessions struct {
	records map[string]session.Record
}

func newStubSessions() *stubSessions {
	return &stubSessions{records: map[string]session.Record{}}
}

func (s *stubSessions) Generate(_ context.Context, accessID string, userID uuid.UUID) (string, error) {
	token := "refresh-" + accessID
	s.records[accessID] = session.Record{UserID: userID, RefreshToken: token}
	return token, nil
}

func (s *stubSessions) Rotate(ctx context.Context, oldAccessID, provided string) (session.Rotation, error) {
	rec, ok := s.records[oldAccessID]
	if !ok || rec.RefreshToken != provided {
		return session.Rotation{}, session.ErrInvalidRefreshToken
	}
	delete(s.records, oldAccessID)
	next := session.Rotation{AccessID: session.NewAccessID(), UserID: rec.UserID}
	next.RefreshToken, _ = s.Generate(ctx, next.AccessID, rec.UserID)
	return next, nil
}

func (s *stubSessions) Lookup(_ context.Context, accessID string) (session.Record, error) {
	rec, ok := s.records[accessID]
	if !ok {
		return session.Record{}, session.ErrSessionNotFound
	}
	return rec, nil
}

func (s *stubSessions) Revoke(_ context.Context, accessID string) error {
	delete(s.records, accessID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "storefront-test", ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60}
}

func newTestProvider(t *testing.T, repo *stubUserRepo, sessions *stubSessions) Provider {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
		PasswordConfig: config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 8, ArgonKeyLen: 16},
		Clock:          func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestSignupThenLogin(t *testing.T) {
	ctx := context.Background()
	repo := newStubUserRepo()
	sessions := newStubSessions()
	svc := newTestProvider(t, repo, sessions)

	grant, err := svc.Signup(ctx, SignupRequest{Email: "Meera@Example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if grant.Session.Email != "meera@example.com" || grant.Session.DisplayName != "meera" {
		t.Fatalf("unexpected session %+v", grant.Session)
	}
	if grant.Session.IsAdmin {
		t.Fatal("new accounts must not be admins")
	}
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(testJWTConfig(), grant.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.ID != grant.AccessID || claims.UserID != grant.Session.UserID {
		t.Fatalf("token does not match grant: %+v", claims)
	}
	if _, ok := sessions.records[grant.AccessID]; !ok {
		t.Fatal("expected refresh session to be stored")
	}

	if _, err := svc.Signup(ctx, SignupRequest{Email: "meera@example.com", Password: "secret1"}); !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}

	login, err := svc.Login(ctx, LoginRequest{Email: "MEERA@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.Session.UserID != grant.Session.UserID {
		t.Fatal("expected same user on login")
	}
	if repo.lastLogin.IsZero() {
		t.Fatal("expected last login to be recorded")
	}
}

func TestSignupRejectsWeakPassword(t *testing.T) {
	svc := newTestProvider(t, newStubUserRepo(), newStubSessions())
	_, err := svc.Signup(context.Background(), SignupRequest{Email: "a@b.co", Password: "123"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	ctx := context.Background()
	repo := newStubUserRepo()
	hash, err := security.HashPassword("correct-horse", config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo.byEmail["ravi@example.com"] = &models.User{ID: uuid.New(), Email: "ravi@example.com", PasswordHash: hash, Role: enums.UserRoleAdmin}
	svc := newTestProvider(t, repo, newStubSessions())

	if _, err := svc.Login(ctx, LoginRequest{Email: "ravi@example.com", Password: "wrong"}); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "x"}); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for unknown email, got %v", err)
	}

	grant, err := svc.Login(ctx, LoginRequest{Email: "ravi@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !grant.Session.IsAdmin {
		t.Fatal("expected admin session")
	}

	repo.findErr = errors.New("db down")
	if _, err := svc.Login(ctx, LoginRequest{Email: "ravi@example.com", Password: "correct-horse"}); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestRestoreRefreshAndLogout(t *testing.T) {
	ctx := context.Background()
	sessions := newStubSessions()
	svc := newTestProvider(t, newStubUserRepo(), sessions)

	grant, err := svc.Signup(ctx, SignupRequest{Email: "kiran@example.com", Password: "hunter22", DisplayName: "Kiran"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	restored, err := svc.Restore(ctx, grant.AccessID, grant.Session.UserID)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored != grant.Session {
		t.Fatalf("unexpected restored session %+v", restored)
	}
	if _, err := svc.Restore(ctx, grant.AccessID, uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected mismatch to be rejected, got %v", err)
	}

	refreshed, err := svc.Refresh(ctx, RefreshRequest{AccessID: grant.AccessID, RefreshToken: grant.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.AccessID == grant.AccessID {
		t.Fatal("expected rotated access id")
	}
	if _, err := svc.Refresh(ctx, RefreshRequest{AccessID: grant.AccessID, RefreshToken: grant.RefreshToken}); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected old refresh token to be rejected, got %v", err)
	}

	if err := svc.Logout(ctx, refreshed.AccessID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Restore(ctx, refreshed.AccessID, grant.Session.UserID); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected revoked session, got %v", err)
	}
}
