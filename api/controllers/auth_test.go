package controllers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/eshop/storefront/internal/identity"
	"github.com/eshop/storefront/internal/storefront"
	pkgAuth "github.com/eshop/storefront/pkg/auth"
	"github.com/eshop/storefront/pkg/config"
	"github.com/eshop/storefront/pkg/enums"
	pkgerrors "github.com/eshop/storefront/pkg/errors"
)

type stubProvider struct {
	grant     *identity.Grant
	loginErr  error
	loggedOut []string
	refreshed identity.RefreshRequest
}

func (s *stubProvider) Signup(context.Context, identity.SignupRequest) (*identity.Grant, error) {
	return s.grant, s.loginErr
}

func (s *stubProvider) Login(context.Context, identity.LoginRequest) (*identity.Grant, error) {
	return s.grant, s.loginErr
}

func (s *stubProvider) Logout(_ context.Context, accessID string) error {
	s.loggedOut = append(s.loggedOut, accessID)
	return nil
}

func (s *stubProvider) Restore(context.Context, string, uuid.UUID) (identity.Session, error) {
	return s.grant.Session, nil
}

func (s *stubProvider) Refresh(_ context.Context, req identity.RefreshRequest) (*identity.Grant, error) {
	s.refreshed = req
	return s.grant, s.loginErr
}

type stubTabs struct {
	opened  []string
	closed  []string
	openErr error
}

func (s *stubTabs) Open(_ context.Context, accessID string, _ identity.Session) (*storefront.Tab, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.opened = append(s.opened, accessID)
	return &storefront.Tab{ID: accessID}, nil
}

func (s *stubTabs) Close(_ context.Context, accessID string) {
	s.closed = append(s.closed, accessID)
}

func testGrant() *identity.Grant {
	return &identity.Grant{
		AccessToken:  "token",
		RefreshToken: "refresh",
		AccessID:     "access-new",
		Session:      identity.Session{UserID: uuid.New(), Email: "shopper@example.com"},
	}
}

func TestAuthLoginOpensTab(t *testing.T) {
	svc := &stubProvider{grant: testGrant()}
	tabs := &stubTabs{}
	resp := serve(AuthLogin(svc, tabs, nil), nil, http.MethodPost, "/", `{"email":"shopper@example.com","password":"Secret123!"}`, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get(tokenHeader) != "token" {
		t.Fatal("expected token header")
	}
	if len(tabs.opened) != 1 || tabs.opened[0] != "access-new" {
		t.Fatalf("expected tab opened, got %v", tabs.opened)
	}
}

func TestAuthLoginRevokesWhenCartFails(t *testing.T) {
	svc := &stubProvider{grant: testGrant()}
	tabs := &stubTabs{openErr: pkgerrors.New(pkgerrors.CodeDependency, "load cart")}
	resp := serve(AuthLogin(svc, tabs, nil), nil, http.MethodPost, "/", `{"email":"shopper@example.com","password":"Secret123!"}`, nil)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	if len(svc.loggedOut) != 1 || svc.loggedOut[0] != "access-new" {
		t.Fatalf("expected session revoked, got %v", svc.loggedOut)
	}
}

func TestAuthSignupCreated(t *testing.T) {
	svc := &stubProvider{grant: testGrant()}
	resp := serve(AuthSignup(svc, &stubTabs{}, nil), nil, http.MethodPost, "/", `{"email":"shopper@example.com","password":"Secret123!"}`, nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}

	svc.loginErr = pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	dup := serve(AuthSignup(svc, &stubTabs{}, nil), nil, http.MethodPost, "/", `{"email":"shopper@example.com","password":"Secret123!"}`, nil)
	if dup.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", dup.Code)
	}
}

func TestAuthLogoutClosesTab(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 1}
	token := mintToken(t, cfg, "access-old", time.Now().Add(-time.Hour))
	svc := &stubProvider{grant: testGrant()}
	tabs := &stubTabs{}

	handler := AuthLogout(svc, tabs, cfg, nil)
	req := bearerRequest(http.MethodPost, "", token)
	resp := recordHandler(handler, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(svc.loggedOut) != 1 || svc.loggedOut[0] != "access-old" {
		t.Fatalf("expected revoke of access-old, got %v", svc.loggedOut)
	}
	if len(tabs.closed) != 1 || tabs.closed[0] != "access-old" {
		t.Fatalf("expected tab closed, got %v", tabs.closed)
	}
}

func TestAuthRefreshMovesTab(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 1}
	token := mintToken(t, cfg, "access-old", time.Now().Add(-time.Hour))
	svc := &stubProvider{grant: testGrant()}
	tabs := &stubTabs{}

	req := bearerRequest(http.MethodPost, `{"refresh_token":"refresh"}`, token)
	resp := recordHandler(AuthRefresh(svc, tabs, cfg, nil), req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.refreshed.AccessID != "access-old" || svc.refreshed.RefreshToken != "refresh" {
		t.Fatalf("unexpected refresh request %+v", svc.refreshed)
	}
	if len(tabs.closed) != 1 || len(tabs.opened) != 1 || tabs.opened[0] != "access-new" {
		t.Fatalf("expected tab moved, closed %v opened %v", tabs.closed, tabs.opened)
	}

	svc.loginErr = errors.New("boom")
	req = bearerRequest(http.MethodPost, `{"refresh_token":"refresh"}`, token)
	if resp := recordHandler(AuthRefresh(svc, tabs, cfg, nil), req); resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}

func mintToken(t *testing.T, cfg config.JWTConfig, accessID string, now time.Time) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg, now, pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "shopper@example.com",
		Role:   enums.UserRoleCustomer,
		JTI:    accessID,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
