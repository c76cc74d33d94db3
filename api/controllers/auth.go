package controllers

import (
	"context"
	"net/http"

	"github.com/eshop/storefront/api/responses"
	"github.com/eshop/storefront/api/validators"
	"github.com/eshop/storefront/internal/identity"
	pkgAuth "github.com/eshop/storefront/pkg/auth"
	"github.com/eshop/storefront/pkg/config"
	pkgerrors "github.com/eshop/storefront/pkg/errors"
	"github.com/eshop/storefront/pkg/logger"
)

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthSignup creates the account and signs the new session in.
func AuthSignup(svc identity.Provider, tabs tabRegistry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || tabs == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "identity service unavailable"))
			return
		}

		var body identity.SignupRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		grant, err := svc.Signup(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := openTab(r.Context(), svc, tabs, grant, logg); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set(tokenHeader, grant.AccessToken)
		responses.WriteSuccessStatus(w, http.StatusCreated, grant)
	}
}

// AuthLogin wires the login endpoint into the HTTP layer.
func AuthLogin(svc identity.Provider, tabs tabRegistry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || tabs == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "identity service unavailable"))
			return
		}

		var body identity.LoginRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		grant, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := openTab(r.Context(), svc, tabs, grant, logg); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set(tokenHeader, grant.AccessToken)
		responses.WriteSuccess(w, grant)
	}
}

// AuthLogout revokes the session tied to the presented access token and
// closes its tab. The user's cart slot is kept.
func AuthLogout(svc identity.Provider, tabs tabRegistry, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "identity service unavailable"))
			return
		}

		claims, err := expiredClaims(r, cfg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Logout(r.Context(), claims.ID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if tabs != nil {
			tabs.Close(r.Context(), claims.ID)
		}

		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// AuthRefresh rotates the refresh token and moves the tab to the new access id.
func AuthRefresh(svc identity.Provider, tabs tabRegistry, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || tabs == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "identity service unavailable"))
			return
		}

		var body refreshRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		claims, err := expiredClaims(r, cfg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		grant, err := svc.Refresh(r.Context(), identity.RefreshRequest{
			AccessID:     claims.ID,
			RefreshToken: body.RefreshToken,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tabs.Close(r.Context(), claims.ID)
		if _, err := tabs.Open(r.Context(), grant.AccessID, grant.Session); err != nil && logg != nil {
			// the next authenticated request restores the tab
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "auth.refresh_tab_deferred")
		}

		w.Header().Set(tokenHeader, grant.AccessToken)
		responses.WriteSuccess(w, grant)
	}
}

func expiredClaims(r *http.Request, cfg config.JWTConfig) (*pkgAuth.AccessTokenClaims, error) {
	token, err := validators.BearerToken(r)
	if err != nil {
		return nil, err
	}
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	return claims, nil
}

// openTab signs a fresh tab in. The session is revoked when the cart cannot
// be loaded so no half-open login survives.
func openTab(ctx context.Context, svc identity.Provider, tabs tabRegistry, grant *identity.Grant, logg *logger.Logger) error {
	if _, err := tabs.Open(ctx, grant.AccessID, grant.Session); err != nil {
		if revokeErr := svc.Logout(ctx, grant.AccessID); revokeErr != nil && logg != nil {
			logg.Error(ctx, "auth.revoke_failed", revokeErr)
		}
		return err
	}
	return nil
}
