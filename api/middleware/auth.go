package middleware

import (
	"context"
	"net/http"

	"github.com/eshop/storefront/api/responses"
	"github.com/eshop/storefront/api/validators"
	"github.com/eshop/storefront/internal/storefront"
	pkgAuth "github.com/eshop/storefront/pkg/auth"
	"github.com/eshop/storefront/pkg/auth/session"
	"github.com/eshop/storefront/pkg/config"
	pkgerrors "github.com/eshop/storefront/pkg/errors"
	"github.com/eshop/storefront/pkg/logger"
	"github.com/google/uuid"
)

// TabResolver finds the tab behind a session, restoring it when needed.
type TabResolver interface {
	Resolve(ctx context.Context, accessID string, userID uuid.UUID, restorer storefront.Restorer) (*storefront.Tab, error)
	Close(ctx context.Context, accessID string)
}

// Auth validates a bearer token, checks the session is still live, and seeds
// the request context with the claims and the session's tab.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, tabs TabResolver, restorer storefront.Restorer, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := validators.BearerToken(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			if claims.ID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
				return
			}

			if verifier != nil {
				ok, err := verifier.HasSession(r.Context(), claims.ID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Remote(err, "validate session"))
					return
				}
				if !ok {
					if tabs != nil {
						tabs.Close(r.Context(), claims.ID)
					}
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
					return
				}
			}

			ctx := WithActor(r.Context(), claims.UserID.String(), string(claims.Role))
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    claims.UserID.String(),
					"actor_role": string(claims.Role),
				})
				ctx = logg.WithTabID(ctx, claims.ID)
			}

			var tab *storefront.Tab
			if tabs != nil {
				tab, err = tabs.Resolve(ctx, claims.ID, claims.UserID, restorer)
				if err != nil {
					responses.WriteError(ctx, logg, w, err)
					return
				}
			}
			ctx = WithTab(ctx, claims.ID, tab)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
