package controllers

import (
	"context"
	"net/http"

	"github.com/eshop/storefront/api/middleware"
	"github.com/eshop/storefront/internal/identity"
	"github.com/eshop/storefront/internal/storefront"
	pkgerrors "github.com/eshop/storefront/pkg/errors"
)

const tokenHeader = "X-Storefront-Token"

type tabRegistry interface {
	Open(ctx context.Context, accessID string, session identity.Session) (*storefront.Tab, error)
	Close(ctx context.Context, accessID string)
}

func currentTab(r *http.Request) (*storefront.Tab, error) {
	tab := middleware.TabFromContext(r.Context())
	if tab == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
	}
	return tab, nil
}
