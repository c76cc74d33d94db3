package controllers

import (
	"net/http"

	"github.com/eshop/storefront/api/responses"
	"github.com/eshop/storefront/internal/identity"
	"github.com/eshop/storefront/internal/orders"
	pkgerrors "github.com/eshop/storefront/pkg/errors"
	"github.com/eshop/storefront/pkg/logger"
)

type profileResponse struct {
	User         identity.Session  `json:"user"`
	RecentOrders []orders.OrderDTO `json:"recent_orders"`
	CartItems    int               `json:"cart_items"`
}

// Profile shows the signed-in identity, the latest orders, and the cart badge.
func Profile(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		tab, err := currentTab(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := tab.Session()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recent, err := svc.Recent(r.Context(), session.UserID, orders.RecentLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if recent == nil {
			recent = []orders.OrderDTO{}
		}

		responses.WriteSuccess(w, profileResponse{
			User:         session,
			RecentOrders: recent,
			CartItems:    tab.Cart.ItemCount(),
		})
	}
}
