package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/eshop/storefront/api/responses"
	"github.com/eshop/storefront/api/validators"
	"github.com/eshop/storefront/internal/cart"
	"github.com/eshop/storefront/internal/catalog"
	"github.com/eshop/storefront/internal/storefront"
	pkgerrors "github.com/eshop/storefront/pkg/errors"
	"github.com/eshop/storefront/pkg/logger"
)

type addItemRequest struct {
	ProductID string `json:"product_id" validate:"required,max=128"`
	Quantity  int    `json:"quantity" validate:"omitempty,max=99"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type cartResponse struct {
	Lines     []cart.Line     `json:"lines"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
	Notice    *cart.Notice    `json:"notice,omitempty"`
}

func cartSnapshot(tab *storefront.Tab) cartResponse {
	lines := tab.Cart.Lines()
	if lines == nil {
		lines = []cart.Line{}
	}
	resp := cartResponse{
		Lines:     lines,
		ItemCount: tab.Cart.ItemCount(),
		Total:     tab.Cart.Total(),
	}
	if notice, ok := tab.Cart.Notice(); ok {
		resp.Notice = &notice
	}
	return resp
}

func CartFetch(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tab, err := currentTab(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartSnapshot(tab))
	}
}

// CartAddItem looks the product up in the catalog and adds it to the cart.
func CartAddItem(products catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if products == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		tab, err := currentTab(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body addItemRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := products.Get(r.Context(), body.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := tab.Cart.Add(r.Context(), *product, body.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, cartSnapshot(tab))
	}
}

// CartUpdateItem sets a line's quantity; zero or less removes the line.
func CartUpdateItem(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tab, err := currentTab(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateItemRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := tab.Cart.UpdateQuantity(r.Context(), chi.URLParam(r, "productId"), *body.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartSnapshot(tab))
	}
}

func CartRemoveItem(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tab, err := currentTab(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := tab.Cart.Remove(r.Context(), chi.URLParam(r, "productId")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartSnapshot(tab))
	}
}

func CartClear(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tab, err := currentTab(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := tab.Cart.Clear(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartSnapshot(tab))
	}
}
