package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eshop/storefront/api/responses"
	"github.com/eshop/storefront/api/validators"
	"github.com/eshop/storefront/internal/catalog"
	pkgerrors "github.com/eshop/storefront/pkg/errors"
	"github.com/eshop/storefront/pkg/logger"
)

const (
	maxSearchLen     = 120
	maxCategoryLen   = 64
	defaultFeatured  = 8
	maxFeaturedLimit = 24
)

type productListResponse struct {
	Products []catalog.Product `json:"products"`
}

type sectionListResponse struct {
	Sections []catalog.Section `json:"sections"`
}

// ProductList serves the catalog, flat or grouped by category with ?group=true.
func ProductList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		filter := catalog.Filter{
			Search:   validators.ParseQueryString(r, "search", maxSearchLen),
			Category: validators.ParseQueryString(r, "category", maxCategoryLen),
		}

		if strings.EqualFold(r.URL.Query().Get("group"), "true") {
			sections, err := svc.Sections(r.Context(), filter)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if sections == nil {
				sections = []catalog.Section{}
			}
			responses.WriteSuccess(w, sectionListResponse{Sections: sections})
			return
		}

		products, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if products == nil {
			products = []catalog.Product{}
		}
		responses.WriteSuccess(w, productListResponse{Products: products})
	}
}

func ProductCategories(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		categories, err := svc.Categories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"categories": categories})
	}
}

// ProductFeatured returns the first products of the catalog for the home view.
func ProductFeatured(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultFeatured, 1, maxFeaturedLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		products, err := svc.Featured(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, productListResponse{Products: products})
	}
}

func ProductDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		product, err := svc.Get(r.Context(), chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail := *product
		if detail.Description == "" {
			detail.Description = catalog.NoDescription
		}
		responses.WriteSuccess(w, detail)
	}
}
