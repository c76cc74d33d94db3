package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eshop/storefront/api/responses"
	"github.com/eshop/storefront/pkg/config"
	pkgerrors "github.com/eshop/storefront/pkg/errors"
	"github.com/eshop/storefront/pkg/logger"
)

type contactInfo struct {
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

type pageResponse struct {
	Slug    string       `json:"slug"`
	Title   string       `json:"title"`
	Body    string       `json:"body"`
	Contact *contactInfo `json:"contact,omitempty"`
}

func buildPage(app config.AppConfig, slug string) (pageResponse, bool) {
	switch slug {
	case "about":
		return pageResponse{
			Slug:  slug,
			Title: "About Us",
			Body: fmt.Sprintf("Welcome to %s! We provide high-quality gadgets like headphones, smartwatches, "+
				"speakers and computer accessories at the best prices. Our goal is to make technology "+
				"accessible and affordable for everyone.", app.StoreName),
		}, true
	case "contact":
		return pageResponse{
			Slug:  slug,
			Title: "Contact Us",
			Body:  "Have questions or need help? Reach out to us:",
			Contact: &contactInfo{
				Email:   app.ContactEmail,
				Phone:   app.ContactPhone,
				Address: app.ContactAddress,
			},
		}, true
	case "blogs":
		return pageResponse{
			Slug:  slug,
			Title: "Our Blogs",
			Body: "Stay tuned for the latest tech trends, product reviews and buying guides. " +
				"Here we share tips to help you make better choices in the world of electronics.",
		}, true
	}
	return pageResponse{}, false
}

// PublicPage serves the static informational pages.
func PublicPage(cfg config.AppConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "slug")))
		page, ok := buildPage(cfg, slug)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "page not found"))
			return
		}
		responses.WriteSuccess(w, page)
	}
}
