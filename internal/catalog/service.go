package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/eshop/storefront/pkg/db"
	pkgerrors "github.com/eshop/storefront/pkg/errors"
	"github.com/eshop/storefront/pkg/logger"
	"github.com/eshop/storefront/pkg/search"
)

// Filter narrows a catalog listing. Category and Search compose with AND.
type Filter struct {
	Category string
	Search   string
}

// Section groups products sharing a category, in first-seen order.
type Section struct {
	Category string    `json:"category"`
	Products []Product `json:"products"`
}

// Service exposes read access to the product catalog.
type Service interface {
	List(ctx context.Context, filter Filter) ([]Product, error)
	Sections(ctx context.Context, filter Filter) ([]Section, error)
	Get(ctx context.Context, id string) (*Product, error)
	Categories(ctx context.Context) ([]string, error)
	Featured(ctx context.Context, n int) ([]Product, error)
}

type ServiceParams struct {
	Repo    Repository
	Matcher search.Matcher
	Logger  *logger.Logger
}

type service struct {
	repo    Repository
	matcher search.Matcher
	logg    *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{
		repo:    params.Repo,
		matcher: params.Matcher,
		logg:    params.Logger,
	}, nil
}

func (s *service) List(ctx context.Context, filter Filter) ([]Product, error) {
	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	category := strings.TrimSpace(filter.Category)
	out := make([]Product, 0, len(all))
	for _, p := range all {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		if !s.matcher.Matches(filter.Search, p.SearchFields()...) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Sections lists matching products grouped by category. Uncategorized
// products come last under an empty category.
func (s *service) Sections(ctx context.Context, filter Filter) ([]Section, error) {
	products, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	index := map[string]int{}
	var sections []Section
	var uncategorized []Product
	for _, p := range products {
		if p.Category == "" {
			uncategorized = append(uncategorized, p)
			continue
		}
		i, ok := index[p.Category]
		if !ok {
			i = len(sections)
			index[p.Category] = i
			sections = append(sections, Section{Category: p.Category})
		}
		sections[i].Products = append(sections[i].Products, p)
	}
	if len(uncategorized) > 0 {
		sections = append(sections, Section{Products: uncategorized})
	}
	return sections, nil
}

func (s *service) Get(ctx context.Context, id string) (*Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Remote(err, "load product")
	}
	p := s.normalize(ctx, *doc)
	return &p, nil
}

func (s *service) Categories(ctx context.Context) ([]string, error) {
	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var out []string
	for _, p := range all {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out, nil
}

func (s *service) Featured(ctx context.Context, n int) ([]Product, error) {
	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all, nil
}

func (s *service) load(ctx context.Context) ([]Product, error) {
	docs, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Remote(err, "load products")
	}
	out := make([]Product, 0, len(docs))
	for _, doc := range docs {
		out = append(out, s.normalize(ctx, doc))
	}
	return out, nil
}

func (s *service) normalize(ctx context.Context, doc ProductDocument) Product {
	if doc.Price.IsNegative() && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"product_id": doc.ID, "price": doc.Price.String()})
		s.logg.Warn(logCtx, "catalog.negative_price_clamped")
	}
	return Normalize(doc)
}
