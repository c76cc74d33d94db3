package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/eshop/storefront/pkg/errors"
	"github.com/eshop/storefront/pkg/search"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT,
  title TEXT,
  price NUMERIC(12,2) NOT NULL DEFAULT 0,
  image TEXT,
  category TEXT,
  description TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(products).Error)
	return db
}

func strPtr(v string) *string { return &v }

func seedProducts(t *testing.T, db *gorm.DB) {
	t.Helper()
	docs := []ProductDocument{
		{ID: "p1", Name: strPtr("Smart Phone"), Price: decimal.RequireFromString("299.99"), Category: strPtr("Electronics"), Description: strPtr("A fast phone")},
		{ID: "p2", Title: strPtr("Cotton Kurta"), Price: decimal.NewFromInt(25), Category: strPtr("Clothing")},
		{ID: "p3", Name: strPtr("Phone Case"), Price: decimal.NewFromInt(9), Category: strPtr("electronics"), Image: strPtr("/img/case.png")},
		{ID: "p4", Price: decimal.NewFromInt(-5)},
	}
	for _, doc := range docs {
		require.NoError(t, db.Create(&doc).Error)
	}
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Repo: repo, Matcher: search.NewMatcher(nil)})
	require.NoError(t, err)
	return svc
}

func TestNormalizeFallbacks(t *testing.T) {
	p := Normalize(ProductDocument{ID: "x", Title: strPtr(" Lamp "), Price: decimal.NewFromInt(-1)})
	assert.Equal(t, "Lamp", p.Name)
	assert.Equal(t, PlaceholderImage, p.Image)
	assert.True(t, p.Price.IsZero())
	assert.Empty(t, p.Category)

	untitled := Normalize(ProductDocument{ID: "y"})
	assert.Equal(t, UntitledProduct, untitled.Name)

	named := Normalize(ProductDocument{ID: "z", Name: strPtr("Desk"), Title: strPtr("Office Desk")})
	assert.Equal(t, "Desk", named.Name)
	assert.Equal(t, "Office Desk", named.Title)
}

func TestServiceListFilters(t *testing.T) {
	db := setupCatalogTestDB(t)
	seedProducts(t, db)
	svc := newTestService(t, NewRepository(db))
	ctx := context.Background()

	all, err := svc.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	byCategory, err := svc.List(ctx, Filter{Category: "ELECTRONICS"})
	require.NoError(t, err)
	require.Len(t, byCategory, 2)
	assert.Equal(t, "p1", byCategory[0].ID)
	assert.Equal(t, "p3", byCategory[1].ID)

	fuzzy, err := svc.List(ctx, Filter{Search: "phonee"})
	require.NoError(t, err)
	assert.Len(t, fuzzy, 2)

	combined, err := svc.List(ctx, Filter{Category: "clothing", Search: "phone"})
	require.NoError(t, err)
	assert.Empty(t, combined)

	none, err := svc.List(ctx, Filter{Search: "xyz"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestServiceGet(t *testing.T) {
	db := setupCatalogTestDB(t)
	seedProducts(t, db)
	svc := newTestService(t, NewRepository(db))

	p, err := svc.Get(context.Background(), "p2")
	require.NoError(t, err)
	assert.Equal(t, "Cotton Kurta", p.Name)
	assert.Equal(t, "25", p.Price.String())

	_, err = svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Get(context.Background(), " ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestServiceCategoriesAndSections(t *testing.T) {
	db := setupCatalogTestDB(t)
	seedProducts(t, db)
	svc := newTestService(t, NewRepository(db))
	ctx := context.Background()

	categories, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Electronics", "Clothing", "electronics"}, categories)

	sections, err := svc.Sections(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, sections, 4)
	assert.Equal(t, "Electronics", sections[0].Category)
	assert.Equal(t, "", sections[3].Category)
	assert.Equal(t, "p4", sections[3].Products[0].ID)

	featured, err := svc.Featured(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, featured, 2)
}

type failingRepo struct{}

func (failingRepo) List(context.Context) ([]ProductDocument, error) {
	return nil, errors.New("connection refused")
}

func (failingRepo) FindByID(context.Context, string) (*ProductDocument, error) {
	return nil, errors.New("connection refused")
}

func TestServiceStoreErrorsAreDependencyErrors(t *testing.T) {
	svc := newTestService(t, failingRepo{})

	_, err := svc.List(context.Background(), Filter{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	_, err = svc.Get(context.Background(), "p1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestNewServiceRequiresRepo(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}
