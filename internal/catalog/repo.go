package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/eshop/storefront/internal/repo"
)

// Repository reads the products collection.
type Repository interface {
	List(ctx context.Context) ([]ProductDocument, error)
	FindByID(ctx context.Context, id string) (*ProductDocument, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) List(ctx context.Context) ([]ProductDocument, error) {
	var docs []ProductDocument
	err := r.DB(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Find(&docs).Error
	return docs, err
}

func (r *repository) FindByID(ctx context.Context, id string) (*ProductDocument, error) {
	var doc ProductDocument
	if err := r.FindOne(ctx, &doc, "id = ?", id); err != nil {
		return nil, err
	}
	return &doc, nil
}
