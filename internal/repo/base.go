package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base carries the gorm handle shared by read-side repositories.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection bound to ctx when one is supplied.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// FindOne loads the first row matching query into dest. gorm.ErrRecordNotFound
// is returned untouched so callers can map it.
func (b Base) FindOne(ctx context.Context, dest any, query string, args ...any) error {
	return b.DB(ctx).Where(query, args...).First(dest).Error
}
