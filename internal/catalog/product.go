package catalog

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// PlaceholderImage is served for products stored without a picture.
	PlaceholderImage = "/static/img/placeholder-product.png"
	// UntitledProduct names documents that carry neither name nor title.
	UntitledProduct = "Untitled product"
	// NoDescription is shown on the detail view when a product has none.
	NoDescription = "No description available."
)

// ProductDocument is a row of the products collection as written by the
// catalog backend. Every descriptive field is optional and either name or
// title may carry the display name.
type ProductDocument struct {
	ID          string          `gorm:"column:id;primaryKey"`
	Name        *string         `gorm:"column:name"`
	Title       *string         `gorm:"column:title"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2)"`
	Image       *string         `gorm:"column:image"`
	Category    *string         `gorm:"column:category"`
	Description *string         `gorm:"column:description"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (ProductDocument) TableName() string { return "products" }

// Product is the one shape the rest of the storefront works against.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Title       string          `json:"title,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category,omitempty"`
	Description string          `json:"description,omitempty"`
}

// SearchFields lists the text the fuzzy matcher looks at.
func (p Product) SearchFields() []string {
	return []string{p.Name, p.Title, p.Description, p.Category}
}

// Normalize maps a raw document onto Product. Missing fields fall back to
// defaults; a negative price is clamped to zero.
func Normalize(doc ProductDocument) Product {
	name := trimmed(doc.Name)
	title := trimmed(doc.Title)
	display := name
	if display == "" {
		display = title
	}
	if display == "" {
		display = UntitledProduct
	}

	image := trimmed(doc.Image)
	if image == "" {
		image = PlaceholderImage
	}

	price := doc.Price
	if price.IsNegative() {
		price = decimal.Zero
	}

	return Product{
		ID:          doc.ID,
		Name:        display,
		Title:       title,
		Price:       price,
		Image:       image,
		Category:    trimmed(doc.Category),
		Description: trimmed(doc.Description),
	}
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
