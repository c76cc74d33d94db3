package models

import (
	"time"

	"github.com/eshop/storefront/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLine is the frozen copy of a cart line kept on the order.
type OrderLine struct {
	ProductID string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
}

// Order is one submitted checkout. Only Status changes after creation.
type Order struct {
	ID             uuid.UUID           `gorm:"type:text;primaryKey"`
	UserID         uuid.UUID           `gorm:"column:user_id;type:text;not null"`
	FullName       string              `gorm:"column:full_name;not null"`
	Phone          string              `gorm:"column:phone;not null"`
	Email          string              `gorm:"column:email;not null"`
	Pincode        string              `gorm:"column:pincode;not null"`
	Address        string              `gorm:"column:address;not null"`
	PaymentMode    enums.PaymentMode   `gorm:"column:payment_mode;type:text;not null"`
	OnlineMethod   *enums.OnlineMethod `gorm:"column:online_method;type:text"`
	PaymentDetails *string             `gorm:"column:payment_details"`
	PaymentOrderID *string             `gorm:"column:payment_order_id"`
	PaymentID      *string             `gorm:"column:payment_id"`
	Status         enums.OrderStatus   `gorm:"column:status;type:text;not null;default:Pending"`
	Lines          []OrderLine         `gorm:"column:lines;type:text;serializer:json;not null"`
	ItemCount      int                 `gorm:"column:item_count;not null"`
	Total          decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
