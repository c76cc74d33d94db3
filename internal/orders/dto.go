package orders

import (
	"time"

	"github.com/eshop/storefront/pkg/db/models"
	"github.com/eshop/storefront/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Shipping is the address part of the checkout form.
type Shipping struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Pincode  string `json:"pincode"`
	Address  string `json:"address"`
}

// Payment describes how an order was paid for.
type Payment struct {
	Mode         enums.PaymentMode   `json:"payment_mode"`
	OnlineMethod *enums.OnlineMethod `json:"online_method,omitempty"`
	Details      *string             `json:"payment_details,omitempty"`
	OrderID      *string             `json:"payment_order_id,omitempty"`
	PaymentID    *string             `json:"payment_id,omitempty"`
}

// PlaceInput is everything needed to write one order.
type PlaceInput struct {
	UserID   uuid.UUID
	Shipping Shipping
	Payment  Payment
	Lines    []models.OrderLine
}

// OrderDTO is the order shape returned to clients.
type OrderDTO struct {
	ID        uuid.UUID          `json:"id"`
	UserID    uuid.UUID          `json:"user_id"`
	Shipping  Shipping           `json:"shipping"`
	Payment   Payment            `json:"payment"`
	Status    enums.OrderStatus  `json:"status"`
	Lines     []models.OrderLine `json:"lines"`
	ItemCount int                `json:"item_count"`
	Total     decimal.Decimal    `json:"total"`
	CreatedAt time.Time          `json:"created_at"`
}

func FromModel(o *models.Order) OrderDTO {
	lines := o.Lines
	if lines == nil {
		lines = []models.OrderLine{}
	}
	return OrderDTO{
		ID:     o.ID,
		UserID: o.UserID,
		Shipping: Shipping{
			FullName: o.FullName,
			Phone:    o.Phone,
			Email:    o.Email,
			Pincode:  o.Pincode,
			Address:  o.Address,
		},
		Payment: Payment{
			Mode:         o.PaymentMode,
			OnlineMethod: o.OnlineMethod,
			Details:      o.PaymentDetails,
			OrderID:      o.PaymentOrderID,
			PaymentID:    o.PaymentID,
		},
		Status:    o.Status,
		Lines:     lines,
		ItemCount: o.ItemCount,
		Total:     o.Total,
		CreatedAt: o.CreatedAt,
	}
}

func fromModels(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}
