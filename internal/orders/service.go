package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/eshop/storefront/pkg/db"
	"github.com/eshop/storefront/pkg/db/models"
	"github.com/eshop/storefront/pkg/enums"
	pkgerrors "github.com/eshop/storefront/pkg/errors"
	"github.com/eshop/storefront/pkg/logger"
	"github.com/eshop/storefront/pkg/metrics"
	"github.com/eshop/storefront/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecentLimit is how many orders the profile view shows.
const RecentLimit = 5

// Service covers order placement, history, and cancellation.
type Service interface {
	Place(ctx context.Context, input PlaceInput) (*OrderDTO, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error)
	Recent(ctx context.Context, userID uuid.UUID, n int) ([]OrderDTO, error)
	ListAll(ctx context.Context, params pagination.Params) (pagination.Page[OrderDTO], error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
}

type ServiceParams struct {
	Repo    Repository
	Metrics *metrics.Storefront
	Logger  *logger.Logger
	Clock   func() time.Time
}

type service struct {
	repo    Repository
	metrics *metrics.Storefront
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:    params.Repo,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     clock,
	}, nil
}

func (s *service) Place(ctx context.Context, input PlaceInput) (*OrderDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Please login first!")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if strings.TrimSpace(input.Shipping.Address) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address is required")
	}
	if !input.Payment.Mode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment mode is required")
	}

	lines := make([]models.OrderLine, len(input.Lines))
	copy(lines, input.Lines)
	total := decimal.Zero
	count := 0
	for _, l := range lines {
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
		count += l.Quantity
	}

	now := s.now().UTC()
	order := &models.Order{
		ID:             uuid.New(),
		UserID:         input.UserID,
		FullName:       strings.TrimSpace(input.Shipping.FullName),
		Phone:          strings.TrimSpace(input.Shipping.Phone),
		Email:          strings.TrimSpace(input.Shipping.Email),
		Pincode:        strings.TrimSpace(input.Shipping.Pincode),
		Address:        strings.TrimSpace(input.Shipping.Address),
		PaymentMode:    input.Payment.Mode,
		OnlineMethod:   input.Payment.OnlineMethod,
		PaymentDetails: input.Payment.Details,
		PaymentOrderID: input.Payment.OrderID,
		PaymentID:      input.Payment.PaymentID,
		Status:         enums.OrderStatusPending,
		Lines:          lines,
		ItemCount:      count,
		Total:          total,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	created, err := s.repo.Create(ctx, order)
	if err != nil {
		s.logError(ctx, "orders.place_failed", err)
		return nil, pkgerrors.Remote(err, "save order")
	}
	s.metrics.IncOrderPlaced(string(created.PaymentMode))

	dto := FromModel(created)
	return &dto, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error) {
	return s.listForUser(ctx, userID, 0)
}

func (s *service) Recent(ctx context.Context, userID uuid.UUID, n int) ([]OrderDTO, error) {
	if n <= 0 {
		n = RecentLimit
	}
	return s.listForUser(ctx, userID, n)
}

func (s *service) listForUser(ctx context.Context, userID uuid.UUID, limit int) ([]OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Please login first!")
	}
	rows, err := s.repo.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Remote(err, "list orders")
	}
	return fromModels(rows), nil
}

func (s *service) ListAll(ctx context.Context, params pagination.Params) (pagination.Page[OrderDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListAll(ctx, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Remote(err, "list orders")
	}
	return pagination.BuildPage(fromModels(rows), params.Limit, func(o OrderDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	}), nil
}

// Cancel moves the caller's own Pending order to Cancelled.
func (s *service) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Remote(err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is %s", order.Status))
	}

	affected, err := s.repo.UpdateStatus(ctx, orderID, enums.OrderStatusPending, enums.OrderStatusCancelled)
	if err != nil {
		s.logError(ctx, "orders.cancel_failed", err)
		return nil, pkgerrors.Remote(err, "cancel order")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer pending")
	}

	order.Status = enums.OrderStatusCancelled
	dto := FromModel(order)
	return &dto, nil
}

func (s *service) logError(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Error(ctx, msg, err)
}
