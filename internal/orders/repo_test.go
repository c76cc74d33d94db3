package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/eshop/storefront/pkg/db/models"
	"github.com/eshop/storefront/pkg/enums"
	"github.com/eshop/storefront/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  full_name TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  pincode TEXT NOT NULL DEFAULT '',
  address TEXT NOT NULL,
  payment_mode TEXT NOT NULL,
  online_method TEXT,
  payment_details TEXT,
  payment_order_id TEXT,
  payment_id TEXT,
  status TEXT NOT NULL DEFAULT 'Pending',
  lines TEXT NOT NULL,
  item_count INTEGER NOT NULL DEFAULT 0,
  total NUMERIC(12,2) NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	return db
}

func seedOrder(t *testing.T, repo Repository, userID uuid.UUID, createdAt time.Time) *models.Order {
	t.Helper()
	order, err := repo.Create(context.Background(), &models.Order{
		ID:          uuid.New(),
		UserID:      userID,
		Address:     "12 MG Road",
		PaymentMode: enums.PaymentModeCOD,
		Status:      enums.OrderStatusPending,
		Lines: []models.OrderLine{
			{ProductID: "p1", Name: "Phone", Price: decimal.RequireFromString("10.50"), Quantity: 2},
		},
		ItemCount: 2,
		Total:     decimal.NewFromInt(21),
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	})
	require.NoError(t, err)
	return order
}

func TestRepositoryRoundTripsFrozenLines(t *testing.T) {
	repo := NewRepository(setupOrdersTestDB(t))
	created := seedOrder(t, repo, uuid.New(), time.Now().UTC())

	got, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "Phone", got.Lines[0].Name)
	assert.True(t, got.Lines[0].Price.Equal(decimal.RequireFromString("10.5")))
	assert.Equal(t, enums.OrderStatusPending, got.Status)
	assert.Nil(t, got.OnlineMethod)
}

func TestRepositoryListForUserNewestFirst(t *testing.T) {
	repo := NewRepository(setupOrdersTestDB(t))
	user := uuid.New()
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	first := seedOrder(t, repo, user, base)
	second := seedOrder(t, repo, user, base.Add(time.Hour))
	seedOrder(t, repo, uuid.New(), base.Add(2*time.Hour))

	rows, err := repo.ListForUser(context.Background(), user, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, second.ID, rows[0].ID)
	assert.Equal(t, first.ID, rows[1].ID)

	limited, err := repo.ListForUser(context.Background(), user, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRepositoryListAllPaginates(t *testing.T) {
	repo := NewRepository(setupOrdersTestDB(t))
	svc, err := NewService(ServiceParams{Repo: repo})
	require.NoError(t, err)

	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		seedOrder(t, repo, uuid.New(), base.Add(time.Duration(i)*time.Minute))
	}

	page, err := svc.ListAll(context.Background(), pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.NotEmpty(t, page.NextCursor)
	assert.True(t, page.Items[0].CreatedAt.After(page.Items[1].CreatedAt))

	next, err := svc.ListAll(context.Background(), pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Empty(t, next.NextCursor)
	assert.True(t, next.Items[0].CreatedAt.Equal(base))
}

func TestRepositoryUpdateStatusOnlyFromExpected(t *testing.T) {
	repo := NewRepository(setupOrdersTestDB(t))
	order := seedOrder(t, repo, uuid.New(), time.Now().UTC())
	ctx := context.Background()

	n, err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
