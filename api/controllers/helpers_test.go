package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eshop/storefront/api/middleware"
	"github.com/eshop/storefront/internal/cart"
	"github.com/eshop/storefront/internal/catalog"
	"github.com/eshop/storefront/internal/identity"
	"github.com/eshop/storefront/internal/orders"
	"github.com/eshop/storefront/internal/storefront"
	"github.com/eshop/storefront/pkg/config"
	"github.com/eshop/storefront/pkg/enums"
	pkgerrors "github.com/eshop/storefront/pkg/errors"
	"github.com/eshop/storefront/pkg/pagination"
)

type memoryCache struct {
	slots map[string][]cart.Line
}

func (m *memoryCache) Load(_ context.Context, userID string) ([]cart.Line, error) {
	return append([]cart.Line(nil), m.slots[userID]...), nil
}

func (m *memoryCache) Save(_ context.Context, userID string, lines []cart.Line) error {
	m.slots[userID] = append([]cart.Line(nil), lines...)
	return nil
}

type stubCatalog struct {
	products   []catalog.Product
	lastFilter catalog.Filter
}

func (s *stubCatalog) List(_ context.Context, filter catalog.Filter) ([]catalog.Product, error) {
	s.lastFilter = filter
	return s.products, nil
}

func (s *stubCatalog) Sections(_ context.Context, filter catalog.Filter) ([]catalog.Section, error) {
	s.lastFilter = filter
	return []catalog.Section{{Category: "Audio", Products: s.products}}, nil
}

func (s *stubCatalog) Get(_ context.Context, id string) (*catalog.Product, error) {
	for _, p := range s.products {
		if p.ID == id {
			product := p
			return &product, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func (s *stubCatalog) Categories(context.Context) ([]string, error) {
	return []string{"Audio"}, nil
}

func (s *stubCatalog) Featured(_ context.Context, n int) ([]catalog.Product, error) {
	if n > len(s.products) {
		n = len(s.products)
	}
	return s.products[:n], nil
}

type stubOrders struct {
	placed     []orders.PlaceInput
	list       []orders.OrderDTO
	cancelErr  error
	pageParams pagination.Params
}

func (s *stubOrders) Place(_ context.Context, in orders.PlaceInput) (*orders.OrderDTO, error) {
	s.placed = append(s.placed, in)
	return &orders.OrderDTO{ID: uuid.New(), UserID: in.UserID, Status: enums.OrderStatusPending, Lines: in.Lines}, nil
}

func (s *stubOrders) ListForUser(context.Context, uuid.UUID) ([]orders.OrderDTO, error) {
	return s.list, nil
}

func (s *stubOrders) Recent(_ context.Context, _ uuid.UUID, n int) ([]orders.OrderDTO, error) {
	if n > len(s.list) {
		n = len(s.list)
	}
	return s.list[:n], nil
}

func (s *stubOrders) ListAll(_ context.Context, params pagination.Params) (pagination.Page[orders.OrderDTO], error) {
	s.pageParams = params
	return pagination.Page[orders.OrderDTO]{Items: s.list}, nil
}

func (s *stubOrders) Cancel(_ context.Context, userID, orderID uuid.UUID) (*orders.OrderDTO, error) {
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	return &orders.OrderDTO{ID: orderID, UserID: userID, Status: enums.OrderStatusCancelled}, nil
}

func sampleProducts() []catalog.Product {
	return []catalog.Product{
		{ID: "p1", Name: "Wireless Headphones", Price: decimal.NewFromInt(1999), Image: "/img/h.png", Category: "Audio"},
		{ID: "p2", Name: "Smart Watch", Price: decimal.NewFromInt(4999), Image: catalog.PlaceholderImage, Category: "Wearables", Description: "Tracks steps"},
	}
}

func newTestTab(t *testing.T, ords *stubOrders) *storefront.Tab {
	t.Helper()
	reg, err := storefront.NewRegistry(storefront.RegistryParams{
		CartCache: &memoryCache{slots: map[string][]cart.Line{}},
		Orders:    ords,
		Checkout:  config.CheckoutConfig{NoticeTTL: 2 * time.Second, RedirectDelay: 2 * time.Second, RedirectTo: "/orders"},
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	tab, err := reg.Open(context.Background(), "access-1", identity.Session{UserID: uuid.New(), Email: "shopper@example.com"})
	if err != nil {
		t.Fatalf("open tab: %v", err)
	}
	return tab
}

// serve runs handler for one request with tab attached and chi params set.
func serve(handler http.Handler, tab *storefront.Tab, method, target, body string, params map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	ctx := req.Context()
	if tab != nil {
		ctx = middleware.WithTab(ctx, tab.ID, tab)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req.WithContext(ctx))
	return resp
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data any `json:"data"`
	}{Data: dest}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func bearerRequest(method, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "/", reader)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func recordHandler(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}
