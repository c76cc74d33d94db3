package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/eshop/storefront/pkg/config"
	"github.com/eshop/storefront/pkg/logger"
	"github.com/eshop/storefront/pkg/metrics"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	createOrderPath   = "/api/payment/create-order"
	verifyPaymentPath = "/api/payment/verify-payment"
)

var errBaseURLRequired = errors.New("payment base url is required")

// Order is the payment intent created by the backend for the hosted widget.
type Order struct {
	ID       string          `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// Verification is the widget callback forwarded to the backend for a
// signature check.
type Verification struct {
	PaymentID string `json:"razorpay_payment_id"`
	OrderID   string `json:"razorpay_order_id"`
	Signature string `json:"razorpay_signature"`
}

// Backend creates and verifies hosted payment orders.
type Backend interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal) (*Order, error)
	VerifyPayment(ctx context.Context, v Verification) (bool, error)
}

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Call       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("payment %s: unexpected status %d: %s", e.Call, e.StatusCode, e.Body)
}

// Client talks to the payment backend over instrumented HTTP.
type Client struct {
	baseURL  string
	http     *http.Client
	currency string
	keyID    string
	metrics  *metrics.Storefront
}

// NewClient builds a payment backend client from config.
func NewClient(ctx context.Context, cfg config.PaymentConfig, m *metrics.Storefront, logg *logger.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("payment client initialized (%s)", baseURL))
	}

	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		currency: cfg.Currency,
		keyID:    cfg.KeyID,
		metrics:  m,
	}, nil
}

// KeyID is the public key the hosted widget is opened with.
func (c *Client) KeyID() string { return c.keyID }

// Currency is the configured fallback currency.
func (c *Client) Currency() string { return c.currency }

type createOrderRequest struct {
	Amount json.Number `json:"amount"`
}

func (c *Client) CreateOrder(ctx context.Context, amount decimal.Decimal) (*Order, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("payment amount must be positive, got %s", amount)
	}
	var order Order
	if err := c.post(ctx, "create_order", createOrderPath, createOrderRequest{Amount: json.Number(amount.String())}, &order); err != nil {
		return nil, err
	}
	if strings.TrimSpace(order.ID) == "" {
		return nil, fmt.Errorf("payment create_order: response missing id")
	}
	if order.Currency == "" {
		order.Currency = c.currency
	}
	return &order, nil
}

type verifyResponse struct {
	Success bool `json:"success"`
}

func (c *Client) VerifyPayment(ctx context.Context, v Verification) (bool, error) {
	var resp verifyResponse
	if err := c.post(ctx, "verify_payment", verifyPaymentPath, v, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

func (c *Client) post(ctx context.Context, call, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("payment %s: encode request: %w", call, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("payment %s: build request: %w", call, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	c.metrics.ObservePaymentCall(call, time.Since(start))
	if err != nil {
		return fmt.Errorf("payment %s: %w", call, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Call: call, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("payment %s: decode response: %w", call, err)
	}
	return nil
}
