package payment

import (
	"context"
	"strings"
	"sync"

	"github.com/eshop/storefront/pkg/enums"
	pkgerrors "github.com/eshop/storefront/pkg/errors"
)

// WidgetSession is what the browser needs to open the hosted widget.
type WidgetSession struct {
	KeyID       string `json:"key_id"`
	OrderID     string `json:"order_id"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PrefillName string `json:"prefill_name,omitempty"`
	PrefillMail string `json:"prefill_email,omitempty"`
	PrefillTel  string `json:"prefill_contact,omitempty"`
}

// Callback is the widget's answer. Signature fields are only set on success.
type Callback struct {
	Outcome   enums.PaymentOutcome `json:"status"`
	OrderID   string               `json:"razorpay_order_id"`
	PaymentID string               `json:"razorpay_payment_id"`
	Signature string               `json:"razorpay_signature"`
}

// Verification maps a successful callback onto the backend verify request.
func (c Callback) Verification() Verification {
	return Verification{PaymentID: c.PaymentID, OrderID: c.OrderID, Signature: c.Signature}
}

// Widget opens the hosted payment UI and waits for its result.
type Widget interface {
	Open(ctx context.Context, session WidgetSession) (Callback, error)
}

type pending struct {
	session WidgetSession
	result  chan Callback
}

// HostedWidget hands the widget session to the browser and parks the caller
// until the browser posts the callback back through Resolve. There is no
// timeout; the caller's context is the only way out.
type HostedWidget struct {
	mu      sync.Mutex
	current *pending
	opened  chan WidgetSession
}

func NewHostedWidget() *HostedWidget {
	return &HostedWidget{opened: make(chan WidgetSession, 1)}
}

// Opened delivers each session as soon as Open publishes it.
func (w *HostedWidget) Opened() <-chan WidgetSession {
	return w.opened
}

func (w *HostedWidget) Open(ctx context.Context, session WidgetSession) (Callback, error) {
	p := &pending{session: session, result: make(chan Callback, 1)}

	w.mu.Lock()
	if w.current != nil {
		w.mu.Unlock()
		return Callback{}, pkgerrors.New(pkgerrors.CodeStateConflict, "a payment is already in progress")
	}
	w.current = p
	w.mu.Unlock()

	select {
	case w.opened <- session:
	default:
	}

	select {
	case cb := <-p.result:
		return cb, nil
	case <-ctx.Done():
		w.mu.Lock()
		if w.current == p {
			w.current = nil
		}
		w.mu.Unlock()
		return Callback{}, ctx.Err()
	}
}

// Pending returns the session awaiting a callback, if any.
func (w *HostedWidget) Pending() (WidgetSession, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return WidgetSession{}, false
	}
	return w.current.session, true
}

// Resolve delivers the browser callback to the waiting Open call.
func (w *HostedWidget) Resolve(cb Callback) error {
	if !cb.Outcome.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "no payment awaiting a callback")
	}
	orderID := strings.TrimSpace(cb.OrderID)
	if orderID == "" {
		cb.OrderID = w.current.session.OrderID
	} else if orderID != w.current.session.OrderID {
		return pkgerrors.New(pkgerrors.CodeValidation, "callback does not match the open payment")
	}
	w.current.result <- cb
	w.current = nil
	return nil
}
