package storefront

import (
	"context"
	"sync"

	"github.com/eshop/storefront/internal/cart"
	"github.com/eshop/storefront/internal/checkout"
	"github.com/eshop/storefront/internal/identity"
	"github.com/eshop/storefront/internal/orders"
	"github.com/eshop/storefront/pkg/enums"
	pkgerrors "github.com/eshop/storefront/pkg/errors"
	"github.com/eshop/storefront/pkg/logger"
	"github.com/eshop/storefront/pkg/payment"
)

// SubmitResult is either a placed order or a payment waiting on the widget.
type SubmitResult struct {
	Order   *orders.OrderDTO       `json:"order,omitempty"`
	Payment *payment.WidgetSession `json:"payment,omitempty"`
}

type submitOutcome struct {
	order *orders.OrderDTO
	err   error
}

// Tab is the state one signed-in session owns: identity, cart, and checkout.
type Tab struct {
	ID       string
	Identity *identity.Holder
	Cart     *cart.Store
	Checkout *checkout.Workflow
	Widget   *payment.HostedWidget

	logg *logger.Logger

	mu       sync.Mutex
	inflight chan submitOutcome
	cancel   context.CancelFunc
}

// Session returns the tab's identity or a guard error.
func (t *Tab) Session() (identity.Session, error) {
	return t.Identity.Require()
}

// Submit places the order. Cash on delivery completes inline. Online
// payments return as soon as the widget session is ready; the order is
// written once ResolvePayment delivers a verified callback.
func (t *Tab) Submit(ctx context.Context) (SubmitResult, error) {
	if t.Checkout.State().Form.PaymentMode != enums.PaymentModeOnline {
		order, err := t.Checkout.Submit(ctx)
		if err != nil {
			return SubmitResult{}, err
		}
		return SubmitResult{Order: order}, nil
	}

	t.mu.Lock()
	if t.inflight != nil && !t.drainLocked() {
		t.mu.Unlock()
		return SubmitResult{}, pkgerrors.New(pkgerrors.CodeStateConflict, "payment in progress")
	}
	payCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan submitOutcome, 1)
	t.inflight = done
	t.cancel = cancel
	t.mu.Unlock()

	go func() {
		order, err := t.Checkout.Submit(payCtx)
		if err != nil && t.logg != nil {
			logCtx := t.logg.WithField(t.logg.WithTabID(payCtx, t.ID), "error", err.Error())
			t.logg.Warn(logCtx, "checkout.online_submit_failed")
		}
		done <- submitOutcome{order: order, err: err}
	}()

	select {
	case session := <-t.Widget.Opened():
		return SubmitResult{Payment: &session}, nil
	case out := <-done:
		t.clearInflight(done)
		if out.err != nil {
			return SubmitResult{}, out.err
		}
		return SubmitResult{Order: out.order}, nil
	}
}

// ResolvePayment hands the widget callback to the waiting submission and
// returns its final result.
func (t *Tab) ResolvePayment(ctx context.Context, cb payment.Callback) (SubmitResult, error) {
	t.mu.Lock()
	done := t.inflight
	t.mu.Unlock()
	if done == nil {
		return SubmitResult{}, pkgerrors.New(pkgerrors.CodeStateConflict, "no payment awaiting a callback")
	}

	if err := t.Widget.Resolve(cb); err != nil {
		return SubmitResult{}, err
	}

	select {
	case out := <-done:
		t.clearInflight(done)
		if out.err != nil {
			return SubmitResult{}, out.err
		}
		return SubmitResult{Order: out.order}, nil
	case <-ctx.Done():
		return SubmitResult{}, ctx.Err()
	}
}

// close abandons any in-flight payment and signs the tab out.
func (t *Tab) close() {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	t.mu.Unlock()
	t.Identity.Logout()
}

// drainLocked drops a finished submission nobody collected, e.g. when the
// callback request went away before the order was written.
func (t *Tab) drainLocked() bool {
	select {
	case <-t.inflight:
		t.inflight = nil
		if t.cancel != nil {
			t.cancel()
			t.cancel = nil
		}
		return true
	default:
		return false
	}
}

func (t *Tab) clearInflight(done chan submitOutcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inflight == done {
		t.inflight = nil
		if t.cancel != nil {
			t.cancel()
			t.cancel = nil
		}
	}
}
