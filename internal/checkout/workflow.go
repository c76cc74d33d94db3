package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/eshop/storefront/internal/cart"
	"github.com/eshop/storefront/internal/checkout/helpers"
	"github.com/eshop/storefront/internal/identity"
	"github.com/eshop/storefront/internal/orders"
	"github.com/eshop/storefront/pkg/db/models"
	"github.com/eshop/storefront/pkg/enums"
	pkgerrors "github.com/eshop/storefront/pkg/errors"
	"github.com/eshop/storefront/pkg/logger"
	"github.com/eshop/storefront/pkg/metrics"
	"github.com/eshop/storefront/pkg/payment"
	"github.com/shopspring/decimal"
)

// CartNotClearedWarning is reported when the order was saved but the cart
// slot still holds its lines.
const CartNotClearedWarning = "Your order was placed, but your saved cart could not be cleared."

// Form is the data collected across the address and payment steps.
type Form struct {
	FullName       string             `json:"full_name"`
	Phone          string             `json:"phone"`
	Email          string             `json:"email"`
	Pincode        string             `json:"pincode"`
	Address        string             `json:"address"`
	PaymentMode    enums.PaymentMode  `json:"payment_mode,omitempty"`
	OnlineMethod   enums.OnlineMethod `json:"online_method,omitempty"`
	PaymentDetails string             `json:"payment_details,omitempty"`
}

// AddressInput updates the shipping part of the form.
type AddressInput struct {
	FullName string
	Phone    string
	Email    string
	Pincode  string
	Address  string
}

// PaymentInput updates the payment part of the form.
type PaymentInput struct {
	Mode    enums.PaymentMode
	Method  enums.OnlineMethod
	Details string
}

// State is a snapshot of the workflow for rendering.
type State struct {
	Step       Step                   `json:"step"`
	Form       Form                   `json:"form"`
	Submitting bool                   `json:"submitting"`
	ItemCount  int                    `json:"item_count"`
	Total      decimal.Decimal        `json:"total"`
	Order      *orders.OrderDTO       `json:"order,omitempty"`
	RedirectAt *time.Time             `json:"redirect_at,omitempty"`
	RedirectTo string                 `json:"redirect_to,omitempty"`
	Payment    *payment.WidgetSession `json:"payment,omitempty"`
	Warning    string                 `json:"warning,omitempty"`
}

type identityGuard interface {
	Require() (identity.Session, error)
}

type cartReader interface {
	Lines() []cart.Line
	Hold() error
	Release()
	Settle(ctx context.Context) error
}

type orderPlacer interface {
	Place(ctx context.Context, input orders.PlaceInput) (*orders.OrderDTO, error)
}

type pendingPayments interface {
	Pending() (payment.WidgetSession, bool)
}

type WorkflowParams struct {
	Identity      identityGuard
	Cart          cartReader
	Orders        orderPlacer
	Payments      payment.Backend
	Widget        payment.Widget
	KeyID         string
	StoreName     string
	RedirectDelay time.Duration
	RedirectTo    string
	Clock         func() time.Time
	Metrics       *metrics.Storefront
	Logger        *logger.Logger
}

// Workflow drives one tab's checkout from cart to success.
type Workflow struct {
	mu         sync.Mutex
	step       Step
	form       Form
	submitting bool
	order      *orders.OrderDTO
	redirectAt time.Time
	warning    string

	identity      identityGuard
	cart          cartReader
	orders        orderPlacer
	payments      payment.Backend
	widget        payment.Widget
	keyID         string
	storeName     string
	redirectDelay time.Duration
	redirectTo    string
	clock         func() time.Time
	metrics       *metrics.Storefront
	logg          *logger.Logger
}

func NewWorkflow(params WorkflowParams) (*Workflow, error) {
	if params.Identity == nil {
		return nil, fmt.Errorf("identity holder required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	delay := params.RedirectDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}
	redirectTo := params.RedirectTo
	if redirectTo == "" {
		redirectTo = "/orders"
	}
	storeName := params.StoreName
	if storeName == "" {
		storeName = "Storefront"
	}
	return &Workflow{
		step:          StepCart,
		identity:      params.Identity,
		cart:          params.Cart,
		orders:        params.Orders,
		payments:      params.Payments,
		widget:        params.Widget,
		keyID:         params.KeyID,
		storeName:     storeName,
		redirectDelay: delay,
		redirectTo:    redirectTo,
		clock:         clock,
		metrics:       params.Metrics,
		logg:          params.Logger,
	}, nil
}

// State returns the current snapshot.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.settleLocked()
	return w.stateLocked()
}

// Next moves one step forward. From the payment step it submits the order.
func (w *Workflow) Next(ctx context.Context) (State, error) {
	w.mu.Lock()
	if err := w.readyLocked(); err != nil {
		w.mu.Unlock()
		return State{}, err
	}
	from := w.step
	to, ok := forward[from]
	if !ok {
		w.mu.Unlock()
		return State{}, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout already complete").
			WithDetails(map[string]any{"step": string(from)})
	}
	if to == StepSuccess {
		w.mu.Unlock()
		if _, err := w.Submit(ctx); err != nil {
			return State{}, err
		}
		return w.State(), nil
	}
	defer w.mu.Unlock()

	if err := w.guardLocked(from, to); err != nil {
		return State{}, err
	}
	w.step = to
	return w.stateLocked(), nil
}

// Back moves one step backward where the table allows it.
func (w *Workflow) Back() (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.readyLocked(); err != nil {
		return State{}, err
	}
	to, ok := backward[w.step]
	if !ok || !CanTransition(w.step, to) {
		return State{}, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot go back from %s", w.step)).
			WithDetails(map[string]any{"step": string(w.step)})
	}
	w.step = to
	return w.stateLocked(), nil
}

// SetAddress fills the shipping fields while on the address step.
func (w *Workflow) SetAddress(in AddressInput) (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.readyLocked(); err != nil {
		return State{}, err
	}
	if w.step != StepAddress {
		return State{}, pkgerrors.New(pkgerrors.CodeStateConflict, "address can only be edited on the address step").
			WithDetails(map[string]any{"step": string(w.step)})
	}
	w.form.FullName = strings.TrimSpace(in.FullName)
	w.form.Phone = strings.TrimSpace(in.Phone)
	w.form.Email = strings.TrimSpace(in.Email)
	w.form.Pincode = helpers.NormalizePincode(in.Pincode)
	w.form.Address = strings.TrimSpace(in.Address)
	return w.stateLocked(), nil
}

// SetPayment records the payment choice while on the payment step.
func (w *Workflow) SetPayment(in PaymentInput) (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.readyLocked(); err != nil {
		return State{}, err
	}
	if w.step != StepPayment {
		return State{}, pkgerrors.New(pkgerrors.CodeStateConflict, "payment can only be chosen on the payment step").
			WithDetails(map[string]any{"step": string(w.step)})
	}
	w.form.PaymentMode = in.Mode
	w.form.OnlineMethod = ""
	if in.Mode == enums.PaymentModeOnline {
		w.form.OnlineMethod = in.Method
	}
	w.form.PaymentDetails = strings.TrimSpace(in.Details)
	return w.stateLocked(), nil
}

// Submit places the order from the payment step. Online payments go through
// the hosted widget and are verified before anything is written. On any
// failure the step stays at payment and the cart is untouched.
func (w *Workflow) Submit(ctx context.Context) (*orders.OrderDTO, error) {
	w.mu.Lock()
	if err := w.readyLocked(); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if w.step != StepPayment {
		from := w.step
		w.mu.Unlock()
		return nil, illegalTransition(from, StepSuccess)
	}
	session, _ := w.identity.Require()
	if err := w.guardLocked(StepPayment, StepSuccess); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if err := w.cart.Hold(); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	lines := w.cart.Lines()
	if err := helpers.ValidateCart(cart.ItemCount(lines)); err != nil {
		w.cart.Release()
		w.metrics.IncGuardRejection(transitionName(StepPayment, StepSuccess))
		w.mu.Unlock()
		return nil, err
	}
	form := w.form
	w.submitting = true
	w.warning = ""
	w.mu.Unlock()

	defer func() {
		w.cart.Release()
		w.mu.Lock()
		w.submitting = false
		w.mu.Unlock()
	}()

	input := orders.PlaceInput{
		UserID: session.UserID,
		Shipping: orders.Shipping{
			FullName: form.FullName,
			Phone:    form.Phone,
			Email:    form.Email,
			Pincode:  form.Pincode,
			Address:  form.Address,
		},
		Payment: orders.Payment{Mode: form.PaymentMode},
		Lines:   toOrderLines(lines),
	}
	if form.PaymentDetails != "" {
		details := form.PaymentDetails
		input.Payment.Details = &details
	}

	if form.PaymentMode == enums.PaymentModeOnline {
		method := form.OnlineMethod
		input.Payment.OnlineMethod = &method
		orderID, paymentID, err := w.payOnline(ctx, session, form, cart.Total(lines))
		if err != nil {
			return nil, err
		}
		input.Payment.OrderID = &orderID
		input.Payment.PaymentID = &paymentID
	}

	placed, err := w.orders.Place(ctx, input)
	if err != nil {
		return nil, err
	}

	var warning string
	if err := w.cart.Settle(ctx); err != nil {
		w.logError(ctx, "checkout.cart_clear_failed", err)
		warning = CartNotClearedWarning
	}

	w.mu.Lock()
	w.step = StepSuccess
	w.order = placed
	w.redirectAt = w.clock().Add(w.redirectDelay)
	w.warning = warning
	w.mu.Unlock()

	if w.logg != nil {
		logCtx := w.logg.WithFields(ctx, map[string]any{
			"order_id":     placed.ID.String(),
			"payment_mode": string(placed.Payment.Mode),
			"total":        placed.Total.String(),
		})
		w.logg.Info(logCtx, "checkout.order_placed")
	}
	return placed, nil
}

func (w *Workflow) payOnline(ctx context.Context, session identity.Session, form Form, total decimal.Decimal) (string, string, error) {
	if w.payments == nil || w.widget == nil {
		return "", "", pkgerrors.New(pkgerrors.CodeDependency, "online payments are unavailable")
	}

	intent, err := w.payments.CreateOrder(ctx, total)
	if err != nil {
		w.logError(ctx, "checkout.payment_create_failed", err)
		return "", "", pkgerrors.Remote(err, "could not start payment")
	}

	name := form.FullName
	if name == "" {
		name = session.DisplayName
	}
	email := form.Email
	if email == "" {
		email = session.Email
	}
	cb, err := w.widget.Open(ctx, payment.WidgetSession{
		KeyID:       w.keyID,
		OrderID:     intent.ID,
		Amount:      intent.Amount.String(),
		Currency:    intent.Currency,
		Name:        w.storeName,
		Description: fmt.Sprintf("%s payment", form.OnlineMethod),
		PrefillName: name,
		PrefillMail: email,
		PrefillTel:  form.Phone,
	})
	if err != nil {
		return "", "", err
	}
	w.metrics.IncPaymentOutcome(string(cb.Outcome))

	switch cb.Outcome {
	case enums.PaymentOutcomeSucceeded:
	case enums.PaymentOutcomeCancelled:
		return "", "", pkgerrors.New(pkgerrors.CodePaymentDeclined, "Payment cancelled")
	default:
		return "", "", pkgerrors.New(pkgerrors.CodePaymentDeclined, "Payment failed")
	}

	ok, err := w.payments.VerifyPayment(ctx, cb.Verification())
	if err != nil {
		w.logError(ctx, "checkout.payment_verify_failed", err)
		return "", "", pkgerrors.Remote(err, "could not verify payment")
	}
	if !ok {
		return "", "", pkgerrors.New(pkgerrors.CodePaymentDeclined, "Payment verification failed")
	}
	return cb.OrderID, cb.PaymentID, nil
}

func (w *Workflow) guardLocked(from, to Step) error {
	if !CanTransition(from, to) {
		return illegalTransition(from, to)
	}
	var err error
	switch {
	case from == StepCart && to == StepAddress:
		err = helpers.ValidateCart(cart.ItemCount(w.cart.Lines()))
	case from == StepAddress && to == StepPayment:
		err = helpers.ValidateAddress(w.form.Address)
	case from == StepPayment && to == StepSuccess:
		err = helpers.ValidatePayment(w.form.PaymentMode, w.form.OnlineMethod)
	}
	if err != nil {
		w.metrics.IncGuardRejection(transitionName(from, to))
	}
	return err
}

// readyLocked checks identity and in-flight submission before any change.
func (w *Workflow) readyLocked() error {
	if _, err := w.identity.Require(); err != nil {
		return err
	}
	w.settleLocked()
	if w.submitting {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment in progress").
			WithDetails(map[string]any{"step": string(w.step)})
	}
	return nil
}

// settleLocked starts a fresh checkout once the success redirect is due.
func (w *Workflow) settleLocked() {
	if w.step != StepSuccess || w.clock().Before(w.redirectAt) {
		return
	}
	w.step = StepCart
	w.form = Form{}
	w.order = nil
	w.redirectAt = time.Time{}
	w.warning = ""
}

func (w *Workflow) stateLocked() State {
	lines := w.cart.Lines()
	st := State{
		Step:       w.step,
		Form:       w.form,
		Submitting: w.submitting,
		ItemCount:  cart.ItemCount(lines),
		Total:      cart.Total(lines),
		Order:      w.order,
		Warning:    w.warning,
	}
	if w.step == StepSuccess {
		at := w.redirectAt
		st.RedirectAt = &at
		st.RedirectTo = w.redirectTo
	}
	if p, ok := w.widget.(pendingPayments); ok && w.submitting {
		if session, open := p.Pending(); open {
			st.Payment = &session
		}
	}
	return st
}

func (w *Workflow) logError(ctx context.Context, msg string, err error) {
	if w.logg == nil {
		return
	}
	w.logg.Error(ctx, msg, err)
}

func toOrderLines(lines []cart.Line) []models.OrderLine {
	out := make([]models.OrderLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, models.OrderLine{
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     l.Price,
			Image:     l.Image,
			Quantity:  l.Quantity,
		})
	}
	return out
}
