package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eshop/storefront/internal/cart"
	"github.com/eshop/storefront/internal/catalog"
	"github.com/eshop/storefront/internal/identity"
	"github.com/eshop/storefront/internal/orders"
	"github.com/eshop/storefront/pkg/enums"
	pkgerrors "github.com/eshop/storefront/pkg/errors"
	"github.com/eshop/storefront/pkg/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type memoryCache struct {
	slots   map[string][]cart.Line
	saveErr error
}

func (m *memoryCache) Load(_ context.Context, userID string) ([]cart.Line, error) {
	return append([]cart.Line(nil), m.slots[userID]...), nil
}

func (m *memoryCache) Save(_ context.Context, userID string, lines []cart.Line) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.slots[userID] = append([]cart.Line(nil), lines...)
	return nil
}

type stubPlacer struct {
	placed  []orders.PlaceInput
	err     error
	onPlace func()
}

func (s *stubPlacer) Place(_ context.Context, input orders.PlaceInput) (*orders.OrderDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.onPlace != nil {
		s.onPlace()
	}
	s.placed = append(s.placed, input)
	return &orders.OrderDTO{
		ID:      uuid.New(),
		UserID:  input.UserID,
		Status:  enums.OrderStatusPending,
		Payment: input.Payment,
		Total:   decimal.NewFromInt(1),
	}, nil
}

type stubBackend struct {
	createErr error
	verified  bool
	verifyErr error
	verifyReq *payment.Verification
	amount    decimal.Decimal
}

func (s *stubBackend) CreateOrder(_ context.Context, amount decimal.Decimal) (*payment.Order, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.amount = amount
	return &payment.Order{ID: "order_abc", Amount: amount, Currency: "INR"}, nil
}

func (s *stubBackend) VerifyPayment(_ context.Context, v payment.Verification) (bool, error) {
	s.verifyReq = &v
	return s.verified, s.verifyErr
}

type scriptedWidget struct {
	callback payment.Callback
	opened   *payment.WidgetSession
}

func (w *scriptedWidget) Open(_ context.Context, session payment.WidgetSession) (payment.Callback, error) {
	w.opened = &session
	cb := w.callback
	cb.OrderID = session.OrderID
	return cb, nil
}

type fixture struct {
	workflow *Workflow
	cart     *cart.Store
	cache    *memoryCache
	holder   *identity.Holder
	placer   *stubPlacer
	backend  *stubBackend
	widget   *scriptedWidget
	clock    *time.Time
	userID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	clock := &now
	cache := &memoryCache{slots: map[string][]cart.Line{}}
	store, err := cart.NewStore(cart.StoreParams{
		Cache: cache,
		Clock: func() time.Time { return *clock },
	})
	if err != nil {
		t.Fatalf("cart store: %v", err)
	}
	holder := identity.NewHolder(store)
	f := &fixture{
		cart:    store,
		cache:   cache,
		holder:  holder,
		placer:  &stubPlacer{},
		backend: &stubBackend{verified: true},
		widget:  &scriptedWidget{callback: payment.Callback{Outcome: enums.PaymentOutcomeSucceeded, PaymentID: "pay_1", Signature: "sig"}},
		clock:   clock,
		userID:  uuid.New(),
	}
	wf, err := NewWorkflow(WorkflowParams{
		Identity: holder,
		Cart:     store,
		Orders:   f.placer,
		Payments: f.backend,
		Widget:   f.widget,
		KeyID:    "rzp_test",
		Clock:    func() time.Time { return *clock },
	})
	if err != nil {
		t.Fatalf("workflow: %v", err)
	}
	f.workflow = wf
	return f
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	if err := f.holder.Login(context.Background(), identity.Session{UserID: f.userID, Email: "asha@example.com", DisplayName: "Asha"}); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func (f *fixture) addItem(t *testing.T) {
	t.Helper()
	p := catalog.Product{ID: "p1", Name: "Phone", Price: decimal.RequireFromString("49.50")}
	if err := f.cart.Add(context.Background(), p, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
}

func (f *fixture) toPayment(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.workflow.Next(ctx); err != nil {
		t.Fatalf("cart->address: %v", err)
	}
	if _, err := f.workflow.SetAddress(AddressInput{FullName: "Asha", Address: "12 MG Road", Pincode: "560 001"}); err != nil {
		t.Fatalf("set address: %v", err)
	}
	if _, err := f.workflow.Next(ctx); err != nil {
		t.Fatalf("address->payment: %v", err)
	}
}

func TestWorkflowRequiresIdentity(t *testing.T) {
	f := newFixture(t)
	if _, err := f.workflow.Next(context.Background()); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestEmptyCartCannotLeaveCartStep(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	_, err := f.workflow.Next(context.Background())
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.workflow.State().Step != StepCart {
		t.Fatalf("expected to stay on cart, got %s", f.workflow.State().Step)
	}
}

func TestBlankAddressBlocksPayment(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.addItem(t)
	ctx := context.Background()

	if _, err := f.workflow.Next(ctx); err != nil {
		t.Fatalf("next: %v", err)
	}
	if _, err := f.workflow.SetAddress(AddressInput{Address: "   "}); err != nil {
		t.Fatalf("set address: %v", err)
	}
	if _, err := f.workflow.Next(ctx); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := f.workflow.State().Step; got != StepAddress {
		t.Fatalf("expected address step, got %s", got)
	}
}

func TestBackNavigation(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.addItem(t)
	f.toPayment(t)

	st, err := f.workflow.Back()
	if err != nil || st.Step != StepAddress {
		t.Fatalf("payment->address: %+v err=%v", st, err)
	}
	st, err = f.workflow.Back()
	if err != nil || st.Step != StepCart {
		t.Fatalf("address->cart: %+v err=%v", st, err)
	}
	if _, err := f.workflow.Back(); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict going back from cart, got %v", err)
	}
	if _, err := f.workflow.SetPayment(PaymentInput{Mode: enums.PaymentModeCOD}); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected payment edit outside payment step to fail, got %v", err)
	}
}

func TestSubmitWithoutPaymentMode(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.addItem(t)
	f.toPayment(t)

	if _, err := f.workflow.Submit(context.Background()); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, _ = f.workflow.SetPayment(PaymentInput{Mode: enums.PaymentModeOnline})
	_, err := f.workflow.Submit(context.Background())
	if err == nil || pkgerrors.As(err).Message() != "Please select an online payment method!" {
		t.Fatalf("expected missing online method error, got %v", err)
	}
	if len(f.placer.placed) != 0 {
		t.Fatal("no order should be written")
	}
}

func TestSubmitCODPlacesOrderAndClearsCart(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.addItem(t)
	f.toPayment(t)
	ctx := context.Background()

	if _, err := f.workflow.SetPayment(PaymentInput{Mode: enums.PaymentModeCOD, Method: enums.OnlineMethodCard}); err != nil {
		t.Fatalf("set payment: %v", err)
	}
	st, err := f.workflow.Next(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if st.Step != StepSuccess {
		t.Fatalf("expected success, got %s", st.Step)
	}
	if len(f.placer.placed) != 1 {
		t.Fatalf("expected exactly one order, got %d", len(f.placer.placed))
	}
	placed := f.placer.placed[0]
	if placed.Payment.OnlineMethod != nil {
		t.Fatal("cod orders carry no online method")
	}
	if placed.Shipping.Pincode != "560001" || len(placed.Lines) != 1 || placed.Lines[0].Quantity != 2 {
		t.Fatalf("unexpected order input %+v", placed)
	}
	if !f.cart.IsEmpty() {
		t.Fatal("expected cart cleared after order")
	}
	if st.RedirectTo != "/orders" || st.RedirectAt == nil || !st.RedirectAt.Equal(f.clock.Add(2*time.Second)) {
		t.Fatalf("unexpected redirect %+v", st)
	}

	*f.clock = f.clock.Add(2 * time.Second)
	if got := f.workflow.State().Step; got != StepCart {
		t.Fatalf("expected fresh checkout after redirect, got %s", got)
	}
}

func TestSubmitReportsCartNotClearedAfterOrder(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.addItem(t)
	f.toPayment(t)
	f.placer.onPlace = func() { f.cache.saveErr = errors.New("redis down") }

	_, _ = f.workflow.SetPayment(PaymentInput{Mode: enums.PaymentModeCOD})
	if _, err := f.workflow.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !f.cart.IsEmpty() {
		t.Fatal("ordered lines must not stay in the cart")
	}
	st := f.workflow.State()
	if st.Step != StepSuccess || st.Warning != CartNotClearedWarning {
		t.Fatalf("expected success with warning, got %+v", st)
	}
	if _, err := f.workflow.Submit(context.Background()); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected no second submission, got %v", err)
	}
	if len(f.placer.placed) != 1 {
		t.Fatalf("expected one order, got %d", len(f.placer.placed))
	}

	*f.clock = f.clock.Add(2 * time.Second)
	if st := f.workflow.State(); st.Warning != "" {
		t.Fatalf("warning should clear with the fresh checkout, got %q", st.Warning)
	}
}

func TestSubmitPersistFailureKeepsCart(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.addItem(t)
	f.toPayment(t)
	f.placer.err = pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("write failed"), "save order")

	_, _ = f.workflow.SetPayment(PaymentInput{Mode: enums.PaymentModeCOD})
	if _, err := f.workflow.Submit(context.Background()); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if f.cart.ItemCount() != 2 {
		t.Fatal("cart must stay intact")
	}
	if st := f.workflow.State(); st.Step != StepPayment || st.Submitting {
		t.Fatalf("expected payment step, got %+v", st)
	}
}

func TestSubmitOnlineVerifiesBeforePersisting(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.addItem(t)
	f.toPayment(t)

	_, _ = f.workflow.SetPayment(PaymentInput{Mode: enums.PaymentModeOnline, Method: enums.OnlineMethodUPI})
	order, err := f.workflow.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if order == nil || f.workflow.State().Step != StepSuccess {
		t.Fatal("expected success")
	}
	if !f.backend.amount.Equal(decimal.NewFromInt(99)) {
		t.Fatalf("expected amount 99, got %s", f.backend.amount)
	}
	if f.widget.opened == nil || f.widget.opened.KeyID != "rzp_test" || f.widget.opened.PrefillName != "Asha" {
		t.Fatalf("unexpected widget session %+v", f.widget.opened)
	}
	if f.backend.verifyReq == nil || f.backend.verifyReq.OrderID != "order_abc" || f.backend.verifyReq.Signature != "sig" {
		t.Fatalf("unexpected verify request %+v", f.backend.verifyReq)
	}
	placed := f.placer.placed[0]
	if placed.Payment.PaymentID == nil || *placed.Payment.PaymentID != "pay_1" {
		t.Fatalf("expected payment id on order, got %+v", placed.Payment)
	}
	if placed.Payment.OnlineMethod == nil || *placed.Payment.OnlineMethod != enums.OnlineMethodUPI {
		t.Fatalf("expected UPI on order, got %+v", placed.Payment)
	}
}

func TestSubmitOnlineFailures(t *testing.T) {
	cases := []struct {
		name  string
		setup func(f *fixture)
		code  pkgerrors.Code
	}{
		{
			name:  "create order fails",
			setup: func(f *fixture) { f.backend.createErr = errors.New("502") },
			code:  pkgerrors.CodeDependency,
		},
		{
			name:  "widget cancelled",
			setup: func(f *fixture) { f.widget.callback = payment.Callback{Outcome: enums.PaymentOutcomeCancelled} },
			code:  pkgerrors.CodePaymentDeclined,
		},
		{
			name:  "widget failed",
			setup: func(f *fixture) { f.widget.callback = payment.Callback{Outcome: enums.PaymentOutcomeFailed} },
			code:  pkgerrors.CodePaymentDeclined,
		},
		{
			name:  "verification rejected",
			setup: func(f *fixture) { f.backend.verified = false },
			code:  pkgerrors.CodePaymentDeclined,
		},
		{
			name:  "verification unreachable",
			setup: func(f *fixture) { f.backend.verifyErr = errors.New("timeout") },
			code:  pkgerrors.CodeDependency,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.login(t)
			f.addItem(t)
			f.toPayment(t)
			_, _ = f.workflow.SetPayment(PaymentInput{Mode: enums.PaymentModeOnline, Method: enums.OnlineMethodCard})
			tc.setup(f)

			if _, err := f.workflow.Submit(context.Background()); !pkgerrors.IsCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
			if len(f.placer.placed) != 0 {
				t.Fatal("no order may be written")
			}
			if f.cart.ItemCount() != 2 || f.workflow.State().Step != StepPayment {
				t.Fatal("cart and step must be unchanged")
			}
		})
	}
}

func TestTransitionTable(t *testing.T) {
	t.Parallel()

	allowed := [][2]Step{
		{StepCart, StepAddress},
		{StepAddress, StepCart},
		{StepAddress, StepPayment},
		{StepPayment, StepAddress},
		{StepPayment, StepSuccess},
	}
	for _, pair := range allowed {
		if !CanTransition(pair[0], pair[1]) {
			t.Fatalf("expected %s->%s to be allowed", pair[0], pair[1])
		}
	}
	denied := [][2]Step{
		{StepCart, StepPayment},
		{StepCart, StepSuccess},
		{StepSuccess, StepCart},
		{StepAddress, StepSuccess},
	}
	for _, pair := range denied {
		if CanTransition(pair[0], pair[1]) {
			t.Fatalf("expected %s->%s to be rejected", pair[0], pair[1])
		}
	}
}
