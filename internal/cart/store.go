package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/eshop/storefront/internal/catalog"
	pkgerrors "github.com/eshop/storefront/pkg/errors"
	"github.com/eshop/storefront/pkg/logger"
	"github.com/eshop/storefront/pkg/metrics"
	"github.com/shopspring/decimal"
)

// LoginRequiredMessage is shown when the cart is touched without a
// signed-in user.
const LoginRequiredMessage = "Please login first!"

// HeldMessage is returned for cart changes while an order is being placed.
const HeldMessage = "cart is locked while payment is in progress"

// Op names a cart mutation.
type Op string

const (
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpRemove Op = "remove"
	OpClear  Op = "clear"
	OpLoad   Op = "load"
	OpReset  Op = "reset"
)

// Change is delivered to subscribers after every mutation.
type Change struct {
	Op        Op
	UserID    string
	Lines     []Line
	ItemCount int
	Total     decimal.Decimal
}

// Notice is the transient confirmation shown after an add.
type Notice struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

type StoreParams struct {
	Cache     Cache
	NoticeTTL time.Duration
	Clock     func() time.Time
	Metrics   *metrics.Storefront
	Logger    *logger.Logger
}

// Store is the in-memory cart of one signed-in user.
type Store struct {
	mu        sync.Mutex
	cache     Cache
	noticeTTL time.Duration
	clock     func() time.Time
	metrics   *metrics.Storefront
	logg      *logger.Logger

	userID string
	lines  []Line
	notice *Notice
	held   bool

	listeners map[int]func(Change)
	nextID    int
}

func NewStore(params StoreParams) (*Store, error) {
	if params.Cache == nil {
		return nil, fmt.Errorf("cart cache required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	ttl := params.NoticeTTL
	if ttl <= 0 {
		ttl = 2 * time.Second
	}
	return &Store{
		cache:     params.Cache,
		noticeTTL: ttl,
		clock:     clock,
		metrics:   params.Metrics,
		logg:      params.Logger,
		lines:     []Line{},
		listeners: map[int]func(Change){},
	}, nil
}

// Load discards the in-memory cart and reads the user's slot.
func (s *Store) Load(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, LoginRequiredMessage)
	}

	lines, err := s.cache.Load(ctx, userID)
	if err != nil {
		s.logError(ctx, "cart.load_failed", err)
		return pkgerrors.Remote(err, "load cart")
	}

	s.mu.Lock()
	s.userID = userID
	s.lines = sanitize(lines)
	s.notice = nil
	change := s.changeLocked(OpLoad)
	s.mu.Unlock()

	s.publish(change)
	return nil
}

// Reset empties memory and forgets the user. The cache slot is kept.
func (s *Store) Reset() {
	s.mu.Lock()
	s.userID = ""
	s.lines = []Line{}
	s.notice = nil
	change := s.changeLocked(OpReset)
	s.mu.Unlock()

	s.publish(change)
}

// Add appends product or increments its existing line. qty below one counts
// as one.
func (s *Store) Add(ctx context.Context, product catalog.Product, qty int) error {
	if qty < 1 {
		qty = 1
	}
	if strings.TrimSpace(product.ID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return s.mutate(ctx, OpAdd, func(lines []Line) []Line {
		for i := range lines {
			if lines[i].ProductID == product.ID {
				lines[i].Quantity += qty
				return lines
			}
		}
		return append(lines, lineFromProduct(product, qty))
	}, func() {
		s.notice = &Notice{
			Message:   fmt.Sprintf("%s added to cart!", product.Name),
			ExpiresAt: s.clock().Add(s.noticeTTL),
		}
	})
}

// UpdateQuantity sets the quantity of an existing line. qty <= 0 removes it.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return s.Remove(ctx, productID)
	}
	return s.mutate(ctx, OpUpdate, func(lines []Line) []Line {
		for i := range lines {
			if lines[i].ProductID == productID {
				lines[i].Quantity = qty
			}
		}
		return lines
	}, nil)
}

// Remove drops the line for productID. Missing lines are ignored.
func (s *Store) Remove(ctx context.Context, productID string) error {
	return s.mutate(ctx, OpRemove, func(lines []Line) []Line {
		out := lines[:0]
		for _, l := range lines {
			if l.ProductID != productID {
				out = append(out, l)
			}
		}
		return out
	}, nil)
}

// Clear empties the cart and its slot.
func (s *Store) Clear(ctx context.Context) error {
	return s.mutate(ctx, OpClear, func([]Line) []Line {
		return []Line{}
	}, nil)
}

// Hold freezes the lines while a checkout places them. Every mutation fails
// with STATE_CONFLICT until Release.
func (s *Store) Hold() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held {
		return pkgerrors.New(pkgerrors.CodeStateConflict, HeldMessage)
	}
	s.held = true
	return nil
}

func (s *Store) Release() {
	s.mu.Lock()
	s.held = false
	s.mu.Unlock()
}

// Settle empties the cart once its lines were ordered, held or not. Memory is
// emptied even when the slot write fails, so the ordered lines cannot be
// submitted twice from this tab.
func (s *Store) Settle(ctx context.Context) error {
	s.mu.Lock()
	if s.userID == "" {
		s.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeUnauthorized, LoginRequiredMessage)
	}
	s.lines = []Line{}
	err := s.cache.Save(ctx, s.userID, []Line{})
	change := s.changeLocked(OpClear)
	s.mu.Unlock()

	s.metrics.IncCartMutation(string(OpClear))
	s.publish(change)
	if err != nil {
		s.logError(ctx, "cart.settle_persist_failed", err)
		return pkgerrors.Remote(err, "save cart")
	}
	return nil
}

func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneLines(s.lines)
}

func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Total(s.lines)
}

func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ItemCount(s.lines)
}

func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines) == 0
}

func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Notice returns the add confirmation until it expires.
func (s *Store) Notice() (Notice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notice == nil {
		return Notice{}, false
	}
	if !s.clock().Before(s.notice.ExpiresAt) {
		s.notice = nil
		return Notice{}, false
	}
	return *s.notice, true
}

// Subscribe registers fn for every Change and returns its unsubscribe func.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) mutate(ctx context.Context, op Op, apply func([]Line) []Line, onSuccess func()) error {
	s.mu.Lock()
	if s.userID == "" {
		s.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeUnauthorized, LoginRequiredMessage)
	}
	if s.held {
		s.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeStateConflict, HeldMessage).
			WithDetails(map[string]any{"op": string(op)})
	}

	previous := cloneLines(s.lines)
	next := apply(cloneLines(s.lines))
	if err := s.cache.Save(ctx, s.userID, next); err != nil {
		s.lines = previous
		s.mu.Unlock()
		s.logError(ctx, "cart.persist_failed", err)
		return pkgerrors.Remote(err, "save cart")
	}
	s.lines = next
	if onSuccess != nil {
		onSuccess()
	}
	change := s.changeLocked(op)
	s.mu.Unlock()

	s.metrics.IncCartMutation(string(op))
	s.publish(change)
	return nil
}

func (s *Store) changeLocked(op Op) Change {
	return Change{
		Op:        op,
		UserID:    s.userID,
		Lines:     cloneLines(s.lines),
		ItemCount: ItemCount(s.lines),
		Total:     Total(s.lines),
	}
}

func (s *Store) publish(change Change) {
	s.mu.Lock()
	listeners := make([]func(Change), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(change)
	}
}

func (s *Store) logError(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Error(s.logg.WithUserID(ctx, s.UserID()), msg, err)
}

// sanitize merges duplicate product lines and drops non-positive quantities
// from a slot written by another client.
func sanitize(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	index := map[string]int{}
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity < 1 {
			continue
		}
		if i, ok := index[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}
