package identity

import (
	"context"
	"sync"

	"github.com/eshop/storefront/internal/cart"
	pkgerrors "github.com/eshop/storefront/pkg/errors"
)

// CartSession is the part of the cart the holder drives on identity switches.
type CartSession interface {
	Load(ctx context.Context, userID string) error
	Reset()
}

// Holder keeps at most one identity and swaps the cart along with it.
type Holder struct {
	mu        sync.RWMutex
	current   *Session
	cart      CartSession
	listeners map[int]func(*Session)
	nextID    int
}

func NewHolder(cartSession CartSession) *Holder {
	return &Holder{
		cart:      cartSession,
		listeners: map[int]func(*Session){},
	}
}

// Current returns the signed-in identity, if any.
func (h *Holder) Current() (Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil {
		return Session{}, false
	}
	return *h.current, true
}

// Require fails with a guard error when nobody is signed in.
func (h *Holder) Require() (Session, error) {
	s, ok := h.Current()
	if !ok {
		return Session{}, pkgerrors.New(pkgerrors.CodeUnauthorized, cart.LoginRequiredMessage)
	}
	return s, nil
}

// Login replaces the identity and reloads that user's cart. The previous
// identity stays in place when the cart cannot be loaded.
func (h *Holder) Login(ctx context.Context, s Session) error {
	if h.cart != nil {
		if err := h.cart.Load(ctx, s.UserID.String()); err != nil {
			return err
		}
	}
	h.mu.Lock()
	next := s
	h.current = &next
	h.mu.Unlock()

	h.publish(&next)
	return nil
}

// Logout clears the identity and the in-memory cart.
func (h *Holder) Logout() {
	h.mu.Lock()
	h.current = nil
	h.mu.Unlock()
	if h.cart != nil {
		h.cart.Reset()
	}
	h.publish(nil)
}

// Subscribe registers fn for identity changes; nil means signed out.
func (h *Holder) Subscribe(fn func(*Session)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

func (h *Holder) publish(s *Session) {
	h.mu.RLock()
	listeners := make([]func(*Session), 0, len(h.listeners))
	for _, fn := range h.listeners {
		listeners = append(listeners, fn)
	}
	h.mu.RUnlock()
	for _, fn := range listeners {
		fn(s)
	}
}
