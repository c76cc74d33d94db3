package identity

import (
	"context"
	"errors"
	"testing"

	pkgerrors "github.com/eshop/storefront/pkg/errors"
	"github.com/google/uuid"
)

type stubCart struct {
	loaded  []string
	resets  int
	loadErr error
}

func (s *stubCart) Load(_ context.Context, userID string) error {
	if s.loadErr != nil {
		return s.loadErr
	}
	s.loaded = append(s.loaded, userID)
	return nil
}

func (s *stubCart) Reset() { s.resets++ }

func TestHolderLoginLogout(t *testing.T) {
	ctx := context.Background()
	c := &stubCart{}
	h := NewHolder(c)

	if _, err := h.Require(); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected guard error, got %v", err)
	}

	var events []*Session
	unsubscribe := h.Subscribe(func(s *Session) { events = append(events, s) })
	defer unsubscribe()

	alice := Session{UserID: uuid.New(), Email: "alice@example.com"}
	if err := h.Login(ctx, alice); err != nil {
		t.Fatalf("login: %v", err)
	}
	got, err := h.Require()
	if err != nil || got.UserID != alice.UserID {
		t.Fatalf("unexpected identity %+v err=%v", got, err)
	}
	if len(c.loaded) != 1 || c.loaded[0] != alice.UserID.String() {
		t.Fatalf("expected cart reload for alice, got %v", c.loaded)
	}

	h.Logout()
	if _, ok := h.Current(); ok {
		t.Fatal("expected no identity after logout")
	}
	if c.resets != 1 {
		t.Fatalf("expected cart reset, got %d", c.resets)
	}
	if len(events) != 2 || events[0] == nil || events[1] != nil {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestHolderKeepsIdentityWhenCartLoadFails(t *testing.T) {
	ctx := context.Background()
	c := &stubCart{}
	h := NewHolder(c)
	alice := Session{UserID: uuid.New()}
	_ = h.Login(ctx, alice)

	c.loadErr = errors.New("cache offline")
	if err := h.Login(ctx, Session{UserID: uuid.New()}); err == nil {
		t.Fatal("expected login to fail")
	}
	current, ok := h.Current()
	if !ok || current.UserID != alice.UserID {
		t.Fatalf("expected alice to stay signed in, got %+v", current)
	}
}
