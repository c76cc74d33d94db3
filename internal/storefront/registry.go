package storefront

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/eshop/storefront/internal/cart"
	"github.com/eshop/storefront/internal/checkout"
	"github.com/eshop/storefront/internal/identity"
	"github.com/eshop/storefront/internal/orders"
	"github.com/eshop/storefront/pkg/config"
	pkgerrors "github.com/eshop/storefront/pkg/errors"
	"github.com/eshop/storefront/pkg/logger"
	"github.com/eshop/storefront/pkg/metrics"
	"github.com/eshop/storefront/pkg/payment"
	"github.com/google/uuid"
)

// Restorer rebuilds the identity of a live session whose tab is gone.
type Restorer interface {
	Restore(ctx context.Context, accessID string, userID uuid.UUID) (identity.Session, error)
}

type RegistryParams struct {
	CartCache cart.Cache
	Orders    orders.Service
	Payments  payment.Backend
	KeyID     string
	StoreName string
	Checkout  config.CheckoutConfig
	Metrics   *metrics.Storefront
	Logger    *logger.Logger
	Clock     func() time.Time
}

// Registry holds the tabs of every signed-in session, keyed by access id.
type Registry struct {
	mu     sync.RWMutex
	tabs   map[string]*Tab
	params RegistryParams
}

func NewRegistry(params RegistryParams) (*Registry, error) {
	if params.CartCache == nil {
		return nil, fmt.Errorf("cart cache required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.Clock == nil {
		params.Clock = time.Now
	}
	return &Registry{tabs: map[string]*Tab{}, params: params}, nil
}

// Open builds a tab for accessID, signs it in, and loads the user's cart.
// An existing tab for the same access id is replaced.
func (r *Registry) Open(ctx context.Context, accessID string, session identity.Session) (*Tab, error) {
	accessID = strings.TrimSpace(accessID)
	if accessID == "" {
		return nil, fmt.Errorf("access id is required")
	}
	tab, err := r.newTab(accessID)
	if err != nil {
		return nil, err
	}
	if err := tab.Identity.Login(ctx, session); err != nil {
		return nil, err
	}

	r.mu.Lock()
	previous := r.tabs[accessID]
	r.tabs[accessID] = tab
	size := len(r.tabs)
	r.mu.Unlock()

	if previous != nil {
		previous.close()
	}
	r.params.Metrics.SetActiveTabs(size)
	if r.params.Logger != nil {
		r.params.Logger.Info(r.params.Logger.WithTabID(ctx, accessID), "storefront.tab_opened")
	}
	return tab, nil
}

// Get returns the tab for accessID.
func (r *Registry) Get(accessID string) (*Tab, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tab, ok := r.tabs[accessID]
	return tab, ok
}

// Resolve returns the tab for accessID. A missing tab, or one signed in as
// somebody else, is rebuilt from the identity provider and its cart reloaded.
func (r *Registry) Resolve(ctx context.Context, accessID string, userID uuid.UUID, restorer Restorer) (*Tab, error) {
	if tab, ok := r.Get(accessID); ok {
		if current, signedIn := tab.Identity.Current(); signedIn && current.UserID == userID {
			return tab, nil
		}
	}
	if restorer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
	}
	session, err := restorer.Restore(ctx, accessID, userID)
	if err != nil {
		return nil, err
	}
	tab, err := r.Open(ctx, accessID, session)
	if err != nil {
		return nil, err
	}
	if r.params.Logger != nil {
		r.params.Logger.Info(r.params.Logger.WithTabID(ctx, accessID), "storefront.tab_restored")
	}
	return tab, nil
}

// Close signs the tab out and forgets it. The user's cart slot is kept.
func (r *Registry) Close(ctx context.Context, accessID string) {
	r.mu.Lock()
	tab, ok := r.tabs[accessID]
	delete(r.tabs, accessID)
	size := len(r.tabs)
	r.mu.Unlock()
	if !ok {
		return
	}
	tab.close()
	r.params.Metrics.SetActiveTabs(size)
	if r.params.Logger != nil {
		r.params.Logger.Info(r.params.Logger.WithTabID(ctx, accessID), "storefront.tab_closed")
	}
}

// Len reports how many tabs are open.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tabs)
}

func (r *Registry) newTab(accessID string) (*Tab, error) {
	p := r.params
	store, err := cart.NewStore(cart.StoreParams{
		Cache:     p.CartCache,
		NoticeTTL: p.Checkout.NoticeTTL,
		Clock:     p.Clock,
		Metrics:   p.Metrics,
		Logger:    p.Logger,
	})
	if err != nil {
		return nil, err
	}
	holder := identity.NewHolder(store)
	widget := payment.NewHostedWidget()

	var widgetPort payment.Widget
	if p.Payments != nil {
		widgetPort = widget
	}
	wf, err := checkout.NewWorkflow(checkout.WorkflowParams{
		Identity:      holder,
		Cart:          store,
		Orders:        p.Orders,
		Payments:      p.Payments,
		Widget:        widgetPort,
		KeyID:         p.KeyID,
		StoreName:     p.StoreName,
		RedirectDelay: p.Checkout.RedirectDelay,
		RedirectTo:    p.Checkout.RedirectTo,
		Clock:         p.Clock,
		Metrics:       p.Metrics,
		Logger:        p.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Tab{
		ID:       accessID,
		Identity: holder,
		Cart:     store,
		Checkout: wf,
		Widget:   widget,
		logg:     p.Logger,
	}, nil
}
