package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Storefront records cart, checkout, and payment activity.
type Storefront struct {
	cartMutations   *prometheus.CounterVec
	ordersPlaced    *prometheus.CounterVec
	paymentOutcomes *prometheus.CounterVec
	guardRejections *prometheus.CounterVec
	paymentDuration *prometheus.HistogramVec
	activeTabs      prometheus.Gauge
}

// NewStorefront registers the storefront metrics on the provided registerer.
func NewStorefront(reg prometheus.Registerer) *Storefront {
	if reg == nil {
		return &Storefront{}
	}
	cartMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_mutations_total",
		Help: "Cart mutations by operation.",
	}, []string{"op"})
	ordersPlaced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_placed_total",
		Help: "Orders persisted, by payment mode.",
	}, []string{"payment_mode"})
	paymentOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_payment_outcomes_total",
		Help: "Hosted payment results after verification.",
	}, []string{"outcome"})
	guardRejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkout_guard_rejections_total",
		Help: "Checkout transitions refused by a guard.",
	}, []string{"transition"})
	paymentDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_payment_backend_duration_seconds",
		Help:    "Latency of payment backend calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"call"})
	activeTabs := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_active_tabs",
		Help: "Signed-in tabs held in memory.",
	})
	reg.MustRegister(cartMutations, ordersPlaced, paymentOutcomes, guardRejections, paymentDuration, activeTabs)
	return &Storefront{
		cartMutations:   cartMutations,
		ordersPlaced:    ordersPlaced,
		paymentOutcomes: paymentOutcomes,
		guardRejections: guardRejections,
		paymentDuration: paymentDuration,
		activeTabs:      activeTabs,
	}
}

func (s *Storefront) IncCartMutation(op string) {
	if s == nil || s.cartMutations == nil {
		return
	}
	s.cartMutations.WithLabelValues(normalizeLabel(op)).Inc()
}

func (s *Storefront) IncOrderPlaced(paymentMode string) {
	if s == nil || s.ordersPlaced == nil {
		return
	}
	s.ordersPlaced.WithLabelValues(normalizeLabel(paymentMode)).Inc()
}

func (s *Storefront) IncPaymentOutcome(outcome string) {
	if s == nil || s.paymentOutcomes == nil {
		return
	}
	s.paymentOutcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (s *Storefront) IncGuardRejection(transition string) {
	if s == nil || s.guardRejections == nil {
		return
	}
	s.guardRejections.WithLabelValues(normalizeLabel(transition)).Inc()
}

// ObservePaymentCall records how long a payment backend call took.
func (s *Storefront) ObservePaymentCall(call string, d time.Duration) {
	if s == nil || s.paymentDuration == nil {
		return
	}
	s.paymentDuration.WithLabelValues(normalizeLabel(call)).Observe(d.Seconds())
}

// SetActiveTabs publishes the current tab registry size.
func (s *Storefront) SetActiveTabs(n int) {
	if s == nil || s.activeTabs == nil {
		return
	}
	s.activeTabs.Set(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
