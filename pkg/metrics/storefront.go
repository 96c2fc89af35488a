package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by the counters below.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
)

// Storefront holds the service's business and HTTP metrics. A nil or
// unregistered value is safe to call and records nothing.
type Storefront struct {
	cartOps         *prometheus.CounterVec
	checkoutAmount  *prometheus.HistogramVec
	logins          *prometheus.CounterVec
	registrations   *prometheus.CounterVec
	printJobs       *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewStorefront registers the storefront metrics on the provided registerer.
func NewStorefront(reg prometheus.Registerer) *Storefront {
	if reg == nil {
		return &Storefront{}
	}
	cartOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_operations_total",
		Help: "Cart mutations by storage backend, operation and outcome.",
	}, []string{"backend", "op", "outcome"})
	checkoutAmount := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_checkout_amount",
		Help:    "Cart totals handed to the payment redirect.",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}, []string{"backend"})
	logins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_logins_total",
		Help: "Login attempts by credential model and outcome.",
	}, []string{"model", "outcome"})
	registrations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_registrations_total",
		Help: "Registration attempts by credential model and outcome.",
	}, []string{"model", "outcome"})
	printJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_print_jobs_total",
		Help: "Print job submissions by outcome.",
	}, []string{"outcome"})
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	reg.MustRegister(cartOps, checkoutAmount, logins, registrations, printJobs, requestDuration)
	return &Storefront{
		cartOps:         cartOps,
		checkoutAmount:  checkoutAmount,
		logins:          logins,
		registrations:   registrations,
		printJobs:       printJobs,
		requestDuration: requestDuration,
	}
}

// CartOp counts one cart mutation.
func (s *Storefront) CartOp(backend, op, outcome string) {
	if s == nil || s.cartOps == nil {
		return
	}
	s.cartOps.WithLabelValues(normalizeLabel(backend), normalizeLabel(op), normalizeLabel(outcome)).Inc()
}

// ObserveCheckout records the total of a completed checkout.
func (s *Storefront) ObserveCheckout(backend string, amount float64) {
	if s == nil || s.checkoutAmount == nil {
		return
	}
	s.checkoutAmount.WithLabelValues(normalizeLabel(backend)).Observe(amount)
}

// Login counts a login attempt for the local or server credential model.
func (s *Storefront) Login(model, outcome string) {
	if s == nil || s.logins == nil {
		return
	}
	s.logins.WithLabelValues(normalizeLabel(model), normalizeLabel(outcome)).Inc()
}

// Registration counts a registration attempt.
func (s *Storefront) Registration(model, outcome string) {
	if s == nil || s.registrations == nil {
		return
	}
	s.registrations.WithLabelValues(normalizeLabel(model), normalizeLabel(outcome)).Inc()
}

// PrintJob counts a print job submission.
func (s *Storefront) PrintJob(outcome string) {
	if s == nil || s.printJobs == nil {
		return
	}
	s.printJobs.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveRequest records one served HTTP request.
func (s *Storefront) ObserveRequest(method, route string, status int, duration time.Duration) {
	if s == nil || s.requestDuration == nil {
		return
	}
	s.requestDuration.WithLabelValues(method, normalizeLabel(route), strconv.Itoa(status)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
