package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Login outcomes.
const (
	OutcomeSuccess              = "success"
	OutcomeInvalidCredentials   = "invalid_credentials"
	OutcomeTemporarilyBlocked   = "temporarily_blocked"
	OutcomeTooManyAttempts      = "too_many_attempts"
	OutcomeVerificationRequired = "verification_required"
	OutcomeChallengeFailed      = "challenge_failed"
	OutcomeError                = "error"
)

// Options configures the collectors.
type Options struct {
	Registerer prometheus.Registerer
	Namespace  string
	Buckets    []float64
}

// Metrics exposes Prometheus collectors for the login surface.
type Metrics struct {
	LoginAttempts     *prometheus.CounterVec
	ChallengeFailures *prometheus.CounterVec
	Requests          *prometheus.CounterVec
	Duration          *prometheus.HistogramVec
}

// New constructs the collectors and registers them with the provided registerer.
func New(opts Options) (*Metrics, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "shop_auth"
	}

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	buckets := opts.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	m := &Metrics{
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Customer login attempts partitioned by outcome.",
		}, []string{"outcome"}),
		ChallengeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challenge_failures_total",
			Help:      "Failed human-verification challenges partitioned by mode.",
		}, []string{"mode"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests partitioned by method, route, and status code.",
		}, []string{"method", "route", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of HTTP request latencies in seconds partitioned by method and route.",
			Buckets:   buckets,
		}, []string{"method", "route"}),
	}

	var err error
	if m.LoginAttempts, err = registerCounterVec(reg, m.LoginAttempts); err != nil {
		return nil, err
	}
	if m.ChallengeFailures, err = registerCounterVec(reg, m.ChallengeFailures); err != nil {
		return nil, err
	}
	if m.Requests, err = registerCounterVec(reg, m.Requests); err != nil {
		return nil, err
	}
	if err := reg.Register(m.Duration); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, fmt.Errorf("register duration collector: %w", err)
		}
		existing, ok := already.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return nil, fmt.Errorf("existing duration collector has unexpected type %T", already.ExistingCollector)
		}
		m.Duration = existing
	}

	return m, nil
}

func registerCounterVec(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, fmt.Errorf("register counter: %w", err)
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("existing counter has unexpected type %T", already.ExistingCollector)
		}
		return existing, nil
	}
	return c, nil
}

// LoginAttempt records the outcome of a login submission.
func (m *Metrics) LoginAttempt(outcome string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(outcome).Inc()
}

// ChallengeFailed records a failed challenge.
func (m *Metrics) ChallengeFailed(mode string) {
	if m == nil {
		return
	}
	m.ChallengeFailures.WithLabelValues(mode).Inc()
}

// Middleware records request counts and latencies by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.Requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.Duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
