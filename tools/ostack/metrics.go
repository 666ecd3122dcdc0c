package ostack

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the locator's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	Authentications *prometheus.CounterVec
	AuthDuration    prometheus.Histogram
	Resolutions     *prometheus.CounterVec
	Builds          *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Authentications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "svclocator_authentications_total",
			Help: "Identity authentications by outcome (success, failure, cache_hit)",
		}, []string{"outcome"}),
		AuthDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "svclocator_authentication_duration_seconds",
			Help:    "Latency of the identity token request",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "svclocator_resolutions_total",
			Help: "Catalog endpoint resolutions by outcome",
		}, []string{"outcome"}),
		Builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "svclocator_client_builds_total",
			Help: "Service client constructions by service and outcome",
		}, []string{"service", "outcome"}),
	}
}

// Register registers the collectors on reg (or the default registerer if nil).
// Collectors that are already registered are not an error.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{m.Authentications, m.AuthDuration, m.Resolutions, m.Builds} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

func (m *Metrics) authenticated(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.AuthDuration.Observe(d.Seconds())
	m.Authentications.WithLabelValues(outcome(err, "success")).Inc()
}

func (m *Metrics) cacheHit() {
	if m == nil {
		return
	}
	m.Authentications.WithLabelValues("cache_hit").Inc()
}

func (m *Metrics) resolved(err error) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(outcome(err, "resolved")).Inc()
}

func (m *Metrics) built(service string, err error) {
	if m == nil {
		return
	}
	m.Builds.WithLabelValues(service, outcome(err, "built")).Inc()
}

func outcome(err error, ok string) string {
	switch {
	case err == nil:
		return ok
	case errors.Is(err, ErrCatalogEntryNotFound):
		return "entry_not_found"
	case errors.Is(err, ErrRegionNotFound):
		return "region_not_found"
	case errors.Is(err, ErrURLRoleNotFound):
		return "role_not_found"
	case errors.Is(err, ErrUnsupportedService):
		return "unsupported"
	default:
		return "failure"
	}
}
