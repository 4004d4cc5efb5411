package monitoring

import (
	"time"

	"vodgate/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	// Counters
	authorizationRequests *prometheus.CounterVec
	cookiesIssued         *prometheus.CounterVec
	breakerTransitions    *prometheus.CounterVec

	// Histograms
	authorizationDuration *prometheus.HistogramVec
	storeLookupDuration   *prometheus.HistogramVec

	// Client side
	playbackTransitions *prometheus.CounterVec
}

// NewPrometheusCollector registers the gateway metrics on reg. Pass
// prometheus.DefaultRegisterer in the server and a fresh registry in tests.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)

	return &PrometheusCollector{
		authorizationRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vodgate_authorization_requests_total",
			Help: "Authorization requests by content kind and outcome",
		}, []string{"kind", "outcome"}),

		cookiesIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vodgate_signed_cookies_issued_total",
			Help: "Signed CDN cookies issued, by expiry decision",
		}, []string{"kind", "decision"}),

		breakerTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vodgate_store_breaker_transitions_total",
			Help: "Circuit breaker state changes of the content store",
		}, []string{"breaker", "to"}),

		authorizationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vodgate_authorization_duration_seconds",
			Help:    "Latency of authorization decisions",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"kind"}),

		storeLookupDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vodgate_store_lookup_duration_seconds",
			Help:    "Latency of store lookups",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"store", "op"}),

		playbackTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vodgate_playback_state_transitions_total",
			Help: "Playback controller state transitions",
		}, []string{"to"}),
	}
}

func (p *PrometheusCollector) RecordAuthorization(kind domain.ContentKind, outcome string, duration time.Duration) {
	p.authorizationRequests.WithLabelValues(string(kind), outcome).Inc()
	p.authorizationDuration.WithLabelValues(string(kind)).Observe(duration.Seconds())
}

func (p *PrometheusCollector) RecordCookieIssued(kind domain.ContentKind, decision domain.DecisionKind) {
	p.cookiesIssued.WithLabelValues(string(kind), decision.String()).Inc()
}

func (p *PrometheusCollector) RecordStoreLookup(store, op string, duration time.Duration) {
	p.storeLookupDuration.WithLabelValues(store, op).Observe(duration.Seconds())
}

func (p *PrometheusCollector) RecordBreakerTransition(name, to string) {
	p.breakerTransitions.WithLabelValues(name, to).Inc()
}

func (p *PrometheusCollector) RecordPlaybackTransition(to string) {
	p.playbackTransitions.WithLabelValues(to).Inc()
}
