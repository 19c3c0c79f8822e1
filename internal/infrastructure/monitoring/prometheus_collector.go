package monitoring

import (
	"neurohub/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector implements ports.MetricsCollector.
type PrometheusCollector struct {
	connectionsByRole *prometheus.GaugeVec
	pairingsActive    prometheus.Gauge
	roomsActive       prometheus.Gauge
	sessionsActive    prometheus.Gauge

	authFailuresTotal      prometheus.Counter
	framesIngestedTotal    prometheus.Counter
	framesEvictedTotal     prometheus.Counter
	eventsDeliveredTotal   prometheus.Counter
	messagesDiscardedTotal prometheus.Counter
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		connectionsByRole: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "neurohub_connections",
			Help: "Currently registered connections",
		}, []string{"role"}),

		pairingsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "neurohub_pairings_active",
			Help: "Active pairing relationships",
		}),

		roomsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "neurohub_rooms_active",
			Help: "Broadcast rooms with at least one member",
		}),

		sessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "neurohub_streaming_sessions_active",
			Help: "Active telemetry streaming sessions",
		}),

		authFailuresTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "neurohub_auth_failures_total",
			Help: "Connections rejected at the authentication gate",
		}),

		framesIngestedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "neurohub_frames_ingested_total",
			Help: "Telemetry frames accepted into session buffers",
		}),

		framesEvictedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "neurohub_frames_evicted_total",
			Help: "Telemetry frames dropped by FIFO buffer eviction",
		}),

		eventsDeliveredTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "neurohub_events_delivered_total",
			Help: "Outbound events handed to the transport",
		}),

		messagesDiscardedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "neurohub_messages_discarded_total",
			Help: "Inbound messages discarded (malformed, unknown, rate limited) and outbound events dropped",
		}),
	}
}

func (p *PrometheusCollector) ConnectionOpened(role domain.Role) {
	p.connectionsByRole.WithLabelValues(string(role)).Inc()
}

func (p *PrometheusCollector) ConnectionClosed(role domain.Role) {
	p.connectionsByRole.WithLabelValues(string(role)).Dec()
}

func (p *PrometheusCollector) AuthFailure() {
	p.authFailuresTotal.Inc()
}

func (p *PrometheusCollector) PairingCreated() {
	p.pairingsActive.Inc()
}

func (p *PrometheusCollector) PairingRemoved() {
	p.pairingsActive.Dec()
}

func (p *PrometheusCollector) RoomCount(n int) {
	p.roomsActive.Set(float64(n))
}

func (p *PrometheusCollector) SessionStarted() {
	p.sessionsActive.Inc()
}

func (p *PrometheusCollector) SessionEnded() {
	p.sessionsActive.Dec()
}

func (p *PrometheusCollector) FrameIngested() {
	p.framesIngestedTotal.Inc()
}

func (p *PrometheusCollector) FramesEvicted(n int) {
	p.framesEvictedTotal.Add(float64(n))
}

func (p *PrometheusCollector) EventsDelivered(n int) {
	p.eventsDeliveredTotal.Add(float64(n))
}

func (p *PrometheusCollector) MessageDiscarded() {
	p.messagesDiscardedTotal.Inc()
}
