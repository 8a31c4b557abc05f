package metrics

import (
	"net/http"

	"chatter/internal/presence"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chatter"

type StatsSource interface {
	Stats() presence.Stats
}

type ConnCounter interface {
	ClientCount() int
}

// Metrics exposes presence gauges sampled at scrape time and a counter of
// registry emits. It satisfies presence.Observer.
type Metrics struct {
	reg   *prometheus.Registry
	emits *prometheus.CounterVec

	onlineUsers *prometheus.Desc
	rooms       *prometheus.Desc
	sockets     *prometheus.Desc

	stats StatsSource
	conns ConnCounter
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		emits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_emits_total",
			Help:      "Targeted registry notifications by event and outcome.",
		}, []string{"event", "outcome"}),
		onlineUsers: prometheus.NewDesc(namespace+"_online_users", "Users with a live connection.", nil, nil),
		rooms:       prometheus.NewDesc(namespace+"_rooms", "Group rooms with at least one present member.", nil, nil),
		sockets:     prometheus.NewDesc(namespace+"_open_sockets", "Open websocket connections.", nil, nil),
	}
	m.reg.MustRegister(
		m.emits,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe registers the gauge sources. Either may be nil.
func (m *Metrics) Observe(stats StatsSource, conns ConnCounter) {
	m.stats = stats
	m.conns = conns
	m.reg.MustRegister(m)
}

func (m *Metrics) Delivered(event string) {
	m.emits.WithLabelValues(event, "delivered").Inc()
}

func (m *Metrics) Dropped(event string) {
	m.emits.WithLabelValues(event, "dropped").Inc()
}

func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.onlineUsers
	ch <- m.rooms
	ch <- m.sockets
}

func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	if m.stats != nil {
		s := m.stats.Stats()
		ch <- prometheus.MustNewConstMetric(m.onlineUsers, prometheus.GaugeValue, float64(s.OnlineUsers))
		ch <- prometheus.MustNewConstMetric(m.rooms, prometheus.GaugeValue, float64(s.Rooms))
	}
	if m.conns != nil {
		ch <- prometheus.MustNewConstMetric(m.sockets, prometheus.GaugeValue, float64(m.conns.ClientCount()))
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
