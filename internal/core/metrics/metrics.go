package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the aggregate counters exposed on /metrics.
// It registers against its own registry so tests can construct
// collectors freely without double-registration panics.
type Collector struct {
	reg *prometheus.Registry

	// Tracking is 1 while a flight is actively tracked, 0 otherwise.
	Tracking prometheus.Gauge
	// Subscribers is the number of setup-complete live connections.
	Subscribers prometheus.Gauge

	// PollTicks counts executed polling ticks.
	PollTicks prometheus.Counter
	// PollErrors counts ticks that failed to obtain a position.
	PollErrors prometheus.Counter
	// AutoStops counts trackings ended by the consecutive-error policy.
	AutoStops prometheus.Counter
	// Recoveries counts trackings resumed after a restart.
	Recoveries prometheus.Counter

	// FeedRequests counts feed calls by outcome label: ok|not_found|error.
	FeedRequests *prometheus.CounterVec
	// Broadcasts counts fan-out events by event name.
	Broadcasts *prometheus.CounterVec
}

// NewCollector creates and registers all tracker metrics.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Tracking: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_flight_tracking",
			Help: "1 if a flight is currently tracked, 0 otherwise.",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_subscribers",
			Help: "Number of setup-complete subscriber connections.",
		}),
		PollTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_poll_ticks_total",
			Help: "Total polling ticks executed.",
		}),
		PollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_poll_errors_total",
			Help: "Total polling ticks that failed to obtain a position.",
		}),
		AutoStops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_auto_stops_total",
			Help: "Total trackings ended by the consecutive-error policy.",
		}),
		Recoveries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_recoveries_total",
			Help: "Total trackings resumed after a process restart.",
		}),
		FeedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_feed_requests_total",
			Help: "Total feed requests by outcome.",
		}, []string{"outcome"}),
		Broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_broadcasts_total",
			Help: "Total subscriber broadcasts by event name.",
		}, []string{"event"}),
	}

	reg.MustRegister(
		c.Tracking, c.Subscribers,
		c.PollTicks, c.PollErrors, c.AutoStops, c.Recoveries,
		c.FeedRequests, c.Broadcasts,
	)

	return c
}

// Handler returns the HTTP handler serving this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
