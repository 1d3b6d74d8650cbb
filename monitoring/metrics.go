package monitoring

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	firings   *prometheus.CounterVec
	queued    prometheus.Counter
	disabled  prometheus.Counter
	modelTime prometheus.Gauge
	queueLen  prometheus.Gauge
}

func newMetrics(registry *prometheus.Registry) metrics {
	m := metrics{
		firings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "desim_firings_total",
			Help: "Number of completed firings per actor",
		}, []string{"actor"}),
		queued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "desim_events_queued_total",
			Help: "Number of events added to the event queue",
		}),
		disabled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "desim_actors_disabled_total",
			Help: "Number of actors disabled",
		}),
		modelTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "desim_model_time_seconds",
			Help: "Model time of the current tag",
		}),
		queueLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "desim_event_queue_length",
			Help: "Number of pending events",
		}),
	}

	registry.MustRegister(
		m.firings,
		m.queued,
		m.disabled,
		m.modelTime,
		m.queueLen,
	)

	return m
}
