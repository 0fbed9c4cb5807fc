package report

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a Sink which exports session progress to Prometheus
type Metrics struct {
	// Registry holds the collectors; serve it with Handler
	Registry *prometheus.Registry

	frames   *prometheus.CounterVec
	sessions *prometheus.CounterVec
	exposure prometheus.Gauge
	adu      prometheus.Gauge
	done     *prometheus.GaugeVec
	labels   []string
}

// NewMetrics returns a Metrics with its own registry
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "autoflat",
			Name:      "frames_total",
			Help:      "Frames measured, by result.",
		}, []string{"result"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "autoflat",
			Name:      "sessions_total",
			Help:      "Sessions ended, by outcome.",
		}, []string{"outcome"}),
		exposure: prometheus.NewGauge(prometheus.GaugeOpts{
			Subsystem: "autoflat",
			Name:      "last_exposure_seconds",
			Help:      "Exposure time of the most recent frame.",
		}),
		adu: prometheus.NewGauge(prometheus.GaugeOpts{
			Subsystem: "autoflat",
			Name:      "last_frame_adu",
			Help:      "Mean signal of the most recent frame.",
		}),
		done: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Subsystem: "autoflat",
			Name:      "set_frames_done",
			Help:      "Frames accepted in each frame set of the current session.",
		}, []string{"set"}),
	}
	m.Registry.MustRegister(m.frames, m.sessions, m.exposure, m.adu, m.done)
	return m
}

// Handle implements Sink
func (m *Metrics) Handle(e Event) {
	switch e.Kind {
	case Began:
		m.done.Reset()
		m.labels = m.labels[:0]
		for _, s := range e.Sets {
			m.labels = append(m.labels, s.Label)
			m.done.WithLabelValues(s.Label).Set(0)
		}
	case ProgressStart, ProgressUpdate:
		if e.Set >= 0 && e.Set < len(m.labels) {
			m.done.WithLabelValues(m.labels[e.Set]).Set(float64(e.Value))
		}
	case Frame:
		m.exposure.Set(e.Exposure)
		m.adu.Set(e.ADU)
		if e.Accepted {
			m.frames.WithLabelValues("accepted").Inc()
		} else {
			m.frames.WithLabelValues("rejected").Inc()
		}
	case Ended:
		m.sessions.WithLabelValues(e.Text).Inc()
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
