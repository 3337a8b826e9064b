package metrics

import (
	"net/http"

	"github.com/jcooky/go-din"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "personachat"

// Turn outcomes.
const (
	OutcomeOK              = "ok"
	OutcomeInvalid         = "invalid"
	OutcomeNoActivePersona = "no_active_persona"
	OutcomeModelError      = "model_error"
	OutcomeStoreError      = "store_error"
	OutcomeInternal        = "internal"
)

// Metrics holds the service collectors on a registry of its own, so that every din
// container (and every test) starts from zero.
type Metrics struct {
	Registry *prometheus.Registry

	Turns          *prometheus.CounterVec
	ModelLatency   *prometheus.HistogramVec
	ThreadsCreated prometheus.Counter
	RateLimited    prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_turns_total",
			Help:      "Chat turns handled, by outcome.",
		}, []string{"outcome"}),
		ModelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_latency_seconds",
			Help:      "Latency of model completions.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}, []string{"model"}),
		ThreadsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "threads_created_total",
			Help:      "Persona threads created.",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "HTTP requests rejected by the rate limiter.",
		}),
	}

	m.Registry.MustRegister(
		m.Turns,
		m.ModelLatency,
		m.ThreadsCreated,
		m.RateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func init() {
	din.RegisterT(func(c *din.Container) (*Metrics, error) {
		return New(), nil
	})
}
