package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-formcheck/pkg/validation"
)

const (
	namespace = "formcheck"

	resultValid   = "valid"
	resultInvalid = "invalid"
)

// Observer counts evaluations, failures by reason and resets. It implements
// validation.Observer.
type Observer struct {
	registry *prometheus.Registry

	evaluations *prometheus.CounterVec
	failures    *prometheus.CounterVec
	resets      prometheus.Counter
	invalid     prometheus.Gauge

	mu      sync.Mutex
	failing map[string]struct{}
}

var _ validation.Observer = (*Observer)(nil)

// NewObserver registers the collectors on registry. A fresh registry is
// created when registry is nil.
func NewObserver(registry *prometheus.Registry) *Observer {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	factory := promauto.With(registry)

	return &Observer{
		registry: registry,
		evaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_total",
				Help:      "Total number of element evaluations, by result",
			},
			[]string{"result"},
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failures_total",
				Help:      "Total number of failed evaluations, by failing constraint",
			},
			[]string{"reason"},
		),
		resets: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resets_total",
				Help:      "Total number of element resets",
			},
		),
		failing: make(map[string]struct{}),
		invalid: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "invalid_elements",
				Help:      "Number of elements whose last evaluation failed",
			},
		),
	}
}

// Registry returns the registry the collectors live in.
func (o *Observer) Registry() *prometheus.Registry {
	return o.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// Evaluated implements validation.Observer.
func (o *Observer) Evaluated(id string, state validation.State) {
	if state.Valid {
		o.evaluations.WithLabelValues(resultValid).Inc()
		o.track(id, false)
		return
	}
	o.evaluations.WithLabelValues(resultInvalid).Inc()
	o.failures.WithLabelValues(state.Reason).Inc()
	o.track(id, true)
}

// Reset implements validation.Observer.
func (o *Observer) Reset(id string) {
	o.resets.Inc()
	o.track(id, false)
}

func (o *Observer) track(id string, failing bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if failing {
		o.failing[id] = struct{}{}
	} else {
		delete(o.failing, id)
	}
	o.invalid.Set(float64(len(o.failing)))
}
