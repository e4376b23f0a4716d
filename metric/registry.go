// Package metric provides a thin Prometheus registry wrapper used to
// optionally expose ring-buffer and worker-pool counters,
// trimmed from the host framework's metric.MetricsRegistry down to the
// registration surface boardkit's components actually call.
package metric

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/c360/boardkit/classify"
)

// Registry manages the registration and lifecycle of Prometheus collectors
// for boardkit components. A nil *Registry is valid everywhere a Registry
// is accepted: every component treats "no registry" as "metrics disabled".
type Registry struct {
	prom      *prometheus.Registry
	mu        sync.RWMutex
	collected map[string]prometheus.Collector
}

// New creates a new metrics registry with Go runtime collectors attached.
func New() *Registry {
	prom := prometheus.NewRegistry()
	prom.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{prom: prom, collected: make(map[string]prometheus.Collector)}
}

// Prometheus returns the underlying prometheus.Registry for HTTP exposition.
func (r *Registry) Prometheus() *prometheus.Registry { return r.prom }

func (r *Registry) register(component, name string, c prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", component, name)
	if _, exists := r.collected[key]; exists {
		return classify.WrapInvalid(fmt.Errorf("metric %s already registered for %s", name, component),
			"Registry", "register", "duplicate metric registration")
	}

	if err := r.prom.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if stderrors.As(err, &already) {
			return classify.WrapInvalid(err, "Registry", "register", fmt.Sprintf("prometheus conflict for %s", name))
		}
		return classify.WrapFatal(err, "Registry", "register", "register collector with prometheus")
	}

	r.collected[key] = c
	return nil
}

// RegisterCounter registers a named counter for a component.
func (r *Registry) RegisterCounter(component, name string, c prometheus.Counter) error {
	return r.register(component, name, c)
}

// RegisterGauge registers a named gauge for a component.
func (r *Registry) RegisterGauge(component, name string, g prometheus.Gauge) error {
	return r.register(component, name, g)
}

// RegisterHistogram registers a named histogram for a component.
func (r *Registry) RegisterHistogram(component, name string, h prometheus.Histogram) error {
	return r.register(component, name, h)
}

// Unregister removes a previously registered collector.
func (r *Registry) Unregister(component, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", component, name)
	c, exists := r.collected[key]
	if !exists {
		return false
	}
	if r.prom.Unregister(c) {
		delete(r.collected, key)
		return true
	}
	return false
}
