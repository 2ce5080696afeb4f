// Package metrics holds the pipeline's prometheus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tweetscope"

// Request outcomes
const (
	OutcomeDone   = "done"
	OutcomeFailed = "failed"
)

// Metrics is one set of pipeline counters on its own registry
type Metrics struct {
	Registry *prometheus.Registry

	Fetched    prometheus.Counter
	Inserted   prometheus.Counter
	Duplicates prometheus.Counter
	Skipped    prometheus.Counter
	// Requests counts finished requests by provenance and outcome
	Requests  *prometheus.CounterVec
	Fallbacks prometheus.Counter
	Cycles    *prometheus.CounterVec
}

// New creates the counters and registers them, with the Go and process collectors
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Fetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_fetched_total",
			Help:      "Raw payloads returned by retrieval strategies",
		}),
		Inserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_inserted_total",
			Help:      "Records newly written to the store",
		}),
		Duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_duplicate_total",
			Help:      "Records already present in the store",
		}),
		Skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Malformed payloads dropped during normalization",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Retrieval requests by final provenance and outcome",
		}, []string{"provenance", "outcome"}),
		Fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Requests retried with the browser strategy after the API failed",
		}),
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_cycles_total",
			Help:      "Monitoring cycles by outcome",
		}, []string{"outcome"}),
	}

	m.Registry.MustRegister(
		m.Fetched, m.Inserted, m.Duplicates, m.Skipped,
		m.Requests, m.Fallbacks, m.Cycles,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
