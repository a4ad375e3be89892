// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Request metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Inventory / dispensation metrics
	Dispensaciones      *prometheus.CounterVec
	UnidadesDispensadas prometheus.Counter
	LotesAgotados       prometheus.Counter
	MovimientosLote     *prometheus.CounterVec

	// Background jobs
	JobsProcesados *prometheus.CounterVec
}

// New registers all collectors under namespace.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		Dispensaciones: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispensaciones_total",
			Help:      "Dispensation attempts by result kind",
		}, []string{"resultado"}),
		UnidadesDispensadas: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unidades_dispensadas_total",
			Help:      "Units released through dispensations",
		}),
		LotesAgotados: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lotes_agotados_total",
			Help:      "Batches that reached zero available stock",
		}),
		MovimientosLote: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "movimientos_lote_total",
			Help:      "Committed inventory movements by type",
		}, []string{"tipo"}),
		JobsProcesados: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_procesados_total",
			Help:      "Background jobs processed by type and result",
		}, []string{"tipo", "resultado"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// ObserveDispensacion counts one attempt; unidades is only added on "ok".
func (m *Metrics) ObserveDispensacion(resultado string, unidades int) {
	if m == nil {
		return
	}
	m.Dispensaciones.WithLabelValues(resultado).Inc()
	if resultado == "ok" {
		m.UnidadesDispensadas.Add(float64(unidades))
	}
}

func (m *Metrics) IncLoteAgotado() {
	if m == nil {
		return
	}
	m.LotesAgotados.Inc()
}

func (m *Metrics) IncMovimiento(tipo string) {
	if m == nil {
		return
	}
	m.MovimientosLote.WithLabelValues(tipo).Inc()
}

func (m *Metrics) IncJob(tipo, resultado string) {
	if m == nil {
		return
	}
	m.JobsProcesados.WithLabelValues(tipo, resultado).Inc()
}
