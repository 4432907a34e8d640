package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests can create as many as they like.
type Collector struct {
	registry            *prometheus.Registry
	calculations        *prometheus.CounterVec
	calculationDuration *prometheus.HistogramVec
	requests            *prometheus.CounterVec
	rateCache           *prometheus.CounterVec
	persisted           *prometheus.CounterVec
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		calculations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "woolet_calculations_total",
			Help: "Calculator invocations by calculator and outcome",
		}, []string{"calculator", "outcome"}),
		calculationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "woolet_calculation_duration_seconds",
			Help:    "Time spent inside a calculator",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		}, []string{"calculator"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "woolet_http_requests_total",
			Help: "HTTP requests by route template, method and status",
		}, []string{"route", "method", "status"}),
		rateCache: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "woolet_rate_cache_lookups_total",
			Help: "Exchange-rate cache lookups by result",
		}, []string{"result"}),
		persisted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "woolet_records_persisted_total",
			Help: "Records written to the database by entity",
		}, []string{"entity"}),
	}
}

// ObserveCalculation records one calculator call. A nil collector is a no-op.
func (c *Collector) ObserveCalculation(calculator string, started time.Time, err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.calculations.WithLabelValues(calculator, outcome).Inc()
	c.calculationDuration.WithLabelValues(calculator).Observe(time.Since(started).Seconds())
}

func (c *Collector) RateCacheHit() {
	if c != nil {
		c.rateCache.WithLabelValues("hit").Inc()
	}
}

func (c *Collector) RateCacheMiss() {
	if c != nil {
		c.rateCache.WithLabelValues("miss").Inc()
	}
}

func (c *Collector) RecordPersisted(entity string) {
	if c != nil {
		c.persisted.WithLabelValues(entity).Inc()
	}
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware counts requests by mux route template so that path parameters
// do not explode label cardinality.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		c.requests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
	})
}
