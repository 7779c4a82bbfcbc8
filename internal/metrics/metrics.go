package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	TasksCreated    prometheus.Counter
	TasksDeleted    prometheus.Counter
	TasksCompleted  prometheus.Counter
	Inconsistencies prometheus.Counter
	GatewayErrors   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New регистрирует метрики в reg. В тестах передается prometheus.NewRegistry().
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TasksCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "tasktracker_tasks_created_total",
			Help: "Total number of created tasks",
		}),
		TasksDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "tasktracker_tasks_deleted_total",
			Help: "Total number of tasks removed without completion",
		}),
		TasksCompleted: f.NewCounter(prometheus.CounterOpts{
			Name: "tasktracker_tasks_completed_total",
			Help: "Total number of completed tasks",
		}),
		Inconsistencies: f.NewCounter(prometheus.CounterOpts{
			Name: "tasktracker_stats_inconsistencies_total",
			Help: "Completions where the task was removed but the counter was not incremented",
		}),
		GatewayErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tasktracker_gateway_errors_total",
			Help: "Gateway failures by operation",
		}, []string{"op"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tasktracker_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		gatherer: reg,
	}
}

// Handler отдает метрики для /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware замеряет длительность запросов по шаблону маршрута chi
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
