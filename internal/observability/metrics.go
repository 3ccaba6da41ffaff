package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	poTransitions   *prometheus.CounterVec
	goodsReceipts   *prometheus.CounterVec
	matches         *prometheus.CounterVec
}

// NewMetrics menginisialisasi registry, metrik HTTP dan metrik alur pengadaan.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dapur_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dapur_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dapur_po_transitions_total",
		Help: "Jumlah transisi status purchase order berdasarkan status tujuan.",
	}, []string{"to"})
	receipts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dapur_goods_receipts_total",
		Help: "Jumlah penerimaan barang berdasarkan klasifikasi.",
	}, []string{"status"})
	matches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dapur_three_way_matches_total",
		Help: "Jumlah pemeriksaan three-way match berdasarkan hasil.",
	}, []string{"status"})
	registry.MustRegister(requests, duration, transitions, receipts, matches)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		poTransitions:   transitions,
		goodsReceipts:   receipts,
		matches:         matches,
	}
}

// ObservePOTransition mencatat satu transisi purchase order.
func (m *Metrics) ObservePOTransition(to string) {
	if m == nil {
		return
	}
	m.poTransitions.WithLabelValues(to).Inc()
}

// ObserveGoodsReceipt mencatat satu penerimaan barang.
func (m *Metrics) ObserveGoodsReceipt(status string) {
	if m == nil {
		return
	}
	m.goodsReceipts.WithLabelValues(status).Inc()
}

// ObserveThreeWayMatch mencatat satu hasil three-way match.
func (m *Metrics) ObserveThreeWayMatch(status string) {
	if m == nil {
		return
	}
	m.matches.WithLabelValues(status).Inc()
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
