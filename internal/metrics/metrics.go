// Package metrics provides Prometheus metrics for r2fm.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "r2fm_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "r2fm_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Store metrics
	storeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "r2fm_store_operations_total",
			Help: "Total number of object store operations",
		},
		[]string{"operation", "status"},
	)

	storeOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "r2fm_store_operation_duration_seconds",
			Help:    "Object store operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	bytesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "r2fm_bytes_uploaded_total",
			Help: "Total bytes written to the object store",
		},
	)

	// Batch metrics
	batchUnitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "r2fm_batch_units_total",
			Help: "Units processed by upload and delete batches",
		},
		[]string{"op", "outcome"},
	)

	// Tree metrics
	treeFolders = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "r2fm_tree_folders",
			Help: "Folders in the most recently built tree",
		},
	)

	treeOrphans = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "r2fm_tree_orphans",
			Help: "Keys left out of the most recently built tree",
		},
	)
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordStoreOperation records one object store call.
func RecordStoreOperation(operation string, duration time.Duration, success bool) {
	storeOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	storeOperationsTotal.WithLabelValues(operation, statusLabel(success)).Inc()
}

// RecordBytesUploaded adds to the uploaded byte counter.
func RecordBytesUploaded(n int64) {
	if n > 0 {
		bytesUploaded.Add(float64(n))
	}
}

// RecordBatch records the outcome counts of one batch operation.
func RecordBatch(op string, succeeded, failed int) {
	batchUnitsTotal.WithLabelValues(op, "success").Add(float64(succeeded))
	batchUnitsTotal.WithLabelValues(op, "error").Add(float64(failed))
}

// SetTreeSize records the size of the latest tree build.
func SetTreeSize(folders, orphans int) {
	treeFolders.Set(float64(folders))
	treeOrphans.Set(float64(orphans))
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency labeled by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		RecordHTTPRequest(r.Method, route, rw.statusCode, time.Since(start))
	})
}
