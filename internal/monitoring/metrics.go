// Package monitoring exposes the service's Prometheus metrics.
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticketsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_issued_total",
		Help: "Tickets created in the Pending state",
	})

	ticketsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_confirmed_total",
		Help: "Tickets confirmed after payment",
	})

	ticketsValidated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_validated_total",
		Help: "Tickets validated at check-in",
	})

	ticketsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_cancelled_total",
		Help: "Tickets cancelled",
	})

	admissionRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_rejections_total",
			Help: "Capacity admission rejections by reason",
		},
		[]string{"reason"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)
)

func TicketIssued()    { ticketsIssued.Inc() }
func TicketConfirmed() { ticketsConfirmed.Inc() }
func TicketValidated() { ticketsValidated.Inc() }
func TicketCancelled() { ticketsCancelled.Inc() }

// AdmissionRejected records a capacity workflow rejection. Reason is one of
// "not_published", "unknown_section", "section_required",
// "capacity_exceeded".
func AdmissionRejected(reason string) {
	admissionRejections.WithLabelValues(reason).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware observes request latency per method and status code.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		requestDuration.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Observe(time.Since(start).Seconds())
	})
}
