package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dtroode/privenote-server/internal/model"
)

// Metrics holds the server's collectors. All methods are safe on a nil
// receiver so components can run without metrics.
type Metrics struct {
	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec
	GRPCRequestsTotal          *prometheus.CounterVec
	NotesCreatedTotal          *prometheus.CounterVec
	NotesViewedTotal           prometheus.Counter
	FailedAttemptsTotal        *prometheus.CounterVec
	NotesDestroyedTotal        *prometheus.CounterVec
	JanitorRunsTotal           *prometheus.CounterVec
}

var _ model.NoteObserver = (*Metrics)(nil)

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		GRPCRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grpc_requests_total",
				Help: "Total number of gRPC requests.",
			},
			[]string{"method", "code"},
		),
		NotesCreatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notes_created_total",
				Help: "Notes created, by ciphertext placement.",
			},
			[]string{"placement"},
		),
		NotesViewedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "notes_viewed_total",
				Help: "Successful note fetches.",
			},
		),
		FailedAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "note_failed_attempts_total",
				Help: "Failed identity checks recorded against notes.",
			},
			[]string{"exhausted"},
		),
		NotesDestroyedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notes_destroyed_total",
				Help: "Notes destroyed, by reason.",
			},
			[]string{"reason"},
		),
		JanitorRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "janitor_runs_total",
				Help: "Janitor purge passes, by result.",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDurationSeconds,
		m.GRPCRequestsTotal,
		m.NotesCreatedTotal,
		m.NotesViewedTotal,
		m.FailedAttemptsTotal,
		m.NotesDestroyedTotal,
		m.JanitorRunsTotal,
	)

	return m
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDurationSeconds.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveGRPC(method, code string) {
	if m == nil {
		return
	}
	m.GRPCRequestsTotal.WithLabelValues(method, code).Inc()
}

func (m *Metrics) NoteCreated(offloaded bool) {
	if m == nil {
		return
	}
	placement := "inline"
	if offloaded {
		placement = "blob"
	}
	m.NotesCreatedTotal.WithLabelValues(placement).Inc()
}

func (m *Metrics) NoteViewed() {
	if m == nil {
		return
	}
	m.NotesViewedTotal.Inc()
}

func (m *Metrics) FailedAttempt(exhausted bool) {
	if m == nil {
		return
	}
	m.FailedAttemptsTotal.WithLabelValues(strconv.FormatBool(exhausted)).Inc()
}

func (m *Metrics) NoteDestroyed(reason string) {
	if m == nil {
		return
	}
	m.NotesDestroyedTotal.WithLabelValues(reason).Inc()
}

// JanitorRun records one purge pass and how many notes it removed.
func (m *Metrics) JanitorRun(purged int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.JanitorRunsTotal.WithLabelValues("error").Inc()
		return
	}
	m.JanitorRunsTotal.WithLabelValues("ok").Inc()
	if purged > 0 {
		m.NotesDestroyedTotal.WithLabelValues(model.DestroyPurged).Add(float64(purged))
	}
}
