package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/dtroode/privenote-server/internal/model"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveHTTP("GET", "/api/notes/{id}", 200, 5*time.Millisecond)
	m.ObserveHTTP("GET", "/api/notes/{id}", 200, time.Millisecond)
	m.ObserveGRPC("/privenote.v1.Notes/GetNote", "NotFound")
	m.NoteCreated(false)
	m.NoteCreated(true)
	m.NoteViewed()
	m.FailedAttempt(true)
	m.NoteDestroyed(model.DestroyConsumed)
	m.JanitorRun(3, nil)
	m.JanitorRun(0, errors.New("db down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/notes/{id}", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GRPCRequestsTotal.WithLabelValues("/privenote.v1.Notes/GetNote", "NotFound")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotesCreatedTotal.WithLabelValues("inline")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotesCreatedTotal.WithLabelValues("blob")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotesViewedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FailedAttemptsTotal.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotesDestroyedTotal.WithLabelValues(model.DestroyConsumed)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.NotesDestroyedTotal.WithLabelValues(model.DestroyPurged)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JanitorRunsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JanitorRunsTotal.WithLabelValues("error")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHTTP("GET", "/", 200, time.Second)
		m.ObserveGRPC("/x", "OK")
		m.NoteCreated(true)
		m.NoteViewed()
		m.FailedAttempt(false)
		m.NoteDestroyed(model.DestroyRevoked)
		m.JanitorRun(1, nil)
	})
}

func TestNew_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
