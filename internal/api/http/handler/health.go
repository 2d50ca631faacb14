package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports store readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

type dbResponse struct {
	Database  string    `json:"database"`
	Timestamp time.Time `json:"timestamp"`
}

// Health serves liveness and database readiness.
type Health struct {
	pinger  Pinger
	version string
	now     func() time.Time
}

func NewHealth(pinger Pinger, version string) *Health {
	return &Health{pinger: pinger, version: version, now: time.Now}
}

// Health handles GET /api/health.
func (h *Health) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "OK",
		Message:   "Prive Note+ API is running",
		Timestamp: h.now().UTC(),
		Version:   h.version,
	})
}

// Database handles GET /api/test-db.
func (h *Health) Database(w http.ResponseWriter, r *http.Request) {
	state := "Connected"
	if err := h.pinger.Ping(r.Context()); err != nil {
		state = "Failed"
	}
	writeJSON(w, http.StatusOK, dbResponse{Database: state, Timestamp: h.now().UTC()})
}
