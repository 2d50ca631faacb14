package handler

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dtroode/privenote-server/internal/logger"
	"github.com/dtroode/privenote-server/internal/model"
)

// NoteService defines the note lifecycle operations exposed over HTTP.
type NoteService interface {
	Create(ctx context.Context, params model.CreateNoteParams) (uuid.UUID, error)
	Fetch(ctx context.Context, id uuid.UUID) (model.NoteView, error)
	RecordFailedAttempt(ctx context.Context, id uuid.UUID) (model.AttemptStatus, error)
	Consume(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id, requesterID uuid.UUID) error
}

// maxTTLMinutes keeps the TTL representable as a time.Duration.
var maxTTLMinutes = float64(math.MaxInt64) / float64(time.Minute)

type createNoteRequest struct {
	Ciphertext   []byte     `json:"ciphertext"`
	IV           []byte     `json:"iv"`
	TTLMinutes   float64    `json:"ttlMinutes"`
	ViewOnce     bool       `json:"viewOnce"`
	AttemptLimit *int       `json:"attemptLimit,omitempty"`
	RequestID    *uuid.UUID `json:"requestId,omitempty"`
}

type createNoteResponse struct {
	NoteID uuid.UUID `json:"noteId"`
}

type noteResponse struct {
	Ciphertext        []byte    `json:"ciphertext"`
	IV                []byte    `json:"iv"`
	ViewOnce          bool      `json:"viewOnce"`
	ExpiresAt         time.Time `json:"expiresAt"`
	AttemptsRemaining *int      `json:"attemptsRemaining,omitempty"`
}

type failedAttemptResponse struct {
	AttemptsRemaining *int `json:"attemptsRemaining"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Note handles the /api/notes endpoints.
type Note struct {
	noteService    NoteService
	contextManager model.ContextManager
	logger         *logger.Logger
}

func NewNote(noteService NoteService, contextManager model.ContextManager, logger *logger.Logger) *Note {
	return &Note{
		noteService:    noteService,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Create handles POST /api/notes.
func (h *Note) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.contextManager.GetOwnerIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req createNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if math.IsNaN(req.TTLMinutes) || math.IsInf(req.TTLMinutes, 0) || req.TTLMinutes <= 0 {
		handleError(w, model.NewValidationError("ttlMinutes", "must be a positive number"), h.logger)
		return
	}
	if req.TTLMinutes > maxTTLMinutes {
		handleError(w, model.NewValidationError("ttlMinutes", "is too large"), h.logger)
		return
	}

	params := model.CreateNoteParams{
		OwnerID:      ownerID,
		Ciphertext:   req.Ciphertext,
		IV:           req.IV,
		TTL:          time.Duration(req.TTLMinutes * float64(time.Minute)),
		ViewOnce:     req.ViewOnce,
		AttemptLimit: req.AttemptLimit,
	}
	if req.RequestID != nil {
		params.RequestID = *req.RequestID
	}

	id, err := h.noteService.Create(r.Context(), params)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, createNoteResponse{NoteID: id})
}

// Get handles GET /api/notes/{id}.
func (h *Note) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := noteIDParam(r)
	if !ok {
		handleError(w, model.ErrNotFound, h.logger)
		return
	}

	view, err := h.noteService.Fetch(r.Context(), id)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, noteResponse{
		Ciphertext:        view.Ciphertext,
		IV:                view.IV,
		ViewOnce:          view.ViewOnce,
		ExpiresAt:         view.ExpiresAt.UTC(),
		AttemptsRemaining: view.AttemptsRemaining,
	})
}

// FailedAttempt handles POST /api/notes/{id}/failed-attempts.
func (h *Note) FailedAttempt(w http.ResponseWriter, r *http.Request) {
	id, ok := noteIDParam(r)
	if !ok {
		handleError(w, model.ErrNotFound, h.logger)
		return
	}

	st, err := h.noteService.RecordFailedAttempt(r.Context(), id)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	resp := failedAttemptResponse{}
	if st.Limited {
		remaining := st.Remaining
		resp.AttemptsRemaining = &remaining
	}
	writeJSON(w, http.StatusOK, resp)
}

// Consume handles POST /api/notes/{id}/consume.
func (h *Note) Consume(w http.ResponseWriter, r *http.Request) {
	id, ok := noteIDParam(r)
	if !ok {
		// an id that cannot exist is consumed already
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.noteService.Consume(r.Context(), id); err != nil {
		handleError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/notes/{id}.
func (h *Note) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.contextManager.GetOwnerIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, ok := noteIDParam(r)
	if ok {
		if err := h.noteService.Delete(r.Context(), id, ownerID); err != nil {
			handleError(w, err, h.logger)
			return
		}
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Note deleted"})
}

func noteIDParam(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
