package handler

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/privenote-server/internal/api/grpc/notesrpc"
	"github.com/dtroode/privenote-server/internal/logger"
	"github.com/dtroode/privenote-server/internal/model"
)

// NoteService defines the note lifecycle operations exposed over gRPC.
type NoteService interface {
	Create(ctx context.Context, params model.CreateNoteParams) (uuid.UUID, error)
	Fetch(ctx context.Context, id uuid.UUID) (model.NoteView, error)
	RecordFailedAttempt(ctx context.Context, id uuid.UUID) (model.AttemptStatus, error)
	Consume(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id, requesterID uuid.UUID) error
}

const maxTTLSeconds = math.MaxInt64 / int64(time.Second)

var _ notesrpc.NotesServer = (*Note)(nil)

// Note handles the privenote.v1.Notes service.
type Note struct {
	notesrpc.UnimplementedNotesServer
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

func (h *Note) CreateNote(ctx context.Context, req *notesrpc.CreateNoteRequest) (*notesrpc.CreateNoteResponse, error) {
	ownerID, ok := h.contextManager.GetOwnerIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing owner")
	}

	if req.TTLSeconds <= 0 {
		return nil, handleError(model.NewValidationError("ttlSeconds", "must be positive"))
	}
	if req.TTLSeconds > maxTTLSeconds {
		return nil, handleError(model.NewValidationError("ttlSeconds", "is too large"))
	}

	params := model.CreateNoteParams{
		OwnerID:    ownerID,
		Ciphertext: req.Ciphertext,
		IV:         req.IV,
		TTL:        time.Duration(req.TTLSeconds) * time.Second,
		ViewOnce:   req.ViewOnce,
	}
	if req.AttemptLimit != nil {
		limit := int(*req.AttemptLimit)
		params.AttemptLimit = &limit
	}
	if req.RequestID != "" {
		requestID, err := uuid.Parse(req.RequestID)
		if err != nil {
			return nil, handleError(model.NewValidationError("requestId", "must be a UUID"))
		}
		params.RequestID = requestID
	}

	id, err := h.noteService.Create(ctx, params)
	if err != nil {
		h.logError("create note failed", err)
		return nil, handleError(err)
	}

	return &notesrpc.CreateNoteResponse{NoteID: id.String()}, nil
}

func (h *Note) GetNote(ctx context.Context, req *notesrpc.GetNoteRequest) (*notesrpc.GetNoteResponse, error) {
	id, ok := parseNoteID(req.NoteID)
	if !ok {
		return nil, handleError(model.ErrNotFound)
	}

	view, err := h.noteService.Fetch(ctx, id)
	if err != nil {
		h.logError("get note failed", err)
		return nil, handleError(err)
	}

	resp := &notesrpc.GetNoteResponse{
		Ciphertext: view.Ciphertext,
		IV:         view.IV,
		ViewOnce:   view.ViewOnce,
		ExpiresAt:  view.ExpiresAt.UTC(),
	}
	if view.AttemptsRemaining != nil {
		resp.AttemptsRemaining = int32Ptr(*view.AttemptsRemaining)
	}
	return resp, nil
}

func (h *Note) RecordFailedAttempt(ctx context.Context, req *notesrpc.RecordFailedAttemptRequest) (*notesrpc.RecordFailedAttemptResponse, error) {
	id, ok := parseNoteID(req.NoteID)
	if !ok {
		return nil, handleError(model.ErrNotFound)
	}

	st, err := h.noteService.RecordFailedAttempt(ctx, id)
	if err != nil {
		h.logError("record failed attempt failed", err)
		return nil, handleError(err)
	}

	resp := &notesrpc.RecordFailedAttemptResponse{}
	if st.Limited {
		resp.AttemptsRemaining = int32Ptr(st.Remaining)
	}
	return resp, nil
}

func (h *Note) ConsumeNote(ctx context.Context, req *notesrpc.ConsumeNoteRequest) (*notesrpc.ConsumeNoteResponse, error) {
	id, ok := parseNoteID(req.NoteID)
	if !ok {
		return &notesrpc.ConsumeNoteResponse{}, nil
	}

	if err := h.noteService.Consume(ctx, id); err != nil {
		h.logError("consume note failed", err)
		return nil, handleError(err)
	}

	return &notesrpc.ConsumeNoteResponse{}, nil
}

func (h *Note) DeleteNote(ctx context.Context, req *notesrpc.DeleteNoteRequest) (*notesrpc.DeleteNoteResponse, error) {
	ownerID, ok := h.contextManager.GetOwnerIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing owner")
	}

	id, ok := parseNoteID(req.NoteID)
	if !ok {
		return &notesrpc.DeleteNoteResponse{}, nil
	}

	if err := h.noteService.Delete(ctx, id, ownerID); err != nil {
		h.logError("delete note failed", err)
		return nil, handleError(err)
	}

	return &notesrpc.DeleteNoteResponse{}, nil
}

// logError logs only failures that are not ordinary client outcomes.
func (h *Note) logError(msg string, err error) {
	switch status.Code(handleError(err)) {
	case codes.Internal, codes.Unavailable:
		h.logger.Error("Note handler: "+msg, "error", err)
	}
}

func parseNoteID(s string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func int32Ptr(v int) *int32 {
	n := int32(v)
	return &n
}
