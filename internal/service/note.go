package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/privenote-server/internal/logger"
	"github.com/dtroode/privenote-server/internal/model"
)

const blobKeyPrefix = "notes/"

// timestampPrecision is the resolution of persisted timestamps.
const timestampPrecision = time.Microsecond

// Note implements the note lifecycle: creation, viewing, failed identity
// checks, single-view destruction and owner revocation.
type Note struct {
	store        model.NoteStore
	blobs        model.BlobStorage
	observer     model.NoteObserver
	logger       *logger.Logger
	now          func() time.Time
	storeTimeout time.Duration
	inlineLimit  int
}

// NoteOption configures the Note service.
type NoteOption func(*Note)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) NoteOption {
	return func(s *Note) {
		s.now = now
	}
}

// WithStoreTimeout bounds every store and blob call.
func WithStoreTimeout(d time.Duration) NoteOption {
	return func(s *Note) {
		s.storeTimeout = d
	}
}

// WithBlobStorage offloads ciphertexts larger than inlineLimit bytes to blobs.
func WithBlobStorage(blobs model.BlobStorage, inlineLimit int) NoteOption {
	return func(s *Note) {
		s.blobs = blobs
		s.inlineLimit = inlineLimit
	}
}

// WithObserver registers a lifecycle event observer.
func WithObserver(o model.NoteObserver) NoteOption {
	return func(s *Note) {
		s.observer = o
	}
}

func NewNote(store model.NoteStore, logger *logger.Logger, opts ...NoteOption) *Note {
	s := &Note{
		store:        store,
		observer:     noopObserver{},
		logger:       logger,
		now:          time.Now,
		storeTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates params, persists a new note and returns its id. With a
// request id, a repeated create by the same owner returns the original id.
func (s *Note) Create(ctx context.Context, params model.CreateNoteParams) (uuid.UUID, error) {
	if err := validateCreate(params); err != nil {
		return uuid.Nil, err
	}

	now := s.now().UTC().Truncate(timestampPrecision)
	note := model.Note{
		ID:         uuid.New(),
		OwnerID:    params.OwnerID,
		Ciphertext: params.Ciphertext,
		IV:         params.IV,
		CreatedAt:  now,
		ExpiresAt:  now.Add(params.TTL).Truncate(timestampPrecision),
		ViewOnce:   params.ViewOnce,
		RequestID:  params.RequestID,
	}
	if params.AttemptLimit != nil {
		limit := *params.AttemptLimit
		note.AttemptLimit = &limit
		note.AttemptsRemaining = limit
	}

	if s.shouldOffload(len(params.Ciphertext)) {
		note.BlobKey = blobKeyPrefix + note.ID.String()
		if err := s.upload(ctx, note.BlobKey, params.Ciphertext); err != nil {
			return uuid.Nil, model.NewStorageError("upload ciphertext", err)
		}
		note.Ciphertext = nil
	}

	sctx, cancel := s.storeContext(ctx)
	saved, err := s.store.Create(sctx, note)
	cancel()
	if err != nil {
		s.removeBlob(ctx, note.BlobKey)
		return uuid.Nil, model.NewStorageError("create note", err)
	}
	if note.BlobKey != "" && saved.ID != note.ID {
		// deduplicated by request id; the fresh upload is not referenced
		s.removeBlob(ctx, note.BlobKey)
	}

	s.observer.NoteCreated(note.BlobKey != "")
	s.logger.Debug("Note service: note created",
		"note_id", saved.ID,
		"owner_id", saved.OwnerID,
		"view_once", saved.ViewOnce,
		"limited", saved.Limited(),
		"expires_at", saved.ExpiresAt)

	return saved.ID, nil
}

// Fetch returns what a viewer needs to decrypt a live note. It has no side
// effects.
func (s *Note) Fetch(ctx context.Context, id uuid.UUID) (model.NoteView, error) {
	note, err := s.load(ctx, id)
	if err != nil {
		return model.NoteView{}, err
	}
	if err := s.gate(note); err != nil {
		return model.NoteView{}, err
	}

	ciphertext := note.Ciphertext
	if note.BlobKey != "" {
		ciphertext, err = s.download(ctx, note.BlobKey)
		if err != nil {
			return model.NoteView{}, model.NewStorageError("download ciphertext", err)
		}
	}

	view := model.NoteView{
		ID:         note.ID,
		Ciphertext: ciphertext,
		IV:         note.IV,
		ViewOnce:   note.ViewOnce,
		ExpiresAt:  note.ExpiresAt,
	}
	if note.Limited() {
		remaining := note.AttemptsRemaining
		view.AttemptsRemaining = &remaining
	}

	s.observer.NoteViewed()
	return view, nil
}

// RecordFailedAttempt spends one identity-check attempt. Unlimited notes are
// left untouched.
func (s *Note) RecordFailedAttempt(ctx context.Context, id uuid.UUID) (model.AttemptStatus, error) {
	note, err := s.load(ctx, id)
	if err != nil {
		return model.AttemptStatus{}, err
	}
	if err := s.gate(note); err != nil {
		return model.AttemptStatus{}, err
	}
	if !note.Limited() {
		return model.AttemptStatus{Limited: false}, nil
	}

	sctx, cancel := s.storeContext(ctx)
	remaining, err := s.store.DecrementAttempts(sctx, id)
	cancel()
	if errors.Is(err, model.ErrNotFound) {
		// lost a race: either attempts ran out or the note was deleted meanwhile
		if _, lerr := s.load(ctx, id); lerr != nil {
			return model.AttemptStatus{}, lerr
		}
		s.observer.FailedAttempt(true)
		return model.AttemptStatus{}, model.ErrAttemptsExhausted
	}
	if err != nil {
		return model.AttemptStatus{}, model.NewStorageError("decrement attempts", err)
	}

	s.observer.FailedAttempt(remaining == 0)
	s.logger.Info("Note service: failed identity attempt recorded",
		"note_id", id,
		"attempts_remaining", remaining)

	return model.AttemptStatus{Limited: true, Remaining: remaining}, nil
}

// Consume acknowledges a successful view. Single-view notes are destroyed;
// absent or already destroyed notes are a no-op.
func (s *Note) Consume(ctx context.Context, id uuid.UUID) error {
	note, err := s.load(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if note.Exhausted() {
		return model.ErrAttemptsExhausted
	}
	if !note.ViewOnce {
		return nil
	}

	return s.destroy(ctx, note, model.DestroyConsumed)
}

// Delete lets the owner revoke a note. Absent or already deleted notes are
// acknowledged so existence is never revealed.
func (s *Note) Delete(ctx context.Context, id, requesterID uuid.UUID) error {
	note, err := s.load(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if note.OwnerID != requesterID {
		return model.ErrForbidden
	}

	return s.destroy(ctx, note, model.DestroyRevoked)
}

// Ping checks that the note store is reachable.
func (s *Note) Ping(ctx context.Context) error {
	sctx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.store.Ping(sctx); err != nil {
		return model.NewStorageError("ping store", err)
	}
	return nil
}

func (s *Note) destroy(ctx context.Context, note model.Note, reason string) error {
	sctx, cancel := s.storeContext(ctx)
	changed, err := s.store.MarkDeleted(sctx, note.ID)
	cancel()
	if err != nil {
		return model.NewStorageError("mark note deleted", err)
	}
	if !changed {
		return nil
	}

	s.removeBlob(ctx, note.BlobKey)
	s.observer.NoteDestroyed(reason)
	s.logger.Info("Note service: note destroyed", "note_id", note.ID, "reason", reason)

	return nil
}

func (s *Note) load(ctx context.Context, id uuid.UUID) (model.Note, error) {
	sctx, cancel := s.storeContext(ctx)
	defer cancel()

	note, err := s.store.GetByID(sctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return model.Note{}, model.ErrNotFound
	}
	if err != nil {
		return model.Note{}, model.NewStorageError("get note", err)
	}
	if note.IsDeleted {
		return model.Note{}, model.ErrNotFound
	}
	return note, nil
}

// gate applies the expiry and attempt checks shared by viewer operations.
func (s *Note) gate(note model.Note) error {
	if note.ExpiredAt(s.now().UTC()) {
		return model.ErrExpired
	}
	if note.Exhausted() {
		return model.ErrAttemptsExhausted
	}
	return nil
}

func (s *Note) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

func (s *Note) shouldOffload(size int) bool {
	return s.blobs != nil && s.inlineLimit > 0 && size > s.inlineLimit
}

func (s *Note) upload(ctx context.Context, key string, data []byte) error {
	sctx, cancel := s.storeContext(ctx)
	defer cancel()
	return s.blobs.Upload(sctx, key, bytes.NewReader(data), int64(len(data)))
}

func (s *Note) download(ctx context.Context, key string) ([]byte, error) {
	if s.blobs == nil {
		return nil, fmt.Errorf("blob storage is not configured for key %s", key)
	}

	sctx, cancel := s.storeContext(ctx)
	defer cancel()

	reader, err := s.blobs.Download(sctx, key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return io.ReadAll(reader)
}

func (s *Note) removeBlob(ctx context.Context, key string) {
	if key == "" || s.blobs == nil {
		return
	}

	sctx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.blobs.Delete(sctx, key); err != nil {
		s.logger.Error("Failed to delete note blob", "key", key, "error", err)
	}
}

func validateCreate(params model.CreateNoteParams) error {
	switch {
	case params.OwnerID == uuid.Nil:
		return model.NewValidationError("ownerId", "must be set")
	case len(params.Ciphertext) == 0:
		return model.NewValidationError("ciphertext", "must not be empty")
	case len(params.IV) == 0:
		return model.NewValidationError("iv", "must not be empty")
	case params.TTL <= 0:
		return model.NewValidationError("ttl", "must be positive")
	case params.TTL < timestampPrecision:
		return model.NewValidationError("ttl", "must be at least one microsecond")
	case params.AttemptLimit != nil && *params.AttemptLimit < 1:
		return model.NewValidationError("attemptLimit", "must be at least 1")
	case params.AttemptLimit != nil && *params.AttemptLimit > math.MaxInt32:
		return model.NewValidationError("attemptLimit", "is too large")
	}
	return nil
}

type noopObserver struct{}

func (noopObserver) NoteCreated(bool)     {}
func (noopObserver) NoteViewed()          {}
func (noopObserver) FailedAttempt(bool)   {}
func (noopObserver) NoteDestroyed(string) {}
