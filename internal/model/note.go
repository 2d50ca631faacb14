package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// NoteStore defines persistence operations for notes.
//
// Implementations must make DecrementAttempts and MarkDeleted atomic
// compare-and-set operations so concurrent callers never observe a negative
// counter or a double transition.
type NoteStore interface {
	// Create inserts a new note. When the note carries a RequestID that the
	// owner already used, the existing note is returned untouched.
	Create(ctx context.Context, note Note) (Note, error)
	// GetByID returns a live (not deleted) note or ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (Note, error)
	// DecrementAttempts lowers attempts_remaining by one for a live, limited
	// note that still has attempts left and returns the new value. It returns
	// ErrNotFound when no row qualified.
	DecrementAttempts(ctx context.Context, id uuid.UUID) (int, error)
	// MarkDeleted sets is_deleted only if it is currently false and reports
	// whether this call performed the transition.
	MarkDeleted(ctx context.Context, id uuid.UUID) (bool, error)
	// Purge hard-deletes notes deleted or expired before the cutoff and
	// returns what was removed so blob objects can be cleaned up.
	Purge(ctx context.Context, before time.Time, limit int) ([]PurgedNote, error)
	Ping(ctx context.Context) error
}

// Note is the persisted note record. It intentionally has no field for the
// decryption key.
type Note struct {
	ID                uuid.UUID
	OwnerID           uuid.UUID
	Ciphertext        []byte
	IV                []byte
	BlobKey           string
	CreatedAt         time.Time
	ExpiresAt         time.Time
	ViewOnce          bool
	AttemptLimit      *int
	AttemptsRemaining int
	IsDeleted         bool
	DeletedAt         *time.Time
	RequestID         uuid.UUID
}

// Limited reports whether the note has a failed-attempt budget.
func (n Note) Limited() bool {
	return n.AttemptLimit != nil
}

// Exhausted reports whether the failed-attempt budget is spent.
func (n Note) Exhausted() bool {
	return n.Limited() && n.AttemptsRemaining <= 0
}

// ExpiredAt reports whether the note is expired at the given instant. The
// expiry instant itself is still readable.
func (n Note) ExpiredAt(now time.Time) bool {
	return now.After(n.ExpiresAt)
}

// NoteView is what a viewer receives for a live note.
type NoteView struct {
	ID                uuid.UUID
	Ciphertext        []byte
	IV                []byte
	ViewOnce          bool
	ExpiresAt         time.Time
	AttemptsRemaining *int
}

// Remaining returns the time left until expiresAt, never negative.
func Remaining(now, expiresAt time.Time) time.Duration {
	d := expiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// CreateNoteParams contains parameters to create a note.
type CreateNoteParams struct {
	OwnerID      uuid.UUID
	Ciphertext   []byte
	IV           []byte
	TTL          time.Duration
	ViewOnce     bool
	AttemptLimit *int
	RequestID    uuid.UUID
}

// AttemptStatus is the outcome of a recorded failed identity check.
type AttemptStatus struct {
	Limited   bool
	Remaining int
}

// PurgedNote identifies a hard-deleted note.
type PurgedNote struct {
	ID      uuid.UUID
	BlobKey string
}

// NoteObserver receives lifecycle events, typically to feed metrics.
type NoteObserver interface {
	NoteCreated(offloaded bool)
	NoteViewed()
	FailedAttempt(exhausted bool)
	NoteDestroyed(reason string)
}

// Reasons passed to NoteObserver.NoteDestroyed.
const (
	DestroyConsumed = "consumed"
	DestroyRevoked  = "revoked"
	DestroyPurged   = "purged"
)
