package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/privenote-server/internal/model"
)

// DBTX is the subset of database/sql used by the repository. Both *sql.DB and
// *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type pinger interface {
	PingContext(ctx context.Context) error
}

var _ model.NoteStore = (*NoteRepository)(nil)

type NoteRepository struct {
	db DBTX
}

func NewNoteRepository(db DBTX) *NoteRepository {
	return &NoteRepository{
		db: db,
	}
}

const noteColumns = `id, owner_id, ciphertext, iv, COALESCE(blob_key, ''), created_at, expires_at,
		view_once, attempt_limit, attempts_remaining, is_deleted, deleted_at, request_id`

func (r *NoteRepository) Create(ctx context.Context, note model.Note) (model.Note, error) {
	// Insert-only; on conflict (owner_id, request_id) return the existing row.
	query := `
		WITH ins AS (
			INSERT INTO notes (id, owner_id, ciphertext, iv, blob_key, created_at, expires_at,
				view_once, attempt_limit, attempts_remaining, request_id)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11)
			ON CONFLICT (owner_id, request_id) WHERE request_id IS NOT NULL DO NOTHING
			RETURNING ` + noteColumns + `
		)
		SELECT * FROM ins
		UNION ALL
		SELECT ` + noteColumns + `
		FROM notes
		WHERE NOT EXISTS (SELECT 1 FROM ins) AND owner_id = $2 AND request_id = $11
		LIMIT 1`

	row := r.db.QueryRowContext(ctx, query,
		note.ID, note.OwnerID, note.Ciphertext, note.IV, note.BlobKey, note.CreatedAt, note.ExpiresAt,
		note.ViewOnce, nullInt(note.AttemptLimit), note.AttemptsRemaining, nullUUID(note.RequestID),
	)

	saved, err := scanNote(row)
	if err != nil {
		return model.Note{}, fmt.Errorf("failed to insert note: %w", err)
	}

	return saved, nil
}

func (r *NoteRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE id = $1 AND is_deleted = FALSE`

	note, err := scanNote(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Note{}, model.ErrNotFound
		}
		return model.Note{}, fmt.Errorf("failed to get note by id: %w", err)
	}

	return note, nil
}

func (r *NoteRepository) DecrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	const query = `
		UPDATE notes SET attempts_remaining = attempts_remaining - 1
		WHERE id = $1 AND is_deleted = FALSE AND attempt_limit IS NOT NULL AND attempts_remaining > 0
		RETURNING attempts_remaining`

	var remaining int
	err := r.db.QueryRowContext(ctx, query, id).Scan(&remaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, model.ErrNotFound
		}
		return 0, fmt.Errorf("failed to decrement attempts: %w", err)
	}

	return remaining, nil
}

func (r *NoteRepository) MarkDeleted(ctx context.Context, id uuid.UUID) (bool, error) {
	const query = `UPDATE notes SET is_deleted = TRUE, deleted_at = NOW() WHERE id = $1 AND is_deleted = FALSE`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark note deleted: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}

	return n == 1, nil
}

func (r *NoteRepository) Purge(ctx context.Context, before time.Time, limit int) ([]model.PurgedNote, error) {
	const query = `
		DELETE FROM notes WHERE id IN (
			SELECT id FROM notes
			WHERE (is_deleted AND deleted_at < $1) OR expires_at < $1
			ORDER BY expires_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, COALESCE(blob_key, '')`

	rows, err := r.db.QueryContext(ctx, query, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to purge notes: %w", err)
	}
	defer rows.Close()

	var out []model.PurgedNote
	for rows.Next() {
		var p model.PurgedNote
		if err := rows.Scan(&p.ID, &p.BlobKey); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *NoteRepository) Ping(ctx context.Context) error {
	p, ok := r.db.(pinger)
	if !ok {
		return nil
	}
	return p.PingContext(ctx)
}

func scanNote(row *sql.Row) (model.Note, error) {
	var (
		note         model.Note
		attemptLimit sql.NullInt32
		deletedAt    sql.NullTime
		requestID    uuid.NullUUID
	)
	err := row.Scan(
		&note.ID, &note.OwnerID, &note.Ciphertext, &note.IV, &note.BlobKey,
		&note.CreatedAt, &note.ExpiresAt, &note.ViewOnce, &attemptLimit,
		&note.AttemptsRemaining, &note.IsDeleted, &deletedAt, &requestID,
	)
	if err != nil {
		return model.Note{}, err
	}

	if attemptLimit.Valid {
		limit := int(attemptLimit.Int32)
		note.AttemptLimit = &limit
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		note.DeletedAt = &t
	}
	if requestID.Valid {
		note.RequestID = requestID.UUID
	}

	return note, nil
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}
