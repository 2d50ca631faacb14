package notesrpc

import "time"

type CreateNoteRequest struct {
	Ciphertext   []byte `json:"ciphertext"`
	IV           []byte `json:"iv"`
	TTLSeconds   int64  `json:"ttlSeconds"`
	ViewOnce     bool   `json:"viewOnce"`
	AttemptLimit *int32 `json:"attemptLimit,omitempty"`
	RequestID    string `json:"requestId,omitempty"`
}

type CreateNoteResponse struct {
	NoteID string `json:"noteId"`
}

type GetNoteRequest struct {
	NoteID string `json:"noteId"`
}

type GetNoteResponse struct {
	Ciphertext        []byte    `json:"ciphertext"`
	IV                []byte    `json:"iv"`
	ViewOnce          bool      `json:"viewOnce"`
	ExpiresAt         time.Time `json:"expiresAt"`
	AttemptsRemaining *int32    `json:"attemptsRemaining,omitempty"`
}

type RecordFailedAttemptRequest struct {
	NoteID string `json:"noteId"`
}

// RecordFailedAttemptResponse leaves AttemptsRemaining nil for notes
// without an attempt limit.
type RecordFailedAttemptResponse struct {
	AttemptsRemaining *int32 `json:"attemptsRemaining"`
}

type ConsumeNoteRequest struct {
	NoteID string `json:"noteId"`
}

type ConsumeNoteResponse struct{}

type DeleteNoteRequest struct {
	NoteID string `json:"noteId"`
}

type DeleteNoteResponse struct{}
