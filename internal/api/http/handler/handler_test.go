package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	httpctx "github.com/dtroode/privenote-server/internal/api/http/context"
	"github.com/dtroode/privenote-server/internal/model"
	"github.com/dtroode/privenote-server/internal/testutil"
)

type MockNoteService struct {
	mock.Mock
}

func (m *MockNoteService) Create(ctx context.Context, params model.CreateNoteParams) (uuid.UUID, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockNoteService) Fetch(ctx context.Context, id uuid.UUID) (model.NoteView, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.NoteView), args.Error(1)
}

func (m *MockNoteService) RecordFailedAttempt(ctx context.Context, id uuid.UUID) (model.AttemptStatus, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.AttemptStatus), args.Error(1)
}

func (m *MockNoteService) Consume(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockNoteService) Delete(ctx context.Context, id, requesterID uuid.UUID) error {
	return m.Called(ctx, id, requesterID).Error(0)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestNoteHandler() (*Note, *MockNoteService, *httpctx.Manager) {
	svc := new(MockNoteService)
	cm := httpctx.NewManager()
	return NewNote(svc, cm, testutil.MakeNoopLogger()), svc, cm
}

func withNoteID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestNote_Create(t *testing.T) {
	ownerID := uuid.New()
	noteID := uuid.New()
	requestID := uuid.New()

	tests := []struct {
		name       string
		body       string
		auth       bool
		setup      func(svc *MockNoteService)
		wantStatus int
		wantError  string
	}{
		{
			name: "created",
			body: `{"ciphertext":"QUJDRA==","iv":"MTIzNA==","ttlMinutes":10,"viewOnce":true,"attemptLimit":3,"requestId":"` + requestID.String() + `"}`,
			auth: true,
			setup: func(svc *MockNoteService) {
				svc.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateNoteParams) bool {
					return p.OwnerID == ownerID &&
						bytes.Equal(p.Ciphertext, []byte("ABCD")) &&
						bytes.Equal(p.IV, []byte("1234")) &&
						p.TTL == 10*time.Minute &&
						p.ViewOnce &&
						p.AttemptLimit != nil && *p.AttemptLimit == 3 &&
						p.RequestID == requestID
				})).Return(noteID, nil).Once()
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "fractional ttl",
			body: `{"ciphertext":"QUJDRA==","iv":"MTIzNA==","ttlMinutes":0.5}`,
			auth: true,
			setup: func(svc *MockNoteService) {
				svc.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateNoteParams) bool {
					return p.TTL == 30*time.Second && p.AttemptLimit == nil && p.RequestID == uuid.Nil
				})).Return(noteID, nil).Once()
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "unauthenticated",
			body:       `{}`,
			wantStatus: http.StatusUnauthorized,
			wantError:  "Unauthorized",
		},
		{
			name:       "malformed json",
			body:       `{"ciphertext":`,
			auth:       true,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request body",
		},
		{
			name:       "bad base64",
			body:       `{"ciphertext":"***","iv":"MTIzNA==","ttlMinutes":1}`,
			auth:       true,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request body",
		},
		{
			name:       "zero ttl",
			body:       `{"ciphertext":"QUJDRA==","iv":"MTIzNA==","ttlMinutes":0}`,
			auth:       true,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid ttlMinutes: must be a positive number",
		},
		{
			name:       "huge ttl",
			body:       `{"ciphertext":"QUJDRA==","iv":"MTIzNA==","ttlMinutes":1e300}`,
			auth:       true,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid ttlMinutes: is too large",
		},
		{
			name: "service validation",
			body: `{"ciphertext":"","iv":"MTIzNA==","ttlMinutes":1}`,
			auth: true,
			setup: func(svc *MockNoteService) {
				svc.On("Create", mock.Anything, mock.Anything).
					Return(uuid.Nil, model.NewValidationError("ciphertext", "must not be empty")).Once()
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid ciphertext: must not be empty",
		},
		{
			name: "storage failure",
			body: `{"ciphertext":"QUJDRA==","iv":"MTIzNA==","ttlMinutes":1}`,
			auth: true,
			setup: func(svc *MockNoteService) {
				svc.On("Create", mock.Anything, mock.Anything).
					Return(uuid.Nil, model.NewStorageError("create note", errors.New("connection refused"))).Once()
			},
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "Service temporarily unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, svc, cm := newTestNoteHandler()
			if tt.setup != nil {
				tt.setup(svc)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/notes", strings.NewReader(tt.body))
			if tt.auth {
				req = req.WithContext(cm.SetOwnerIDToContext(req.Context(), ownerID))
			}
			rec := httptest.NewRecorder()

			h.Create(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeBody(t, rec)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
			} else {
				assert.Equal(t, noteID.String(), body["noteId"])
			}
			assert.NotContains(t, rec.Body.String(), "connection refused")
			svc.AssertExpectations(t)
		})
	}
}

func TestNote_Create_BodyTooLarge(t *testing.T) {
	h, _, cm := newTestNoteHandler()

	payload := `{"ciphertext":"` + strings.Repeat("A", 2048) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/notes", strings.NewReader(payload))
	req = req.WithContext(cm.SetOwnerIDToContext(req.Context(), uuid.New()))
	rec := httptest.NewRecorder()
	req.Body = http.MaxBytesReader(rec, req.Body, 64)

	h.Create(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestNote_Get(t *testing.T) {
	noteID := uuid.New()
	expiresAt := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	remaining := 2

	tests := []struct {
		name       string
		id         string
		setup      func(svc *MockNoteService)
		wantStatus int
		check      func(t *testing.T, body map[string]any)
	}{
		{
			name: "live limited note",
			id:   noteID.String(),
			setup: func(svc *MockNoteService) {
				svc.On("Fetch", mock.Anything, noteID).Return(model.NoteView{
					ID:                noteID,
					Ciphertext:        []byte("ABCD"),
					IV:                []byte("1234"),
					ViewOnce:          true,
					ExpiresAt:         expiresAt,
					AttemptsRemaining: &remaining,
				}, nil).Once()
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "QUJDRA==", body["ciphertext"])
				assert.Equal(t, "MTIzNA==", body["iv"])
				assert.Equal(t, true, body["viewOnce"])
				assert.Equal(t, "2030-01-02T03:04:05Z", body["expiresAt"])
				assert.Equal(t, float64(2), body["attemptsRemaining"])
			},
		},
		{
			name: "unlimited note omits attempts",
			id:   noteID.String(),
			setup: func(svc *MockNoteService) {
				svc.On("Fetch", mock.Anything, noteID).Return(model.NoteView{
					ID: noteID, Ciphertext: []byte("x"), IV: []byte("y"), ExpiresAt: expiresAt,
				}, nil).Once()
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				_, ok := body["attemptsRemaining"]
				assert.False(t, ok)
			},
		},
		{
			name:       "malformed id",
			id:         "not-a-uuid",
			wantStatus: http.StatusNotFound,
		},
		{
			name: "absent",
			id:   noteID.String(),
			setup: func(svc *MockNoteService) {
				svc.On("Fetch", mock.Anything, noteID).Return(model.NoteView{}, model.ErrNotFound).Once()
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "expired",
			id:   noteID.String(),
			setup: func(svc *MockNoteService) {
				svc.On("Fetch", mock.Anything, noteID).Return(model.NoteView{}, model.ErrExpired).Once()
			},
			wantStatus: http.StatusGone,
		},
		{
			name: "exhausted",
			id:   noteID.String(),
			setup: func(svc *MockNoteService) {
				svc.On("Fetch", mock.Anything, noteID).Return(model.NoteView{}, model.ErrAttemptsExhausted).Once()
			},
			wantStatus: http.StatusLocked,
		},
		{
			name: "unexpected error",
			id:   noteID.String(),
			setup: func(svc *MockNoteService) {
				svc.On("Fetch", mock.Anything, noteID).Return(model.NoteView{}, errors.New("pq: secret detail")).Once()
			},
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Internal server error", body["error"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, svc, _ := newTestNoteHandler()
			if tt.setup != nil {
				tt.setup(svc)
			}

			req := withNoteID(httptest.NewRequest(http.MethodGet, "/api/notes/"+tt.id, nil), tt.id)
			rec := httptest.NewRecorder()

			h.Get(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.NotContains(t, rec.Body.String(), "secret detail")
			if tt.check != nil {
				tt.check(t, decodeBody(t, rec))
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestNote_FailedAttempt(t *testing.T) {
	noteID := uuid.New()

	t.Run("limited", func(t *testing.T) {
		h, svc, _ := newTestNoteHandler()
		svc.On("RecordFailedAttempt", mock.Anything, noteID).
			Return(model.AttemptStatus{Limited: true, Remaining: 0}, nil).Once()

		rec := httptest.NewRecorder()
		h.FailedAttempt(rec, withNoteID(httptest.NewRequest(http.MethodPost, "/", nil), noteID.String()))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"attemptsRemaining":0}`, rec.Body.String())
	})

	t.Run("unlimited", func(t *testing.T) {
		h, svc, _ := newTestNoteHandler()
		svc.On("RecordFailedAttempt", mock.Anything, noteID).
			Return(model.AttemptStatus{Limited: false}, nil).Once()

		rec := httptest.NewRecorder()
		h.FailedAttempt(rec, withNoteID(httptest.NewRequest(http.MethodPost, "/", nil), noteID.String()))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"attemptsRemaining":null}`, rec.Body.String())
	})

	t.Run("exhausted", func(t *testing.T) {
		h, svc, _ := newTestNoteHandler()
		svc.On("RecordFailedAttempt", mock.Anything, noteID).
			Return(model.AttemptStatus{}, model.ErrAttemptsExhausted).Once()

		rec := httptest.NewRecorder()
		h.FailedAttempt(rec, withNoteID(httptest.NewRequest(http.MethodPost, "/", nil), noteID.String()))

		assert.Equal(t, http.StatusLocked, rec.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		h, svc, _ := newTestNoteHandler()

		rec := httptest.NewRecorder()
		h.FailedAttempt(rec, withNoteID(httptest.NewRequest(http.MethodPost, "/", nil), "xyz"))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		svc.AssertNotCalled(t, "RecordFailedAttempt", mock.Anything, mock.Anything)
	})
}

func TestNote_Consume(t *testing.T) {
	noteID := uuid.New()

	t.Run("consumed", func(t *testing.T) {
		h, svc, _ := newTestNoteHandler()
		svc.On("Consume", mock.Anything, noteID).Return(nil).Once()

		rec := httptest.NewRecorder()
		h.Consume(rec, withNoteID(httptest.NewRequest(http.MethodPost, "/", nil), noteID.String()))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("malformed id is a no-op", func(t *testing.T) {
		h, svc, _ := newTestNoteHandler()

		rec := httptest.NewRecorder()
		h.Consume(rec, withNoteID(httptest.NewRequest(http.MethodPost, "/", nil), "nope"))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		svc.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything)
	})

	t.Run("exhausted", func(t *testing.T) {
		h, svc, _ := newTestNoteHandler()
		svc.On("Consume", mock.Anything, noteID).Return(model.ErrAttemptsExhausted).Once()

		rec := httptest.NewRecorder()
		h.Consume(rec, withNoteID(httptest.NewRequest(http.MethodPost, "/", nil), noteID.String()))

		assert.Equal(t, http.StatusLocked, rec.Code)
	})
}

func TestNote_Delete(t *testing.T) {
	noteID := uuid.New()
	ownerID := uuid.New()

	tests := []struct {
		name       string
		id         string
		auth       bool
		err        error
		call       bool
		wantStatus int
	}{
		{name: "owner", id: noteID.String(), auth: true, call: true, wantStatus: http.StatusOK},
		{name: "non-owner", id: noteID.String(), auth: true, call: true, err: model.ErrForbidden, wantStatus: http.StatusForbidden},
		{name: "malformed id", id: "bad", auth: true, wantStatus: http.StatusOK},
		{name: "unauthenticated", id: noteID.String(), wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, svc, cm := newTestNoteHandler()
			if tt.call {
				svc.On("Delete", mock.Anything, noteID, ownerID).Return(tt.err).Once()
			}

			req := httptest.NewRequest(http.MethodDelete, "/api/notes/"+tt.id, nil)
			if tt.auth {
				req = req.WithContext(cm.SetOwnerIDToContext(req.Context(), ownerID))
			}
			req = withNoteID(req, tt.id)
			rec := httptest.NewRecorder()

			h.Delete(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, `{"message":"Note deleted"}`, rec.Body.String())
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestHealth(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("health", func(t *testing.T) {
		h := NewHealth(pingerFunc(func(context.Context) error { return nil }), "1.0.0")
		h.now = func() time.Time { return fixed }

		rec := httptest.NewRecorder()
		h.Health(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"OK","message":"Prive Note+ API is running","timestamp":"2026-01-01T00:00:00Z","version":"1.0.0"}`, rec.Body.String())
	})

	t.Run("database", func(t *testing.T) {
		for _, tc := range []struct {
			err  error
			want string
		}{
			{nil, "Connected"},
			{errors.New("down"), "Failed"},
		} {
			h := NewHealth(pingerFunc(func(context.Context) error { return tc.err }), "1.0.0")
			h.now = func() time.Time { return fixed }

			rec := httptest.NewRecorder()
			h.Database(rec, httptest.NewRequest(http.MethodGet, "/api/test-db", nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tc.want, decodeBody(t, rec)["database"])
		}
	})
}

func TestNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	NotFound(rec, httptest.NewRequest(http.MethodGet, "/api/unknown?x=1", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Endpoint not found","path":"/api/unknown"}`, rec.Body.String())
}
