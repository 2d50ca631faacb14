// Package noteclient drives the note flow over the HTTP API. Plaintext is
// encrypted locally and the key only ever appears in the returned link.
package noteclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/privenote-server/pkg/notelink"
)

// Error kinds reported by the API.
var (
	ErrUnauthorized       = errors.New("noteclient: unauthorized")
	ErrForbidden          = errors.New("noteclient: forbidden")
	ErrNotFound           = errors.New("noteclient: note not found")
	ErrExpired            = errors.New("noteclient: note expired")
	ErrAttemptsExhausted  = errors.New("noteclient: maximum access attempts exceeded")
	ErrUnavailable        = errors.New("noteclient: service unavailable")
	ErrVerificationFailed = errors.New("noteclient: identity verification failed")
)

// APIError is a non-success API response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("noteclient: %d %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusGone:
		return ErrExpired
	case http.StatusLocked:
		return ErrAttemptsExhausted
	case http.StatusServiceUnavailable:
		return ErrUnavailable
	}
	return nil
}

// VerificationError reports a failed identity check and what is left of the
// note's attempt budget. Remaining is nil for notes without a limit.
type VerificationError struct {
	Remaining *int
}

func (e *VerificationError) Error() string {
	if e.Remaining == nil {
		return ErrVerificationFailed.Error()
	}
	return fmt.Sprintf("%s: %d attempts remaining", ErrVerificationFailed, *e.Remaining)
}

func (e *VerificationError) Unwrap() error {
	return ErrVerificationFailed
}

// Verifier confirms the viewer's identity before a note is decrypted.
type Verifier func(ctx context.Context) (bool, error)

// Client talks to the note API.
type Client struct {
	baseURL    string
	origin     string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithToken sets the bearer token used for create and delete.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithOrigin sets the origin share links point at. Defaults to the API base URL.
func WithOrigin(origin string) Option {
	return func(c *Client) {
		c.origin = origin
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.origin == "" {
		c.origin = c.baseURL
	}
	return c
}

// CreateOptions is the note policy chosen by the creator.
type CreateOptions struct {
	TTL          time.Duration
	ViewOnce     bool
	AttemptLimit *int
	// RequestID makes retries of the same create return the same note.
	RequestID uuid.UUID
}

// Created describes a stored note.
type Created struct {
	NoteID string
	Link   string
}

// Opened is a decrypted note.
type Opened struct {
	Plaintext         []byte
	ViewOnce          bool
	ExpiresAt         time.Time
	AttemptsRemaining *int
}

type createRequest struct {
	Ciphertext   []byte     `json:"ciphertext"`
	IV           []byte     `json:"iv"`
	TTLMinutes   float64    `json:"ttlMinutes"`
	ViewOnce     bool       `json:"viewOnce"`
	AttemptLimit *int       `json:"attemptLimit,omitempty"`
	RequestID    *uuid.UUID `json:"requestId,omitempty"`
}

type createResponse struct {
	NoteID string `json:"noteId"`
}

type noteResponse struct {
	Ciphertext        []byte    `json:"ciphertext"`
	IV                []byte    `json:"iv"`
	ViewOnce          bool      `json:"viewOnce"`
	ExpiresAt         time.Time `json:"expiresAt"`
	AttemptsRemaining *int      `json:"attemptsRemaining"`
}

type failedAttemptResponse struct {
	AttemptsRemaining *int `json:"attemptsRemaining"`
}

// Create encrypts plaintext with a fresh key, stores the ciphertext and
// returns the share link.
func (c *Client) Create(ctx context.Context, plaintext []byte, opts CreateOptions) (Created, error) {
	key, err := notelink.GenerateKey()
	if err != nil {
		return Created{}, err
	}
	ciphertext, iv, err := notelink.Encrypt(key, plaintext)
	if err != nil {
		return Created{}, err
	}

	req := createRequest{
		Ciphertext:   ciphertext,
		IV:           iv,
		TTLMinutes:   opts.TTL.Minutes(),
		ViewOnce:     opts.ViewOnce,
		AttemptLimit: opts.AttemptLimit,
	}
	if opts.RequestID != uuid.Nil {
		req.RequestID = &opts.RequestID
	}

	var resp createResponse
	if err := c.do(ctx, http.MethodPost, "/api/notes", true, req, &resp); err != nil {
		return Created{}, err
	}

	return Created{
		NoteID: resp.NoteID,
		Link:   notelink.BuildLink(c.origin, resp.NoteID, key),
	}, nil
}

// Open fetches and decrypts the note behind link. When verify is set it runs
// before decryption; a failed check is reported to the API and returned as a
// *VerificationError. Single-view notes are consumed after decryption.
func (c *Client) Open(ctx context.Context, link string, verify Verifier) (Opened, error) {
	id, key, err := notelink.ParseLink(link)
	if err != nil {
		return Opened{}, err
	}
	notePath := "/api/notes/" + url.PathEscape(id)

	var note noteResponse
	if err := c.do(ctx, http.MethodGet, notePath, false, nil, &note); err != nil {
		return Opened{}, err
	}

	if verify != nil {
		ok, err := verify(ctx)
		if err != nil {
			return Opened{}, fmt.Errorf("noteclient: verify identity: %w", err)
		}
		if !ok {
			var failed failedAttemptResponse
			if err := c.do(ctx, http.MethodPost, notePath+"/failed-attempts", false, nil, &failed); err != nil {
				return Opened{}, err
			}
			return Opened{}, &VerificationError{Remaining: failed.AttemptsRemaining}
		}
	}

	plaintext, err := notelink.Decrypt(key, note.Ciphertext, note.IV)
	if err != nil {
		return Opened{}, err
	}

	if note.ViewOnce {
		if err := c.do(ctx, http.MethodPost, notePath+"/consume", false, nil, nil); err != nil {
			return Opened{}, fmt.Errorf("noteclient: consume note: %w", err)
		}
	}

	return Opened{
		Plaintext:         plaintext,
		ViewOnce:          note.ViewOnce,
		ExpiresAt:         note.ExpiresAt,
		AttemptsRemaining: note.AttemptsRemaining,
	}, nil
}

// Delete revokes a note the caller owns.
func (c *Client) Delete(ctx context.Context, noteID string) error {
	return c.do(ctx, http.MethodDelete, "/api/notes/"+url.PathEscape(noteID), true, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, auth bool, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("noteclient: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("noteclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("noteclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&e)
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("noteclient: decode response: %w", err)
	}
	return nil
}
