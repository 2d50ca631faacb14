// Package janitor hard-deletes notes that were destroyed or expired longer
// than a retention window ago, together with their blob objects.
package janitor

import (
	"context"
	"fmt"
	"time"

	"github.com/dtroode/privenote-server/internal/logger"
	"github.com/dtroode/privenote-server/internal/model"
)

type runRecorder interface {
	JanitorRun(purged int, err error)
}

type Janitor struct {
	store     model.NoteStore
	blobs     model.BlobStorage
	recorder  runRecorder
	logger    *logger.Logger
	interval  time.Duration
	retention time.Duration
	batchSize int
	now       func() time.Time
}

type Option func(*Janitor)

func WithBlobStorage(blobs model.BlobStorage) Option {
	return func(j *Janitor) { j.blobs = blobs }
}

func WithRecorder(r runRecorder) Option {
	return func(j *Janitor) { j.recorder = r }
}

func WithClock(now func() time.Time) Option {
	return func(j *Janitor) { j.now = now }
}

func New(store model.NoteStore, logger *logger.Logger, interval, retention time.Duration, batchSize int, opts ...Option) *Janitor {
	j := &Janitor{
		store:     store,
		logger:    logger,
		interval:  interval,
		retention: retention,
		batchSize: batchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run purges on every tick until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("Janitor started", "interval", j.interval, "retention", j.retention)
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("Janitor stopped")
			return
		case <-ticker.C:
			if _, err := j.RunOnce(ctx); err != nil && ctx.Err() == nil {
				j.logger.Error("Janitor pass failed", "error", err)
			}
		}
	}
}

// RunOnce purges in batches until a short batch is returned and reports how
// many notes were removed.
func (j *Janitor) RunOnce(ctx context.Context) (int, error) {
	cutoff := j.now().UTC().Add(-j.retention)
	total := 0

	for {
		purged, err := j.store.Purge(ctx, cutoff, j.batchSize)
		if err != nil {
			j.record(total, err)
			return total, fmt.Errorf("failed to purge notes: %w", err)
		}
		total += len(purged)

		for _, p := range purged {
			if p.BlobKey == "" || j.blobs == nil {
				continue
			}
			if err := j.blobs.Delete(ctx, p.BlobKey); err != nil {
				j.logger.Warn("Janitor failed to delete blob", "note_id", p.ID, "key", p.BlobKey, "error", err)
			}
		}

		if len(purged) < j.batchSize {
			break
		}
	}

	j.record(total, nil)
	if total > 0 {
		j.logger.Info("Janitor purged notes", "count", total, "cutoff", cutoff)
	}
	return total, nil
}

func (j *Janitor) record(purged int, err error) {
	if j.recorder != nil {
		j.recorder.JanitorRun(purged, err)
	}
}
