// Package memory provides an in-process store for tests and single-node
// deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	moderation "github.com/heibot/moderation"
	"github.com/heibot/moderation/store"
)

type key struct {
	contentType moderation.ContentType
	contentID   string
}

// Store keeps records in memory.
type Store struct {
	mu      sync.RWMutex
	current map[key]moderation.Record
	history map[key][]moderation.Record
}

var _ store.Store = (*Store)(nil)

// New creates an empty memory store.
func New() *Store {
	return &Store{
		current: make(map[key]moderation.Record),
		history: make(map[key][]moderation.Record),
	}
}

// GetRecord returns the current record.
func (s *Store) GetRecord(ctx context.Context, contentType moderation.ContentType, contentID string) (*moderation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.current[key{contentType, contentID}]
	if !ok {
		return nil, moderation.ErrRecordNotFound
	}
	rec.Result = rec.Result.Clone()
	return &rec, nil
}

// SaveRecord replaces the current record and appends to history.
func (s *Store) SaveRecord(ctx context.Context, rec moderation.Record) (moderation.Record, error) {
	if rec.ContentID == "" {
		return moderation.Record{}, moderation.NewValidationError("content_id", "required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{rec.ContentType, rec.ContentID}
	prev, exists := s.current[k]
	if rec.Revision != 0 && (!exists || rec.Revision != prev.Revision) {
		return moderation.Record{}, moderation.ErrRevisionConflict
	}

	if exists {
		rec.ID = prev.ID
		rec.Revision = prev.Revision + 1
	} else {
		rec.ID = uuid.NewString()
		rec.Revision = 1
	}
	rec.Result = rec.Result.Clone()
	rec.Approved = rec.Result.Approved
	rec.SafetyScore = rec.Result.SafetyScore
	rec.CreatedAt = time.Now().UnixMilli()

	s.current[k] = rec
	s.history[k] = append(s.history[k], rec)
	return rec, nil
}

// ListHistory returns past revisions, newest first.
func (s *Store) ListHistory(ctx context.Context, contentType moderation.ContentType, contentID string, limit int) ([]moderation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hist := s.history[key{contentType, contentID}]
	limit = store.Limit(limit)

	out := make([]moderation.Record, 0, min(limit, len(hist)))
	for i := len(hist) - 1; i >= 0 && len(out) < limit; i-- {
		rec := hist[i]
		rec.Result = rec.Result.Clone()
		out = append(out, rec)
	}
	return out, nil
}


// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return nil }

// Close does nothing.
func (s *Store) Close() error { return nil }
