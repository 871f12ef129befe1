// Package store provides the persistence interface for moderation records.
package store

import (
	"context"

	moderation "github.com/heibot/moderation"
)

// Store defines the interface for moderation record storage. Each piece
// of content has one current record plus an append-only history of
// every revision.
type Store interface {
	// GetRecord returns the current record for the content, or
	// moderation.ErrRecordNotFound.
	GetRecord(ctx context.Context, contentType moderation.ContentType, contentID string) (*moderation.Record, error)

	// SaveRecord replaces the current record for rec's content and appends
	// it to the history in one transaction. The stored revision is one
	// more than the previous revision; rec.Revision, if non-zero, must
	// match the revision being replaced or moderation.ErrRevisionConflict
	// is returned.
	SaveRecord(ctx context.Context, rec moderation.Record) (moderation.Record, error)

	// ListHistory returns past revisions, newest first.
	ListHistory(ctx context.Context, contentType moderation.ContentType, contentID string, limit int) ([]moderation.Record, error)

	// Health check
	Ping(ctx context.Context) error
	Close() error
}

// DefaultHistoryLimit bounds ListHistory when the caller passes no limit.
const DefaultHistoryLimit = 50

// Limit returns the effective history limit for n.
func Limit(n int) int {
	if n <= 0 {
		return DefaultHistoryLimit
	}
	return n
}
