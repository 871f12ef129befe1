package sql

import (
	"context"

	moderation "github.com/heibot/moderation"
	"github.com/heibot/moderation/providers"
)

var _ providers.APILogStore = (*Store)(nil)

// SaveAPILog persists one provider call entry.
func (s *Store) SaveAPILog(ctx context.Context, entry providers.APILogEntry) error {
	if entry.ID == "" {
		entry.ID = s.newID()
	}
	created := entry.Timestamp
	if created.IsZero() {
		created = s.now()
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO moderation_api_log
		(id, provider, operation, success, status_code, error_code, error_message,
		 retry_count, duration_ms, input_size, output_size, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		entry.ID, entry.Provider, entry.Operation, entry.Success, entry.StatusCode,
		entry.ErrorCode, entry.ErrorMessage, entry.RetryCount, entry.Duration.Milliseconds(),
		entry.InputSize, entry.OutputSize, created.UnixMilli())
	if err != nil {
		return moderation.NewStoreError("create", "moderation_api_log", err)
	}
	return nil
}
