package sql

import (
	"context"

	// Drivers for the supported dialects.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	moderation "github.com/heibot/moderation"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS moderation_record (
  id           VARCHAR(36)  NOT NULL PRIMARY KEY,
  content_type VARCHAR(32)  NOT NULL,
  content_id   VARCHAR(128) NOT NULL,
  parent_id    VARCHAR(128) NOT NULL DEFAULT '',
  author_id    VARCHAR(128) NOT NULL DEFAULT '',
  approved     TINYINT(1)   NOT NULL,
  safety_score INT          NOT NULL,
  revision     INT          NOT NULL,
  result_json  JSON         NOT NULL,
  created_at   BIGINT       NOT NULL,
  UNIQUE KEY uk_content (content_type, content_id)
)`,
	`CREATE TABLE IF NOT EXISTS moderation_record_history (
  id           VARCHAR(36)  NOT NULL PRIMARY KEY,
  record_id    VARCHAR(36)  NOT NULL,
  content_type VARCHAR(32)  NOT NULL,
  content_id   VARCHAR(128) NOT NULL,
  parent_id    VARCHAR(128) NOT NULL DEFAULT '',
  author_id    VARCHAR(128) NOT NULL DEFAULT '',
  approved     TINYINT(1)   NOT NULL,
  safety_score INT          NOT NULL,
  revision     INT          NOT NULL,
  result_json  JSON         NOT NULL,
  created_at   BIGINT       NOT NULL,
  KEY idx_content_revision (content_type, content_id, revision)
)`,
	`CREATE TABLE IF NOT EXISTS moderation_api_log (
  id            VARCHAR(36)  NOT NULL PRIMARY KEY,
  provider      VARCHAR(32)  NOT NULL,
  operation     VARCHAR(16)  NOT NULL,
  success       TINYINT(1)   NOT NULL,
  status_code   INT          NOT NULL DEFAULT 0,
  error_code    VARCHAR(64)  NOT NULL DEFAULT '',
  error_message TEXT,
  retry_count   INT          NOT NULL DEFAULT 0,
  duration_ms   BIGINT       NOT NULL,
  input_size    INT          NOT NULL DEFAULT 0,
  output_size   INT          NOT NULL DEFAULT 0,
  created_at    BIGINT       NOT NULL,
  KEY idx_provider_created (provider, created_at)
)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS moderation_record (
  id           VARCHAR(36)  PRIMARY KEY,
  content_type VARCHAR(32)  NOT NULL,
  content_id   VARCHAR(128) NOT NULL,
  parent_id    VARCHAR(128) NOT NULL DEFAULT '',
  author_id    VARCHAR(128) NOT NULL DEFAULT '',
  approved     BOOLEAN      NOT NULL,
  safety_score INTEGER      NOT NULL,
  revision     INTEGER      NOT NULL,
  result_json  JSONB        NOT NULL,
  created_at   BIGINT       NOT NULL,
  UNIQUE (content_type, content_id)
)`,
	`CREATE TABLE IF NOT EXISTS moderation_record_history (
  id           VARCHAR(36)  PRIMARY KEY,
  record_id    VARCHAR(36)  NOT NULL,
  content_type VARCHAR(32)  NOT NULL,
  content_id   VARCHAR(128) NOT NULL,
  parent_id    VARCHAR(128) NOT NULL DEFAULT '',
  author_id    VARCHAR(128) NOT NULL DEFAULT '',
  approved     BOOLEAN      NOT NULL,
  safety_score INTEGER      NOT NULL,
  revision     INTEGER      NOT NULL,
  result_json  JSONB        NOT NULL,
  created_at   BIGINT       NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_history_content_revision
  ON moderation_record_history (content_type, content_id, revision)`,
	`CREATE TABLE IF NOT EXISTS moderation_api_log (
  id            VARCHAR(36)  PRIMARY KEY,
  provider      VARCHAR(32)  NOT NULL,
  operation     VARCHAR(16)  NOT NULL,
  success       BOOLEAN      NOT NULL,
  status_code   INTEGER      NOT NULL DEFAULT 0,
  error_code    VARCHAR(64)  NOT NULL DEFAULT '',
  error_message TEXT,
  retry_count   INTEGER      NOT NULL DEFAULT 0,
  duration_ms   BIGINT       NOT NULL,
  input_size    INTEGER      NOT NULL DEFAULT 0,
  output_size   INTEGER      NOT NULL DEFAULT 0,
  created_at    BIGINT       NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_api_log_provider_created
  ON moderation_api_log (provider, created_at)`,
}

// Schema returns the DDL statements for the dialect.
func Schema(d Dialect) []string {
	if d == DialectPostgres {
		return postgresSchema
	}
	return mysqlSchema
}

// Migrate creates the record, history and provider call log tables if
// they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range Schema(s.dialect) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return moderation.NewStoreError("migrate", "moderation_record", err)
		}
	}
	return nil
}
