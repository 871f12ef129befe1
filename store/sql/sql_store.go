// Package sql provides SQL-based store implementations for MySQL, PostgreSQL, and TiDB.
package sql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	moderation "github.com/heibot/moderation"
	"github.com/heibot/moderation/store"
)

// Dialect represents the SQL dialect.
type Dialect string

const (
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
	DialectTiDB     Dialect = "tidb"
)

// driverName returns the database/sql driver registered for the dialect.
func (d Dialect) driverName() string {
	if d == DialectTiDB {
		return string(DialectMySQL)
	}
	return string(d)
}

// Config holds the configuration for SQL store.
type Config struct {
	Dialect         Dialect
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns the default SQL store configuration.
func DefaultConfig() Config {
	return Config{
		Dialect:         DialectMySQL,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// Store implements the store.Store interface using SQL database.
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
	newID   func() string
}

var _ store.Store = (*Store)(nil)

// rebind converts MySQL-style placeholders (?) to the appropriate format for the dialect.
// For PostgreSQL, converts ? to $1, $2, etc.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}

	var result []byte
	paramIndex := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = strconv.AppendInt(result, int64(paramIndex), 10)
			paramIndex++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}

// New opens a database connection and creates a new SQL store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	switch cfg.Dialect {
	case DialectMySQL, DialectPostgres, DialectTiDB:
	default:
		return nil, moderation.NewValidationError("dialect", "unsupported dialect "+string(cfg.Dialect))
	}

	db, err := sql.Open(cfg.Dialect.driverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewWithDB(db, cfg.Dialect), nil
}

// NewWithDB creates a new SQL store with an existing database connection.
func NewWithDB(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

const recordColumns = `id, content_type, content_id, parent_id, author_id, approved, safety_score, revision, result_json, created_at`

// GetRecord gets the current record for a piece of content.
func (s *Store) GetRecord(ctx context.Context, contentType moderation.ContentType, contentID string) (*moderation.Record, error) {
	query := s.rebind(`SELECT ` + recordColumns + `
              FROM moderation_record WHERE content_type = ? AND content_id = ?`)

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, contentType, contentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, moderation.ErrRecordNotFound
	}
	if err != nil {
		return nil, moderation.NewStoreError("get", "moderation_record", err)
	}
	return rec, nil
}

// SaveRecord upserts the current record and appends a history row.
func (s *Store) SaveRecord(ctx context.Context, rec moderation.Record) (moderation.Record, error) {
	if rec.ContentID == "" {
		return moderation.Record{}, moderation.NewValidationError("content_id", "required")
	}

	resultJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return moderation.Record{}, fmt.Errorf("failed to marshal result: %w", err)
	}
	rec.Approved = rec.Result.Approved
	rec.SafetyScore = rec.Result.SafetyScore
	rec.CreatedAt = s.now().UnixMilli()
	expected := rec.Revision

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			id  string
			rev int
		)
		err := tx.QueryRowContext(ctx, s.rebind(`SELECT id, revision FROM moderation_record
              WHERE content_type = ? AND content_id = ? FOR UPDATE`), rec.ContentType, rec.ContentID).Scan(&id, &rev)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			if expected != 0 {
				return moderation.ErrRevisionConflict
			}
			rec.ID = s.newID()
			rec.Revision = 1
			_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO moderation_record (`+recordColumns+`)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
				rec.ID, rec.ContentType, rec.ContentID, rec.ParentID, rec.AuthorID,
				rec.Approved, rec.SafetyScore, rec.Revision, string(resultJSON), rec.CreatedAt)
			if err != nil {
				return moderation.NewStoreError("create", "moderation_record", err)
			}

		case err != nil:
			return moderation.NewStoreError("get", "moderation_record", err)

		default:
			if expected != 0 && expected != rev {
				return moderation.ErrRevisionConflict
			}
			rec.ID = id
			rec.Revision = rev + 1
			res, err := tx.ExecContext(ctx, s.rebind(`UPDATE moderation_record SET parent_id = ?, author_id = ?,
              approved = ?, safety_score = ?, revision = ?, result_json = ?, created_at = ?
              WHERE id = ? AND revision = ?`),
				rec.ParentID, rec.AuthorID, rec.Approved, rec.SafetyScore, rec.Revision,
				string(resultJSON), rec.CreatedAt, id, rev)
			if err != nil {
				return moderation.NewStoreError("update", "moderation_record", err)
			}
			if affected, _ := res.RowsAffected(); affected == 0 {
				return moderation.ErrRevisionConflict
			}
		}

		_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO moderation_record_history (id, record_id, content_type, content_id,
              parent_id, author_id, approved, safety_score, revision, result_json, created_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			s.newID(), rec.ID, rec.ContentType, rec.ContentID, rec.ParentID, rec.AuthorID,
			rec.Approved, rec.SafetyScore, rec.Revision, string(resultJSON), rec.CreatedAt)
		if err != nil {
			return moderation.NewStoreError("create", "moderation_record_history", err)
		}
		return nil
	})
	if err != nil {
		return moderation.Record{}, err
	}
	return rec, nil
}

// ListHistory lists past revisions for a piece of content, newest first.
func (s *Store) ListHistory(ctx context.Context, contentType moderation.ContentType, contentID string, limit int) ([]moderation.Record, error) {
	query := s.rebind(`SELECT record_id, content_type, content_id, parent_id, author_id, approved, safety_score,
              revision, result_json, created_at
              FROM moderation_record_history WHERE content_type = ? AND content_id = ?
              ORDER BY revision DESC LIMIT ?`)

	rows, err := s.db.QueryContext(ctx, query, contentType, contentID, store.Limit(limit))
	if err != nil {
		return nil, moderation.NewStoreError("list", "moderation_record_history", err)
	}
	defer rows.Close()

	var records []moderation.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, moderation.NewStoreError("scan", "moderation_record_history", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, moderation.NewStoreError("list", "moderation_record_history", err)
	}

	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*moderation.Record, error) {
	var (
		rec        moderation.Record
		resultJSON sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.ContentType, &rec.ContentID, &rec.ParentID, &rec.AuthorID,
		&rec.Approved, &rec.SafetyScore, &rec.Revision, &resultJSON, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if resultJSON.Valid && resultJSON.String != "" {
		if err := json.Unmarshal([]byte(resultJSON.String), &rec.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
	}
	return &rec, nil
}

// withTx executes a function within a transaction.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return moderation.NewStoreError("begin", "moderation_record", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return moderation.NewStoreError("commit", "moderation_record", err)
	}

	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
