package sql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	moderation "github.com/heibot/moderation"
	"github.com/heibot/moderation/providers"
)

var fixedNow = time.Date(2025, 3, 8, 10, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T, dialect Dialect) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := NewWithDB(db, dialect)
	s.now = func() time.Time { return fixedNow }
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return s, mock
}

func sampleRecord() moderation.Record {
	return moderation.Record{
		ContentType: moderation.ContentPost,
		ContentID:   "post-1",
		AuthorID:    "user-9",
		Result: moderation.Result{
			Approved:    true,
			Sentiment:   moderation.SentimentPositive,
			SafetyScore: 92,
			Flags:       []string{"safe"},
			Reason:      "Auto-approved by sentiment analysis",
			ModeratedAt: fixedNow,
		},
	}
}

func TestRebind(t *testing.T) {
	pg := &Store{dialect: DialectPostgres}
	if got := pg.rebind("a = ? AND b = ? LIMIT ?"); got != "a = $1 AND b = $2 LIMIT $3" {
		t.Errorf("postgres rebind = %q", got)
	}
	my := &Store{dialect: DialectMySQL}
	if got := my.rebind("a = ?"); got != "a = ?" {
		t.Errorf("mysql rebind = %q", got)
	}
}

func TestDialect_DriverName(t *testing.T) {
	if DialectTiDB.driverName() != "mysql" || DialectPostgres.driverName() != "postgres" {
		t.Error("unexpected driver names")
	}
}

func TestStore_SaveRecord_Insert(t *testing.T) {
	s, mock := newMockStore(t, DialectMySQL)
	rec := sampleRecord()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, revision FROM moderation_record WHERE content_type = \? AND content_id = \? FOR UPDATE`).
		WithArgs(moderation.ContentPost, "post-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO moderation_record \(`).
		WithArgs("id-1", moderation.ContentPost, "post-1", "", "user-9", true, 92, 1, sqlmock.AnyArg(), fixedNow.UnixMilli()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO moderation_record_history`).
		WithArgs("id-2", "id-1", moderation.ContentPost, "post-1", "", "user-9", true, 92, 1, sqlmock.AnyArg(), fixedNow.UnixMilli()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	got, err := s.SaveRecord(context.Background(), rec)
	if err != nil {
		t.Fatalf("SaveRecord() error = %v", err)
	}
	if got.ID != "id-1" || got.Revision != 1 || !got.Approved || got.SafetyScore != 92 {
		t.Errorf("SaveRecord() = %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestStore_SaveRecord_Update(t *testing.T) {
	s, mock := newMockStore(t, DialectPostgres)
	rec := sampleRecord()
	rec.Result.Approved = false
	rec.Result.SafetyScore = 15

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, revision FROM moderation_record WHERE content_type = \$1 AND content_id = \$2 FOR UPDATE`).
		WithArgs(moderation.ContentPost, "post-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "revision"}).AddRow("rec-7", 2))
	mock.ExpectExec(`UPDATE moderation_record SET`).
		WithArgs("", "user-9", false, 15, 3, sqlmock.AnyArg(), fixedNow.UnixMilli(), "rec-7", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO moderation_record_history`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	got, err := s.SaveRecord(context.Background(), rec)
	if err != nil {
		t.Fatalf("SaveRecord() error = %v", err)
	}
	if got.ID != "rec-7" || got.Revision != 3 || got.Approved {
		t.Errorf("SaveRecord() = %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestStore_SaveRecord_Conflicts(t *testing.T) {
	t.Run("stale expected revision", func(t *testing.T) {
		s, mock := newMockStore(t, DialectMySQL)
		rec := sampleRecord()
		rec.Revision = 1

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id, revision FROM moderation_record`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "revision"}).AddRow("rec-1", 4))
		mock.ExpectRollback()

		_, err := s.SaveRecord(context.Background(), rec)
		if !errors.Is(err, moderation.ErrRevisionConflict) {
			t.Fatalf("SaveRecord() error = %v, want ErrRevisionConflict", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})

	t.Run("concurrent update", func(t *testing.T) {
		s, mock := newMockStore(t, DialectMySQL)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id, revision FROM moderation_record`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "revision"}).AddRow("rec-1", 1))
		mock.ExpectExec(`UPDATE moderation_record SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := s.SaveRecord(context.Background(), sampleRecord())
		if !errors.Is(err, moderation.ErrRevisionConflict) {
			t.Fatalf("SaveRecord() error = %v, want ErrRevisionConflict", err)
		}
	})

	t.Run("history insert fails", func(t *testing.T) {
		s, mock := newMockStore(t, DialectMySQL)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id, revision FROM moderation_record`).WillReturnError(sql.ErrNoRows)
		mock.ExpectExec(`INSERT INTO moderation_record \(`).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`INSERT INTO moderation_record_history`).WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		_, err := s.SaveRecord(context.Background(), sampleRecord())
		if !moderation.IsStoreError(err) {
			t.Fatalf("SaveRecord() error = %v, want StoreError", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestStore_SaveRecord_RequiresContentID(t *testing.T) {
	s, _ := newMockStore(t, DialectMySQL)
	_, err := s.SaveRecord(context.Background(), moderation.Record{ContentType: moderation.ContentPost})
	if !moderation.IsValidationError(err) {
		t.Errorf("SaveRecord() error = %v, want ValidationError", err)
	}
}

func TestStore_GetRecord(t *testing.T) {
	s, mock := newMockStore(t, DialectMySQL)
	result, _ := json.Marshal(sampleRecord().Result)

	cols := []string{"id", "content_type", "content_id", "parent_id", "author_id", "approved", "safety_score", "revision", "result_json", "created_at"}
	mock.ExpectQuery(`FROM moderation_record WHERE content_type = \? AND content_id = \?`).
		WithArgs(moderation.ContentPost, "post-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("rec-1", "post", "post-1", "", "user-9", true, 92, 2, string(result), fixedNow.UnixMilli()))

	got, err := s.GetRecord(context.Background(), moderation.ContentPost, "post-1")
	if err != nil {
		t.Fatalf("GetRecord() error = %v", err)
	}
	if got.ID != "rec-1" || got.Revision != 2 || got.Result.SafetyScore != 92 || !got.Result.HasFlag("safe") {
		t.Errorf("GetRecord() = %+v", got)
	}

	mock.ExpectQuery(`FROM moderation_record WHERE`).WillReturnError(sql.ErrNoRows)
	if _, err := s.GetRecord(context.Background(), moderation.ContentPost, "missing"); !errors.Is(err, moderation.ErrRecordNotFound) {
		t.Errorf("GetRecord() error = %v, want ErrRecordNotFound", err)
	}
}

func TestStore_ListHistory(t *testing.T) {
	s, mock := newMockStore(t, DialectMySQL)

	cols := []string{"record_id", "content_type", "content_id", "parent_id", "author_id", "approved", "safety_score", "revision", "result_json", "created_at"}
	mock.ExpectQuery(`FROM moderation_record_history WHERE content_type = \? AND content_id = \? ORDER BY revision DESC LIMIT \?`).
		WithArgs(moderation.ContentComment, "c-1", 50).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("rec-1", "comment", "c-1", "post-1", "u", false, 20, 2, `{"approved":false,"safety_score":20}`, int64(2)).
			AddRow("rec-1", "comment", "c-1", "post-1", "u", true, 92, 1, `{"approved":true,"safety_score":92}`, int64(1)))

	got, err := s.ListHistory(context.Background(), moderation.ContentComment, "c-1", 0)
	if err != nil {
		t.Fatalf("ListHistory() error = %v", err)
	}
	if len(got) != 2 || got[0].Revision != 2 || got[1].Revision != 1 {
		t.Fatalf("ListHistory() = %+v", got)
	}
	if got[0].ParentID != "post-1" || got[0].Result.Approved {
		t.Errorf("first revision = %+v", got[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestStore_Migrate(t *testing.T) {
	s, mock := newMockStore(t, DialectPostgres)
	for range Schema(DialectPostgres) {
		mock.ExpectExec(`CREATE`).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestStore_SaveAPILog(t *testing.T) {
	s, mock := newMockStore(t, DialectPostgres)

	mock.ExpectExec(`INSERT INTO moderation_api_log .* VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10, \$11, \$12\)`).
		WithArgs("id-1", "gemini", "generate", false, 503, "HTTP", "unavailable", 2, int64(1500), 120, 0, fixedNow.UnixMilli()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.SaveAPILog(context.Background(), providers.APILogEntry{
		Provider:     "gemini",
		Operation:    "generate",
		StatusCode:   503,
		ErrorCode:    "HTTP",
		ErrorMessage: "unavailable",
		RetryCount:   2,
		Duration:     1500 * time.Millisecond,
		InputSize:    120,
	})
	if err != nil {
		t.Fatalf("SaveAPILog() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestStore_SaveAPILog_Error(t *testing.T) {
	s, mock := newMockStore(t, DialectMySQL)
	mock.ExpectExec(`INSERT INTO moderation_api_log`).WillReturnError(errors.New("table missing"))

	err := s.SaveAPILog(context.Background(), providers.APILogEntry{ID: "log-1", Provider: "googlenl", Operation: "classify", Success: true})
	if !moderation.IsStoreError(err) {
		t.Errorf("SaveAPILog() error = %v, want StoreError", err)
	}
}
