// internal/ratelimit/sql_test.go
//
// Unit-tests for SQLStore using sqlmock.
//
// Run: go test ./internal/ratelimit -run SQL -v

package ratelimit

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLStore(sqlx.NewDb(db, "mysql")), mock
}

func TestSQLStore_OpensWindowForNewKey(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectWindowSQL)).
		WithArgs("lead:abc").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta(openWindowSQL)).
		WithArgs("lead:abc", now.Add(leadWindow)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w, allowed, err := s.Take(context.Background(), "lead:abc", leadMax, leadWindow, now)
	if err != nil {
		t.Fatalf("Take error: %v", err)
	}
	if !allowed || w.Count != 1 || !w.ResetAt.Equal(now.Add(leadWindow)) {
		t.Fatalf("unexpected window %+v allowed=%v", w, allowed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestSQLStore_IncrementsInsideWindow(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reset := now.Add(10 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectWindowSQL)).
		WithArgs("lead:abc").
		WillReturnRows(sqlmock.NewRows([]string{"hits", "reset_at"}).AddRow(3, reset))
	mock.ExpectExec(regexp.QuoteMeta(incrementSQL)).
		WithArgs("lead:abc").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w, allowed, err := s.Take(context.Background(), "lead:abc", leadMax, leadWindow, now)
	if err != nil {
		t.Fatalf("Take error: %v", err)
	}
	if !allowed || w.Count != 4 || !w.ResetAt.Equal(reset) {
		t.Fatalf("unexpected window %+v allowed=%v", w, allowed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestSQLStore_DeniesAtMax(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reset := now.Add(time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectWindowSQL)).
		WithArgs("lead:abc").
		WillReturnRows(sqlmock.NewRows([]string{"hits", "reset_at"}).AddRow(leadMax, reset))
	mock.ExpectCommit()

	l, err := New(s, leadMax, leadWindow, WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d, err := l.Check(context.Background(), "lead:abc")
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if d.Allowed || d.RetryAfterSeconds != 60 {
		t.Fatalf("unexpected decision %+v", d)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestSQLStore_ReopensExpiredWindow(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectWindowSQL)).
		WithArgs("lead:abc").
		WillReturnRows(sqlmock.NewRows([]string{"hits", "reset_at"}).AddRow(leadMax, now))
	mock.ExpectExec(regexp.QuoteMeta(openWindowSQL)).
		WithArgs("lead:abc", now.Add(leadWindow)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	w, allowed, err := s.Take(context.Background(), "lead:abc", leadMax, leadWindow, now)
	if err != nil || !allowed || w.Count != 1 {
		t.Fatalf("unexpected window %+v allowed=%v err=%v", w, allowed, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestSQLStore_RollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectWindowSQL)).
		WithArgs("lead:abc").
		WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	if _, _, err := s.Take(context.Background(), "lead:abc", leadMax, leadWindow, time.Now()); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestSQLStore_Prune(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(pruneSQL)).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := s.Prune(context.Background(), now)
	if err != nil || n != 7 {
		t.Fatalf("Prune = %d, %v", n, err)
	}
}

func TestSQLStore_EnsureSchema(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS lead_rate_limit")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}
