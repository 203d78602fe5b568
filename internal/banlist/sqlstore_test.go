// internal/banlist/sqlstore_test.go
//
// Unit-tests for the SQL KeyedStore using sqlmock.
//
// Run: go test ./internal/banlist -v

package banlist

import (
	"context"
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
	return NewSQLStore(sqlx.NewDb(db, "sqlmock")), mock
}

func TestSQLSetAdd(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(
		`INSERT IGNORE INTO keyed_set (k, member) VALUES (?, ?)`,
	)).
		WithArgs(KeyBannedIPs, "203.0.113.5").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.SetAdd(context.Background(), KeyBannedIPs, "203.0.113.5"); err != nil {
		t.Fatalf("SetAdd error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestSQLSetContains(t *testing.T) {
	s, mock := newMockStore(t)

	q := regexp.QuoteMeta(`SELECT 1 FROM keyed_set WHERE k = ? AND member = ? LIMIT 1`)

	mock.ExpectQuery(q).
		WithArgs(KeyBannedIPs, "203.0.113.5").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(q).
		WithArgs(KeyBannedIPs, "198.51.100.1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	hit, err := s.SetContains(context.Background(), KeyBannedIPs, "203.0.113.5")
	if err != nil || !hit {
		t.Fatalf("member lookup: hit=%v err=%v", hit, err)
	}
	hit, err = s.SetContains(context.Background(), KeyBannedIPs, "198.51.100.1")
	if err != nil || hit {
		t.Fatalf("non-member lookup: hit=%v err=%v", hit, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestSQLSetMembers(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT member FROM keyed_set WHERE k = ?`,
	)).
		WithArgs(KeyBannedCIDRs).
		WillReturnRows(sqlmock.NewRows([]string{"member"}).
			AddRow("203.0.113.0/24").AddRow("198.51.100.0/25"))

	got, err := s.SetMembers(context.Background(), KeyBannedCIDRs)
	if err != nil {
		t.Fatalf("SetMembers error: %v", err)
	}
	if len(got) != 2 || got[0] != "203.0.113.0/24" {
		t.Fatalf("unexpected result: %#v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestSQLPutValueWithTTL(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(
		`INSERT INTO keyed_value (k, v, expires_at) VALUES (?, ?, ?)`,
	)).
		WithArgs(MetaKey("203.0.113.5"), []byte(`{"reason":"abuse"}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.PutValue(context.Background(), MetaKey("203.0.113.5"),
		[]byte(`{"reason":"abuse"}`), time.Hour)
	if err != nil {
		t.Fatalf("PutValue error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestSQLGetValueExpiredReadsAbsent(t *testing.T) {
	s, mock := newMockStore(t)

	past := time.Now().Add(-time.Minute)
	q := regexp.QuoteMeta(`SELECT v, expires_at FROM keyed_value WHERE k = ?`)

	mock.ExpectQuery(q).
		WithArgs(MetaKey("203.0.113.5")).
		WillReturnRows(sqlmock.NewRows([]string{"v", "expires_at"}).
			AddRow([]byte(`{}`), past))
	mock.ExpectExec(regexp.QuoteMeta(
		`DELETE FROM keyed_value WHERE k = ?`,
	)).
		WithArgs(MetaKey("203.0.113.5")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := s.GetValue(context.Background(), MetaKey("203.0.113.5"))
	if err != nil {
		t.Fatalf("GetValue error: %v", err)
	}
	if got != nil {
		t.Fatalf("expired value still returned: %s", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestSQLGetValueMissing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT v, expires_at FROM keyed_value WHERE k = ?`,
	)).
		WithArgs(MetaKey("absent")).
		WillReturnRows(sqlmock.NewRows([]string{"v", "expires_at"}))

	got, err := s.GetValue(context.Background(), MetaKey("absent"))
	if err != nil {
		t.Fatalf("GetValue error: %v", err)
	}
	if got != nil {
		t.Fatalf("missing key returned %s", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}
