package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

func TestIsUniqueViolationPq(t *testing.T) {
	pqErr := &pq.Error{Code: uniqueViolation}
	if !IsUniqueViolation(pqErr) {
		t.Error("pq 23505 should be a unique violation")
	}
	if !IsUniqueViolation(fmt.Errorf("insert review: %w", pqErr)) {
		t.Error("wrapped pq 23505 should be a unique violation")
	}
	if IsUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Error("foreign key violation is not a unique violation")
	}
	if IsUniqueViolation(nil) {
		t.Error("nil is not a unique violation")
	}
	if IsUniqueViolation(errors.New("connection refused")) {
		t.Error("arbitrary errors are not unique violations")
	}
}

func TestIsUniqueViolationSqlite(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE t (slug TEXT UNIQUE)`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO t (slug) VALUES ('drama')`); err != nil {
		t.Fatal(err)
	}

	_, err = db.Exec(`INSERT INTO t (slug) VALUES ('drama')`)
	if err == nil {
		t.Fatal("expected constraint failure")
	}
	if !IsUniqueViolation(err) {
		t.Errorf("sqlite unique failure not recognized: %v", err)
	}
}
