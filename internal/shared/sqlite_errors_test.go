package shared

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func TestConflictErrorText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err      error
		busy     bool
		locked   bool
		conflict bool
	}{
		{nil, false, false, false},
		{errors.New("no such table: users"), false, false, false},
		{errors.New("SQLITE_BUSY: cannot commit"), true, false, true},
		{fmt.Errorf("update session: %w", errors.New("database is locked (5)")), false, true, true},
	}
	for _, tt := range tests {
		if got := IsSQLiteBusyError(tt.err); got != tt.busy {
			t.Errorf("IsSQLiteBusyError(%v) = %v", tt.err, got)
		}
		if got := IsSQLiteLockedError(tt.err); got != tt.locked {
			t.Errorf("IsSQLiteLockedError(%v) = %v", tt.err, got)
		}
		if got := IsSQLiteConflictError(tt.err); got != tt.conflict {
			t.Errorf("IsSQLiteConflictError(%v) = %v", tt.err, got)
		}
	}
}

func TestConflictErrorFromDriver(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "lock.db") + "?_pragma=busy_timeout(0)"

	open := func() *sql.DB {
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		db.SetMaxOpenConns(1)
		t.Cleanup(func() { _ = db.Close() })
		return db
	}
	a, b := open(), open()

	if _, err := a.ExecContext(ctx, "CREATE TABLE t (v INTEGER)"); err != nil {
		t.Fatalf("create: %v", err)
	}
	holder, err := a.Conn(ctx)
	if err != nil {
		t.Fatalf("conn: %v", err)
	}
	defer func() { _ = holder.Close() }()
	if _, err := holder.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer func() { _, _ = holder.ExecContext(ctx, "ROLLBACK") }()

	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err = b.ExecContext(wctx, "INSERT INTO t (v) VALUES (1)")
	if err == nil {
		t.Fatal("expected the second writer to be blocked")
	}
	if !IsSQLiteConflictError(fmt.Errorf("insert: %w", err)) {
		t.Fatalf("expected a conflict error, got %v", err)
	}
}
