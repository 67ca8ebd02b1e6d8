package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/unilost/unilost/internal/auth"
	"github.com/unilost/unilost/internal/config"
)

func TestOpenSQLiteFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "unilost.db")

	s, err := Open(ctx, config.DatabaseConfig{SQLitePath: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "unilost.db")

	for i := range 2 {
		s, err := Open(ctx, config.DatabaseConfig{SQLitePath: path})
		if err != nil {
			t.Fatalf("Open #%d: %v", i+1, err)
		}
		s.Close()
	}
}

func TestForeignKeysEnforcedOnEveryConnection(t *testing.T) {
	sqlDB, err := OpenSQLite(filepath.Join(t.TempDir(), "fk.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer sqlDB.Close()
	sqlDB.SetMaxOpenConns(4)

	ctx := context.Background()
	if err := MigrateSQLite(ctx, sqlDB); err != nil {
		t.Fatalf("MigrateSQLite: %v", err)
	}

	// Hold several connections at once so the pool has to open new ones.
	for i := range 4 {
		conn, err := sqlDB.Conn(ctx)
		if err != nil {
			t.Fatalf("Conn: %v", err)
		}
		defer conn.Close()

		var on int
		if err := conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&on); err != nil {
			t.Fatalf("PRAGMA foreign_keys: %v", err)
		}
		if on != 1 {
			t.Errorf("connection %d: foreign_keys = %d, want 1", i, on)
		}
	}
}

func TestEnsureDefaultUsers(t *testing.T) {
	ctx := context.Background()
	s := NewTestStore(t)

	n, err := EnsureDefaultUsers(ctx, s)
	if err != nil {
		t.Fatalf("EnsureDefaultUsers: %v", err)
	}
	if n != 2 {
		t.Fatalf("created %d users, want 2", n)
	}

	student, err := s.Users().FindByID(ctx, "student1")
	if err != nil || student == nil {
		t.Fatalf("FindByID(student1) = %v, %v", student, err)
	}
	if student.IsAdmin {
		t.Error("student1 is admin")
	}
	if !auth.CheckPassword(student.PasswordHash, "1234") {
		t.Error("student1 password does not match")
	}

	admin, err := s.Users().FindByID(ctx, "admin1")
	if err != nil || admin == nil {
		t.Fatalf("FindByID(admin1) = %v, %v", admin, err)
	}
	if !admin.IsAdmin {
		t.Error("admin1 is not admin")
	}
	if !auth.CheckPassword(admin.PasswordHash, "admin123") {
		t.Error("admin1 password does not match")
	}

	// Second call is a no-op.
	n, err = EnsureDefaultUsers(ctx, s)
	if err != nil {
		t.Fatalf("EnsureDefaultUsers again: %v", err)
	}
	if n != 0 {
		t.Errorf("second call created %d users, want 0", n)
	}
	users, err := s.Users().FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("got %d users, want 2", len(users))
	}
}

func TestEnsureDefaultUsersSkipsPopulatedTable(t *testing.T) {
	ctx := context.Background()
	s := NewTestStore(t)

	if _, err := s.Users().Create(ctx, "someone", "Someone", "x", false); err != nil {
		t.Fatalf("Create: %v", err)
	}

	n, err := EnsureDefaultUsers(ctx, s)
	if err != nil {
		t.Fatalf("EnsureDefaultUsers: %v", err)
	}
	if n != 0 {
		t.Errorf("created %d users in a populated table", n)
	}
}
