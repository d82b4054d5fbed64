package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestOpenAndMigrate(t *testing.T) {
	d := openTestDB(t)

	for _, table := range []string{"users", "goose_db_version"} {
		var name string
		err := d.conn.QueryRow(
			`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q should exist after migrations: %v", table, err)
		}
	}
}

func TestReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	for i := 0; i < 2; i++ {
		d, err := Open(path)
		if err != nil {
			t.Fatalf("Open #%d: %v", i+1, err)
		}
		d.Close()
	}
}

func TestUpsertAndGetUser(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	if err := d.UpsertUser(ctx, "admin", "hash-1"); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	u, err := d.GetUser(ctx, "admin")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u == nil || u.PasswordHash != "hash-1" || u.Disabled {
		t.Fatalf("unexpected user %+v", u)
	}

	if err := d.SetUserDisabled(ctx, "admin", true); err != nil {
		t.Fatalf("SetUserDisabled: %v", err)
	}
	if err := d.UpsertUser(ctx, "admin", "hash-2"); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	u, _ = d.GetUser(ctx, "admin")
	if u.PasswordHash != "hash-2" {
		t.Fatalf("expected hash-2, got %q", u.PasswordHash)
	}
	if u.Disabled {
		t.Fatal("upsert should re-enable the user")
	}
}

func TestGetUserNotFound(t *testing.T) {
	d := openTestDB(t)

	u, err := d.GetUser(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u != nil {
		t.Fatalf("expected nil for unknown user, got %+v", u)
	}
}

func TestUpsertUserRejectsBlankName(t *testing.T) {
	d := openTestDB(t)
	for _, name := range []string{"", " admin", "admin "} {
		if err := d.UpsertUser(context.Background(), name, "h"); !errors.Is(err, ErrInvalidUsername) {
			t.Errorf("UpsertUser(%q) err = %v, want ErrInvalidUsername", name, err)
		}
	}
}

func TestSetUserDisabledUnknown(t *testing.T) {
	d := openTestDB(t)
	err := d.SetUserDisabled(context.Background(), "ghost", true)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestListUsers(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	for _, name := range []string{"zoe", "alice"} {
		if err := d.UpsertUser(ctx, name, "h"); err != nil {
			t.Fatalf("UpsertUser: %v", err)
		}
	}
	users, err := d.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 || users[0].Username != "alice" || users[1].Username != "zoe" {
		t.Fatalf("unexpected users %+v", users)
	}
}
