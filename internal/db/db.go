package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection to the SQLite database.
type DB struct {
	conn *sql.DB
}

// User is an account allowed to obtain access tokens.
type User struct {
	Username     string
	PasswordHash string
	Disabled     bool
	CreatedAt    string
	UpdatedAt    string
}

// ErrInvalidUsername is returned for blank or whitespace-padded usernames.
var ErrInvalidUsername = errors.New("invalid username")

// Open creates a new DB connection and runs all pending migrations.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	d := &DB{conn: conn}
	if err := d.migrate(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// --- Migrations ---

func (d *DB) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration fs: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, d.conn, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// --- User Methods ---

const userColumns = `username, password_hash, disabled, created_at, updated_at`

// UpsertUser creates the user or replaces its password hash and re-enables it.
func (d *DB) UpsertUser(ctx context.Context, username, passwordHash string) error {
	if username == "" || strings.TrimSpace(username) != username {
		return ErrInvalidUsername
	}
	_, err := d.conn.ExecContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES (?, ?)
		 ON CONFLICT(username) DO UPDATE SET password_hash = excluded.password_hash, disabled = 0, updated_at = datetime('now')`,
		username, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("upsert user %q: %w", username, err)
	}
	return nil
}

// GetUser retrieves a user by name. It returns nil, nil when none exists.
func (d *DB) GetUser(ctx context.Context, username string) (*User, error) {
	u := &User{}
	row := d.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	err := row.Scan(&u.Username, &u.PasswordHash, &u.Disabled, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %q: %w", username, err)
	}
	return u, nil
}

// SetUserDisabled enables or disables a user.
func (d *DB) SetUserDisabled(ctx context.Context, username string, disabled bool) error {
	res, err := d.conn.ExecContext(ctx,
		`UPDATE users SET disabled = ?, updated_at = datetime('now') WHERE username = ?`, disabled, username)
	if err != nil {
		return fmt.Errorf("update user %q: %w", username, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update user %q: %w", username, sql.ErrNoRows)
	}
	return nil
}

// ListUsers returns all users ordered by name.
func (d *DB) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.Username, &u.PasswordHash, &u.Disabled, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
