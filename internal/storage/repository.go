// Package storage owns the SQLite persistence for users, sessions and
// entries. Every entry operation is scoped by the owning user id; rows
// belonging to other users are indistinguishable from absent rows.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ledgerly/internal/core"

	_ "modernc.org/sqlite"
)

// User is a stored account row.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Session is a stored session row joined with its owning user.
type Session struct {
	Token     string
	UserID    int64
	Email     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping verifies the underlying store is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// CreateUser inserts a new account. A taken email yields
// core.ErrEmailTaken.
func (r *SQLiteRepository) CreateUser(ctx context.Context, email, passwordHash string) (*User, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (email, password_hash) VALUES (?, ?)",
		email, passwordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, core.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("user insert id: %w", err)
	}
	return r.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by id.
func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (*User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at FROM users WHERE id = ?",
		id,
	)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email, core.ErrNotFound when absent.
func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at FROM users WHERE email = ?",
		email,
	)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// CreateSession stores a session token for a user.
func (r *SQLiteRepository) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a session row joined with its user. Expiry is
// the caller's concern; expired rows are still returned until swept.
func (r *SQLiteRepository) GetSession(ctx context.Context, token string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT s.token, s.user_id, u.email, s.expires_at, s.created_at
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token = ?
	`, token)

	var s Session
	if err := row.Scan(&s.Token, &s.UserID, &s.Email, &s.ExpiresAt, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &s, nil
}

// DeleteSession removes a session by token. Deleting an absent token is
// not an error.
func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes every session that expired before now
// and reports how many rows were swept.
func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired sessions rows affected: %w", err)
	}
	return n, nil
}

// CreateEntry persists a validated draft for the owning user and
// returns the stored record with its server-assigned id and createdAt.
func (r *SQLiteRepository) CreateEntry(ctx context.Context, userID int64, d core.Draft) (core.Entry, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO entries (user_id, title, amount, type, memo, occurred_on)
		VALUES (?, ?, ?, ?, ?, ?)
	`, userID, d.Title, d.Amount, string(d.Type), d.Memo, d.OccurredOn.String())
	if err != nil {
		return core.Entry{}, fmt.Errorf("insert entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Entry{}, fmt.Errorf("entry insert id: %w", err)
	}
	return r.GetEntry(ctx, userID, id)
}

// GetEntry returns the entry only if owned by userID; otherwise
// core.ErrNotFound, whether the row is absent or owned by someone else.
func (r *SQLiteRepository) GetEntry(ctx context.Context, userID, id int64) (core.Entry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, amount, type, memo, occurred_on, created_at
		FROM entries
		WHERE id = ? AND user_id = ?
	`, id, userID)

	e, err := scanEntry(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Entry{}, core.ErrNotFound
		}
		return core.Entry{}, err
	}
	return e, nil
}

// ListEntries returns the owner's entries matching the filter, ordered
// by occurred_on descending with id descending as the tie-break. The
// ordering is a contract surfaced to consumers.
func (r *SQLiteRepository) ListEntries(ctx context.Context, userID int64, f core.Filter) ([]core.Entry, error) {
	conditions := []string{"user_id = ?"}
	args := []any{userID}

	if f.Type.Valid() {
		conditions = append(conditions, "type = ?")
		args = append(args, string(f.Type))
	}
	if !f.Start.IsZero() {
		conditions = append(conditions, "occurred_on >= ?")
		args = append(args, f.Start.String())
	}
	if !f.End.IsZero() {
		conditions = append(conditions, "occurred_on <= ?")
		args = append(args, f.End.String())
	}

	query := `
		SELECT id, user_id, title, amount, type, memo, occurred_on, created_at
		FROM entries
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY occurred_on DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// UpdateEntry replaces the mutable fields of an owned entry. It never
// creates on miss; an absent or non-owned id yields core.ErrNotFound
// with no write performed.
func (r *SQLiteRepository) UpdateEntry(ctx context.Context, userID, id int64, d core.Draft) (core.Entry, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE entries
		SET title = ?, amount = ?, type = ?, memo = ?, occurred_on = ?
		WHERE id = ? AND user_id = ?
	`, d.Title, d.Amount, string(d.Type), d.Memo, d.OccurredOn.String(), id, userID)
	if err != nil {
		return core.Entry{}, fmt.Errorf("update entry: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return core.Entry{}, fmt.Errorf("update entry rows affected: %w", err)
	}
	if affected == 0 {
		return core.Entry{}, core.ErrNotFound
	}
	return r.GetEntry(ctx, userID, id)
}

// DeleteEntry removes an owned entry. Repeating the delete yields
// core.ErrNotFound.
func (r *SQLiteRepository) DeleteEntry(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM entries WHERE id = ? AND user_id = ?",
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete entry rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func scanEntry(scan func(...any) error) (core.Entry, error) {
	var (
		e          core.Entry
		entryType  string
		occurredOn string
	)
	if err := scan(&e.ID, &e.UserID, &e.Title, &e.Amount, &entryType, &e.Memo, &occurredOn, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Entry{}, err
		}
		return core.Entry{}, fmt.Errorf("scan entry: %w", err)
	}

	e.Type = core.EntryType(entryType)
	d, err := core.ParseDate(occurredOn)
	if err != nil {
		return core.Entry{}, fmt.Errorf("parse stored occurred_on %q: %w", occurredOn, err)
	}
	e.OccurredOn = d
	return e, nil
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite reports constraint failures in the error text;
	// the driver's error type is not exported in a matchable form.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
