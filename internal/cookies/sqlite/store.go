package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/artpar/apipost/internal/cookies"
	_ "modernc.org/sqlite"
)

// Store implements cookies.Store using SQLite.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

var _ cookies.Store = (*Store)(nil)

// New opens or creates the cookie database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open cookie database: %w", err)
	}
	return open(db)
}

// NewInMemory creates a store that lives as long as the process.
func NewInMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return open(db)
}

func open(db *sql.DB) (*Store, error) {
	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cookie database: %w", err)
	}
	return store, nil
}

// Expiry and update times are unix seconds; expires is 0 for session cookies.
func (s *Store) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS cookies (
			domain TEXT NOT NULL,
			path TEXT NOT NULL,
			name TEXT NOT NULL,
			value TEXT NOT NULL,
			secure INTEGER NOT NULL DEFAULT 0,
			http_only INTEGER NOT NULL DEFAULT 0,
			host_only INTEGER NOT NULL DEFAULT 0,
			same_site TEXT NOT NULL DEFAULT '',
			expires INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (domain, path, name)
		);

		CREATE INDEX IF NOT EXISTS idx_cookies_expires ON cookies(expires);
	`)
	if err != nil {
		return err
	}

	// Databases created before host-only tracking lack the column.
	var n int
	if err := s.db.QueryRow(
		"SELECT COUNT(*) FROM pragma_table_info('cookies') WHERE name = 'host_only'").Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		_, err = s.db.Exec("ALTER TABLE cookies ADD COLUMN host_only INTEGER NOT NULL DEFAULT 0")
	}
	return err
}

// Save inserts or replaces a cookie.
func (s *Store) Save(ctx context.Context, c cookies.Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cookies.ErrStoreClosed
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cookies (domain, path, name, value, secure, http_only, host_only, same_site, expires, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (domain, path, name) DO UPDATE SET
			value = excluded.value,
			secure = excluded.secure,
			http_only = excluded.http_only,
			host_only = excluded.host_only,
			same_site = excluded.same_site,
			expires = excluded.expires,
			updated_at = excluded.updated_at
	`,
		c.Domain, c.Path, c.Name, c.Value, c.Secure, c.HTTPOnly, c.HostOnly, c.SameSite,
		unixOrZero(c.Expires), c.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save cookie %q: %w", c.Name, err)
	}
	return nil
}

// Delete removes one cookie. Deleting a missing cookie is not an error.
func (s *Store) Delete(ctx context.Context, domain, path, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cookies.ErrStoreClosed
	}
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM cookies WHERE domain = ? AND path = ? AND name = ?", domain, path, name)
	if err != nil {
		return fmt.Errorf("failed to delete cookie %q: %w", name, err)
	}
	return nil
}

// List returns unexpired cookies ordered by domain, path and name.
func (s *Store) List(ctx context.Context, domain string) ([]cookies.Cookie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, cookies.ErrStoreClosed
	}

	query := `
		SELECT domain, path, name, value, secure, http_only, host_only, same_site, expires, updated_at
		FROM cookies
		WHERE (expires = 0 OR expires > ?)`
	args := []any{time.Now().Unix()}
	if domain != "" {
		query += " AND domain = ?"
		args = append(args, domain)
	}
	query += " ORDER BY domain, path, name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cookies: %w", err)
	}
	defer rows.Close()

	var result []cookies.Cookie
	for rows.Next() {
		var (
			c                cookies.Cookie
			expires, updated int64
		)
		if err := rows.Scan(&c.Domain, &c.Path, &c.Name, &c.Value, &c.Secure, &c.HTTPOnly,
			&c.HostOnly, &c.SameSite, &expires, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan cookie: %w", err)
		}
		if expires != 0 {
			c.Expires = time.Unix(expires, 0)
		}
		c.UpdatedAt = time.Unix(updated, 0)
		result = append(result, c)
	}
	return result, rows.Err()
}

// DeleteDomain removes every cookie of domain and returns how many.
func (s *Store) DeleteDomain(ctx context.Context, domain string) (int64, error) {
	return s.exec(ctx, "DELETE FROM cookies WHERE domain = ?", domain)
}

// DeleteExpired removes cookies whose expiry is not after now.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return s.exec(ctx, "DELETE FROM cookies WHERE expires != 0 AND expires <= ?", now.Unix())
}

// Clear removes every cookie.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.exec(ctx, "DELETE FROM cookies")
	return err
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, cookies.ErrStoreClosed
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete cookies: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
