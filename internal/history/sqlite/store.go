package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/artpar/apipost/internal/history"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store implements history.Store using SQLite.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

var _ history.Store = (*Store)(nil)

// New creates a new SQLite-based history store.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return open(db)
}

// NewInMemory creates a new in-memory SQLite store (useful for testing).
func NewInMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	return open(db)
}

func open(db *sql.DB) (*Store, error) {
	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store, nil
}

// initialize creates the necessary tables and indexes.
func (s *Store) initialize() error {
	schema := `
		CREATE TABLE IF NOT EXISTS history (
			id TEXT PRIMARY KEY,
			timestamp DATETIME NOT NULL,
			request_id TEXT,
			request_method TEXT NOT NULL,
			request_url TEXT NOT NULL,
			request_headers TEXT,
			body_type TEXT,
			request_body TEXT,
			params TEXT,
			response_status INTEGER NOT NULL,
			status_info TEXT,
			response_headers TEXT,
			response_body TEXT,
			response_time INTEGER,
			response_size INTEGER,
			error TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_history_timestamp ON history(timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_history_method ON history(request_method);
		CREATE INDEX IF NOT EXISTS idx_history_status ON history(response_status);
	`

	_, err := s.db.Exec(schema)
	return err
}

const selectColumns = `
	SELECT id, timestamp, request_id, request_method, request_url, request_headers,
		body_type, request_body, params, response_status, status_info,
		response_headers, response_body, response_time, response_size, error
	FROM history`

// Add adds a new history entry and returns its ID.
func (s *Store) Add(ctx context.Context, entry history.Entry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", history.ErrStoreClosed
	}

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	headersJSON, err := json.Marshal(entry.RequestHeaders)
	if err != nil {
		return "", fmt.Errorf("failed to encode request headers: %w", err)
	}
	paramsJSON, err := json.Marshal(entry.Params)
	if err != nil {
		return "", fmt.Errorf("failed to encode params: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO history (
			id, timestamp, request_id, request_method, request_url, request_headers,
			body_type, request_body, params, response_status, status_info,
			response_headers, response_body, response_time, response_size, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID, entry.Timestamp, entry.RequestID, entry.RequestMethod, entry.RequestURL,
		string(headersJSON), entry.BodyType, entry.RequestBody, string(paramsJSON),
		entry.ResponseStatus, entry.StatusInfo, entry.ResponseHeaders, entry.ResponseBody,
		entry.ResponseTime, entry.ResponseSize, entry.Error,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert history entry: %w", err)
	}

	return entry.ID, nil
}

// Get retrieves a single history entry by ID.
func (s *Store) Get(ctx context.Context, id string) (history.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return history.Entry{}, history.ErrStoreClosed
	}

	if id == "" {
		return history.Entry{}, history.ErrInvalidID
	}

	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return history.Entry{}, history.ErrNotFound
	}
	if err != nil {
		return history.Entry{}, fmt.Errorf("failed to get history entry: %w", err)
	}

	return entry, nil
}

// List retrieves history entries matching the query options, newest first.
func (s *Store) List(ctx context.Context, opts history.QueryOptions) ([]history.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, history.ErrStoreClosed
	}

	query, args := buildListQuery(opts, false)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history entries: %w", err)
	}
	defer rows.Close()

	var entries []history.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Count returns the number of entries matching the query options.
func (s *Store) Count(ctx context.Context, opts history.QueryOptions) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, history.ErrStoreClosed
	}

	query, args := buildListQuery(opts, true)
	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count history entries: %w", err)
	}

	return count, nil
}

// Delete removes a history entry by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return history.ErrStoreClosed
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM history WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete history entry: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return history.ErrNotFound
	}

	return nil
}

// Prune deletes everything but the newest keepLast entries. A keepLast of
// zero or less is a no-op.
func (s *Store) Prune(ctx context.Context, keepLast int) (history.PruneResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return history.PruneResult{}, history.ErrStoreClosed
	}

	var result history.PruneResult
	if keepLast <= 0 {
		return result, nil
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM history").Scan(&total); err != nil {
		return result, fmt.Errorf("failed to count history: %w", err)
	}
	if total <= int64(keepLast) {
		return result, nil
	}
	toDelete := total - int64(keepLast)

	if err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(response_size), 0) FROM history
		WHERE id IN (SELECT id FROM history ORDER BY timestamp ASC LIMIT ?)
	`, toDelete).Scan(&result.FreedBytes); err != nil {
		return result, fmt.Errorf("failed to size history: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM history WHERE id IN (
			SELECT id FROM history ORDER BY timestamp ASC LIMIT ?
		)
	`, toDelete)
	if err != nil {
		return result, fmt.Errorf("failed to prune history: %w", err)
	}
	result.DeletedCount, _ = res.RowsAffected()

	return result, nil
}

// Clear removes all history entries.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return history.ErrStoreClosed
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM history"); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	return nil
}

// Close closes the store and releases resources.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

func buildListQuery(opts history.QueryOptions, countOnly bool) (string, []any) {
	query := selectColumns + " WHERE 1=1"
	if countOnly {
		query = "SELECT COUNT(*) FROM history WHERE 1=1"
	}

	var args []any

	if opts.Method != "" {
		query += " AND request_method = ?"
		args = append(args, opts.Method)
	}

	if opts.URLPattern != "" {
		query += " AND request_url LIKE ?"
		args = append(args, opts.URLPattern)
	}

	if opts.StatusMin > 0 {
		query += " AND response_status >= ?"
		args = append(args, opts.StatusMin)
	}

	if opts.StatusMax > 0 {
		query += " AND response_status <= ?"
		args = append(args, opts.StatusMax)
	}

	if opts.FailedOnly {
		query += " AND error <> ''"
	}

	if countOnly {
		return query, args
	}

	query += " ORDER BY timestamp DESC"

	// SQLite needs a LIMIT before OFFSET.
	if opts.Limit > 0 || opts.Offset > 0 {
		limit := opts.Limit
		if limit <= 0 {
			limit = -1
		}
		query += " LIMIT ?"
		args = append(args, limit)
	}

	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	return query, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (history.Entry, error) {
	var entry history.Entry
	var headersJSON, paramsJSON sql.NullString
	var requestID, bodyType, requestBody, statusInfo, respHeaders, respBody, errText sql.NullString

	err := row.Scan(
		&entry.ID, &entry.Timestamp, &requestID, &entry.RequestMethod, &entry.RequestURL,
		&headersJSON, &bodyType, &requestBody, &paramsJSON, &entry.ResponseStatus,
		&statusInfo, &respHeaders, &respBody, &entry.ResponseTime, &entry.ResponseSize,
		&errText,
	)
	if err != nil {
		return entry, err
	}

	entry.RequestID = requestID.String
	entry.BodyType = bodyType.String
	entry.RequestBody = requestBody.String
	entry.StatusInfo = statusInfo.String
	entry.ResponseHeaders = respHeaders.String
	entry.ResponseBody = respBody.String
	entry.Error = errText.String

	if headersJSON.Valid {
		json.Unmarshal([]byte(headersJSON.String), &entry.RequestHeaders)
	}
	if paramsJSON.Valid {
		json.Unmarshal([]byte(paramsJSON.String), &entry.Params)
	}

	return entry, nil
}
