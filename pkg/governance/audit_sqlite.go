package governance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteAuditLog persists audit entries in SQLite.
type SQLiteAuditLog struct {
	db *sql.DB
}

// OpenSQLiteAuditLog opens (or creates) the audit database at path.
func OpenSQLiteAuditLog(path string) (*SQLiteAuditLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteAuditLog(db)
}

// NewSQLiteAuditLog creates a SQLite-backed audit log and ensures schema.
func NewSQLiteAuditLog(db *sql.DB) (*SQLiteAuditLog, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureAuditSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteAuditLog{db: db}, nil
}

func ensureAuditSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			action TEXT NOT NULL,
			params_json TEXT,
			outcome TEXT,
			duration_ms INTEGER,
			cost REAL,
			success INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_audit_entries_action ON audit_entries(action);
		CREATE INDEX IF NOT EXISTS idx_audit_entries_created_at ON audit_entries(created_at);
	`)
	return err
}

// Record stores a single audit entry.
func (s *SQLiteAuditLog) Record(ctx context.Context, entry AuditEntry) error {
	params, err := encodeParams(entry.Params)
	if err != nil {
		return err
	}
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_entries (action, params_json, outcome, duration_ms, cost, success, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		entry.Action,
		params,
		entry.Outcome,
		entry.Duration.Milliseconds(),
		entry.Cost,
		boolToInt(entry.Success),
		ts,
	)
	return err
}

// List returns audit entries matching the filter, oldest first.
func (s *SQLiteAuditLog) List(ctx context.Context, filter AuditFilter) ([]AuditEntry, error) {
	query := `
		SELECT action, params_json, outcome, duration_ms, cost, success, created_at
		FROM audit_entries
	`
	var args []any
	where := ""
	addFilter := func(clause string, value any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, value)
	}
	if filter.Action != "" {
		addFilter("action = ?", filter.Action)
	}
	if filter.Success != nil {
		addFilter("success = ?", boolToInt(*filter.Success))
	}
	if !filter.Since.IsZero() {
		addFilter("created_at >= ?", filter.Since)
	}
	query += where + " ORDER BY created_at ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var (
			entry      AuditEntry
			paramsJSON sql.NullString
			durationMS int64
			success    int
			created    time.Time
		)
		if err := rows.Scan(
			&entry.Action,
			&paramsJSON,
			&entry.Outcome,
			&durationMS,
			&entry.Cost,
			&success,
			&created,
		); err != nil {
			return nil, err
		}
		if paramsJSON.Valid && paramsJSON.String != "" {
			_ = json.Unmarshal([]byte(paramsJSON.String), &entry.Params)
		}
		entry.Duration = time.Duration(durationMS) * time.Millisecond
		entry.Success = success != 0
		entry.Timestamp = created
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Close releases the underlying database handle.
func (s *SQLiteAuditLog) Close() error {
	return s.db.Close()
}

func encodeParams(params map[string]any) (string, error) {
	if len(params) == 0 {
		return "", nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// MemoryAuditLog keeps audit entries in memory. Used in tests and as the
// default when no database path is configured.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// NewMemoryAuditLog creates an empty in-memory audit log.
func NewMemoryAuditLog() *MemoryAuditLog {
	return &MemoryAuditLog{}
}

// Record appends the entry.
func (m *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

// List returns entries matching the filter in insertion order.
func (m *MemoryAuditLog) List(_ context.Context, filter AuditFilter) ([]AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AuditEntry
	for _, entry := range m.entries {
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if filter.Success != nil && entry.Success != *filter.Success {
			continue
		}
		if !filter.Since.IsZero() && entry.Timestamp.Before(filter.Since) {
			continue
		}
		out = append(out, entry)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}
