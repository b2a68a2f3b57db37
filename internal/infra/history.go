package infra

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/portscope/portscope/internal/domain"
)

const historyDBName = "history.db"

// SQLiteHistoryStore implements domain.HistoryStore on a local SQLite
// database. The log is append-only; Append trims it to the configured cap
// so the file cannot grow without bound.
type SQLiteHistoryStore struct {
	db  *sql.DB
	cap int
}

// NewSQLiteHistoryStore opens (or creates) the history database under
// dataDir. capacity bounds the number of retained entries; values below 1 keep
// everything.
func NewSQLiteHistoryStore(dataDir string, capacity int) (*SQLiteHistoryStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, historyDBName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	store := &SQLiteHistoryStore{db: db, cap: capacity}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return store, nil
}

func (s *SQLiteHistoryStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		port INTEGER NOT NULL,
		pid INTEGER NOT NULL,
		process_name TEXT NOT NULL DEFAULT '',
		timestamp INTEGER NOT NULL,
		action TEXT NOT NULL,
		details TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_history_port ON history(port);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append adds one entry and trims the log to the cap.
func (s *SQLiteHistoryStore) Append(entry domain.HistoryEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO history (port, pid, process_name, timestamp, action, details)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Port, entry.PID, entry.ProcessName,
		entry.Timestamp.Unix(), string(entry.Action), entry.Details,
	)
	if err != nil {
		return err
	}

	if s.cap > 0 {
		_, err = s.db.Exec(`
			DELETE FROM history WHERE id NOT IN (
				SELECT id FROM history ORDER BY id DESC LIMIT ?
			)`, s.cap)
	}
	return err
}

// Recent returns up to limit entries, newest first.
func (s *SQLiteHistoryStore) Recent(limit int) ([]domain.HistoryEntry, error) {
	rows, err := s.db.Query(`
		SELECT port, pid, process_name, timestamp, action, details
		FROM history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var entry domain.HistoryEntry
		var ts int64
		var action string
		if err := rows.Scan(&entry.Port, &entry.PID, &entry.ProcessName, &ts, &action, &entry.Details); err != nil {
			return nil, err
		}
		entry.Timestamp = time.Unix(ts, 0)
		entry.Action = domain.HistoryAction(action)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// StartCounts returns how many "started" entries each port has.
func (s *SQLiteHistoryStore) StartCounts() (map[int]int, error) {
	rows, err := s.db.Query(`
		SELECT port, COUNT(*) FROM history
		WHERE action = ? GROUP BY port`, string(domain.ActionStarted))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var port, count int
		if err := rows.Scan(&port, &count); err != nil {
			return nil, err
		}
		counts[port] = count
	}
	return counts, rows.Err()
}

// Close releases the database connection.
func (s *SQLiteHistoryStore) Close() error {
	return s.db.Close()
}

var _ domain.HistoryStore = (*SQLiteHistoryStore)(nil)
