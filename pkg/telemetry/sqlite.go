package telemetry

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteSink persists events into a local audit trail so operators can
// reconstruct dispatch history after the fact.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (or creates) the audit database at dbPath.
func NewSQLiteSink(dbPath string) (*SQLiteSink, error) {
	if strings.HasPrefix(dbPath, "~/") {
		home, _ := os.UserHomeDir()
		dbPath = filepath.Join(home, dbPath[2:])
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create audit directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	sink := &SQLiteSink{db: db}
	if err := sink.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	return sink, nil
}

func (s *SQLiteSink) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS gateway_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		at DATETIME NOT NULL,
		platform TEXT,
		caller_id TEXT,
		latency_ms INTEGER,
		success BOOLEAN,
		detail TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_events_kind ON gateway_events(kind);
	CREATE INDEX IF NOT EXISTS idx_events_at ON gateway_events(at);
	CREATE INDEX IF NOT EXISTS idx_events_platform ON gateway_events(platform);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Emit inserts one event row. Insert failures are logged, not
// propagated; the audit trail must never fail a request.
func (s *SQLiteSink) Emit(event Event) {
	detail := "{}"
	if event.Detail != nil {
		if raw, err := json.Marshal(event.Detail); err == nil {
			detail = string(raw)
		}
	}

	_, err := s.db.Exec(`
		INSERT INTO gateway_events (kind, at, platform, caller_id, latency_ms, success, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.Kind, event.Time, event.Platform, event.CallerID, event.LatencyMS, event.Success, detail,
	)
	if err != nil {
		log.Printf("[telemetry] audit insert failed: %v", err)
	}
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
