package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/models"
	_ "github.com/mattn/go-sqlite3"
)

const defaultListLimit = 50

type DB struct {
	conn *sql.DB
}

// New opens the wake history database
func New(dbPath string) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// migrate creates the database schema
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS wake_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		host_id TEXT NOT NULL,
		host_name TEXT NOT NULL,
		mac TEXT NOT NULL,
		via TEXT NOT NULL,
		agent_id TEXT,
		broadcast TEXT,
		port INTEGER,
		success INTEGER NOT NULL,
		error TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_wake_events_host ON wake_events(host_id, created_at);
	`

	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// RecordWake stores one wake attempt and sets its ID
func (db *DB) RecordWake(ev *models.WakeEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	res, err := db.conn.Exec(`
		INSERT INTO wake_events (host_id, host_name, mac, via, agent_id, broadcast, port, success, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.HostID, ev.HostName, ev.MAC, ev.Via, nullString(ev.AgentID), nullString(ev.Broadcast),
		ev.Port, ev.Success, nullString(ev.Error), ev.CreatedAt)
	if err != nil {
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = id
	return nil
}

// RecentWakes returns the latest wake attempts, newest first. hostID filters
// when non-empty.
func (db *DB) RecentWakes(hostID string, limit int) ([]models.WakeEvent, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT id, host_id, host_name, mac, via, agent_id, broadcast, port, success, error, created_at
		FROM wake_events`
	args := []interface{}{}
	if hostID != "" {
		query += ` WHERE host_id = ?`
		args = append(args, hostID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.WakeEvent{}
	for rows.Next() {
		var ev models.WakeEvent
		var agentID, broadcast, errMsg sql.NullString
		var port sql.NullInt64
		err := rows.Scan(&ev.ID, &ev.HostID, &ev.HostName, &ev.MAC, &ev.Via, &agentID, &broadcast,
			&port, &ev.Success, &errMsg, &ev.CreatedAt)
		if err != nil {
			return nil, err
		}
		ev.AgentID = agentID.String
		ev.Broadcast = broadcast.String
		ev.Port = int(port.Int64)
		ev.Error = errMsg.String
		events = append(events, ev)
	}

	return events, rows.Err()
}

// PruneWakes keeps only the newest keep entries. keep <= 0 keeps everything.
func (db *DB) PruneWakes(keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := db.conn.Exec(`
		DELETE FROM wake_events WHERE id NOT IN (
			SELECT id FROM wake_events ORDER BY id DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
