// Package journal keeps an append-only SQLite record of authorization events.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"tgrecorder/internal/auth"
)

const schema = `
CREATE TABLE IF NOT EXISTS auth_events (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	at     TEXT    NOT NULL,
	epoch  INTEGER NOT NULL,
	state  TEXT    NOT NULL,
	kind   TEXT    NOT NULL,
	detail TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_auth_events_at ON auth_events(at);
`

var ErrClosed = errors.New("journal closed")

// Journal implements auth.Observer.
type Journal struct {
	db  *sql.DB
	log *log.Logger
}

var _ auth.Observer = (*Journal)(nil)

// Open creates or opens the journal database at path.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Journal{db: db, log: log.Default()}, nil
}

// Observe records ev. Failures are logged; the handshake never stops for the journal.
func (j *Journal) Observe(ctx context.Context, ev auth.Event) {
	if err := j.Append(ctx, ev); err != nil {
		j.log.Printf("journal: %v", err)
	}
}

func (j *Journal) Append(ctx context.Context, ev auth.Event) error {
	if j == nil || j.db == nil {
		return ErrClosed
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO auth_events (at, epoch, state, kind, detail) VALUES (?, ?, ?, ?, ?)`,
		at.UTC().Format(time.RFC3339Nano), int64(ev.Epoch), ev.State, string(ev.Kind), ev.Detail,
	)
	if err != nil {
		return fmt.Errorf("append %s event: %w", ev.Kind, err)
	}
	return nil
}

// Recent returns up to n events, oldest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]auth.Event, error) {
	if j == nil || j.db == nil {
		return nil, ErrClosed
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT at, epoch, state, kind, detail FROM (
			SELECT id, at, epoch, state, kind, detail FROM auth_events ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, n)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []auth.Event
	for rows.Next() {
		var (
			at    string
			epoch int64
			kind  string
			ev    auth.Event
		)
		if err := rows.Scan(&at, &epoch, &ev.State, &kind, &ev.Detail); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.At, _ = time.Parse(time.RFC3339Nano, at)
		ev.Epoch = uint64(epoch)
		ev.Kind = auth.EventKind(kind)
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}
