// Package history keeps a journal of connection state transitions in a
// local SQLite database, so that the CLI can answer "what happened to my
// connection last night" without any daemon-side log scraping.
package history

import (
	"context"
	"database/sql"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yllada/vpn-connector/common"
	"github.com/yllada/vpn-connector/vpn"
)

const schema = `
CREATE TABLE IF NOT EXISTS transitions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	at          INTEGER NOT NULL,
	status      TEXT    NOT NULL,
	backend     TEXT    NOT NULL DEFAULT '',
	protocol    TEXT    NOT NULL DEFAULT '',
	server_id   TEXT    NOT NULL DEFAULT '',
	server_name TEXT    NOT NULL DEFAULT '',
	reason      TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS transitions_at ON transitions(at);
`

// Entry is one recorded state transition.
type Entry struct {
	ID         int64
	At         time.Time
	Status     string
	Backend    string
	Protocol   string
	ServerID   string
	ServerName string
	Reason     string
}

// Journal records connection state transitions. It satisfies the
// connector's TransitionRecorder contract.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal database under the given state
// directory.
func Open(dir string) (*Journal, error) {
	path := filepath.Join(dir, common.HistoryFileName)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.WrapError(err, "failed to open history database")
	}
	// SQLite handles one writer at a time; a larger pool only produces
	// SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, common.WrapError(err, "failed to initialize history schema")
	}
	return &Journal{db: db}, nil
}

// Record appends one transition to the journal. Failures are logged and
// swallowed: bookkeeping must never interfere with the connection lifecycle.
func (j *Journal) Record(s vpn.State) {
	ctx, cancel := context.WithTimeout(context.Background(), common.ManagementTimeout)
	defer cancel()

	var backend, protocol, serverID, serverName string
	if s.Descriptor != nil {
		backend = s.Descriptor.Backend
		protocol = s.Descriptor.Protocol
		serverID = s.Descriptor.ServerID
		serverName = s.Descriptor.ServerName
	}
	var reason string
	if s.Reason != nil {
		reason = s.Reason.Error()
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO transitions (at, status, backend, protocol, server_id, server_name, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.At.UnixMilli(), s.Status.String(), backend, protocol, serverID, serverName, reason)
	if err != nil {
		common.LogWarn("recording transition: %v", err)
	}
}

// Recent returns up to limit transitions, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, at, status, backend, protocol, server_id, server_name, reason
		 FROM transitions ORDER BY at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, common.WrapError(err, "failed to query history")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var at int64
		if err := rows.Scan(&e.ID, &at, &e.Status, &e.Backend, &e.Protocol,
			&e.ServerID, &e.ServerName, &e.Reason); err != nil {
			return nil, common.WrapError(err, "failed to scan history row")
		}
		e.At = time.UnixMilli(at)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune removes transitions older than the cutoff and returns how many
// were deleted.
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx,
		`DELETE FROM transitions WHERE at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, common.WrapError(err, "failed to prune history")
	}
	return res.RowsAffected()
}

// Close releases the underlying database handle.
func (j *Journal) Close() error {
	return j.db.Close()
}
