package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"hashharvest/internal/model"
)

// dbFileName is the SQLite database file created inside the data directory.
const dbFileName = "hashharvest.db"

// HistoryDB provides SQLite-based storage for collection runs and the
// cumulative hash inventory across runs.
//
// Design decision: We keep one database file for all servers rather than
// a file per server. Cross-server questions ("when did we first see this
// hash anywhere") are the interesting ones, and a single file keeps
// backup and cleanup trivial.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, dbFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// Path returns the path of the underlying database file.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- One row per completed collection run
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		server TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL,
		unique_hashes INTEGER NOT NULL,
		batches INTEGER NOT NULL,
		errors INTEGER NOT NULL,
		stop_reason TEXT NOT NULL,
		secondary_used INTEGER NOT NULL DEFAULT 0,
		output_path TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_server ON runs(server);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Cumulative hash inventory across all runs
	CREATE TABLE IF NOT EXISTS hashes (
		hash TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		first_seen DATETIME NOT NULL,
		last_seen DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_hashes_kind ON hashes(kind);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// Run is a stored collection run record.
type Run struct {
	ID            int64
	Server        string
	StartedAt     time.Time
	Duration      time.Duration
	UniqueHashes  int
	Batches       int
	Errors        int
	StopReason    string
	SecondaryUsed bool
	OutputPath    string
}

// SaveRun records a completed collection run and returns its database ID.
func (hdb *HistoryDB) SaveRun(ctx context.Context, server, outputPath string, stats model.Stats) (int64, error) {
	query := `
	INSERT INTO runs (server, started_at, duration_ms, unique_hashes, batches, errors, stop_reason, secondary_used, output_path)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	secondary := 0
	if stats.SecondaryUsed {
		secondary = 1
	}

	result, err := hdb.db.ExecContext(ctx, query,
		server,
		stats.StartedAt.UTC().Format(timestampLayout),
		stats.Duration.Milliseconds(),
		stats.UniqueHashes,
		stats.BatchesProcessed,
		stats.Errors,
		stats.StopReason,
		secondary,
		outputPath,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}

	return result.LastInsertId()
}

// RecentRuns returns up to limit runs, most recent first.
// An empty server matches runs against any server.
func (hdb *HistoryDB) RecentRuns(ctx context.Context, server string, limit int) ([]Run, error) {
	query := `
	SELECT id, server, started_at, duration_ms, unique_hashes, batches, errors, stop_reason, secondary_used, output_path
	FROM runs
	WHERE 1=1
	`
	args := make([]interface{}, 0, 2)

	if server != "" {
		query += " AND server = ?"
		args = append(args, server)
	}

	query += " ORDER BY started_at DESC, id DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var startedAt string
		var durationMillis int64
		var secondary int
		var outputPath sql.NullString

		err := rows.Scan(
			&run.ID,
			&run.Server,
			&startedAt,
			&durationMillis,
			&run.UniqueHashes,
			&run.Batches,
			&run.Errors,
			&run.StopReason,
			&secondary,
			&outputPath,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.StartedAt = parseTimestamp(startedAt)
		run.Duration = time.Duration(durationMillis) * time.Millisecond
		run.SecondaryUsed = secondary != 0
		run.OutputPath = outputPath.String
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// UpsertHashes merges a run's records into the cumulative inventory.
// New hashes get first_seen and last_seen set to their collection time;
// already known hashes only advance last_seen. Returns the number of
// hashes not seen before.
func (hdb *HistoryDB) UpsertHashes(ctx context.Context, records []model.HashRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	query := `
	INSERT INTO hashes (hash, kind, first_seen, last_seen)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(hash) DO UPDATE SET
		last_seen = excluded.last_seen
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	countBefore, err := hdb.countHashesTx(ctx, tx)
	if err != nil {
		return 0, err
	}

	for _, record := range records {
		seen := record.CollectedAt.UTC().Format(timestampLayout)
		if _, err := stmt.ExecContext(ctx, record.Hash, record.Kind.String(), seen, seen); err != nil {
			return 0, fmt.Errorf("failed to upsert hash: %w", err)
		}
	}

	countAfter, err := hdb.countHashesTx(ctx, tx)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit upsert: %w", err)
	}

	return countAfter - countBefore, nil
}

// countHashesTx counts the inventory rows within a transaction.
func (hdb *HistoryDB) countHashesTx(ctx context.Context, tx *sql.Tx) (int, error) {
	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM hashes").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count hashes: %w", err)
	}
	return count, nil
}

// KnownHashCount returns the size of the cumulative inventory.
func (hdb *HistoryDB) KnownHashCount(ctx context.Context) (int, error) {
	var count int
	if err := hdb.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM hashes").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count hashes: %w", err)
	}
	return count, nil
}

// HashSeen reports whether a hash exists in the cumulative inventory and,
// if so, when it was first seen.
func (hdb *HistoryDB) HashSeen(ctx context.Context, hash string) (bool, time.Time, error) {
	var firstSeen string
	err := hdb.db.QueryRowContext(ctx, "SELECT first_seen FROM hashes WHERE hash = ?", hash).Scan(&firstSeen)
	if err == sql.ErrNoRows {
		return false, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, fmt.Errorf("failed to look up hash: %w", err)
	}
	return true, parseTimestamp(firstSeen), nil
}

// timestampLayout is how timestamps are stored, matching SQLite's default
// datetime format.
const timestampLayout = "2006-01-02 15:04:05"

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,           // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
