package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jgoulah/velocount/internal/source"
	"github.com/jgoulah/velocount/pkg/models"
)

const timestampLayout = "2006-01-02 15:04:05"

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	if _, err := db.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("enabling WAL: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		fetched_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS counter_locations (
		snapshot_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		alt_name TEXT,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL
	);
	CREATE TABLE IF NOT EXISTS count_observations (
		snapshot_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		counter_name TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		count REAL
	);
	CREATE TABLE IF NOT EXISTS published_aggregates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sink TEXT NOT NULL,
		counter_name TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		published_at TEXT NOT NULL,
		UNIQUE(sink, counter_name, year, month)
	);
	CREATE INDEX IF NOT EXISTS idx_locations_snapshot ON counter_locations(snapshot_id);
	CREATE INDEX IF NOT EXISTS idx_observations_snapshot ON count_observations(snapshot_id);
	CREATE INDEX IF NOT EXISTS idx_published_sink ON published_aggregates(sink);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// SaveSnapshot replaces the stored snapshot with snap
func (db *DB) SaveSnapshot(snap *source.Snapshot) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := clearSnapshots(tx); err != nil {
		return err
	}

	id := snap.ID.String()
	if _, err := tx.Exec(`INSERT INTO snapshots (id, fetched_at) VALUES (?, ?)`,
		id, snap.FetchedAt.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}

	locStmt, err := tx.Prepare(`
	INSERT INTO counter_locations (snapshot_id, position, name, alt_name, latitude, longitude)
	VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing location insert: %w", err)
	}
	defer locStmt.Close()

	for i, loc := range snap.Locations {
		if _, err := locStmt.Exec(id, i, loc.Name, loc.AltName, loc.Latitude, loc.Longitude); err != nil {
			return fmt.Errorf("inserting location %s: %w", loc.Name, err)
		}
	}

	obsStmt, err := tx.Prepare(`
	INSERT INTO count_observations (snapshot_id, position, counter_name, timestamp, count)
	VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing observation insert: %w", err)
	}
	defer obsStmt.Close()

	for i, obs := range snap.Observations {
		var count sql.NullFloat64
		if obs.Count != nil {
			count = sql.NullFloat64{Float64: *obs.Count, Valid: true}
		}
		if _, err := obsStmt.Exec(id, i, obs.CounterName, obs.Timestamp.Format(timestampLayout), count); err != nil {
			return fmt.Errorf("inserting observation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the stored snapshot, or nil if none has been saved
func (db *DB) LoadSnapshot() (*source.Snapshot, error) {
	var idStr, fetchedAtStr string
	err := db.conn.QueryRow(`SELECT id, fetched_at FROM snapshots LIMIT 1`).Scan(&idStr, &fetchedAtStr)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}

	snap := &source.Snapshot{}
	if snap.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("parsing snapshot id: %w", err)
	}
	if snap.FetchedAt, err = time.Parse(time.RFC3339, fetchedAtStr); err != nil {
		return nil, fmt.Errorf("parsing fetched_at: %w", err)
	}

	if snap.Locations, err = db.listLocations(idStr); err != nil {
		return nil, err
	}
	if snap.Observations, err = db.listObservations(idStr); err != nil {
		return nil, err
	}

	return snap, nil
}

func (db *DB) listLocations(snapshotID string) ([]models.CounterLocation, error) {
	rows, err := db.conn.Query(`
	SELECT name, alt_name, latitude, longitude
	FROM counter_locations
	WHERE snapshot_id = ?
	ORDER BY position
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("querying locations: %w", err)
	}
	defer rows.Close()

	var results []models.CounterLocation
	for rows.Next() {
		var loc models.CounterLocation
		var altName sql.NullString
		if err := rows.Scan(&loc.Name, &altName, &loc.Latitude, &loc.Longitude); err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		loc.AltName = altName.String
		results = append(results, loc)
	}

	return results, rows.Err()
}

func (db *DB) listObservations(snapshotID string) ([]models.CountObservation, error) {
	rows, err := db.conn.Query(`
	SELECT counter_name, timestamp, count
	FROM count_observations
	WHERE snapshot_id = ?
	ORDER BY position
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("querying observations: %w", err)
	}
	defer rows.Close()

	var results []models.CountObservation
	for rows.Next() {
		var obs models.CountObservation
		var tsStr string
		var count sql.NullFloat64

		if err := rows.Scan(&obs.CounterName, &tsStr, &count); err != nil {
			return nil, fmt.Errorf("scanning observation: %w", err)
		}

		obs.Timestamp, err = time.Parse(timestampLayout, tsStr)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp: %w", err)
		}
		if count.Valid {
			v := count.Float64
			obs.Count = &v
		}
		results = append(results, obs)
	}

	return results, rows.Err()
}

// ClearSnapshot removes the stored snapshot
func (db *DB) ClearSnapshot() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := clearSnapshots(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func clearSnapshots(tx *sql.Tx) error {
	for _, table := range []string{"count_observations", "counter_locations", "snapshots"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}

// IsPublished reports whether an aggregate was already sent to a sink
func (db *DB) IsPublished(sink string, key models.AggregateKey) (bool, error) {
	var n int
	err := db.conn.QueryRow(`
	SELECT COUNT(*) FROM published_aggregates
	WHERE sink = ? AND counter_name = ? AND year = ? AND month = ?
	`, sink, key.CounterName, key.Year, key.Month).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("querying published state: %w", err)
	}
	return n > 0, nil
}

// MarkPublished records that an aggregate was sent to a sink
func (db *DB) MarkPublished(sink string, key models.AggregateKey) error {
	_, err := db.conn.Exec(`
	INSERT OR IGNORE INTO published_aggregates (sink, counter_name, year, month, published_at)
	VALUES (?, ?, ?, ?, ?)
	`, sink, key.CounterName, key.Year, key.Month, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("marking aggregate as published: %w", err)
	}
	return nil
}
