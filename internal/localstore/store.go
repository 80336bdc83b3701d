// Package localstore implements the offline-first local record store: a
// SQLite-backed, soft-delete-aware table per entity type, where every row
// carries the sync envelope (local id, remote id, sync status, deleted flag).
// Writes land here first; the sync driver pushes pending rows to the remote
// store and reports outcomes back through ApplyRemoteResult.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rotacerta/rota-certa/internal/models"
)

// Entity names the per-type tables of the local store.
type Entity string

const (
	EntityUsers       Entity = "users"
	EntityVehicles    Entity = "vehicles"
	EntityTrips       Entity = "trips"
	EntityVisits      Entity = "visits"
	EntityExpenses    Entity = "expenses"
	EntityFuelings    Entity = "fuelings"
	EntityCustomTypes Entity = "custom_types"
)

// Entities lists every entity table in push order. Parents come before
// children so a trip reaches the server before its visits do.
var Entities = []Entity{
	EntityUsers,
	EntityVehicles,
	EntityTrips,
	EntityVisits,
	EntityExpenses,
	EntityFuelings,
	EntityCustomTypes,
}

// entityIndexes maps each entity to the JSON payload fields it can be
// queried by. GetByIndex rejects fields outside this registry.
var entityIndexes = map[Entity][]string{
	EntityUsers:       {"email", "username", "base"},
	EntityVehicles:    {"licensePlate"},
	EntityTrips:       {"userId", "base", "status"},
	EntityVisits:      {"tripId"},
	EntityExpenses:    {"tripId"},
	EntityFuelings:    {"tripId", "vehicleId"},
	EntityCustomTypes: {"kind", "name"},
}

var (
	ErrNotFound      = errors.New("record not found")
	ErrUnknownEntity = errors.New("unknown entity")
	ErrUnknownIndex  = errors.New("field is not indexed for entity")
	ErrDuplicateID   = errors.New("local id already exists")
	ErrInvalidStatus = errors.New("invalid sync status")
)

// Record is the stored form of an entity row: the sync envelope plus the
// entity payload as JSON. Payload field names follow the models' JSON tags.
type Record struct {
	LocalID   string
	RemoteID  string
	Status    models.SyncStatus
	Deleted   bool
	Payload   json.RawMessage
	UpdatedAt time.Time

	// stamp holds the raw updated_at text as read from the database.
	// ApplyRemoteResult compares it against the current row to detect
	// edits that landed after the record was read for pushing.
	stamp string
}

// Store owns the local SQLite database. It is constructed with Open and
// passed explicitly to its users; there is no package-level handle.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the local database at path and ensures
// the schema for every registered entity exists. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	for _, entity := range Entities {
		ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			local_id    TEXT PRIMARY KEY,
			remote_id   TEXT,
			sync_status TEXT NOT NULL CHECK (sync_status IN ('pending','synced','error')),
			deleted     INTEGER NOT NULL DEFAULT 0,
			payload     TEXT NOT NULL,
			updated_at  TEXT NOT NULL DEFAULT (strftime('%%Y-%%m-%%dT%%H:%%M:%%fZ','now'))
		)`, entity)
		if _, err := s.db.Exec(ddl); err != nil {
			return fmt.Errorf("failed to create table %s: %w", entity, err)
		}
		for _, field := range entityIndexes[entity] {
			idx := fmt.Sprintf(
				`CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s (json_extract(payload, '$.%s'))`,
				entity, field, entity, field)
			if _, err := s.db.Exec(idx); err != nil {
				return fmt.Errorf("failed to create index on %s.%s: %w", entity, field, err)
			}
		}
		ridx := fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS idx_%s_remote_id ON %s (remote_id)`, entity, entity)
		if _, err := s.db.Exec(ridx); err != nil {
			return fmt.Errorf("failed to create remote id index on %s: %w", entity, err)
		}
	}
	return nil
}

func validEntity(entity Entity) error {
	if _, ok := entityIndexes[entity]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	return nil
}

func validIndex(entity Entity, field string) error {
	for _, f := range entityIndexes[entity] {
		if f == field {
			return nil
		}
	}
	return fmt.Errorf("%w: %s.%s", ErrUnknownIndex, entity, field)
}

func scanRecord(row interface{ Scan(...any) error }) (*Record, error) {
	var rec Record
	var remoteID sql.NullString
	var deleted int
	var updatedAt string
	var payload string
	err := row.Scan(&rec.LocalID, &remoteID, &rec.Status, &deleted, &payload, &updatedAt)
	if err != nil {
		return nil, err
	}
	rec.RemoteID = remoteID.String
	rec.Deleted = deleted != 0
	rec.Payload = json.RawMessage(payload)
	rec.stamp = updatedAt
	if t, perr := time.Parse(time.RFC3339Nano, updatedAt); perr == nil {
		rec.UpdatedAt = t
	}
	return &rec, nil
}

const recordColumns = `local_id, remote_id, sync_status, deleted, payload, updated_at`

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
