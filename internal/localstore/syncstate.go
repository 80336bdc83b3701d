package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rotacerta/rota-certa/internal/models"
)

// Outcome reports the result of pushing one record to the remote store.
// ServerID carries the server-assigned identifier on success; Err marks a
// failed attempt that should leave the record retryable.
type Outcome struct {
	ServerID string
	Err      error
}

// ListPending returns the records awaiting propagation: status pending or
// error, including soft-deleted rows whose deletion still has to reach the
// remote store.
func (s *Store) ListPending(ctx context.Context, entity Entity) ([]Record, error) {
	if err := validEntity(entity); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE sync_status IN ('pending','error') ORDER BY updated_at`,
		recordColumns, entity)
	return s.queryRecords(ctx, query)
}

// ApplyRemoteResult records the outcome of pushing rec. On success the
// server id is attached (if the record did not have one yet) and the record
// flips to synced; on failure the record flips to error and is otherwise
// left untouched for a later retry.
//
// The flip to synced is guarded by the updated_at stamp rec was read with:
// if the row changed after ListPending returned it, the pushed payload is
// stale, so only the server id is attached and the row stays pending for
// the next cycle to push the newer payload. A rec constructed without a
// stamp (never read from the store) flips unconditionally.
//
// For the users entity a successful push additionally resolves by-email
// collisions: any other row holding the same email is dropped, since email
// is the durable uniqueness constraint while the primary key changes when a
// local-only signup acquires a server identity.
func (s *Store) ApplyRemoteResult(ctx context.Context, entity Entity, rec Record, outcome Outcome) error {
	if err := validEntity(entity); err != nil {
		return err
	}
	localID := rec.LocalID
	if outcome.Err != nil {
		query := fmt.Sprintf(
			`UPDATE %s SET sync_status = 'error', updated_at = ? WHERE local_id = ?`, entity)
		res, err := s.db.ExecContext(ctx, query, nowStamp(), localID)
		if err != nil {
			return fmt.Errorf("failed to record push failure for %s/%s: %w", entity, localID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, entity, localID)
		}
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var remoteID sql.NullString
	var payload, curStamp string
	query := fmt.Sprintf(`SELECT remote_id, payload, updated_at FROM %s WHERE local_id = ?`, entity)
	err = tx.QueryRowContext(ctx, query, localID).Scan(&remoteID, &payload, &curStamp)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, entity, localID)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s record: %w", entity, err)
	}

	serverID := remoteID.String
	if serverID == "" {
		serverID = outcome.ServerID
	}

	if rec.stamp != "" && rec.stamp != curStamp {
		// An edit landed while the push was in flight. Attach the server
		// id so the next push goes out as an update, but leave the status
		// alone; the newer payload still has to reach the remote.
		update := fmt.Sprintf(`UPDATE %s SET remote_id = NULLIF(?, '') WHERE local_id = ?`, entity)
		if _, err := tx.ExecContext(ctx, update, serverID, localID); err != nil {
			return fmt.Errorf("failed to attach server id for %s/%s: %w", entity, localID, err)
		}
		return tx.Commit()
	}

	update := fmt.Sprintf(
		`UPDATE %s SET remote_id = NULLIF(?, ''), sync_status = 'synced', updated_at = ? WHERE local_id = ?`,
		entity)
	if _, err := tx.ExecContext(ctx, update, serverID, nowStamp(), localID); err != nil {
		return fmt.Errorf("failed to record push success for %s/%s: %w", entity, localID, err)
	}

	if entity == EntityUsers {
		if err := dropEmailCollisions(ctx, tx, payload, localID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// dropEmailCollisions deletes user rows sharing the authoritative record's
// email under a different local id.
func dropEmailCollisions(ctx context.Context, tx *sql.Tx, payload, keepLocalID string) error {
	var fields struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal([]byte(payload), &fields); err != nil || fields.Email == "" {
		return nil
	}
	query := fmt.Sprintf(
		`DELETE FROM %s WHERE local_id != ? AND json_extract(payload, '$.email') = ?`, EntityUsers)
	if _, err := tx.ExecContext(ctx, query, keepLocalID, fields.Email); err != nil {
		return fmt.Errorf("failed to resolve user email collision: %w", err)
	}
	return nil
}

// PutSynced upserts a record pulled from the remote store into the local
// cache, keyed by its server id. Rows with local pending or error state are
// never clobbered; the local edit wins until it has been pushed. Rows in
// synced state take the remote payload (last write wins). Unknown rows are
// inserted as synced.
//
// For the users entity, a local-only row (no server id yet) holding the same
// email is replaced by the server-identified record.
func (s *Store) PutSynced(ctx context.Context, entity Entity, rec Record) error {
	if err := validEntity(entity); err != nil {
		return err
	}
	if rec.RemoteID == "" {
		return fmt.Errorf("record for %s has no remote id", entity)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var localID, status string
	query := fmt.Sprintf(`SELECT local_id, sync_status FROM %s WHERE remote_id = ?`, entity)
	err = tx.QueryRowContext(ctx, query, rec.RemoteID).Scan(&localID, &status)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if entity == EntityUsers {
			if err := dropEmailCollisions(ctx, tx, string(rec.Payload), rec.LocalID); err != nil {
				return err
			}
		}
		insert := fmt.Sprintf(
			`INSERT INTO %s (local_id, remote_id, sync_status, deleted, payload, updated_at)
			 VALUES (?, ?, 'synced', ?, ?, ?)`, entity)
		if _, err := tx.ExecContext(ctx, insert,
			rec.LocalID, rec.RemoteID, boolToInt(rec.Deleted), string(rec.Payload), nowStamp()); err != nil {
			return fmt.Errorf("failed to insert pulled %s record: %w", entity, err)
		}
	case err != nil:
		return fmt.Errorf("failed to read %s record: %w", entity, err)
	case models.SyncStatus(status) != models.SyncSynced:
		// Local pending/error edit outruns the pull; keep it.
		return nil
	default:
		update := fmt.Sprintf(
			`UPDATE %s SET payload = ?, deleted = ?, updated_at = ? WHERE local_id = ?`, entity)
		if _, err := tx.ExecContext(ctx, update,
			string(rec.Payload), boolToInt(rec.Deleted), nowStamp(), localID); err != nil {
			return fmt.Errorf("failed to refresh pulled %s record: %w", entity, err)
		}
	}
	return tx.Commit()
}
