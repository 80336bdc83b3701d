package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/rotacerta/rota-certa/internal/models"
)

// Add inserts a new record keyed by its local id with sync status pending.
// A colliding local id is a programming error surfaced as ErrDuplicateID;
// local ids are random UUIDs generated by the caller.
func (s *Store) Add(ctx context.Context, entity Entity, rec Record) error {
	if err := validEntity(entity); err != nil {
		return err
	}
	if rec.Status == "" {
		rec.Status = models.SyncPending
	}
	if !models.IsValidSyncStatus(rec.Status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, rec.Status)
	}
	query := fmt.Sprintf(
		`INSERT INTO %s (local_id, remote_id, sync_status, deleted, payload, updated_at)
		 VALUES (?, NULLIF(?, ''), ?, ?, ?, ?)`, entity)
	_, err := s.db.ExecContext(ctx, query,
		rec.LocalID, rec.RemoteID, string(rec.Status), boolToInt(rec.Deleted),
		string(rec.Payload), nowStamp())
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("%w: %s/%s", ErrDuplicateID, entity, rec.LocalID)
		}
		return fmt.Errorf("failed to insert %s record: %w", entity, err)
	}
	return nil
}

// Update upserts the payload for the record with the given local id.
// Editing a synced, non-deleted record flips it back to pending so the edit
// propagates; pending and error records keep their status since they have
// never round-tripped anyway.
func (s *Store) Update(ctx context.Context, entity Entity, localID string, payload []byte) error {
	if err := validEntity(entity); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	var deleted int
	query := fmt.Sprintf(`SELECT sync_status, deleted FROM %s WHERE local_id = ?`, entity)
	err = tx.QueryRowContext(ctx, query, localID).Scan(&status, &deleted)
	if errors.Is(err, sql.ErrNoRows) {
		insert := fmt.Sprintf(
			`INSERT INTO %s (local_id, sync_status, deleted, payload, updated_at)
			 VALUES (?, 'pending', 0, ?, ?)`, entity)
		if _, err := tx.ExecContext(ctx, insert, localID, string(payload), nowStamp()); err != nil {
			return fmt.Errorf("failed to upsert %s record: %w", entity, err)
		}
		return tx.Commit()
	}
	if err != nil {
		return fmt.Errorf("failed to read %s record: %w", entity, err)
	}

	next := status
	if models.SyncStatus(status) == models.SyncSynced && deleted == 0 {
		next = string(models.SyncPending)
	}
	update := fmt.Sprintf(
		`UPDATE %s SET payload = ?, sync_status = ?, updated_at = ? WHERE local_id = ?`, entity)
	if _, err := tx.ExecContext(ctx, update, string(payload), next, nowStamp(), localID); err != nil {
		return fmt.Errorf("failed to update %s record: %w", entity, err)
	}
	return tx.Commit()
}

// Get returns the record with the given local id, including soft-deleted
// rows. Callers that must hide tombstones should use GetAll or GetByIndex.
func (s *Store) Get(ctx context.Context, entity Entity, localID string) (*Record, error) {
	if err := validEntity(entity); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE local_id = ?`, recordColumns, entity)
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, localID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, entity, localID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s record: %w", entity, err)
	}
	return rec, nil
}

// GetByRemoteID returns the record carrying the given server-assigned id,
// or ErrNotFound.
func (s *Store) GetByRemoteID(ctx context.Context, entity Entity, remoteID string) (*Record, error) {
	if err := validEntity(entity); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE remote_id = ?`, recordColumns, entity)
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, remoteID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s remote %s", ErrNotFound, entity, remoteID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s record: %w", entity, err)
	}
	return rec, nil
}

// GetAll returns every non-deleted record of the entity.
func (s *Store) GetAll(ctx context.Context, entity Entity) ([]Record, error) {
	if err := validEntity(entity); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE deleted = 0 ORDER BY updated_at`, recordColumns, entity)
	return s.queryRecords(ctx, query)
}

// GetByIndex returns non-deleted records whose payload field equals value.
// The field must be registered in the entity's index list.
func (s *Store) GetByIndex(ctx context.Context, entity Entity, field string, value any) ([]Record, error) {
	if err := validEntity(entity); err != nil {
		return nil, err
	}
	if err := validIndex(entity, field); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE deleted = 0 AND json_extract(payload, '$.%s') = ? ORDER BY updated_at`,
		recordColumns, entity, field)
	return s.queryRecords(ctx, query, value)
}

// MarkForDeletion soft-deletes a record: the row is flagged deleted and
// flipped to pending so the deletion intent survives offline periods and is
// pushed to the remote store. The row is physically removed only by
// PurgeConfirmedDeletes once the remote delete is confirmed.
func (s *Store) MarkForDeletion(ctx context.Context, entity Entity, localID string) error {
	if err := validEntity(entity); err != nil {
		return err
	}
	query := fmt.Sprintf(
		`UPDATE %s SET deleted = 1, sync_status = 'pending', updated_at = ? WHERE local_id = ?`, entity)
	res, err := s.db.ExecContext(ctx, query, nowStamp(), localID)
	if err != nil {
		return fmt.Errorf("failed to mark %s record for deletion: %w", entity, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, entity, localID)
	}
	return nil
}

// CascadeRef names a child entity and the payload field referencing the
// parent's local id.
type CascadeRef struct {
	Entity     Entity
	ForeignKey string
}

// MarkForDeletionCascade soft-deletes a parent record and every child row
// referencing it, in a single transaction so a crash cannot leave the
// parent tombstoned with live children.
func (s *Store) MarkForDeletionCascade(ctx context.Context, entity Entity, localID string, children []CascadeRef) error {
	if err := validEntity(entity); err != nil {
		return err
	}
	for _, ref := range children {
		if err := validEntity(ref.Entity); err != nil {
			return err
		}
		if err := validIndex(ref.Entity, ref.ForeignKey); err != nil {
			return err
		}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stamp := nowStamp()
	parent := fmt.Sprintf(
		`UPDATE %s SET deleted = 1, sync_status = 'pending', updated_at = ? WHERE local_id = ?`, entity)
	res, err := tx.ExecContext(ctx, parent, stamp, localID)
	if err != nil {
		return fmt.Errorf("failed to mark %s record for deletion: %w", entity, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, entity, localID)
	}
	for _, ref := range children {
		child := fmt.Sprintf(
			`UPDATE %s SET deleted = 1, sync_status = 'pending', updated_at = ?
			 WHERE deleted = 0 AND json_extract(payload, '$.%s') = ?`, ref.Entity, ref.ForeignKey)
		if _, err := tx.ExecContext(ctx, child, stamp, localID); err != nil {
			return fmt.Errorf("failed to cascade deletion to %s: %w", ref.Entity, err)
		}
	}
	return tx.Commit()
}

// PurgeConfirmedDeletes physically removes rows whose deletion has been
// confirmed by the remote store (deleted and synced). Returns the number of
// rows reclaimed.
func (s *Store) PurgeConfirmedDeletes(ctx context.Context, entity Entity) (int64, error) {
	if err := validEntity(entity); err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE deleted = 1 AND sync_status = 'synced'`, entity)
	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to purge %s tombstones: %w", entity, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
