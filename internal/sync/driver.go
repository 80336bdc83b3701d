// Package sync implements the reconciliation driver: it periodically pushes
// pending local records to the remote store, reports outcomes back to the
// sync status machine, prunes confirmed tombstones and hydrates the local
// cache from remote collections.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rotacerta/rota-certa/internal/localstore"
	"github.com/rotacerta/rota-certa/internal/remote"
)

// Config bounds the driver's retry cadence. A failed flush doubles the wait
// up to BackoffMax; a successful one resets it to Interval. Records are
// retried indefinitely, but never more often than this policy allows.
type Config struct {
	Interval   time.Duration // wait between successful flushes
	BackoffMin time.Duration // first wait after a failure
	BackoffMax time.Duration // cap on the failure wait
}

// DefaultConfig returns the default sync cadence.
func DefaultConfig() Config {
	return Config{
		Interval:   30 * time.Second,
		BackoffMin: 1 * time.Second,
		BackoffMax: 60 * time.Second,
	}
}

// Driver orchestrates reconciliation between the local store and the
// remote store.
type Driver struct {
	store  *localstore.Store
	remote remote.Store
	config Config
	logger *logrus.Logger
	nudge  chan struct{}
}

// NewDriver creates a reconciliation driver.
func NewDriver(store *localstore.Store, rs remote.Store, config Config, logger *logrus.Logger) *Driver {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Driver{
		store:  store,
		remote: rs,
		config: config,
		logger: logger,
		nudge:  make(chan struct{}, 1),
	}
}

// Nudge requests an immediate flush without blocking. Used by the manual
// sync endpoint and the MQTT hint subscriber.
func (d *Driver) Nudge() {
	select {
	case d.nudge <- struct{}{}:
	default:
	}
}

// Run flushes on a timer until the context is cancelled, backing off
// exponentially while the remote store keeps failing.
func (d *Driver) Run(ctx context.Context) {
	wait := d.config.Interval
	backoff := d.config.BackoffMin
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		case <-d.nudge:
		}

		if err := d.FlushOnce(ctx); err != nil {
			d.logger.WithError(err).Warn("sync flush failed, backing off")
			wait = backoff
			backoff *= 2
			if backoff > d.config.BackoffMax {
				backoff = d.config.BackoffMax
			}
			continue
		}
		wait = d.config.Interval
		backoff = d.config.BackoffMin
	}
}

// FlushOnce pushes every pending record once, entity by entity in parent-
// before-child order, then purges confirmed tombstones. Individual record
// failures flip that record to error state and do not stop the flush; the
// returned error reports how many pushes failed so the caller can back off.
func (d *Driver) FlushOnce(ctx context.Context) error {
	var failed int
	for _, entity := range localstore.Entities {
		pending, err := d.store.ListPending(ctx, entity)
		if err != nil {
			return fmt.Errorf("failed to list pending %s records: %w", entity, err)
		}
		for _, rec := range pending {
			serverID, pushErr := d.remote.Push(ctx, entity, rec)
			outcome := localstore.Outcome{ServerID: serverID, Err: pushErr}
			if pushErr != nil {
				failed++
				d.logger.WithFields(logrus.Fields{
					"entity":  entity,
					"localId": rec.LocalID,
				}).WithError(pushErr).Warn("push failed, record marked for retry")
			}
			if err := d.store.ApplyRemoteResult(ctx, entity, rec, outcome); err != nil {
				return fmt.Errorf("failed to apply push outcome for %s/%s: %w", entity, rec.LocalID, err)
			}
		}
		purged, err := d.store.PurgeConfirmedDeletes(ctx, entity)
		if err != nil {
			return err
		}
		if purged > 0 {
			d.logger.WithFields(logrus.Fields{"entity": entity, "purged": purged}).
				Debug("reclaimed confirmed tombstones")
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d record(s) failed to push", failed)
	}
	return nil
}

// PullAll hydrates the local cache from every remote collection. Rows with
// local pending or error state are left alone so offline edits survive.
func (d *Driver) PullAll(ctx context.Context) error {
	for _, entity := range localstore.Entities {
		records, err := d.remote.Pull(ctx, entity)
		if err != nil {
			return fmt.Errorf("failed to pull %s collection: %w", entity, err)
		}
		for _, rec := range records {
			if rec.LocalID == "" {
				rec.LocalID = uuid.New().String()
			}
			if err := d.store.PutSynced(ctx, entity, rec); err != nil {
				return fmt.Errorf("failed to cache pulled %s record: %w", entity, err)
			}
		}
		d.logger.WithFields(logrus.Fields{"entity": entity, "records": len(records)}).
			Debug("hydrated local cache")
	}
	return nil
}
