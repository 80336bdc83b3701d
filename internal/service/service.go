// Package service implements the domain rules of Rota Certa on top of the
// local record store: uniqueness checks, the monotonic odometer invariant,
// the one-way trip lifecycle and the cascading soft-delete of a trip's
// children. All validation happens before any write, so a rejected request
// never persists partial state.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rotacerta/rota-certa/internal/localstore"
	"github.com/rotacerta/rota-certa/internal/models"
)

var (
	ErrEmailTaken         = errors.New("email already in use")
	ErrUsernameTaken      = errors.New("username already in use")
	ErrPlateTaken         = errors.New("license plate already registered")
	ErrOdometerRegression = errors.New("odometer reading is lower than the previous visit")
	ErrTripFinished       = errors.New("trip is already finished")
	ErrTypeNameTaken      = errors.New("type name already exists")
	ErrInvalidInput       = errors.New("invalid input")
)

// Service wires the typed entity operations to the local store. The store
// is injected; there is no package-level handle.
type Service struct {
	store *localstore.Store
}

// New creates a new domain service over the given store.
func New(store *localstore.Store) *Service {
	return &Service{store: store}
}

// Store exposes the underlying local store for the sync driver.
func (s *Service) Store() *localstore.Store {
	return s.store
}

// newLocalID generates a client-side record identifier.
func newLocalID() string {
	return uuid.New().String()
}

// applyEnvelope overwrites a decoded payload's envelope with the
// authoritative column values from the stored record.
func applyEnvelope(env *models.Envelope, rec localstore.Record) {
	env.LocalID = rec.LocalID
	env.RemoteID = rec.RemoteID
	env.SyncStatus = rec.Status
	env.Deleted = rec.Deleted
}

func jsonUnmarshal(b json.RawMessage, v any) error {
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to decode record payload: %w", err)
	}
	return nil
}

func marshalPayload(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record payload: %w", err)
	}
	return b, nil
}

func (s *Service) add(ctx context.Context, entity localstore.Entity, localID string, v any) error {
	b, err := marshalPayload(v)
	if err != nil {
		return err
	}
	return s.store.Add(ctx, entity, localstore.Record{LocalID: localID, Payload: b})
}

func (s *Service) update(ctx context.Context, entity localstore.Entity, localID string, v any) error {
	b, err := marshalPayload(v)
	if err != nil {
		return err
	}
	return s.store.Update(ctx, entity, localID, b)
}
