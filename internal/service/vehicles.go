package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rotacerta/rota-certa/internal/localstore"
	"github.com/rotacerta/rota-certa/internal/models"
)

func decodeVehicle(rec localstore.Record) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := jsonUnmarshal(rec.Payload, &vehicle); err != nil {
		return nil, err
	}
	applyEnvelope(&vehicle.Envelope, rec)
	return &vehicle, nil
}

// CreateVehicle registers a vehicle. The license plate is uppercased and
// must not collide with another non-deleted vehicle.
func (s *Service) CreateVehicle(ctx context.Context, vehicle models.Vehicle) (*models.Vehicle, error) {
	vehicle.LicensePlate = models.NormalizePlate(vehicle.LicensePlate)
	if vehicle.LicensePlate == "" || vehicle.Model == "" {
		return nil, fmt.Errorf("%w: model and license plate are required", ErrInvalidInput)
	}
	existing, err := s.store.GetByIndex(ctx, localstore.EntityVehicles, "licensePlate", vehicle.LicensePlate)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrPlateTaken
	}

	vehicle.Envelope = models.Envelope{LocalID: newLocalID(), SyncStatus: models.SyncPending}
	vehicle.CreatedAt = time.Now().UTC()
	if err := s.add(ctx, localstore.EntityVehicles, vehicle.LocalID, vehicle); err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// ListVehicles returns every non-deleted vehicle.
func (s *Service) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	recs, err := s.store.GetAll(ctx, localstore.EntityVehicles)
	if err != nil {
		return nil, err
	}
	vehicles := make([]models.Vehicle, 0, len(recs))
	for _, rec := range recs {
		vehicle, err := decodeVehicle(rec)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, *vehicle)
	}
	return vehicles, nil
}

// GetVehicle returns a vehicle by local id.
func (s *Service) GetVehicle(ctx context.Context, localID string) (*models.Vehicle, error) {
	rec, err := s.store.Get(ctx, localstore.EntityVehicles, localID)
	if err != nil {
		return nil, err
	}
	if rec.Deleted {
		return nil, localstore.ErrNotFound
	}
	return decodeVehicle(*rec)
}

// UpdateVehicle replaces a vehicle's fields, keeping plate normalization.
func (s *Service) UpdateVehicle(ctx context.Context, vehicle models.Vehicle) error {
	vehicle.LicensePlate = models.NormalizePlate(vehicle.LicensePlate)
	return s.update(ctx, localstore.EntityVehicles, vehicle.LocalID, vehicle)
}

// DeleteVehicle soft-deletes a vehicle.
func (s *Service) DeleteVehicle(ctx context.Context, localID string) error {
	return s.store.MarkForDeletion(ctx, localstore.EntityVehicles, localID)
}
