package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rotacerta/rota-certa/internal/localstore"
	"github.com/rotacerta/rota-certa/internal/models"
)

func decodeFueling(rec localstore.Record) (*models.Fueling, error) {
	var fueling models.Fueling
	if err := jsonUnmarshal(rec.Payload, &fueling); err != nil {
		return nil, err
	}
	applyEnvelope(&fueling.Envelope, rec)
	return &fueling, nil
}

// CreateFueling logs a fuel purchase against a trip and vehicle. TotalCost
// is derived from liters and price per liter when not supplied.
func (s *Service) CreateFueling(ctx context.Context, fueling models.Fueling) (*models.Fueling, error) {
	if fueling.TripID == "" || fueling.VehicleID == "" || fueling.Liters <= 0 {
		return nil, fmt.Errorf("%w: trip, vehicle and liters are required", ErrInvalidInput)
	}
	if _, err := s.GetTrip(ctx, fueling.TripID); err != nil {
		return nil, err
	}
	if fueling.TotalCost == 0 {
		fueling.TotalCost = fueling.Liters * fueling.PricePerLiter
	}
	if fueling.Date.IsZero() {
		fueling.Date = time.Now().UTC()
	}
	fueling.Envelope = models.Envelope{LocalID: newLocalID(), SyncStatus: models.SyncPending}
	if err := s.add(ctx, localstore.EntityFuelings, fueling.LocalID, fueling); err != nil {
		return nil, err
	}
	return &fueling, nil
}

// ListFuelings returns the trip's non-deleted fuelings.
func (s *Service) ListFuelings(ctx context.Context, tripID string) ([]models.Fueling, error) {
	recs, err := s.store.GetByIndex(ctx, localstore.EntityFuelings, "tripId", tripID)
	if err != nil {
		return nil, err
	}
	fuelings := make([]models.Fueling, 0, len(recs))
	for _, rec := range recs {
		fueling, err := decodeFueling(rec)
		if err != nil {
			return nil, err
		}
		fuelings = append(fuelings, *fueling)
	}
	return fuelings, nil
}

// AttachFuelingReceipt links an uploaded receipt blob to the fueling.
func (s *Service) AttachFuelingReceipt(ctx context.Context, localID string, receipt models.Receipt) error {
	rec, err := s.store.Get(ctx, localstore.EntityFuelings, localID)
	if err != nil {
		return err
	}
	fueling, err := decodeFueling(*rec)
	if err != nil {
		return err
	}
	fueling.Receipt = &receipt
	return s.update(ctx, localstore.EntityFuelings, localID, fueling)
}

// DeleteFueling soft-deletes a fueling.
func (s *Service) DeleteFueling(ctx context.Context, localID string) error {
	return s.store.MarkForDeletion(ctx, localstore.EntityFuelings, localID)
}
