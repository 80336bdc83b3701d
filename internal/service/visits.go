package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rotacerta/rota-certa/internal/localstore"
	"github.com/rotacerta/rota-certa/internal/models"
)

func decodeVisit(rec localstore.Record) (*models.Visit, error) {
	var visit models.Visit
	if err := jsonUnmarshal(rec.Payload, &visit); err != nil {
		return nil, err
	}
	applyEnvelope(&visit.Envelope, rec)
	return &visit, nil
}

// CreateVisit logs a client visit on a trip. The odometer reading must be
// at least the reading of the most recent prior visit in the same trip;
// a lower reading is rejected before anything is written.
func (s *Service) CreateVisit(ctx context.Context, visit models.Visit) (*models.Visit, error) {
	if visit.TripID == "" || visit.ClientName == "" {
		return nil, fmt.Errorf("%w: trip and client name are required", ErrInvalidInput)
	}
	trip, err := s.GetTrip(ctx, visit.TripID)
	if err != nil {
		return nil, err
	}
	if trip.Status == models.TripFinished {
		return nil, ErrTripFinished
	}

	prior, err := s.ListVisits(ctx, visit.TripID)
	if err != nil {
		return nil, err
	}
	if len(prior) > 0 && visit.InitialKm < prior[len(prior)-1].InitialKm {
		return nil, fmt.Errorf("%w: got %.1f, previous was %.1f",
			ErrOdometerRegression, visit.InitialKm, prior[len(prior)-1].InitialKm)
	}

	if visit.Timestamp.IsZero() {
		visit.Timestamp = time.Now().UTC()
	}
	visit.Envelope = models.Envelope{LocalID: newLocalID(), SyncStatus: models.SyncPending}
	if err := s.add(ctx, localstore.EntityVisits, visit.LocalID, visit); err != nil {
		return nil, err
	}
	return &visit, nil
}

// ListVisits returns the trip's non-deleted visits ordered by timestamp.
func (s *Service) ListVisits(ctx context.Context, tripID string) ([]models.Visit, error) {
	recs, err := s.store.GetByIndex(ctx, localstore.EntityVisits, "tripId", tripID)
	if err != nil {
		return nil, err
	}
	visits := make([]models.Visit, 0, len(recs))
	for _, rec := range recs {
		visit, err := decodeVisit(rec)
		if err != nil {
			return nil, err
		}
		visits = append(visits, *visit)
	}
	sortVisitsByTimestamp(visits)
	return visits, nil
}

// UpdateVisit replaces a visit's fields.
func (s *Service) UpdateVisit(ctx context.Context, visit models.Visit) error {
	return s.update(ctx, localstore.EntityVisits, visit.LocalID, visit)
}

// DeleteVisit soft-deletes a visit.
func (s *Service) DeleteVisit(ctx context.Context, localID string) error {
	return s.store.MarkForDeletion(ctx, localstore.EntityVisits, localID)
}
