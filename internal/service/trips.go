package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rotacerta/rota-certa/internal/localstore"
	"github.com/rotacerta/rota-certa/internal/models"
)

// tripChildren lists the entities cascaded when a trip is soft-deleted.
var tripChildren = []localstore.CascadeRef{
	{Entity: localstore.EntityVisits, ForeignKey: "tripId"},
	{Entity: localstore.EntityExpenses, ForeignKey: "tripId"},
	{Entity: localstore.EntityFuelings, ForeignKey: "tripId"},
}

func decodeTrip(rec localstore.Record) (*models.Trip, error) {
	var trip models.Trip
	if err := jsonUnmarshal(rec.Payload, &trip); err != nil {
		return nil, err
	}
	applyEnvelope(&trip.Envelope, rec)
	return &trip, nil
}

// CreateTrip starts a new trip in progress for the given driver.
func (s *Service) CreateTrip(ctx context.Context, trip models.Trip) (*models.Trip, error) {
	if trip.Name == "" || trip.VehicleID == "" || trip.UserID == "" {
		return nil, fmt.Errorf("%w: name, vehicle and driver are required", ErrInvalidInput)
	}
	now := time.Now().UTC()
	trip.Envelope = models.Envelope{LocalID: newLocalID(), SyncStatus: models.SyncPending}
	trip.Status = models.TripInProgress
	trip.FinalKm = 0
	trip.TotalDistance = 0
	trip.CreatedAt = now
	trip.UpdatedAt = now
	if err := s.add(ctx, localstore.EntityTrips, trip.LocalID, trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

// GetTrip returns a non-deleted trip by local id.
func (s *Service) GetTrip(ctx context.Context, localID string) (*models.Trip, error) {
	rec, err := s.store.Get(ctx, localstore.EntityTrips, localID)
	if err != nil {
		return nil, err
	}
	if rec.Deleted {
		return nil, localstore.ErrNotFound
	}
	return decodeTrip(*rec)
}

// ListTrips returns trips visible to the given user: all of them for
// admins, own trips for drivers.
func (s *Service) ListTrips(ctx context.Context, viewer *models.User) ([]models.Trip, error) {
	var recs []localstore.Record
	var err error
	if viewer.IsAdmin() {
		recs, err = s.store.GetAll(ctx, localstore.EntityTrips)
	} else {
		recs, err = s.store.GetByIndex(ctx, localstore.EntityTrips, "userId", viewer.LocalID)
	}
	if err != nil {
		return nil, err
	}
	trips := make([]models.Trip, 0, len(recs))
	for _, rec := range recs {
		trip, err := decodeTrip(rec)
		if err != nil {
			return nil, err
		}
		trips = append(trips, *trip)
	}
	return trips, nil
}

// FinishTrip transitions a trip from in progress to finished, one way. The
// final odometer reading must not be below the trip's latest visit reading;
// total distance is derived as finalKm minus the first visit's initial km.
func (s *Service) FinishTrip(ctx context.Context, localID string, finalKm float64) (*models.Trip, error) {
	trip, err := s.GetTrip(ctx, localID)
	if err != nil {
		return nil, err
	}
	if trip.Status == models.TripFinished {
		return nil, ErrTripFinished
	}

	visits, err := s.ListVisits(ctx, localID)
	if err != nil {
		return nil, err
	}
	if len(visits) > 0 {
		last := visits[len(visits)-1]
		if finalKm < last.InitialKm {
			return nil, ErrOdometerRegression
		}
		trip.TotalDistance = finalKm - visits[0].InitialKm
	}
	trip.Status = models.TripFinished
	trip.FinalKm = finalKm
	trip.UpdatedAt = time.Now().UTC()
	if err := s.update(ctx, localstore.EntityTrips, trip.LocalID, trip); err != nil {
		return nil, err
	}
	return trip, nil
}

// DeleteTrip soft-deletes a trip and cascades to its visits, expenses and
// fuelings in one transaction.
func (s *Service) DeleteTrip(ctx context.Context, localID string) error {
	return s.store.MarkForDeletionCascade(ctx, localstore.EntityTrips, localID, tripChildren)
}

// Summarize aggregates a trip's visits, expenses and fuelings for the
// dashboard.
func (s *Service) Summarize(ctx context.Context, tripID string) (*models.TripSummary, error) {
	trip, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	summary := models.TripSummary{TripID: tripID, TotalDistance: trip.TotalDistance}

	visits, err := s.ListVisits(ctx, tripID)
	if err != nil {
		return nil, err
	}
	summary.Visits = len(visits)

	expenses, err := s.ListExpenses(ctx, tripID)
	if err != nil {
		return nil, err
	}
	for _, e := range expenses {
		summary.TotalExpenses += e.Value
	}

	fuelings, err := s.ListFuelings(ctx, tripID)
	if err != nil {
		return nil, err
	}
	for _, f := range fuelings {
		summary.TotalFuelCost += f.TotalCost
		summary.TotalLiters += f.Liters
	}
	return &summary, nil
}

func sortVisitsByTimestamp(visits []models.Visit) {
	sort.Slice(visits, func(i, j int) bool {
		return visits[i].Timestamp.Before(visits[j].Timestamp)
	})
}
