package models

import (
	"time"
)

// TripStatus is the lifecycle state of a trip.
type TripStatus string

const (
	TripInProgress TripStatus = "Andamento"
	TripFinished   TripStatus = "Finalizado"
)

// Trip represents a driver's trip. A trip starts in progress and transitions
// exactly once to finished, when the driver supplies the final odometer
// reading. TotalDistance is derived at finish time as FinalKm minus the
// initial km of the trip's first visit.
type Trip struct {
	Envelope      `bson:",inline"`
	Name          string     `json:"name" bson:"name"`
	VehicleID     string     `json:"vehicleId" bson:"vehicle_id"`
	UserID        string     `json:"userId" bson:"user_id"`
	Status        TripStatus `json:"status" bson:"status"`
	Base          string     `json:"base" bson:"base"`
	FinalKm       float64    `json:"finalKm,omitempty" bson:"final_km,omitempty"`
	TotalDistance float64    `json:"totalDistance,omitempty" bson:"total_distance,omitempty"`
	CreatedAt     time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" bson:"updated_at"`
}

// TripSummary aggregates a trip's activity for the dashboard.
type TripSummary struct {
	TripID        string  `json:"tripId"`
	Visits        int     `json:"visits"`
	TotalDistance float64 `json:"totalDistance"`
	TotalExpenses float64 `json:"totalExpenses"`
	TotalFuelCost float64 `json:"totalFuelCost"`
	TotalLiters   float64 `json:"totalLiters"`
}
