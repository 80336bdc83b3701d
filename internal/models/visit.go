package models

import (
	"time"
)

// Location represents a geographical location with latitude and longitude
// coordinates. Coordinates are supplied by the client and optional.
type Location struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lon float64 `json:"lon" bson:"lon"`
}

// Visit represents a client visit logged during a trip. InitialKm is the
// odometer reading at visit time and must never decrease within a trip.
type Visit struct {
	Envelope   `bson:",inline"`
	TripID     string    `json:"tripId" bson:"trip_id"`
	UserID     string    `json:"userId" bson:"user_id"`
	ClientName string    `json:"clientName" bson:"client_name"`
	Location   *Location `json:"location,omitempty" bson:"location,omitempty"`
	InitialKm  float64   `json:"initialKm" bson:"initial_km"`
	Reason     string    `json:"reason" bson:"reason"`
	VisitType  string    `json:"visitType" bson:"visit_type"`
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`
}
