package models

import (
	"time"
)

// Fueling represents a fuel purchase logged against a trip and vehicle.
type Fueling struct {
	Envelope      `bson:",inline"`
	TripID        string    `json:"tripId" bson:"trip_id"`
	UserID        string    `json:"userId" bson:"user_id"`
	VehicleID     string    `json:"vehicleId" bson:"vehicle_id"`
	Date          time.Time `json:"date" bson:"date"`
	Liters        float64   `json:"liters" bson:"liters"`
	PricePerLiter float64   `json:"pricePerLiter" bson:"price_per_liter"`
	TotalCost     float64   `json:"totalCost" bson:"total_cost"`
	OdometerKm    float64   `json:"odometerKm" bson:"odometer_km"`
	FuelType      string    `json:"fuelType" bson:"fuel_type"`
	Receipt       *Receipt  `json:"receipt,omitempty" bson:"receipt,omitempty"`
}
