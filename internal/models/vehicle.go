package models

import (
	"strings"
	"time"
)

// Vehicle represents a fleet vehicle. Vehicles are shared across trips and
// carry no owner.
type Vehicle struct {
	Envelope     `bson:",inline"`
	Model        string    `json:"model" bson:"model"`
	Year         int       `json:"year" bson:"year"`
	LicensePlate string    `json:"licensePlate" bson:"license_plate"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}

// NormalizePlate uppercases and trims a license plate before storage.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}
