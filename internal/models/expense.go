package models

import (
	"time"
)

// Receipt points at an uploaded proof-of-payment blob. Path is the storage
// key, URL is what the client renders.
type Receipt struct {
	Filename string `json:"filename" bson:"filename"`
	Path     string `json:"path" bson:"path"`
	URL      string `json:"url" bson:"url"`
}

// Expense represents a cost logged against a trip.
type Expense struct {
	Envelope    `bson:",inline"`
	TripID      string    `json:"tripId" bson:"trip_id"`
	UserID      string    `json:"userId" bson:"user_id"`
	Description string    `json:"description" bson:"description"`
	Value       float64   `json:"value" bson:"value"`
	ExpenseType string    `json:"expenseType" bson:"expense_type"`
	ExpenseDate time.Time `json:"expenseDate" bson:"expense_date"`
	Receipt     *Receipt  `json:"receipt,omitempty" bson:"receipt,omitempty"`
}
