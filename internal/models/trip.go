package models

import (
	"time"

	"github.com/google/uuid"
)

// Trip statuses. "deleted" is a soft delete: the row stays, the status changes.
const (
	TripStatusActive    = "active"
	TripStatusCompleted = "completed"
	TripStatusCancelled = "cancelled"
	TripStatusDeleted   = "deleted"
)

func ValidTripStatus(s string) bool {
	switch s {
	case TripStatusActive, TripStatusCompleted, TripStatusCancelled, TripStatusDeleted:
		return true
	}
	return false
}

type Trip struct {
	ID                  uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	UserID              uuid.UUID `json:"user_id" gorm:"type:uuid;index;not null"`
	CountryFrom         string    `json:"country_from" gorm:"not null"`
	CountryTo           string    `json:"country_to" gorm:"not null"`
	Date                time.Time `json:"date" gorm:"type:date;not null"`
	DepartureTime       string    `json:"departure_time"` // "HH:MM", optional
	RatePerKg           float64   `json:"rate_per_kg" gorm:"not null"`
	Currency            string    `json:"currency" gorm:"default:USD"`
	AvailableCargoSpace float64   `json:"available_cargo_space" gorm:"not null"`
	OriginalCargoSpace  float64   `json:"original_cargo_space"` // space at creation, never mutated
	Description         string    `json:"description" gorm:"type:text"`
	ContactInfo         string    `json:"contact_info" gorm:"type:text"`
	Status              string    `json:"status" gorm:"index;default:active"`
	CreatedAt           time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt           time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TripStats aggregates an owner's non-deleted trips.
type TripStats struct {
	TotalTrips             int     `json:"total_trips"`
	ActiveTrips            int     `json:"active_trips"`
	CompletedTrips         int     `json:"completed_trips"`
	CancelledTrips         int     `json:"cancelled_trips"`
	TotalCargoSpaceOffered float64 `json:"total_cargo_space_offered"`
	AverageRate            float64 `json:"average_rate"`
}
