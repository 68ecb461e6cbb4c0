package repositories

import (
	"time"

	"github.com/cargohitch/server/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TripSearchFilter holds the optional, conjunctive search filters. Only
// active trips are ever eligible; ExcludeUserID drops the viewer's own trips.
type TripSearchFilter struct {
	CountryFrom   string
	CountryTo     string
	Date          *time.Time
	MaxRate       *float64
	MinSpace      *float64
	ExcludeUserID *uuid.UUID
}

// TripRepository is the persistence boundary for cargo-space offers.
type TripRepository interface {
	Create(trip *models.Trip) error
	FindByID(id uuid.UUID) (*models.Trip, error)
	Search(filter TripSearchFilter) ([]models.Trip, error)
	ListByOwner(owner uuid.UUID, status string) ([]models.Trip, error)
	ListActiveByUser(user uuid.UUID, limit int) ([]models.Trip, error)
	Update(id uuid.UUID, patch models.TripPatch) error
	SoftDelete(id uuid.UUID) error
	StatsByOwner(owner uuid.UUID) (models.TripStats, error)
}

type GormTripRepository struct {
	db *gorm.DB
}

func NewTripRepository(db *gorm.DB) *GormTripRepository {
	return &GormTripRepository{db: db}
}

func (r *GormTripRepository) Create(trip *models.Trip) error {
	return r.db.Create(trip).Error
}

func (r *GormTripRepository) FindByID(id uuid.UUID) (*models.Trip, error) {
	var trip models.Trip
	if err := r.db.Where("id = ?", id).First(&trip).Error; err != nil {
		return nil, err
	}
	return &trip, nil
}

func (r *GormTripRepository) Search(filter TripSearchFilter) ([]models.Trip, error) {
	q := r.db.Where("status = ?", models.TripStatusActive)

	if filter.CountryFrom != "" {
		q = q.Where("country_from ILIKE ?", "%"+filter.CountryFrom+"%")
	}
	if filter.CountryTo != "" {
		q = q.Where("country_to ILIKE ?", "%"+filter.CountryTo+"%")
	}
	if filter.Date != nil {
		q = q.Where("date = ?", *filter.Date)
	}
	if filter.MaxRate != nil {
		q = q.Where("rate_per_kg <= ?", *filter.MaxRate)
	}
	if filter.MinSpace != nil {
		q = q.Where("available_cargo_space >= ?", *filter.MinSpace)
	}
	if filter.ExcludeUserID != nil {
		q = q.Where("user_id <> ?", *filter.ExcludeUserID)
	}

	var trips []models.Trip
	err := q.Order("created_at DESC").Find(&trips).Error
	return trips, err
}

// ListByOwner returns the owner's trips newest first. An empty status
// excludes soft-deleted trips; an explicit status (including "deleted")
// returns exactly that status.
func (r *GormTripRepository) ListByOwner(owner uuid.UUID, status string) ([]models.Trip, error) {
	q := r.db.Where("user_id = ?", owner)
	if status != "" {
		q = q.Where("status = ?", status)
	} else {
		q = q.Where("status <> ?", models.TripStatusDeleted)
	}

	var trips []models.Trip
	err := q.Order("created_at DESC").Find(&trips).Error
	return trips, err
}

func (r *GormTripRepository) ListActiveByUser(user uuid.UUID, limit int) ([]models.Trip, error) {
	var trips []models.Trip
	err := r.db.
		Where("user_id = ? AND status = ?", user, models.TripStatusActive).
		Order("created_at DESC").
		Limit(limit).
		Find(&trips).Error
	return trips, err
}

func (r *GormTripRepository) Update(id uuid.UUID, patch models.TripPatch) error {
	updates := patch.Updates()
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Trip{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *GormTripRepository) SoftDelete(id uuid.UUID) error {
	return r.db.Model(&models.Trip{}).
		Where("id = ?", id).
		Update("status", models.TripStatusDeleted).Error
}

func (r *GormTripRepository) StatsByOwner(owner uuid.UUID) (models.TripStats, error) {
	trips, err := r.ListByOwner(owner, "")
	if err != nil {
		return models.TripStats{}, err
	}

	var stats models.TripStats
	var rateSum float64
	for _, t := range trips {
		stats.TotalTrips++
		switch t.Status {
		case models.TripStatusActive:
			stats.ActiveTrips++
		case models.TripStatusCompleted:
			stats.CompletedTrips++
		case models.TripStatusCancelled:
			stats.CancelledTrips++
		}
		space := t.OriginalCargoSpace
		if space == 0 {
			space = t.AvailableCargoSpace
		}
		stats.TotalCargoSpaceOffered += space
		rateSum += t.RatePerKg
	}
	if stats.TotalTrips > 0 {
		stats.AverageRate = rateSum / float64(stats.TotalTrips)
	}
	return stats, nil
}
