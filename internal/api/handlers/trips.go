package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cargohitch/server/internal/api/middleware"
	"github.com/cargohitch/server/internal/models"
	"github.com/cargohitch/server/internal/repositories"
	"github.com/cargohitch/server/internal/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxCargoSpace = 10000

var departureTimePattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)

// ParseTripDate parses the 8-digit DDMMYYYY wire format into a calendar
// date, rejecting tokens that do not resolve to a real date.
func ParseTripDate(s string) (time.Time, error) {
	if len(s) != 8 {
		return time.Time{}, errors.New("date must be in DDMMYYYY format")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return time.Time{}, errors.New("date must be in DDMMYYYY format")
		}
	}
	date, err := time.Parse("02012006", s)
	if err != nil {
		return time.Time{}, errors.New("invalid date")
	}
	return date, nil
}

// parseFutureTripDate additionally rejects dates before today.
func parseFutureTripDate(s string) (time.Time, error) {
	date, err := ParseTripDate(s)
	if err != nil {
		return time.Time{}, err
	}
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if date.Before(today) {
		return time.Time{}, errors.New("date cannot be in the past")
	}
	return date, nil
}

type TripHandler struct {
	trips repositories.TripRepository
}

func NewTripHandler(trips repositories.TripRepository) *TripHandler {
	return &TripHandler{trips: trips}
}

type tripInput struct {
	CountryFrom         string  `json:"country_from"`
	CountryTo           string  `json:"country_to"`
	Date                string  `json:"date"`
	DepartureTime       string  `json:"departure_time"`
	RatePerKg           float64 `json:"rate_per_kg"`
	Currency            string  `json:"currency"`
	AvailableCargoSpace float64 `json:"available_cargo_space"`
	Description         string  `json:"description"`
	ContactInfo         string  `json:"contact_info"`
}

func (in *tripInput) validate() (time.Time, []string) {
	var errs []string

	in.CountryFrom = strings.TrimSpace(in.CountryFrom)
	in.CountryTo = strings.TrimSpace(in.CountryTo)
	in.DepartureTime = strings.TrimSpace(in.DepartureTime)

	if in.CountryFrom == "" {
		errs = append(errs, "country_from is required")
	} else if len(in.CountryFrom) < 2 {
		errs = append(errs, "country_from must be at least 2 characters")
	}
	if in.CountryTo == "" {
		errs = append(errs, "country_to is required")
	} else if len(in.CountryTo) < 2 {
		errs = append(errs, "country_to must be at least 2 characters")
	}
	if in.CountryFrom != "" && strings.EqualFold(in.CountryFrom, in.CountryTo) {
		errs = append(errs, "departure and destination countries cannot be the same")
	}

	var date time.Time
	if in.Date == "" {
		errs = append(errs, "date is required")
	} else {
		var err error
		if date, err = parseFutureTripDate(in.Date); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if in.RatePerKg <= 0 {
		errs = append(errs, "rate_per_kg must be greater than 0")
	}
	if in.AvailableCargoSpace <= 0 {
		errs = append(errs, "available_cargo_space must be greater than 0")
	} else if in.AvailableCargoSpace > maxCargoSpace {
		errs = append(errs, fmt.Sprintf("available_cargo_space cannot exceed %d", maxCargoSpace))
	}
	if in.DepartureTime != "" && !departureTimePattern.MatchString(in.DepartureTime) {
		errs = append(errs, "departure_time must be in HH:MM format")
	}

	return date, errs
}

// POST /api/trips/add
func (h *TripHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner := middleware.Principal(r.Context())

	var input tripInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	date, errs := input.validate()
	if len(errs) > 0 {
		utils.JSONError(w, http.StatusBadRequest, "Validation failed", errs...)
		return
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "USD"
	}

	trip := models.Trip{
		UserID:              owner.ID,
		CountryFrom:         input.CountryFrom,
		CountryTo:           input.CountryTo,
		Date:                date,
		DepartureTime:       input.DepartureTime,
		RatePerKg:           input.RatePerKg,
		Currency:            currency,
		AvailableCargoSpace: input.AvailableCargoSpace,
		OriginalCargoSpace:  input.AvailableCargoSpace,
		Description:         strings.TrimSpace(input.Description),
		ContactInfo:         strings.TrimSpace(input.ContactInfo),
		Status:              models.TripStatusActive,
	}
	if err := h.trips.Create(&trip); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to create trip")
		return
	}

	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "Trip created successfully",
		Data:    map[string]any{"trip": trip},
	})
}

// GET /api/trips/search (auth optional; an authenticated viewer never sees
// their own trips in results)
func (h *TripHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repositories.TripSearchFilter{
		CountryFrom: strings.TrimSpace(q.Get("country_from")),
		CountryTo:   strings.TrimSpace(q.Get("country_to")),
	}

	if s := q.Get("date"); s != "" {
		date, err := ParseTripDate(s)
		if err != nil {
			utils.JSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Date = &date
	}
	if s := q.Get("max_rate"); s != "" {
		if rate, err := strconv.ParseFloat(s, 64); err == nil {
			filter.MaxRate = &rate
		}
	}
	if s := q.Get("min_space"); s != "" {
		if space, err := strconv.ParseFloat(s, 64); err == nil {
			filter.MinSpace = &space
		}
	}
	if viewer := middleware.Principal(r.Context()); viewer != nil {
		filter.ExcludeUserID = &viewer.ID
	}

	trips, err := h.trips.Search(filter)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to search trips")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Data: map[string]any{
			"trips": trips,
			"count": len(trips),
		},
	})
}

// GET /api/trips/my-trips
func (h *TripHandler) MyTrips(w http.ResponseWriter, r *http.Request) {
	owner := middleware.Principal(r.Context())

	status := r.URL.Query().Get("status")
	if status != "" && !models.ValidTripStatus(status) {
		utils.JSONError(w, http.StatusBadRequest, "Invalid status filter")
		return
	}

	trips, err := h.trips.ListByOwner(owner.ID, status)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to fetch trips")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Data: map[string]any{
			"trips": trips,
			"count": len(trips),
		},
	})
}

// GET /api/trips/user/{userId} — active trips for a public profile, cap 10.
func (h *TripHandler) UserTrips(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("userId"))
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	trips, err := h.trips.ListActiveByUser(userID, 10)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to fetch user trips")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Data:    map[string]any{"trips": trips},
	})
}

// GET /api/trips/{tripId} (auth optional)
func (h *TripHandler) Get(w http.ResponseWriter, r *http.Request) {
	trip, ok := h.visibleTrip(w, r)
	if !ok {
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Data:    map[string]any{"trip": trip},
	})
}

// visibleTrip loads the trip and applies the visibility rule: a non-active
// trip is indistinguishable from a missing one for everyone but its owner.
func (h *TripHandler) visibleTrip(w http.ResponseWriter, r *http.Request) (*models.Trip, bool) {
	tripID, err := uuid.Parse(r.PathValue("tripId"))
	if err != nil {
		utils.JSONError(w, http.StatusNotFound, "Trip not found")
		return nil, false
	}
	trip, err := h.trips.FindByID(tripID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.JSONError(w, http.StatusNotFound, "Trip not found")
		} else {
			utils.JSONError(w, http.StatusInternalServerError, "Failed to fetch trip")
		}
		return nil, false
	}
	if trip.Status != models.TripStatusActive {
		viewer := middleware.Principal(r.Context())
		if viewer == nil || viewer.ID != trip.UserID {
			utils.JSONError(w, http.StatusNotFound, "Trip not found")
			return nil, false
		}
	}
	return trip, true
}

type tripPatchInput struct {
	CountryFrom         *string  `json:"country_from"`
	CountryTo           *string  `json:"country_to"`
	Date                *string  `json:"date"`
	DepartureTime       *string  `json:"departure_time"`
	RatePerKg           *float64 `json:"rate_per_kg"`
	Currency            *string  `json:"currency"`
	AvailableCargoSpace *float64 `json:"available_cargo_space"`
	Description         *string  `json:"description"`
	ContactInfo         *string  `json:"contact_info"`
	Status              *string  `json:"status"`
}

// PUT /api/trips/{tripId}/update
func (h *TripHandler) Update(w http.ResponseWriter, r *http.Request) {
	owner := middleware.Principal(r.Context())

	tripID, err := uuid.Parse(r.PathValue("tripId"))
	if err != nil {
		utils.JSONError(w, http.StatusNotFound, "Trip not found")
		return
	}
	trip, err := h.trips.FindByID(tripID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.JSONError(w, http.StatusNotFound, "Trip not found")
		} else {
			utils.JSONError(w, http.StatusInternalServerError, "Failed to fetch trip")
		}
		return
	}
	if trip.UserID != owner.ID {
		utils.JSONError(w, http.StatusForbidden, "Unauthorized to update this trip")
		return
	}

	var input tripPatchInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	patch, errs := input.toPatch(trip)
	if len(errs) > 0 {
		utils.JSONError(w, http.StatusBadRequest, "Validation failed", errs...)
		return
	}
	if patch.Empty() {
		utils.JSONError(w, http.StatusBadRequest, "No valid fields to update")
		return
	}

	if err := h.trips.Update(tripID, patch); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to update trip")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Trip updated successfully",
	})
}

// toPatch revalidates every touched field under the creation rules.
func (in *tripPatchInput) toPatch(current *models.Trip) (models.TripPatch, []string) {
	var patch models.TripPatch
	var errs []string

	countryFrom := current.CountryFrom
	countryTo := current.CountryTo
	if in.CountryFrom != nil {
		v := strings.TrimSpace(*in.CountryFrom)
		if len(v) < 2 {
			errs = append(errs, "country_from must be at least 2 characters")
		}
		countryFrom = v
		patch.CountryFrom = &v
	}
	if in.CountryTo != nil {
		v := strings.TrimSpace(*in.CountryTo)
		if len(v) < 2 {
			errs = append(errs, "country_to must be at least 2 characters")
		}
		countryTo = v
		patch.CountryTo = &v
	}
	if (in.CountryFrom != nil || in.CountryTo != nil) && strings.EqualFold(countryFrom, countryTo) {
		errs = append(errs, "departure and destination countries cannot be the same")
	}

	if in.Date != nil {
		date, err := parseFutureTripDate(*in.Date)
		if err != nil {
			errs = append(errs, err.Error())
		} else {
			patch.Date = &date
		}
	}
	if in.DepartureTime != nil {
		v := strings.TrimSpace(*in.DepartureTime)
		if v != "" && !departureTimePattern.MatchString(v) {
			errs = append(errs, "departure_time must be in HH:MM format")
		}
		patch.DepartureTime = &v
	}
	if in.RatePerKg != nil {
		if *in.RatePerKg <= 0 {
			errs = append(errs, "rate_per_kg must be greater than 0")
		}
		patch.RatePerKg = in.RatePerKg
	}
	if in.Currency != nil {
		v := strings.ToUpper(strings.TrimSpace(*in.Currency))
		if len(v) != 3 {
			errs = append(errs, "currency must be a 3-letter code")
		}
		patch.Currency = &v
	}
	if in.AvailableCargoSpace != nil {
		if *in.AvailableCargoSpace <= 0 {
			errs = append(errs, "available_cargo_space must be greater than 0")
		} else if *in.AvailableCargoSpace > maxCargoSpace {
			errs = append(errs, fmt.Sprintf("available_cargo_space cannot exceed %d", maxCargoSpace))
		}
		patch.AvailableCargoSpace = in.AvailableCargoSpace
	}
	if in.Description != nil {
		v := strings.TrimSpace(*in.Description)
		patch.Description = &v
	}
	if in.ContactInfo != nil {
		v := strings.TrimSpace(*in.ContactInfo)
		patch.ContactInfo = &v
	}
	if in.Status != nil {
		if !models.ValidTripStatus(*in.Status) {
			errs = append(errs, "invalid status")
		}
		patch.Status = in.Status
	}

	return patch, errs
}

// DELETE /api/trips/{tripId}/delete — soft delete only.
func (h *TripHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner := middleware.Principal(r.Context())

	tripID, err := uuid.Parse(r.PathValue("tripId"))
	if err != nil {
		utils.JSONError(w, http.StatusNotFound, "Trip not found")
		return
	}
	trip, err := h.trips.FindByID(tripID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.JSONError(w, http.StatusNotFound, "Trip not found")
		} else {
			utils.JSONError(w, http.StatusInternalServerError, "Failed to fetch trip")
		}
		return
	}
	if trip.UserID != owner.ID {
		utils.JSONError(w, http.StatusForbidden, "Unauthorized to delete this trip")
		return
	}

	if err := h.trips.SoftDelete(tripID); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to delete trip")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Trip deleted successfully",
	})
}

// GET /api/trips/stats
func (h *TripHandler) Stats(w http.ResponseWriter, r *http.Request) {
	owner := middleware.Principal(r.Context())

	stats, err := h.trips.StatsByOwner(owner.ID)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to calculate statistics")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Data:    map[string]any{"stats": stats},
	})
}
