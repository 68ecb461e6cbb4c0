package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/cargohitch/server/internal/api/middleware"
	"github.com/cargohitch/server/internal/models"
	"github.com/cargohitch/server/internal/repositories"
	"github.com/cargohitch/server/internal/utils"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const maxBioLength = 500

type UserHandler struct {
	users repositories.UserRepository
	trips repositories.TripRepository
}

func NewUserHandler(users repositories.UserRepository, trips repositories.TripRepository) *UserHandler {
	return &UserHandler{users: users, trips: trips}
}

func profileProjection(user *models.User) map[string]any {
	return map[string]any{
		"id":           user.ID.String(),
		"first_name":   user.FirstName,
		"last_name":    user.LastName,
		"email":        user.Email,
		"phone":        user.Phone,
		"company":      user.Company,
		"website":      user.Website,
		"bio":          user.Bio,
		"is_verified":  user.IsVerified,
		"member_since": user.CreatedAt,
	}
}

// GET /api/users/profile/{userId} — public projection with trip stats and
// the user's most recent active trips.
func (h *UserHandler) PublicProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("userId"))
	if err != nil {
		utils.JSONError(w, http.StatusNotFound, "User not found")
		return
	}

	user, err := h.users.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.JSONError(w, http.StatusNotFound, "User not found")
		} else {
			utils.JSONError(w, http.StatusInternalServerError, "Failed to fetch profile")
		}
		return
	}

	var (
		stats models.TripStats
		trips []models.Trip
	)
	g, _ := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		stats, err = h.trips.StatsByOwner(userID)
		return err
	})
	g.Go(func() error {
		var err error
		trips, err = h.trips.ListActiveByUser(userID, 5)
		return err
	})
	if err := g.Wait(); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to fetch profile")
		return
	}

	profile := profileProjection(user)
	profile["trip_stats"] = map[string]any{
		"total_trips":     stats.TotalTrips,
		"active_trips":    stats.ActiveTrips,
		"completed_trips": stats.CompletedTrips,
	}
	profile["recent_trips"] = trips

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Data:    map[string]any{"profile": profile},
	})
}

// GET /api/users/profile — the private view adds fields only the owner sees.
func (h *UserHandler) OwnProfile(w http.ResponseWriter, r *http.Request) {
	user := middleware.Principal(r.Context())

	profile := profileProjection(user)
	profile["updated_at"] = user.UpdatedAt

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Data:    map[string]any{"profile": profile},
	})
}

// PUT /api/users/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := middleware.Principal(r.Context())

	// Decoding into the patch struct drops unknown fields by construction.
	var patch models.ProfilePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if patch.Empty() {
		utils.JSONError(w, http.StatusBadRequest, "No valid fields to update")
		return
	}

	if patch.FirstName != nil {
		v := strings.TrimSpace(*patch.FirstName)
		patch.FirstName = &v
	}
	if patch.LastName != nil {
		v := strings.TrimSpace(*patch.LastName)
		patch.LastName = &v
	}
	if patch.Phone != nil {
		v := strings.TrimSpace(*patch.Phone)
		if v != "" && len(v) < 10 {
			utils.JSONError(w, http.StatusBadRequest, "Phone number must be at least 10 digits")
			return
		}
		patch.Phone = &v
	}
	if patch.Company != nil {
		v := strings.TrimSpace(*patch.Company)
		patch.Company = &v
	}
	if patch.Website != nil {
		v := strings.TrimSpace(*patch.Website)
		if v != "" && !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://") {
			v = "https://" + v
		}
		patch.Website = &v
	}
	if patch.Bio != nil {
		v := strings.TrimSpace(*patch.Bio)
		if utf8.RuneCountInString(v) > maxBioLength {
			utils.JSONError(w, http.StatusBadRequest, "Bio cannot exceed 500 characters")
			return
		}
		patch.Bio = &v
	}

	if err := h.users.UpdateProfile(user.ID, patch); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Profile updated successfully",
	})
}

// GET /api/users/search?q=...
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(query) < 2 {
		utils.JSONError(w, http.StatusBadRequest, "Search query must be at least 2 characters")
		return
	}

	users, err := h.users.Search(query, 10)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to search users")
		return
	}

	results := make([]map[string]any, 0, len(users))
	for i := range users {
		u := &users[i]
		results = append(results, map[string]any{
			"id":           u.ID.String(),
			"first_name":   u.FirstName,
			"last_name":    u.LastName,
			"company":      u.Company,
			"member_since": u.CreatedAt,
		})
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Data: map[string]any{
			"users": results,
			"count": len(results),
			"query": query,
		},
	})
}
