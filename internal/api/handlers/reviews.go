package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/cargohitch/server/internal/api/middleware"
	"github.com/cargohitch/server/internal/repositories"
	"github.com/cargohitch/server/internal/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReviewHandler is an intentional stub. The endpoints exist so clients can
// render review sections, but nothing is persisted and every listing is
// empty until the review system ships.
type ReviewHandler struct {
	users repositories.UserRepository
}

func NewReviewHandler(users repositories.UserRepository) *ReviewHandler {
	return &ReviewHandler{users: users}
}

// GET /api/reviews/user/{userId}
func (h *ReviewHandler) UserReviews(w http.ResponseWriter, r *http.Request) {
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Data:    map[string]any{"reviews": []any{}},
	})
}

// GET /api/reviews/stats/{userId}
func (h *ReviewHandler) Stats(w http.ResponseWriter, r *http.Request) {
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Data: map[string]any{
			"total_reviews":  0,
			"average_rating": 0.0,
			"rating_breakdown": map[string]int{
				"5": 0, "4": 0, "3": 0, "2": 0, "1": 0,
			},
		},
	})
}

// POST /api/reviews/add — validates the payload shape so clients integrate
// against the final contract, then reports that reviews are not live yet.
func (h *ReviewHandler) Add(w http.ResponseWriter, r *http.Request) {
	reviewer := middleware.Principal(r.Context())

	var input struct {
		ReviewedUserID string `json:"reviewed_user_id"`
		Rating         int    `json:"rating"`
		Review         string `json:"review"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	if input.Rating < 1 || input.Rating > 5 {
		utils.JSONError(w, http.StatusBadRequest, "Rating must be between 1 and 5")
		return
	}
	text := strings.TrimSpace(input.Review)
	if utf8.RuneCountInString(text) < 10 {
		utils.JSONError(w, http.StatusBadRequest, "Review must be at least 10 characters")
		return
	}
	if utf8.RuneCountInString(text) > 500 {
		utils.JSONError(w, http.StatusBadRequest, "Review cannot exceed 500 characters")
		return
	}

	reviewedID, err := uuid.Parse(input.ReviewedUserID)
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid reviewed user ID")
		return
	}
	if reviewedID == reviewer.ID {
		utils.JSONError(w, http.StatusBadRequest, "Cannot review yourself")
		return
	}
	if _, err := h.users.FindByID(reviewedID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.JSONError(w, http.StatusNotFound, "Reviewed user not found")
		} else {
			utils.JSONError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Review system not yet implemented",
	})
}

// GET /api/reviews/my-reviews
func (h *ReviewHandler) MyReviews(w http.ResponseWriter, r *http.Request) {
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Data: map[string]any{
			"reviews": []any{},
			"count":   0,
		},
	})
}
