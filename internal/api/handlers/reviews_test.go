package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cargohitch/server/internal/models"
	"github.com/stretchr/testify/assert"
)

func postReview(h *ReviewHandler, reviewer *models.User, body map[string]any) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Add(rec, asPrincipal(jsonRequest(http.MethodPost, "/api/reviews/add", body), reviewer))
	return rec
}

func TestAddReviewTextBoundsCountCharacters(t *testing.T) {
	users := &fakeUserRepo{}
	reviewer := users.add(models.User{Email: "reviewer@x.com", IsVerified: true})
	reviewed := users.add(models.User{Email: "reviewed@x.com", IsVerified: true})
	h := NewReviewHandler(users)

	base := map[string]any{"reviewed_user_id": reviewed.ID.String(), "rating": 5}

	// Ten multibyte characters clear the minimum even though they are twenty bytes.
	base["review"] = strings.Repeat("é", 10)
	assert.Equal(t, http.StatusOK, postReview(h, reviewer, base).Code)

	base["review"] = strings.Repeat("é", 500)
	assert.Equal(t, http.StatusOK, postReview(h, reviewer, base).Code)

	base["review"] = strings.Repeat("é", 501)
	assert.Equal(t, http.StatusBadRequest, postReview(h, reviewer, base).Code)

	base["review"] = strings.Repeat("é", 9)
	assert.Equal(t, http.StatusBadRequest, postReview(h, reviewer, base).Code)
}

func TestAddReviewValidation(t *testing.T) {
	users := &fakeUserRepo{}
	reviewer := users.add(models.User{Email: "reviewer@x.com", IsVerified: true})
	reviewed := users.add(models.User{Email: "reviewed@x.com", IsVerified: true})
	h := NewReviewHandler(users)

	text := "a perfectly reasonable review"

	rec := postReview(h, reviewer, map[string]any{
		"reviewed_user_id": reviewed.ID.String(), "rating": 6, "review": text,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postReview(h, reviewer, map[string]any{
		"reviewed_user_id": reviewer.ID.String(), "rating": 5, "review": text,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
