package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/cargohitch/server/internal/api/middleware"
	"github.com/cargohitch/server/internal/models"
	"github.com/cargohitch/server/internal/repositories"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory repository fakes. They honor the same contracts as the GORM
// implementations, including gorm.ErrRecordNotFound on missing rows.

type fakeUserRepo struct {
	users []*models.User
	// injected failures
	createErr error
	findErr   error
}

func (f *fakeUserRepo) add(u models.User) *models.User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = repositories.NormalizeEmail(u.Email)
	f.users = append(f.users, &u)
	return &u
}

func (f *fakeUserRepo) Create(user *models.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	user.Email = repositories.NormalizeEmail(user.Email)
	for _, u := range f.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	f.users = append(f.users, user)
	return nil
}

func (f *fakeUserRepo) FindByEmail(email string) (*models.User, error) {
	email = repositories.NormalizeEmail(email)
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) FindByID(id uuid.UUID) (*models.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) MarkVerified(email string) error {
	u, err := f.FindByEmail(email)
	if err != nil {
		return err
	}
	u.IsVerified = true
	return nil
}

func (f *fakeUserRepo) UpdatePassword(id uuid.UUID, passwordHash string) error {
	u, err := f.FindByID(id)
	if err != nil {
		return err
	}
	u.PasswordHash = passwordHash
	return nil
}

func (f *fakeUserRepo) UpdateProfile(id uuid.UUID, patch models.ProfilePatch) error {
	u, err := f.FindByID(id)
	if err != nil {
		return err
	}
	if patch.FirstName != nil {
		u.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		u.LastName = *patch.LastName
	}
	if patch.Phone != nil {
		u.Phone = *patch.Phone
	}
	if patch.Company != nil {
		u.Company = *patch.Company
	}
	if patch.Website != nil {
		u.Website = *patch.Website
	}
	if patch.Bio != nil {
		u.Bio = *patch.Bio
	}
	return nil
}

func (f *fakeUserRepo) Search(query string, limit int) ([]models.User, error) {
	q := strings.ToLower(query)
	var out []models.User
	for _, u := range f.users {
		if !u.IsVerified {
			continue
		}
		if strings.Contains(strings.ToLower(u.FirstName), q) ||
			strings.Contains(strings.ToLower(u.LastName), q) ||
			strings.Contains(strings.ToLower(u.Company), q) {
			out = append(out, *u)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type fakeTripRepo struct {
	trips      []*models.Trip
	lastFilter repositories.TripSearchFilter
}

func (f *fakeTripRepo) add(t models.Trip) *models.Trip {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = models.TripStatusActive
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().Add(-time.Duration(len(f.trips)) * time.Minute)
	}
	f.trips = append(f.trips, &t)
	return &t
}

func (f *fakeTripRepo) Create(trip *models.Trip) error {
	trip.ID = uuid.New()
	trip.CreatedAt = time.Now()
	f.trips = append(f.trips, trip)
	return nil
}

func (f *fakeTripRepo) FindByID(id uuid.UUID) (*models.Trip, error) {
	for _, t := range f.trips {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTripRepo) Search(filter repositories.TripSearchFilter) ([]models.Trip, error) {
	f.lastFilter = filter
	var out []models.Trip
	for _, t := range f.trips {
		if t.Status != models.TripStatusActive {
			continue
		}
		if filter.ExcludeUserID != nil && t.UserID == *filter.ExcludeUserID {
			continue
		}
		if filter.CountryFrom != "" && !strings.Contains(strings.ToLower(t.CountryFrom), strings.ToLower(filter.CountryFrom)) {
			continue
		}
		if filter.CountryTo != "" && !strings.Contains(strings.ToLower(t.CountryTo), strings.ToLower(filter.CountryTo)) {
			continue
		}
		if filter.Date != nil && !t.Date.Equal(*filter.Date) {
			continue
		}
		if filter.MaxRate != nil && t.RatePerKg > *filter.MaxRate {
			continue
		}
		if filter.MinSpace != nil && t.AvailableCargoSpace < *filter.MinSpace {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTripRepo) ListByOwner(owner uuid.UUID, status string) ([]models.Trip, error) {
	var out []models.Trip
	for _, t := range f.trips {
		if t.UserID != owner {
			continue
		}
		if status != "" {
			if t.Status != status {
				continue
			}
		} else if t.Status == models.TripStatusDeleted {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTripRepo) ListActiveByUser(user uuid.UUID, limit int) ([]models.Trip, error) {
	var out []models.Trip
	for _, t := range f.trips {
		if t.UserID == user && t.Status == models.TripStatusActive {
			out = append(out, *t)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeTripRepo) Update(id uuid.UUID, patch models.TripPatch) error {
	t, err := f.FindByID(id)
	if err != nil {
		return err
	}
	if patch.CountryFrom != nil {
		t.CountryFrom = *patch.CountryFrom
	}
	if patch.CountryTo != nil {
		t.CountryTo = *patch.CountryTo
	}
	if patch.Date != nil {
		t.Date = *patch.Date
	}
	if patch.DepartureTime != nil {
		t.DepartureTime = *patch.DepartureTime
	}
	if patch.RatePerKg != nil {
		t.RatePerKg = *patch.RatePerKg
	}
	if patch.Currency != nil {
		t.Currency = *patch.Currency
	}
	if patch.AvailableCargoSpace != nil {
		t.AvailableCargoSpace = *patch.AvailableCargoSpace
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.ContactInfo != nil {
		t.ContactInfo = *patch.ContactInfo
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	return nil
}

func (f *fakeTripRepo) SoftDelete(id uuid.UUID) error {
	t, err := f.FindByID(id)
	if err != nil {
		return err
	}
	t.Status = models.TripStatusDeleted
	return nil
}

func (f *fakeTripRepo) StatsByOwner(owner uuid.UUID) (models.TripStats, error) {
	trips, _ := f.ListByOwner(owner, "")
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
		stats.TotalCargoSpaceOffered += t.OriginalCargoSpace
		rateSum += t.RatePerKg
	}
	if stats.TotalTrips > 0 {
		stats.AverageRate = rateSum / float64(stats.TotalTrips)
	}
	return stats, nil
}

type fakeMessageRepo struct {
	messages []*models.Message
	clock    time.Time
}

func (f *fakeMessageRepo) Create(message *models.Message) error {
	if f.clock.IsZero() {
		f.clock = time.Now()
	}
	f.clock = f.clock.Add(time.Second)
	message.ID = uuid.New()
	message.CreatedAt = f.clock
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeMessageRepo) ListByConversation(conversationID string) ([]models.Message, error) {
	var out []models.Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) ListByParticipant(user uuid.UUID) ([]models.Message, error) {
	var out []models.Message
	for i := len(f.messages) - 1; i >= 0; i-- {
		m := f.messages[i]
		if m.SenderID == user || m.RecipientID == user {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) MarkConversationRead(conversationID string, recipient uuid.UUID) (int64, error) {
	var n int64
	for _, m := range f.messages {
		if m.ConversationID == conversationID && m.RecipientID == recipient && !m.Read {
			m.Read = true
			n++
		}
	}
	return n, nil
}

func (f *fakeMessageRepo) CountUnread(conversationID string, recipient uuid.UUID) (int64, error) {
	var n int64
	for _, m := range f.messages {
		if m.ConversationID == conversationID && m.RecipientID == recipient && !m.Read {
			n++
		}
	}
	return n, nil
}

type fakeMailer struct {
	fail bool
	sent []string
}

func (f *fakeMailer) SendVerification(to, link string) error {
	if f.fail {
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, to)
	return nil
}

func (f *fakeMailer) SendPasswordReset(to, link string) error {
	if f.fail {
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, to)
	return nil
}

// Request helpers shared by the handler tests.

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func asPrincipal(req *http.Request, user *models.User) *http.Request {
	return req.WithContext(middleware.WithPrincipal(req.Context(), user))
}

func decodeBody(rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return out
}
