package api

import (
	"fmt"
	"net/http"

	"github.com/cargohitch/server/internal/api/handlers"
	"github.com/cargohitch/server/internal/api/middleware"
	"github.com/cargohitch/server/internal/config"
	"github.com/rs/cors"
)

// Deps collects everything the router mounts. Wiring happens in main.
type Deps struct {
	Auth     *middleware.Auth
	Accounts *handlers.AuthHandler
	Trips    *handlers.TripHandler
	Users    *handlers.UserHandler
	Messages *handlers.MessageHandler
	Reviews  *handlers.ReviewHandler
}

func SetupRouter(cfg config.Config, d Deps) http.Handler {
	mux := http.NewServeMux()
	c := cors.New(cfg.CorsConfig)

	protected := func(h http.HandlerFunc) http.Handler { return d.Auth.Required(h) }
	optional := func(h http.HandlerFunc) http.Handler { return d.Auth.Optional(h) }

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	// ---------- AUTH ----------
	mux.HandleFunc("POST /api/auth/register", d.Accounts.Register)
	mux.HandleFunc("POST /api/auth/login", d.Accounts.Login)
	mux.HandleFunc("POST /api/auth/verify-token", d.Accounts.VerifyToken)
	mux.HandleFunc("POST /api/auth/refresh-token", d.Accounts.RefreshToken)
	mux.HandleFunc("GET /api/auth/verify/{token}", d.Accounts.VerifyEmail)
	mux.HandleFunc("POST /api/auth/resend-verification", d.Accounts.ResendVerification)
	mux.HandleFunc("POST /api/auth/forgot-password", d.Accounts.ForgotPassword)
	mux.HandleFunc("POST /api/auth/reset-password/{token}", d.Accounts.ResetPassword)
	mux.Handle("POST /api/auth/change-password", protected(d.Accounts.ChangePassword))

	// ---------- TRIPS ----------
	mux.Handle("POST /api/trips/add", protected(d.Trips.Create))
	mux.Handle("GET /api/trips/search", optional(d.Trips.Search))
	mux.Handle("GET /api/trips/my-trips", protected(d.Trips.MyTrips))
	mux.Handle("GET /api/trips/stats", protected(d.Trips.Stats))
	mux.HandleFunc("GET /api/trips/user/{userId}", d.Trips.UserTrips)
	mux.Handle("GET /api/trips/{tripId}", optional(d.Trips.Get))
	mux.Handle("PUT /api/trips/{tripId}/update", protected(d.Trips.Update))
	mux.Handle("DELETE /api/trips/{tripId}/delete", protected(d.Trips.Delete))

	// ---------- USERS ----------
	mux.HandleFunc("GET /api/users/profile/{userId}", d.Users.PublicProfile)
	mux.Handle("GET /api/users/profile", protected(d.Users.OwnProfile))
	mux.Handle("PUT /api/users/profile", protected(d.Users.UpdateProfile))
	mux.HandleFunc("GET /api/users/search", d.Users.Search)

	// ---------- MESSAGES ----------
	mux.Handle("POST /api/messages/send", protected(d.Messages.Send))
	mux.Handle("GET /api/messages/conversation/{userId}", protected(d.Messages.GetConversation))
	mux.Handle("GET /api/messages/conversations", protected(d.Messages.ListConversations))
	mux.Handle("POST /api/messages/mark-read", protected(d.Messages.MarkRead))

	// ---------- REVIEWS (stub) ----------
	mux.HandleFunc("GET /api/reviews/user/{userId}", d.Reviews.UserReviews)
	mux.HandleFunc("GET /api/reviews/stats/{userId}", d.Reviews.Stats)
	mux.Handle("POST /api/reviews/add", protected(d.Reviews.Add))
	mux.Handle("GET /api/reviews/my-reviews", protected(d.Reviews.MyReviews))

	handler := c.Handler(mux)
	handler = middleware.Logger(handler)
	return handler
}
