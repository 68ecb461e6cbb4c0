package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/cargohitch/server/internal/api"
	"github.com/cargohitch/server/internal/api/handlers"
	"github.com/cargohitch/server/internal/api/middleware"
	"github.com/cargohitch/server/internal/auth"
	"github.com/cargohitch/server/internal/config"
	"github.com/cargohitch/server/internal/mailer"
	"github.com/cargohitch/server/internal/repositories"
)

func main() {
	cfg := config.Load()

	db, err := repositories.Connect(cfg.DBURL)
	if err != nil {
		log.Fatalf("Database setup failed: %v", err)
	}
	log.Println("Successfully connected to database")

	users := repositories.NewUserRepository(db)
	trips := repositories.NewTripRepository(db)
	messages := repositories.NewMessageRepository(db)

	tokens := auth.NewTokenService(cfg.JWTSecret)
	mail := mailer.NewSMTP(cfg.SMTP)

	handler := api.SetupRouter(cfg, api.Deps{
		Auth:     middleware.NewAuth(tokens, users),
		Accounts: handlers.NewAuthHandler(users, tokens, mail, cfg.AppBaseURL),
		Trips:    handlers.NewTripHandler(trips),
		Users:    handlers.NewUserHandler(users, trips),
		Messages: handlers.NewMessageHandler(messages, users, trips),
		Reviews:  handlers.NewReviewHandler(users),
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: handler,
		// Timeouts prevent resource exhaustion from slow clients
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Starting CargoHitch server on port: %s", cfg.Port)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on port %s: %v", cfg.Port, err)
	}
}
