package config

import (
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type Config struct {
	DBURL       string
	Port        string
	JWTSecret   string
	Environment string
	AppBaseURL  string
	SMTP        SMTPConfig
	CorsConfig  cors.Options
}

// Load reads configuration from the environment, optionally seeded from an
// env file. It is called once from main; nothing else reads os.Getenv.
func Load() Config {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("No", envFile, "file found")
	}

	return Config{
		DBURL:       getEnv("DB_URL", ""),
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "not-so-secret-now-is-it?"),
		Environment: getEnv("ENV", "development"),
		AppBaseURL:  getEnv("APP_BASE_URL", "http://localhost:8080"),
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("MAIL_FROM", "no-reply@cargohitch.app"),
		},
		CorsConfig: corsConfig(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
	}
}

// Gets the env by key or fallbacks
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func corsConfig(origins string) cors.Options {
	var allowed []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed = append(allowed, o)
		}
	}
	return cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
}
