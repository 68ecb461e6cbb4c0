package repositories

import (
	"fmt"

	"github.com/cargohitch/server/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens the Postgres pool and runs migrations. The handle is owned
// by main and passed to the repositories; there is no package-level DB.
func Connect(dsn string) (*gorm.DB, error) {
	// TranslateError maps driver unique-violation errors to gorm.ErrDuplicatedKey.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Trip{},
		&models.Message{},
	); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}
