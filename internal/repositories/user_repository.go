package repositories

import (
	"strings"

	"github.com/cargohitch/server/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository is the persistence boundary for identity records.
type UserRepository interface {
	Create(user *models.User) error
	FindByEmail(email string) (*models.User, error)
	FindByID(id uuid.UUID) (*models.User, error)
	MarkVerified(email string) error
	UpdatePassword(id uuid.UUID, passwordHash string) error
	UpdateProfile(id uuid.UUID, patch models.ProfilePatch) error
	Search(query string, limit int) ([]models.User, error)
}

type GormUserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// NormalizeEmail is the canonical form stored and matched everywhere.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *GormUserRepository) Create(user *models.User) error {
	user.Email = NormalizeEmail(user.Email)
	return r.db.Create(user).Error
}

func (r *GormUserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) FindByID(id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) MarkVerified(email string) error {
	res := r.db.Model(&models.User{}).
		Where("email = ?", NormalizeEmail(email)).
		Update("is_verified", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormUserRepository) UpdatePassword(id uuid.UUID, passwordHash string) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash).Error
}

func (r *GormUserRepository) UpdateProfile(id uuid.UUID, patch models.ProfilePatch) error {
	updates := patch.Updates()
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *GormUserRepository) Search(query string, limit int) ([]models.User, error) {
	like := "%" + query + "%"
	var users []models.User
	err := r.db.
		Where("is_verified = ?", true).
		Where("first_name ILIKE ? OR last_name ILIKE ? OR company ILIKE ?", like, like, like).
		Limit(limit).
		Find(&users).Error
	return users, err
}
