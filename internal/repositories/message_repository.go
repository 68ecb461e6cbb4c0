package repositories

import (
	"github.com/cargohitch/server/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageRepository is the persistence boundary for direct messages.
// Messages are append-only except for the read flag.
type MessageRepository interface {
	Create(message *models.Message) error
	ListByConversation(conversationID string) ([]models.Message, error)
	ListByParticipant(user uuid.UUID) ([]models.Message, error)
	MarkConversationRead(conversationID string, recipient uuid.UUID) (int64, error)
	CountUnread(conversationID string, recipient uuid.UUID) (int64, error)
}

type GormMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Create(message *models.Message) error {
	return r.db.Create(message).Error
}

// ListByConversation returns a conversation oldest first, the order it reads in.
func (r *GormMessageRepository) ListByConversation(conversationID string) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}

// ListByParticipant returns every message the user sent or received, newest
// first, so the first row per conversation id is its latest message.
func (r *GormMessageRepository) ListByParticipant(user uuid.UUID) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.
		Where("sender_id = ? OR recipient_id = ?", user, user).
		Order("created_at DESC").
		Find(&messages).Error
	return messages, err
}

// MarkConversationRead flips read on the unread messages addressed to the
// recipient. Messages the recipient sent are untouched.
func (r *GormMessageRepository) MarkConversationRead(conversationID string, recipient uuid.UUID) (int64, error) {
	res := r.db.Model(&models.Message{}).
		Where("conversation_id = ? AND recipient_id = ? AND read = ?", conversationID, recipient, false).
		Update("read", true)
	return res.RowsAffected, res.Error
}

func (r *GormMessageRepository) CountUnread(conversationID string, recipient uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&models.Message{}).
		Where("conversation_id = ? AND recipient_id = ? AND read = ?", conversationID, recipient, false).
		Count(&count).Error
	return count, err
}
