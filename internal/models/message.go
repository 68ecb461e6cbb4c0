package models

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	SenderID       uuid.UUID  `json:"sender_id" gorm:"type:uuid;index;not null"`
	RecipientID    uuid.UUID  `json:"recipient_id" gorm:"type:uuid;index;not null"`
	TripID         *uuid.UUID `json:"trip_id" gorm:"type:uuid"`
	Body           string     `json:"message" gorm:"type:text;not null"`
	ConversationID string     `json:"conversation_id" gorm:"index;not null"`
	Read           bool       `json:"read" gorm:"default:false"`
	CreatedAt      time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

// ConversationID pairs two users deterministically: the ids sorted
// lexicographically and joined with "_", so both participants derive the
// same key no matter who sent first.
func ConversationID(a, b uuid.UUID) string {
	x, y := a.String(), b.String()
	if x > y {
		x, y = y, x
	}
	return x + "_" + y
}
