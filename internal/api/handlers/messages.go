package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/cargohitch/server/internal/api/middleware"
	"github.com/cargohitch/server/internal/models"
	"github.com/cargohitch/server/internal/repositories"
	"github.com/cargohitch/server/internal/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxMessageLength = 1000

type MessageHandler struct {
	messages repositories.MessageRepository
	users    repositories.UserRepository
	trips    repositories.TripRepository
}

func NewMessageHandler(messages repositories.MessageRepository, users repositories.UserRepository, trips repositories.TripRepository) *MessageHandler {
	return &MessageHandler{messages: messages, users: users, trips: trips}
}

func participantProjection(user *models.User) map[string]any {
	return map[string]any{
		"id":    user.ID.String(),
		"name":  user.DisplayName(),
		"email": user.Email,
	}
}

// POST /api/messages/send
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	sender := middleware.Principal(r.Context())

	var input struct {
		RecipientID string  `json:"recipient_id"`
		Message     string  `json:"message"`
		TripID      *string `json:"trip_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	body := strings.TrimSpace(input.Message)
	if body == "" {
		utils.JSONError(w, http.StatusBadRequest, "Message cannot be empty")
		return
	}
	// Limits are in characters, not bytes.
	if utf8.RuneCountInString(body) > maxMessageLength {
		utils.JSONError(w, http.StatusBadRequest, "Message too long (max 1000 characters)")
		return
	}

	recipientID, err := uuid.Parse(input.RecipientID)
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid recipient ID")
		return
	}
	if recipientID == sender.ID {
		utils.JSONError(w, http.StatusBadRequest, "Cannot send message to yourself")
		return
	}
	if _, err := h.users.FindByID(recipientID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.JSONError(w, http.StatusNotFound, "Recipient not found")
		} else {
			utils.JSONError(w, http.StatusInternalServerError, "Failed to send message")
		}
		return
	}

	var tripID *uuid.UUID
	if input.TripID != nil && *input.TripID != "" {
		id, err := uuid.Parse(*input.TripID)
		if err != nil {
			utils.JSONError(w, http.StatusBadRequest, "Invalid trip ID")
			return
		}
		if _, err := h.trips.FindByID(id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.JSONError(w, http.StatusNotFound, "Trip not found")
			} else {
				utils.JSONError(w, http.StatusInternalServerError, "Failed to send message")
			}
			return
		}
		tripID = &id
	}

	message := models.Message{
		SenderID:       sender.ID,
		RecipientID:    recipientID,
		TripID:         tripID,
		Body:           body,
		ConversationID: models.ConversationID(sender.ID, recipientID),
	}
	if err := h.messages.Create(&message); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to send message")
		return
	}

	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "Message sent successfully",
		Data: map[string]any{
			"message":     message,
			"sender_name": sender.DisplayName(),
		},
	})
}

// GET /api/messages/conversation/{userId}
//
// Fetching a conversation marks everything addressed to the viewer as read.
func (h *MessageHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.Principal(r.Context())

	otherID, err := uuid.Parse(r.PathValue("userId"))
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	other, err := h.users.FindByID(otherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.JSONError(w, http.StatusNotFound, "User not found")
		} else {
			utils.JSONError(w, http.StatusInternalServerError, "Failed to fetch conversation")
		}
		return
	}

	conversationID := models.ConversationID(viewer.ID, otherID)
	messages, err := h.messages.ListByConversation(conversationID)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to fetch conversation")
		return
	}
	if _, err := h.messages.MarkConversationRead(conversationID, viewer.ID); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to fetch conversation")
		return
	}

	list := make([]map[string]any, 0, len(messages))
	for _, m := range messages {
		read := m.Read
		if m.RecipientID == viewer.ID {
			read = true
		}
		entry := map[string]any{
			"id":           m.ID.String(),
			"sender_id":    m.SenderID.String(),
			"recipient_id": m.RecipientID.String(),
			"message":      m.Body,
			"created_at":   m.CreatedAt,
			"read":         read,
			"is_mine":      m.SenderID == viewer.ID,
		}
		if m.TripID != nil {
			entry["trip_id"] = m.TripID.String()
		}
		list = append(list, entry)
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Data: map[string]any{
			"conversation_id": conversationID,
			"messages":        list,
			"count":           len(list),
			"other_user":      participantProjection(other),
		},
	})
}

// GET /api/messages/conversations
func (h *MessageHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.Principal(r.Context())

	messages, err := h.messages.ListByParticipant(viewer.ID)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to fetch conversations")
		return
	}

	// Messages arrive newest first, so the first one seen per conversation
	// is its latest; iteration order doubles as the response order.
	type summary struct {
		latest models.Message
		unread int64
	}
	var order []string
	latest := map[string]*summary{}
	for _, m := range messages {
		s, ok := latest[m.ConversationID]
		if !ok {
			s = &summary{latest: m}
			latest[m.ConversationID] = s
			order = append(order, m.ConversationID)
		}
		if m.RecipientID == viewer.ID && !m.Read {
			s.unread++
		}
	}

	list := make([]map[string]any, 0, len(order))
	for _, convID := range order {
		s := latest[convID]

		otherID := s.latest.SenderID
		if otherID == viewer.ID {
			otherID = s.latest.RecipientID
		}
		// One lookup per conversation. A vanished participant drops the
		// conversation; any other store error fails the whole listing.
		other, err := h.users.FindByID(otherID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			utils.JSONError(w, http.StatusInternalServerError, "Failed to fetch conversations")
			return
		}

		entry := map[string]any{
			"conversation_id":   convID,
			"other_user":        participantProjection(other),
			"last_message":      s.latest.Body,
			"last_message_time": s.latest.CreatedAt,
			"unread_count":      s.unread,
		}
		if s.latest.TripID != nil {
			entry["trip_id"] = s.latest.TripID.String()
		}
		list = append(list, entry)
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Data: map[string]any{
			"conversations": list,
			"count":         len(list),
		},
	})
}

// POST /api/messages/mark-read
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.Principal(r.Context())

	var input struct {
		ConversationID string `json:"conversation_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.ConversationID == "" {
		utils.JSONError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	updated, err := h.messages.MarkConversationRead(input.ConversationID, viewer.ID)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to mark messages as read")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Messages marked as read",
		Data:    map[string]any{"updated_count": updated},
	})
}
