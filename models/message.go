package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	apiError "github.com/docline/docline/errors"
)

// ChatRole tags which identity space a chat participant belongs to.
type ChatRole string

const (
	RolePatient ChatRole = "patient"
	RoleDoctor  ChatRole = "doctor"
)

// MaxMessageLen bounds message content, in runes.
const MaxMessageLen = 2000

// Other returns the counterpart role.
func (r ChatRole) Other() ChatRole {
	if r == RolePatient {
		return RoleDoctor
	}
	return RolePatient
}

func (r ChatRole) Valid() bool {
	return r == RolePatient || r == RoleDoctor
}

// Message is one entry of a conversation's append-only log. Content and
// sender are immutable once persisted; only IsRead may change, and only
// from false to true.
type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index" json:"conversation_id"`
	SenderID       uuid.UUID `gorm:"type:uuid;not null" json:"sender_id"`
	SenderRole     ChatRole  `gorm:"size:10;not null" json:"sender_role"`
	Content        string    `gorm:"type:text" json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	IsRead         bool      `gorm:"default:false" json:"is_read"`
}

// ValidateMessageContent rejects empty (after trimming) and over-long content.
func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return apiError.ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > MaxMessageLen {
		return apiError.ErrMessageTooLong
	}
	return nil
}
