package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation links exactly one patient with exactly one doctor. A
// conversation is never physically deleted; Active=false closes it.
// Uniqueness is index-enforced: one conversation per booking, and one
// booking-less conversation per (patient, doctor) pair via the partial
// index, so concurrent creates collapse to a single row.
type Conversation struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	PatientID      uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:udx_conversation_pair,where:booking_id IS NULL" json:"patient_id"`
	DoctorID       uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:udx_conversation_pair,where:booking_id IS NULL" json:"doctor_id"`
	BookingID      *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"booking_id,omitempty"`
	LastMessage    string     `json:"last_message"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	Active         bool       `gorm:"default:true" json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ParticipantID returns the id occupying the given role in the conversation.
func (c *Conversation) ParticipantID(role ChatRole) uuid.UUID {
	if role == RoleDoctor {
		return c.DoctorID
	}
	return c.PatientID
}

// ConversationSummary is one row of the conversation list as seen by a
// participant: the counterpart's display name plus the caller's unread count.
type ConversationSummary struct {
	ID             uuid.UUID `json:"id"`
	PatientID      uuid.UUID `json:"patient_id"`
	DoctorID       uuid.UUID `json:"doctor_id"`
	PartnerName    string    `json:"partner_name"`
	LastMessage    string    `json:"last_message"`
	LastActivityAt time.Time `json:"last_activity_at"`
	UnreadCount    int64     `json:"unread_count"`
	Active         bool      `json:"active"`
}

// ConversationDetail is the REST detail payload: the conversation plus its
// full ordered message log.
type ConversationDetail struct {
	Conversation Conversation `json:"conversation"`
	Messages     []Message    `json:"messages"`
}

type CreateConversationRequest struct {
	PatientID uuid.UUID  `json:"patient_id"`
	DoctorID  uuid.UUID  `json:"doctor_id"`
	BookingID *uuid.UUID `json:"booking_id,omitempty"`
}
