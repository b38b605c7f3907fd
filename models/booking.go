package models

import (
	"time"

	"github.com/google/uuid"
)

// Booking is the appointment record the external booking workflow writes.
// The chat core only reads it to seed a conversation; at most one
// conversation may link back to a given booking.
type Booking struct {
	Model
	PatientID   uuid.UUID `gorm:"type:uuid;not null;index" json:"patient_id"`
	DoctorID    uuid.UUID `gorm:"type:uuid;not null;index" json:"doctor_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Status      string    `gorm:"default:'confirmed'" json:"status"`
}
