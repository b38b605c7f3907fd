package chat

import (
	"github.com/google/uuid"

	"github.com/docline/docline/models"
)

// CanAccess reports whether the identity occupies its role's seat in the
// conversation. Nobody else — administrative roles included — passes.
// Evaluated fresh on every operation; never cached.
func CanAccess(conv *models.Conversation, userID uuid.UUID, role models.ChatRole) bool {
	if conv == nil {
		return false
	}
	switch role {
	case models.RolePatient:
		return conv.PatientID == userID
	case models.RoleDoctor:
		return conv.DoctorID == userID
	}
	return false
}

// CanModify gates the mutating operations (send, mark-read): the caller
// must hold a seat and the conversation must still be open.
func CanModify(conv *models.Conversation, userID uuid.UUID, role models.ChatRole) bool {
	return CanAccess(conv, userID, role) && conv.Active
}
