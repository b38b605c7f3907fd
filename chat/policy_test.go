package chat

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/docline/docline/models"
)

func TestCanAccess(t *testing.T) {
	patientID := uuid.New()
	doctorID := uuid.New()
	conv := &models.Conversation{
		ID:        uuid.New(),
		PatientID: patientID,
		DoctorID:  doctorID,
		Active:    true,
	}

	tests := []struct {
		name   string
		userID uuid.UUID
		role   models.ChatRole
		want   bool
	}{
		{"patient in patient seat", patientID, models.RolePatient, true},
		{"doctor in doctor seat", doctorID, models.RoleDoctor, true},
		{"patient id presented as doctor", patientID, models.RoleDoctor, false},
		{"doctor id presented as patient", doctorID, models.RolePatient, false},
		{"stranger as patient", uuid.New(), models.RolePatient, false},
		{"stranger as doctor", uuid.New(), models.RoleDoctor, false},
		{"unknown role", patientID, models.ChatRole("admin"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAccess(conv, tt.userID, tt.role))
		})
	}
}

func TestCanAccessNilConversation(t *testing.T) {
	assert.False(t, CanAccess(nil, uuid.New(), models.RolePatient))
}

func TestCanModifyRequiresActiveConversation(t *testing.T) {
	patientID := uuid.New()
	conv := &models.Conversation{
		ID:        uuid.New(),
		PatientID: patientID,
		DoctorID:  uuid.New(),
		Active:    true,
	}

	assert.True(t, CanModify(conv, patientID, models.RolePatient))

	conv.Active = false
	assert.False(t, CanModify(conv, patientID, models.RolePatient))
	assert.True(t, CanAccess(conv, patientID, models.RolePatient), "closed conversations stay readable")
}
