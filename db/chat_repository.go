package db

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	apiError "github.com/docline/docline/errors"
	"github.com/docline/docline/models"
)

// ChatRepository is the durable conversation store. Appends and read-state
// transitions are atomic; message order is insertion order and nothing else.
type ChatRepository interface {
	CreateConversation(patientID, doctorID uuid.UUID, bookingID *uuid.UUID) (*models.Conversation, bool, error)
	GetConversation(id uuid.UUID) (*models.Conversation, error)
	GetConversationMessages(id uuid.UUID) ([]models.Message, error)
	SaveMessage(conversationID, senderID uuid.UUID, role models.ChatRole, content string) (*models.Message, error)
	MarkMessagesRead(conversationID uuid.UUID, readerRole models.ChatRole) (int64, error)
	ListConversationsForParticipant(userID uuid.UUID, role models.ChatRole) ([]models.ConversationSummary, error)
	UnreadCount(conversationID uuid.UUID, forRole models.ChatRole) (int64, error)
	CloseConversation(id uuid.UUID) error
}

type chatRepo struct {
	DB *gorm.DB
}

// NewChatRepo creates a new instance of ChatRepository
func NewChatRepo(db *GormDB) ChatRepository {
	return &chatRepo{db.DB}
}

// CreateConversation is idempotent: if a conversation already exists for
// the (patient, doctor, booking) triple, or the (patient, doctor) pair
// when no booking links it, the existing row is returned with existed=true.
// The unique indexes on conversations back this up under concurrency: a
// create that loses the race surfaces as a duplicate key and resolves to
// the winner's row.
func (r *chatRepo) CreateConversation(patientID, doctorID uuid.UUID, bookingID *uuid.UUID) (*models.Conversation, bool, error) {
	existing, err := r.findConversationByPair(patientID, doctorID, bookingID)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, errors.Wrap(err, "failed to look up conversation")
	}

	conv := &models.Conversation{
		ID:             uuid.New(),
		PatientID:      patientID,
		DoctorID:       doctorID,
		BookingID:      bookingID,
		LastActivityAt: time.Now(),
		Active:         true,
	}
	if err := r.DB.Create(conv).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			winner, lookErr := r.findConversationByPair(patientID, doctorID, bookingID)
			if lookErr != nil {
				return nil, false, errors.Wrap(lookErr, "failed to reload conversation after create conflict")
			}
			return winner, true, nil
		}
		return nil, false, errors.Wrap(err, "failed to create conversation")
	}
	return conv, false, nil
}

func (r *chatRepo) findConversationByPair(patientID, doctorID uuid.UUID, bookingID *uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	q := r.DB.Where("patient_id = ? AND doctor_id = ?", patientID, doctorID)
	if bookingID != nil {
		q = q.Where("booking_id = ?", *bookingID)
	} else {
		q = q.Where("booking_id IS NULL")
	}
	if err := q.First(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *chatRepo) GetConversation(id uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.DB.Where("id = ?", id).First(&conv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apiError.ErrChatNotFound
		}
		return nil, err
	}
	return &conv, nil
}

func (r *chatRepo) GetConversationMessages(id uuid.UUID) ([]models.Message, error) {
	var messages []models.Message
	err := r.DB.Where("conversation_id = ?", id).Order("created_at asc, id asc").Find(&messages).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load messages")
	}
	return messages, nil
}

// SaveMessage appends atomically: the message row and the conversation's
// last-activity fields commit in one transaction, or nothing is persisted.
func (r *chatRepo) SaveMessage(conversationID, senderID uuid.UUID, role models.ChatRole, content string) (*models.Message, error) {
	if err := models.ValidateMessageContent(content); err != nil {
		return nil, err
	}

	tx := r.DB.Begin()

	var conv models.Conversation
	if err := tx.Where("id = ?", conversationID).First(&conv).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apiError.ErrChatNotFound
		}
		return nil, errors.Wrap(err, "failed to load conversation")
	}

	msg := &models.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		SenderRole:     role,
		Content:        content,
		CreatedAt:      time.Now(),
		IsRead:         false,
	}
	if err := tx.Create(msg).Error; err != nil {
		tx.Rollback()
		return nil, errors.Wrap(err, "failed to save message")
	}

	updates := map[string]interface{}{
		"last_message":     content,
		"last_activity_at": msg.CreatedAt,
	}
	if err := tx.Model(&models.Conversation{}).Where("id = ?", conversationID).Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, errors.Wrap(err, "failed to update conversation activity")
	}

	return msg, tx.Commit().Error
}

// MarkMessagesRead flips every unread message authored by the counterpart
// role in one batch. Idempotent; a repeat call transitions zero rows.
func (r *chatRepo) MarkMessagesRead(conversationID uuid.UUID, readerRole models.ChatRole) (int64, error) {
	var conv models.Conversation
	if err := r.DB.Where("id = ?", conversationID).First(&conv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apiError.ErrChatNotFound
		}
		return 0, err
	}

	res := r.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_role = ? AND is_read = ?", conversationID, readerRole.Other(), false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "failed to mark messages read")
	}
	return res.RowsAffected, nil
}

func (r *chatRepo) ListConversationsForParticipant(userID uuid.UUID, role models.ChatRole) ([]models.ConversationSummary, error) {
	var conversations []models.Conversation
	column := "patient_id"
	if role == models.RoleDoctor {
		column = "doctor_id"
	}
	err := r.DB.Where(column+" = ?", userID).Order("last_activity_at desc").Find(&conversations).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list conversations")
	}

	summaries := make([]models.ConversationSummary, 0, len(conversations))
	for _, conv := range conversations {
		unread, err := r.UnreadCount(conv.ID, role)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, models.ConversationSummary{
			ID:             conv.ID,
			PatientID:      conv.PatientID,
			DoctorID:       conv.DoctorID,
			PartnerName:    r.partnerName(&conv, role),
			LastMessage:    conv.LastMessage,
			LastActivityAt: conv.LastActivityAt,
			UnreadCount:    unread,
			Active:         conv.Active,
		})
	}
	return summaries, nil
}

// UnreadCount counts unread messages addressed to forRole, i.e. authored by
// the counterpart role.
func (r *chatRepo) UnreadCount(conversationID uuid.UUID, forRole models.ChatRole) (int64, error) {
	var count int64
	err := r.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_role = ? AND is_read = ?", conversationID, forRole.Other(), false).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to count unread messages")
	}
	return count, nil
}

func (r *chatRepo) CloseConversation(id uuid.UUID) error {
	res := r.DB.Model(&models.Conversation{}).Where("id = ?", id).Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apiError.ErrChatNotFound
	}
	return nil
}

func (r *chatRepo) partnerName(conv *models.Conversation, viewerRole models.ChatRole) string {
	if viewerRole == models.RolePatient {
		var doctor models.Doctor
		if err := r.DB.Select("full_name").Where("id = ?", conv.DoctorID).First(&doctor).Error; err != nil {
			log.Printf("partnerName: doctor %s lookup failed: %v", conv.DoctorID, err)
			return ""
		}
		return doctor.FullName
	}
	var patient models.Patient
	if err := r.DB.Select("full_name").Where("id = ?", conv.PatientID).First(&patient).Error; err != nil {
		log.Printf("partnerName: patient %s lookup failed: %v", conv.PatientID, err)
		return ""
	}
	return patient.FullName
}
