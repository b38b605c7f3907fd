package services

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/docline/docline/chat"
	"github.com/docline/docline/config"
	"github.com/docline/docline/db"
	apiError "github.com/docline/docline/errors"
	"github.com/docline/docline/models"
)

// ChatService is the REST-side surface over the conversation store. The
// live event path goes through chat.Hub instead; both re-check the access
// policy against current conversation state on every mutating call.
type ChatService interface {
	CreateConversation(callerID uuid.UUID, callerRole models.ChatRole, request *models.CreateConversationRequest) (*models.Conversation, bool, *apiError.Error)
	ListConversations(callerID uuid.UUID, callerRole models.ChatRole) ([]models.ConversationSummary, *apiError.Error)
	GetConversation(callerID uuid.UUID, callerRole models.ChatRole, conversationID uuid.UUID) (*models.ConversationDetail, *apiError.Error)
	MarkRead(callerID uuid.UUID, callerRole models.ChatRole, conversationID uuid.UUID) (int64, *apiError.Error)
	CloseConversation(callerID uuid.UUID, callerRole models.ChatRole, conversationID uuid.UUID) *apiError.Error
}

// chatService struct
type chatService struct {
	Config   *config.Config
	chatRepo db.ChatRepository
	authRepo db.AuthRepository
}

// NewChatService instantiate a chatService
func NewChatService(chatRepo db.ChatRepository, authRepo db.AuthRepository, conf *config.Config) ChatService {
	return &chatService{
		Config:   conf,
		chatRepo: chatRepo,
		authRepo: authRepo,
	}
}

// CreateConversation pairs the caller with the named counterpart. The
// caller always occupies its own role's seat; the request supplies the
// other seat. Idempotent: an existing conversation is returned, not an error.
func (s *chatService) CreateConversation(callerID uuid.UUID, callerRole models.ChatRole, request *models.CreateConversationRequest) (*models.Conversation, bool, *apiError.Error) {
	var patientID, doctorID uuid.UUID
	switch callerRole {
	case models.RolePatient:
		patientID, doctorID = callerID, request.DoctorID
	case models.RoleDoctor:
		patientID, doctorID = request.PatientID, callerID
	default:
		return nil, false, apiError.ErrBadRequest
	}
	if patientID == uuid.Nil || doctorID == uuid.Nil {
		return nil, false, apiError.New("counterpart id is required", http.StatusBadRequest)
	}

	// The counterpart must exist in its own identity space.
	if callerRole == models.RolePatient {
		if _, err := s.authRepo.FindDoctorByID(doctorID); err != nil {
			return nil, false, counterpartLookupError(err)
		}
	} else {
		if _, err := s.authRepo.FindPatientByID(patientID); err != nil {
			return nil, false, counterpartLookupError(err)
		}
	}

	conv, existed, err := s.chatRepo.CreateConversation(patientID, doctorID, request.BookingID)
	if err != nil {
		log.Printf("CreateConversation: %v", err)
		return nil, false, apiError.ErrInternalServerError
	}
	return conv, existed, nil
}

func (s *chatService) ListConversations(callerID uuid.UUID, callerRole models.ChatRole) ([]models.ConversationSummary, *apiError.Error) {
	summaries, err := s.chatRepo.ListConversationsForParticipant(callerID, callerRole)
	if err != nil {
		log.Printf("ListConversations: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	return summaries, nil
}

// GetConversation returns the conversation and its full message log. A
// policy denial reads as 404: existence is not confirmed to non-participants.
func (s *chatService) GetConversation(callerID uuid.UUID, callerRole models.ChatRole, conversationID uuid.UUID) (*models.ConversationDetail, *apiError.Error) {
	conv, err := s.chatRepo.GetConversation(conversationID)
	if err != nil {
		if errors.Is(err, apiError.ErrChatNotFound) {
			return nil, apiError.ErrNotFound
		}
		log.Printf("GetConversation: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	if !chat.CanAccess(conv, callerID, callerRole) {
		return nil, apiError.ErrNotFound
	}

	messages, err := s.chatRepo.GetConversationMessages(conversationID)
	if err != nil {
		log.Printf("GetConversation: messages: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	return &models.ConversationDetail{Conversation: *conv, Messages: messages}, nil
}

// MarkRead transitions the caller's unread messages in one idempotent batch.
func (s *chatService) MarkRead(callerID uuid.UUID, callerRole models.ChatRole, conversationID uuid.UUID) (int64, *apiError.Error) {
	conv, err := s.chatRepo.GetConversation(conversationID)
	if err != nil {
		if errors.Is(err, apiError.ErrChatNotFound) {
			return 0, apiError.ErrNotFound
		}
		log.Printf("MarkRead: %v", err)
		return 0, apiError.ErrInternalServerError
	}
	if !chat.CanModify(conv, callerID, callerRole) {
		return 0, apiError.ErrNotFound
	}

	count, err := s.chatRepo.MarkMessagesRead(conversationID, callerRole)
	if err != nil {
		log.Printf("MarkRead: %v", err)
		return 0, apiError.ErrInternalServerError
	}
	return count, nil
}

// CloseConversation flips Active off. The conversation stays readable and
// listable; send and markRead start denying. Either participant may close,
// and closing an already closed conversation succeeds.
func (s *chatService) CloseConversation(callerID uuid.UUID, callerRole models.ChatRole, conversationID uuid.UUID) *apiError.Error {
	conv, err := s.chatRepo.GetConversation(conversationID)
	if err != nil {
		if errors.Is(err, apiError.ErrChatNotFound) {
			return apiError.ErrNotFound
		}
		log.Printf("CloseConversation: %v", err)
		return apiError.ErrInternalServerError
	}
	if !chat.CanAccess(conv, callerID, callerRole) {
		return apiError.ErrNotFound
	}

	if err := s.chatRepo.CloseConversation(conversationID); err != nil {
		log.Printf("CloseConversation: %v", err)
		return apiError.ErrInternalServerError
	}
	return nil
}

func counterpartLookupError(err error) *apiError.Error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apiError.New("counterpart not found", http.StatusNotFound)
	}
	if errors.Is(err, apiError.InActiveUserError) {
		return apiError.New("counterpart account is deactivated", http.StatusUnprocessableEntity)
	}
	return apiError.ErrInternalServerError
}
