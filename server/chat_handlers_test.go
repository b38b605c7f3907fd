package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/docline/docline/config"
	apiError "github.com/docline/docline/errors"
	"github.com/docline/docline/models"
	"github.com/docline/docline/services/jwt"
)

const testJWTSecret = "handler-test-secret"

// stubAuthRepo resolves exactly one patient and one doctor.
type stubAuthRepo struct {
	patient     *models.Patient
	doctor      *models.Doctor
	blacklisted map[string]bool
}

func (s *stubAuthRepo) CreatePatient(patient *models.Patient) (*models.Patient, error) {
	return patient, nil
}

func (s *stubAuthRepo) CreateDoctor(doctor *models.Doctor) (*models.Doctor, error) {
	return doctor, nil
}

func (s *stubAuthRepo) FindPatientByID(id uuid.UUID) (*models.Patient, error) {
	if s.patient != nil && s.patient.ID == id {
		if !s.patient.Active {
			return nil, apiError.InActiveUserError
		}
		return s.patient, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubAuthRepo) FindDoctorByID(id uuid.UUID) (*models.Doctor, error) {
	if s.doctor != nil && s.doctor.ID == id {
		if !s.doctor.Active {
			return nil, apiError.InActiveUserError
		}
		return s.doctor, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubAuthRepo) FindPatientByEmail(email string) (*models.Patient, error) {
	if s.patient != nil && s.patient.Email == email {
		return s.patient, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubAuthRepo) FindDoctorByEmail(email string) (*models.Doctor, error) {
	if s.doctor != nil && s.doctor.Email == email {
		return s.doctor, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubAuthRepo) AddToBlacklist(blacklist *models.Blacklist) error {
	if s.blacklisted == nil {
		s.blacklisted = make(map[string]bool)
	}
	s.blacklisted[blacklist.Token] = true
	return nil
}

func (s *stubAuthRepo) IsTokenInBlacklist(token string) bool {
	return s.blacklisted[token]
}

// stubChatService returns canned values and records the caller it saw.
type stubChatService struct {
	summaries    []models.ConversationSummary
	detail       *models.ConversationDetail
	conversation *models.Conversation
	existed      bool
	markedRead   int64
	err          *apiError.Error

	lastCallerID uuid.UUID
	lastRole     models.ChatRole
}

func (s *stubChatService) CreateConversation(callerID uuid.UUID, callerRole models.ChatRole, request *models.CreateConversationRequest) (*models.Conversation, bool, *apiError.Error) {
	s.lastCallerID, s.lastRole = callerID, callerRole
	if s.err != nil {
		return nil, false, s.err
	}
	return s.conversation, s.existed, nil
}

func (s *stubChatService) ListConversations(callerID uuid.UUID, callerRole models.ChatRole) ([]models.ConversationSummary, *apiError.Error) {
	s.lastCallerID, s.lastRole = callerID, callerRole
	if s.err != nil {
		return nil, s.err
	}
	return s.summaries, nil
}

func (s *stubChatService) GetConversation(callerID uuid.UUID, callerRole models.ChatRole, conversationID uuid.UUID) (*models.ConversationDetail, *apiError.Error) {
	s.lastCallerID, s.lastRole = callerID, callerRole
	if s.err != nil {
		return nil, s.err
	}
	return s.detail, nil
}

func (s *stubChatService) MarkRead(callerID uuid.UUID, callerRole models.ChatRole, conversationID uuid.UUID) (int64, *apiError.Error) {
	s.lastCallerID, s.lastRole = callerID, callerRole
	if s.err != nil {
		return 0, s.err
	}
	return s.markedRead, nil
}

func (s *stubChatService) CloseConversation(callerID uuid.UUID, callerRole models.ChatRole, conversationID uuid.UUID) *apiError.Error {
	s.lastCallerID, s.lastRole = callerID, callerRole
	return s.err
}

func newTestServer(t *testing.T, chatSvc *stubChatService) (*gin.Engine, *stubAuthRepo) {
	t.Helper()
	t.Setenv("GIN_MODE", "test")
	gin.SetMode(gin.TestMode)

	authRepo := &stubAuthRepo{
		patient: &models.Patient{
			Model:    models.Model{ID: uuid.New()},
			FullName: "Ada Obi",
			Email:    "ada@example.com",
			Active:   true,
		},
		doctor: &models.Doctor{
			Model:    models.Model{ID: uuid.New()},
			FullName: "Dr. Eze",
			Email:    "eze@example.com",
			Active:   true,
		},
	}
	s := &Server{
		Config:         &config.Config{JWTSecret: testJWTSecret, JWTExpiryMinutes: 60},
		AuthRepository: authRepo,
		ChatService:    chatSvc,
	}
	return s.setupRouter(), authRepo
}

func patientToken(t *testing.T, authRepo *stubAuthRepo) string {
	t.Helper()
	token, err := jwt.GenerateToken(authRepo.patient.ID, string(models.RolePatient), testJWTSecret, 60)
	assert.NoError(t, err)
	return token
}

func doRequest(r *gin.Engine, method, target, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListChatsRequiresToken(t *testing.T) {
	router, _ := newTestServer(t, &stubChatService{})

	w := doRequest(router, http.MethodGet, "/api/v1/chats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListChatsRejectsBlacklistedToken(t *testing.T) {
	router, authRepo := newTestServer(t, &stubChatService{})
	token := patientToken(t, authRepo)
	assert.NoError(t, authRepo.AddToBlacklist(&models.Blacklist{Token: token}))

	w := doRequest(router, http.MethodGet, "/api/v1/chats", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListChatsRejectsUnknownUser(t *testing.T) {
	router, _ := newTestServer(t, &stubChatService{})
	token, err := jwt.GenerateToken(uuid.New(), string(models.RolePatient), testJWTSecret, 60)
	assert.NoError(t, err)

	w := doRequest(router, http.MethodGet, "/api/v1/chats", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListChatsReturnsSummaries(t *testing.T) {
	convID := uuid.New()
	chatSvc := &stubChatService{
		summaries: []models.ConversationSummary{
			{ID: convID, PartnerName: "Dr. Eze", UnreadCount: 2},
		},
	}
	router, authRepo := newTestServer(t, chatSvc)

	w := doRequest(router, http.MethodGet, "/api/v1/chats", patientToken(t, authRepo), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []models.ConversationSummary `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Data, 1)
	assert.Equal(t, convID, body.Data[0].ID)
	assert.EqualValues(t, 2, body.Data[0].UnreadCount)

	// The middleware identity, not anything client-supplied, reaches the service.
	assert.Equal(t, authRepo.patient.ID, chatSvc.lastCallerID)
	assert.Equal(t, models.RolePatient, chatSvc.lastRole)
}

func TestGetChatRejectsMalformedID(t *testing.T) {
	router, authRepo := newTestServer(t, &stubChatService{})

	w := doRequest(router, http.MethodGet, "/api/v1/chats/not-a-uuid", patientToken(t, authRepo), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetChatPropagatesServiceStatus(t *testing.T) {
	router, authRepo := newTestServer(t, &stubChatService{err: apiError.ErrNotFound})

	w := doRequest(router, http.MethodGet, fmt.Sprintf("/api/v1/chats/%s", uuid.New()), patientToken(t, authRepo), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateChatStatusReflectsIdempotence(t *testing.T) {
	conv := &models.Conversation{ID: uuid.New(), Active: true}
	chatSvc := &stubChatService{conversation: conv}
	router, authRepo := newTestServer(t, chatSvc)
	token := patientToken(t, authRepo)
	payload, err := json.Marshal(models.CreateConversationRequest{DoctorID: authRepo.doctor.ID})
	assert.NoError(t, err)

	w := doRequest(router, http.MethodPost, "/api/v1/chats", token, payload)
	assert.Equal(t, http.StatusCreated, w.Code)

	chatSvc.existed = true
	w = doRequest(router, http.MethodPost, "/api/v1/chats", token, payload)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMarkChatRead(t *testing.T) {
	chatSvc := &stubChatService{markedRead: 4}
	router, authRepo := newTestServer(t, chatSvc)

	w := doRequest(router, http.MethodPut, fmt.Sprintf("/api/v1/chats/%s/read", uuid.New()), patientToken(t, authRepo), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			MarkedRead int64 `json:"marked_read"`
		} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 4, body.Data.MarkedRead)
}

func TestCloseChat(t *testing.T) {
	chatSvc := &stubChatService{}
	router, authRepo := newTestServer(t, chatSvc)

	w := doRequest(router, http.MethodDelete, fmt.Sprintf("/api/v1/chats/%s", uuid.New()), patientToken(t, authRepo), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, authRepo.patient.ID, chatSvc.lastCallerID)
}

func TestCloseChatPropagatesServiceStatus(t *testing.T) {
	router, authRepo := newTestServer(t, &stubChatService{err: apiError.ErrNotFound})

	w := doRequest(router, http.MethodDelete, fmt.Sprintf("/api/v1/chats/%s", uuid.New()), patientToken(t, authRepo), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChatWSRejectsWithoutCredential(t *testing.T) {
	router, _ := newTestServer(t, &stubChatService{})

	w := doRequest(router, http.MethodGet, "/api/v1/ws/chat", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
