package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	errs "github.com/docline/docline/errors"
	"github.com/docline/docline/models"
	"github.com/docline/docline/server/response"
)

func (s *Server) handleListChats() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, role, ok := callerIdentity(c)
		if !ok {
			respondAndAbort(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		summaries, apiErr := s.ChatService.ListConversations(userID, role)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "", http.StatusOK, summaries, nil)
	}
}

func (s *Server) handleGetChat() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, role, ok := callerIdentity(c)
		if !ok {
			respondAndAbort(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}
		chatID, err := uuid.Parse(c.Param("chatID"))
		if err != nil {
			response.JSON(c, "invalid chat id", http.StatusBadRequest, nil, err)
			return
		}

		detail, apiErr := s.ChatService.GetConversation(userID, role, chatID)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "", http.StatusOK, detail, nil)
	}
}

// handleCreateChat is idempotent: 200 with the existing conversation when
// the pairing already exists, 201 when a new one is created.
func (s *Server) handleCreateChat() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, role, ok := callerIdentity(c)
		if !ok {
			respondAndAbort(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		var request models.CreateConversationRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		conv, existed, apiErr := s.ChatService.CreateConversation(userID, role, &request)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		status := http.StatusCreated
		message := "conversation created"
		if existed {
			status = http.StatusOK
			message = "conversation already exists"
		}
		response.JSON(c, message, status, conv, nil)
	}
}

// handleCloseChat closes the conversation for both sides. The row stays
// readable afterwards; only sends and read-state transitions are denied.
func (s *Server) handleCloseChat() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, role, ok := callerIdentity(c)
		if !ok {
			respondAndAbort(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}
		chatID, err := uuid.Parse(c.Param("chatID"))
		if err != nil {
			response.JSON(c, "invalid chat id", http.StatusBadRequest, nil, err)
			return
		}

		if apiErr := s.ChatService.CloseConversation(userID, role, chatID); apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "conversation closed", http.StatusOK, nil, nil)
	}
}

func (s *Server) handleMarkChatRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, role, ok := callerIdentity(c)
		if !ok {
			respondAndAbort(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}
		chatID, err := uuid.Parse(c.Param("chatID"))
		if err != nil {
			response.JSON(c, "invalid chat id", http.StatusBadRequest, nil, err)
			return
		}

		count, apiErr := s.ChatService.MarkRead(userID, role, chatID)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "", http.StatusOK, gin.H{"marked_read": count}, nil)
	}
}
