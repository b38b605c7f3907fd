package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	errs "github.com/docline/docline/errors"
	"github.com/docline/docline/models"
	"github.com/docline/docline/server/response"
	"github.com/docline/docline/services/jwt"
)

// identity is the immutable binding a validated credential resolves to.
type identity struct {
	UserID      uuid.UUID
	Role        models.ChatRole
	DisplayName string
}

// resolveCredential validates the bearer token and resolves it against the
// two disjoint identity spaces. Shared by the REST middleware and the
// websocket gate so both reject on exactly the same conditions.
func (s *Server) resolveCredential(accessToken string) (*identity, *errs.Error) {
	if accessToken == "" {
		return nil, errs.ErrUnauthorized
	}
	if s.AuthRepository.IsTokenInBlacklist(accessToken) {
		return nil, errs.ErrUnauthorized
	}

	claims, err := jwt.ValidateAndGetClaims(accessToken, s.Config.JWTSecret)
	if err != nil {
		return nil, errs.ErrUnauthorized
	}

	idValue, ok := claims["id"].(string)
	if !ok {
		return nil, errs.ErrUnauthorized
	}
	userID, err := uuid.Parse(idValue)
	if err != nil {
		return nil, errs.ErrUnauthorized
	}
	roleHint, _ := claims["role"].(string)

	// Patients and doctors live in separate tables: try the hinted space,
	// fall back patient-then-doctor when the hint is absent.
	lookups := []models.ChatRole{models.RolePatient, models.RoleDoctor}
	if role := models.ChatRole(roleHint); role.Valid() {
		lookups = []models.ChatRole{role}
	}

	for _, role := range lookups {
		var (
			name    string
			lookErr error
		)
		if role == models.RolePatient {
			patient, err := s.AuthRepository.FindPatientByID(userID)
			if err == nil {
				name = patient.FullName
			}
			lookErr = err
		} else {
			doctor, err := s.AuthRepository.FindDoctorByID(userID)
			if err == nil {
				name = doctor.FullName
			}
			lookErr = err
		}

		switch {
		case lookErr == nil:
			return &identity{UserID: userID, Role: role, DisplayName: name}, nil
		case errors.Is(lookErr, errs.InActiveUserError):
			return nil, errs.New("account is deactivated", http.StatusUnauthorized)
		case errors.Is(lookErr, gorm.ErrRecordNotFound):
			continue
		default:
			return nil, errs.ErrInternalServerError
		}
	}
	return nil, errs.ErrUnauthorized
}

func (s *Server) Authorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken := getTokenFromHeader(c)
		ident, apiErr := s.resolveCredential(accessToken)
		if apiErr != nil {
			respondAndAbort(c, "", apiErr.Status, nil, apiErr)
			return
		}

		c.Set("userID", ident.UserID)
		c.Set("userRole", ident.Role)
		c.Set("displayName", ident.DisplayName)
		c.Set("access_token", accessToken)
		c.Next()
	}
}

// callerIdentity pulls the Authorize() binding back out of the context.
func callerIdentity(c *gin.Context) (uuid.UUID, models.ChatRole, bool) {
	idValue, ok := c.Get("userID")
	if !ok {
		return uuid.Nil, "", false
	}
	roleValue, ok := c.Get("userRole")
	if !ok {
		return uuid.Nil, "", false
	}
	userID, ok := idValue.(uuid.UUID)
	if !ok {
		return uuid.Nil, "", false
	}
	role, ok := roleValue.(models.ChatRole)
	if !ok {
		return uuid.Nil, "", false
	}
	return userID, role, true
}

// respondAndAbort calls response.JSON and aborts the Context
func respondAndAbort(c *gin.Context, message string, status int, data interface{}, e *errs.Error) {
	response.JSON(c, message, status, data, e)
	c.Abort()
}

// getTokenFromHeader returns the token string in the authorization header
func getTokenFromHeader(c *gin.Context) string {
	authHeader := c.Request.Header.Get("Authorization")
	if len(authHeader) > 8 {
		return authHeader[7:]
	}
	return ""
}
