package services

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/docline/docline/config"
	"github.com/docline/docline/db"
	apiError "github.com/docline/docline/errors"
	"github.com/docline/docline/models"
	"github.com/docline/docline/services/jwt"
)

// AuthService interface
type AuthService interface {
	Login(loginRequest *models.LoginRequest) (*models.LoginResponse, *apiError.Error)
	Logout(accessToken string) *apiError.Error
}

// authService struct
type authService struct {
	Config   *config.Config
	authRepo db.AuthRepository
}

// NewAuthService instantiate an authService
func NewAuthService(authRepo db.AuthRepository, conf *config.Config) AuthService {
	return &authService{
		Config:   conf,
		authRepo: authRepo,
	}
}

// Login resolves the credential against the identity space named by the
// role discriminator and mints the access token the chat gate consumes.
func (a *authService) Login(loginRequest *models.LoginRequest) (*models.LoginResponse, *apiError.Error) {
	role := models.ChatRole(loginRequest.Role)
	if !role.Valid() {
		return nil, apiError.New("role must be patient or doctor", http.StatusBadRequest)
	}

	var (
		userID   uuid.UUID
		fullName string
		active   bool
		verify   func(string) error
	)

	switch role {
	case models.RolePatient:
		patient, err := a.authRepo.FindPatientByEmail(loginRequest.Email)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apiError.ErrInvalidPassword
			}
			log.Printf("Login: error finding patient by email: %v", err)
			return nil, apiError.ErrInternalServerError
		}
		userID, fullName, active, verify = patient.ID, patient.FullName, patient.Active, patient.VerifyPassword
	case models.RoleDoctor:
		doctor, err := a.authRepo.FindDoctorByEmail(loginRequest.Email)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apiError.ErrInvalidPassword
			}
			log.Printf("Login: error finding doctor by email: %v", err)
			return nil, apiError.ErrInternalServerError
		}
		userID, fullName, active, verify = doctor.ID, doctor.FullName, doctor.Active, doctor.VerifyPassword
	}

	if err := verify(loginRequest.Password); err != nil {
		log.Printf("Login: invalid password for %s %s", role, loginRequest.Email)
		return nil, apiError.ErrInvalidPassword
	}
	if !active {
		return nil, apiError.New("account is deactivated", http.StatusUnauthorized)
	}

	accessToken, err := jwt.GenerateToken(userID, string(role), a.Config.JWTSecret, a.Config.JWTExpiryMinutes)
	if err != nil {
		log.Printf("Login: error generating token: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	return &models.LoginResponse{
		ID:          userID.String(),
		FullName:    fullName,
		Email:       loginRequest.Email,
		Role:        string(role),
		AccessToken: accessToken,
	}, nil
}

// Logout blacklists the access token so neither the REST surface nor the
// chat gate will accept it again.
func (a *authService) Logout(accessToken string) *apiError.Error {
	if accessToken == "" {
		return apiError.ErrUnauthorized
	}
	if err := a.authRepo.AddToBlacklist(&models.Blacklist{Token: accessToken}); err != nil {
		log.Printf("Logout: error blacklisting token: %v", err)
		return apiError.ErrInternalServerError
	}
	return nil
}
