package db

import (
	"log"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	apiError "github.com/docline/docline/errors"
	"github.com/docline/docline/models"
)

// AuthRepository resolves identities against the two disjoint identity
// spaces and tracks invalidated tokens.
type AuthRepository interface {
	CreatePatient(patient *models.Patient) (*models.Patient, error)
	CreateDoctor(doctor *models.Doctor) (*models.Doctor, error)
	FindPatientByID(id uuid.UUID) (*models.Patient, error)
	FindDoctorByID(id uuid.UUID) (*models.Doctor, error)
	FindPatientByEmail(email string) (*models.Patient, error)
	FindDoctorByEmail(email string) (*models.Doctor, error)
	AddToBlacklist(blacklist *models.Blacklist) error
	IsTokenInBlacklist(token string) bool
}

type authRepo struct {
	DB *gorm.DB
}

// NewAuthRepo creates a new instance of AuthRepository
func NewAuthRepo(db *GormDB) AuthRepository {
	return &authRepo{db.DB}
}

func (a *authRepo) CreatePatient(patient *models.Patient) (*models.Patient, error) {
	if patient == nil {
		return nil, errors.New("patient is nil")
	}
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	if err := a.DB.Create(patient).Error; err != nil {
		log.Printf("CreatePatient error: %v", err)
		return nil, err
	}
	return patient, nil
}

func (a *authRepo) CreateDoctor(doctor *models.Doctor) (*models.Doctor, error) {
	if doctor == nil {
		return nil, errors.New("doctor is nil")
	}
	if doctor.ID == uuid.Nil {
		doctor.ID = uuid.New()
	}
	if err := a.DB.Create(doctor).Error; err != nil {
		log.Printf("CreateDoctor error: %v", err)
		return nil, err
	}
	return doctor, nil
}

// FindPatientByID returns the patient or InActiveUserError for deactivated
// accounts. Callers distinguish "unknown" (gorm.ErrRecordNotFound) from
// "known but deactivated".
func (a *authRepo) FindPatientByID(id uuid.UUID) (*models.Patient, error) {
	var patient models.Patient
	if err := a.DB.Where("id = ?", id).First(&patient).Error; err != nil {
		return nil, err
	}
	if !patient.Active {
		return nil, apiError.InActiveUserError
	}
	return &patient, nil
}

func (a *authRepo) FindDoctorByID(id uuid.UUID) (*models.Doctor, error) {
	var doctor models.Doctor
	if err := a.DB.Where("id = ?", id).First(&doctor).Error; err != nil {
		return nil, err
	}
	if !doctor.Active {
		return nil, apiError.InActiveUserError
	}
	return &doctor, nil
}

func (a *authRepo) FindPatientByEmail(email string) (*models.Patient, error) {
	var patient models.Patient
	if err := a.DB.Where("email = ?", email).First(&patient).Error; err != nil {
		return nil, err
	}
	return &patient, nil
}

func (a *authRepo) FindDoctorByEmail(email string) (*models.Doctor, error) {
	var doctor models.Doctor
	if err := a.DB.Where("email = ?", email).First(&doctor).Error; err != nil {
		return nil, err
	}
	return &doctor, nil
}

func (a *authRepo) AddToBlacklist(blacklist *models.Blacklist) error {
	return a.DB.Create(blacklist).Error
}

func (a *authRepo) IsTokenInBlacklist(token string) bool {
	var count int64
	if err := a.DB.Model(&models.Blacklist{}).Where("token = ?", token).Count(&count).Error; err != nil {
		log.Printf("IsTokenInBlacklist error: %v", err)
		return false
	}
	return count > 0
}
