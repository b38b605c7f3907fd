package db

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/docline/docline/config"
	"github.com/docline/docline/models"
)

type GormDB struct {
	DB *gorm.DB
}

func GetDB(c *config.Config) *GormDB {
	gormDB := &GormDB{}
	gormDB.Init(c)
	return gormDB
}

func (g *GormDB) Init(c *config.Config) {
	g.DB = getPostgresDB(c)

	if err := migrate(g.DB); err != nil {
		log.Fatalf("unable to run migrations: %v", err)
	}
}

func getPostgresDB(c *config.Config) *gorm.DB {
	log.Printf("Connecting to postgres: %s@%s:%d/%s", c.PostgresUser, c.PostgresHost, c.PostgresPort, c.PostgresDB)
	postgresDSN := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort)

	gormConfig := &gorm.Config{TranslateError: true}
	if c.Env != "prod" {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}
	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		DSN: postgresDSN,
	}), gormConfig)
	if err != nil {
		log.Fatal(err)
	}

	return gormDB
}

func migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Patient{},
		&models.Doctor{},
		&models.Booking{},
		&models.Conversation{},
		&models.Message{},
		&models.Blacklist{},
	)
	if err != nil {
		return fmt.Errorf("migrations error: %v", err)
	}
	return nil
}

// SeedDemoAccounts creates one patient and one doctor with a shared booking
// so a dev environment is immediately usable. Guarded by config.
func SeedDemoAccounts(db *gorm.DB) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	patient := models.Patient{
		Model:          models.Model{ID: uuid.New()},
		FullName:       "Ada Obi",
		Email:          "patient@docline.local",
		HashedPassword: string(hash),
		Active:         true,
	}
	doctor := models.Doctor{
		Model:          models.Model{ID: uuid.New()},
		FullName:       "Dr. Ngozi Eze",
		Email:          "doctor@docline.local",
		Specialty:      "General Practice",
		HashedPassword: string(hash),
		Active:         true,
	}

	if err := db.Where(models.Patient{Email: patient.Email}).FirstOrCreate(&patient).Error; err != nil {
		return err
	}
	if err := db.Where(models.Doctor{Email: doctor.Email}).FirstOrCreate(&doctor).Error; err != nil {
		return err
	}

	booking := models.Booking{
		Model:       models.Model{ID: uuid.New()},
		PatientID:   patient.ID,
		DoctorID:    doctor.ID,
		ScheduledAt: time.Now().Add(24 * time.Hour),
	}
	if err := db.Where(models.Booking{PatientID: patient.ID, DoctorID: doctor.ID}).FirstOrCreate(&booking).Error; err != nil {
		return err
	}

	log.Printf("Seeded demo accounts: patient=%s doctor=%s booking=%s", patient.ID, doctor.ID, booking.ID)
	return nil
}
