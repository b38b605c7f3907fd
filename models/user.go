package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Patient and Doctor are stored in separate tables with separate key
// spaces. A bare id is therefore ambiguous anywhere in the chat core;
// references always travel together with a ChatRole tag.

type Patient struct {
	Model
	FullName       string `json:"full_name" binding:"required,min=2"`
	Email          string `json:"email" gorm:"unique;not null" binding:"required,email"`
	Telephone      string `json:"telephone" gorm:"default:null"`
	Password       string `json:"password,omitempty" gorm:"-" validate:"omitempty,min=6"`
	HashedPassword string `json:"-"`
	Active         bool   `json:"active" gorm:"default:true"`
}

type Doctor struct {
	Model
	FullName       string `json:"full_name" binding:"required,min=2"`
	Email          string `json:"email" gorm:"unique;not null" binding:"required,email"`
	Specialty      string `json:"specialty"`
	Password       string `json:"password,omitempty" gorm:"-" validate:"omitempty,min=6"`
	HashedPassword string `json:"-"`
	Active         bool   `json:"active" gorm:"default:true"`
}

// VerifyPassword verifies the collected password with the user's hashed password
func (p *Patient) VerifyPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(p.HashedPassword), []byte(password))
}

func (d *Doctor) VerifyPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(d.HashedPassword), []byte(password))
}

// Blacklist holds access tokens invalidated by logout.
type Blacklist struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Token     string    `gorm:"size:512;index" json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required,oneof=patient doctor"`
}

type LoginResponse struct {
	ID          string `json:"id"`
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	AccessToken string `json:"access_token"`
}
