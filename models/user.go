// user.go - Defines the User model for the database

package models

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ErrPlaintextPassword is returned by the save hook when Password is not a bcrypt hash.
var ErrPlaintextPassword = errors.New("models: refusing to persist a non-hashed password")

type User struct { // User struct represents a user in the database
	ID                     uint       `gorm:"primaryKey" json:"id"`
	FirstName              string     `gorm:"size:50;not null" json:"firstName"`
	LastName               string     `gorm:"size:50;not null" json:"lastName"`
	Email                  string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password               string     `gorm:"not null" json:"-"` // bcrypt hash, never plaintext
	Role                   string     `gorm:"size:16;default:'user';not null" json:"role"`
	IsActive               bool       `gorm:"default:true;not null" json:"isActive"`
	LastLogin              *time.Time `json:"lastLogin,omitempty"`
	ResetToken             string     `gorm:"size:64;index" json:"-"`
	ResetTokenExpiry       *time.Time `json:"-"`
	EmailVerificationToken string     `gorm:"size:64;index" json:"-"`
	EmailVerified          bool       `gorm:"default:false;not null" json:"emailVerified"`
	CreatedAt              time.Time  `json:"createdAt"`
	UpdatedAt              time.Time  `json:"updatedAt"`
}

// BeforeSave guards the hash-only invariant for every struct save.
// Column updates through maps bypass it; store.SetPassword only ever receives
// output of auth.Hasher.
func (u *User) BeforeSave(tx *gorm.DB) error {
	if u.Password == "" {
		return nil
	}
	if _, err := bcrypt.Cost([]byte(u.Password)); err != nil {
		return ErrPlaintextPassword
	}
	return nil
}

// ValidRole reports whether role is one of the closed set of roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}
