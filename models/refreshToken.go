// refreshToken.go - Defines the RefreshToken model for session renewal

package models

import "time"

// RefreshToken is a revocable long-lived session linked to one user.
// Only the sha256 of the opaque token is stored.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"`
	TokenHash string    `gorm:"size:64;uniqueIndex;not null"` // sha256 hex of the opaque token
	UserID    uint      `gorm:"index;not null"`               // Owning user
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	ExpiresAt time.Time `gorm:"not null"`
	Revoked   bool      `gorm:"default:false;not null"` // Set on rotation, logout or deactivation
	UserAgent string    `gorm:"size:255"`               // Client that logged in
	IPAddress string    `gorm:"size:64"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Usable reports whether the token may still be exchanged at now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
