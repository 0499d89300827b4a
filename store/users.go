// users.go - User queries and updates

package store

import (
	"context"
	"time"

	"go-user-backend/models"
)

// CreateUser inserts u. A concurrent insert of the same email loses at the
// unique index and returns ErrEmailTaken.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Create(u).Error)
}

func (s *Store) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) FindUserByResetToken(ctx context.Context, tokenHash string) (*models.User, error) {
	var u models.User
	if tokenHash == "" {
		return nil, ErrNotFound
	}
	if err := s.db.WithContext(ctx).Where("reset_token = ?", tokenHash).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) FindUserByVerificationToken(ctx context.Context, tokenHash string) (*models.User, error) {
	var u models.User
	if tokenHash == "" {
		return nil, ErrNotFound
	}
	if err := s.db.WithContext(ctx).Where("email_verification_token = ?", tokenHash).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// EmailTakenByOther reports whether a user other than id has email.
func (s *Store) EmailTakenByOther(ctx context.Context, email string, id uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ? AND id <> ?", email, id).Count(&count).Error
	return count > 0, err
}

// ListUsers returns every user, newest first.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&users).Error
	return users, err
}

// UpdateUser applies column changes and returns the reloaded row.
func (s *Store) UpdateUser(ctx context.Context, id uint, changes map[string]any) (*models.User, error) {
	if len(changes) > 0 {
		res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(changes)
		if err := translate(res.Error); err != nil {
			return nil, err
		}
	}
	return s.FindUserByID(ctx, id)
}

// ToggleActive flips is_active for id in one statement and returns the new
// value, so concurrent toggles each flip exactly once.
func (s *Store) ToggleActive(ctx context.Context, id uint) (*models.User, error) {
	res := s.db.WithContext(ctx).Exec("UPDATE users SET is_active = NOT is_active, updated_at = ? WHERE id = ?", time.Now(), id)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.FindUserByID(ctx, id)
}

// SetPassword stores an already-hashed password and clears any reset token.
func (s *Store) SetPassword(ctx context.Context, id uint, hash string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]any{
		"password":           hash,
		"reset_token":        "",
		"reset_token_expiry": nil,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetResetToken stores the hash of a password-reset token with its expiry.
func (s *Store) SetResetToken(ctx context.Context, id uint, tokenHash string, expiry time.Time) error {
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]any{
		"reset_token":        tokenHash,
		"reset_token_expiry": expiry,
	}).Error
}

// MarkEmailVerified sets email_verified and clears the verification token.
func (s *Store) MarkEmailVerified(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]any{
		"email_verified":           true,
		"email_verification_token": "",
	}).Error
}

// TouchLastLogin records a successful login.
func (s *Store) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("last_login", at).Error
}
