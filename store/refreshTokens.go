// refreshTokens.go - Refresh token persistence and rotation

package store

import (
	"context"

	"go-user-backend/models"
)

func (s *Store) SaveRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	return s.db.WithContext(ctx).Create(t).Error
}

func (s *Store) FindRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var t models.RefreshToken
	if err := s.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

// RevokeRefreshToken marks one token revoked. It reports whether this call
// performed the revocation, so a token can only be rotated once.
func (s *Store) RevokeRefreshToken(ctx context.Context, tokenHash string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked = ?", tokenHash, false).
		Update("revoked", true)
	return res.RowsAffected == 1, res.Error
}

// RevokeUserRefreshTokens revokes every live refresh token of a user.
func (s *Store) RevokeUserRefreshTokens(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
}
