// store_test.go - Tests for user storage

package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"go-user-backend/database"
	"go-user-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.OpenSQLite(dsn)
	require.NoError(t, err)
	return New(db)
}

func createUser(t *testing.T, s *Store, email, role string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Secret1!"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{FirstName: "Test", LastName: "User", Email: email, Password: string(hash), Role: role, IsActive: true}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	createUser(t, s, "a@example.com", models.RoleUser)

	hash, _ := bcrypt.GenerateFromPassword([]byte("Other1!x"), bcrypt.MinCost)
	err := s.CreateUser(context.Background(), &models.User{FirstName: "X", LastName: "Y", Email: "a@example.com", Password: string(hash)})
	assert.ErrorIs(t, err, ErrEmailTaken)

	// case-sensitive as stored
	createUser(t, s, "A@example.com", models.RoleUser)
}

func TestCreateUserRejectsPlaintext(t *testing.T) {
	s := newTestStore(t)
	err := s.CreateUser(context.Background(), &models.User{FirstName: "X", LastName: "Y", Email: "p@example.com", Password: "Secret1!"})
	assert.ErrorIs(t, err, models.ErrPlaintextPassword)
}

func TestFindUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "find@example.com", models.RoleUser)

	byID, err := s.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "find@example.com", byID.Email)

	byEmail, err := s.FindUserByEmail(ctx, "find@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = s.FindUserByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.FindUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.FindUserByResetToken(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEmailTakenByOther(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := createUser(t, s, "a@example.com", models.RoleUser)
	b := createUser(t, s, "b@example.com", models.RoleUser)

	taken, err := s.EmailTakenByOther(ctx, "a@example.com", a.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	taken, err = s.EmailTakenByOther(ctx, "a@example.com", b.ID)
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestToggleActiveFlipsOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "t@example.com", models.RoleUser)

	toggled, err := s.ToggleActive(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	toggled, err = s.ToggleActive(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)

	_, err = s.ToggleActive(ctx, 12345)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateUserAndPassword(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "u@example.com", models.RoleUser)
	createUser(t, s, "taken@example.com", models.RoleUser)

	updated, err := s.UpdateUser(ctx, u.ID, map[string]any{"first_name": "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.FirstName)

	_, err = s.UpdateUser(ctx, u.ID, map[string]any{"email": "taken@example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	expiry := time.Now().Add(time.Hour)
	require.NoError(t, s.SetResetToken(ctx, u.ID, "reset-hash", expiry))
	found, err := s.FindUserByResetToken(ctx, "reset-hash")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	newHash, _ := bcrypt.GenerateFromPassword([]byte("Changed1!"), bcrypt.MinCost)
	require.NoError(t, s.SetPassword(ctx, u.ID, string(newHash)))
	_, err = s.FindUserByResetToken(ctx, "reset-hash")
	assert.ErrorIs(t, err, ErrNotFound)

	reloaded, err := s.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(reloaded.Password), []byte("Changed1!")))
	assert.Nil(t, reloaded.ResetTokenExpiry)
}

func TestListUsersNewestFirst(t *testing.T) {
	s := newTestStore(t)
	first := createUser(t, s, "1@example.com", models.RoleUser)
	second := createUser(t, s, "2@example.com", models.RoleAdmin)

	users, err := s.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, second.ID, users[0].ID)
	assert.Equal(t, first.ID, users[1].ID)
}

func TestVerificationToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "v@example.com", models.RoleUser)

	_, err := s.UpdateUser(ctx, u.ID, map[string]any{"email_verification_token": "verify-hash"})
	require.NoError(t, err)

	found, err := s.FindUserByVerificationToken(ctx, "verify-hash")
	require.NoError(t, err)
	require.NoError(t, s.MarkEmailVerified(ctx, found.ID))

	reloaded, err := s.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.EmailVerified)
	_, err = s.FindUserByVerificationToken(ctx, "verify-hash")
	assert.ErrorIs(t, err, ErrNotFound)
}
