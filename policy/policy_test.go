// policy_test.go - Tests for admin and ownership rules

package policy

import (
	"net/http"
	"testing"

	"go-user-backend/apperrors"
	"go-user-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin = &Identity{ID: 1, Role: models.RoleAdmin, IsActive: true}
	alice = &Identity{ID: 2, Role: models.RoleUser, IsActive: true}
)

func codeOf(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return apperrors.As(err).Code
}

func ptr[T any](v T) *T { return &v }

func TestPredicates(t *testing.T) {
	assert.True(t, IsAdmin(admin))
	assert.False(t, IsAdmin(alice))
	assert.False(t, IsAdmin(nil))
	assert.True(t, IsSelf(alice, 2))
	assert.False(t, IsSelf(alice, 3))
	assert.False(t, IsSelf(nil, 0))
}

func TestRequireAdmin(t *testing.T) {
	assert.NoError(t, RequireAdmin(admin))
	assert.Equal(t, apperrors.CodeNotAdmin, codeOf(t, RequireAdmin(alice)))
	assert.Equal(t, http.StatusForbidden, apperrors.As(RequireAdmin(alice)).Status)
}

func TestRequireSelfOrAdmin(t *testing.T) {
	assert.NoError(t, RequireSelfOrAdmin(alice, 2))
	assert.NoError(t, RequireSelfOrAdmin(admin, 2))
	assert.Equal(t, apperrors.CodeNotSelfOrAdmin, codeOf(t, RequireSelfOrAdmin(alice, 3)))
}

func TestCheckToggle(t *testing.T) {
	assert.NoError(t, CheckToggle(admin, 2))
	assert.Equal(t, apperrors.CodeSelfDeactivation, codeOf(t, CheckToggle(admin, 1)))
	assert.Equal(t, apperrors.CodeNotAdmin, codeOf(t, CheckToggle(alice, 3)))
}

func TestFilterUserUpdateSelfOnlyNames(t *testing.T) {
	changes, err := FilterUserUpdate(alice, 2, UserUpdate{
		FirstName: ptr("Alicia"),
		Email:     ptr("new@example.com"),
		Role:      ptr(models.RoleAdmin),
		IsActive:  ptr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"first_name": "Alicia"}, changes)
}

func TestFilterUserUpdateAdmin(t *testing.T) {
	changes, err := FilterUserUpdate(admin, 2, UserUpdate{
		LastName: ptr("Smith"),
		Email:    ptr("alice@corp.example"),
		Role:     ptr(models.RoleAdmin),
		IsActive: ptr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"last_name": "Smith",
		"email":     "alice@corp.example",
		"role":      models.RoleAdmin,
		"is_active": false,
	}, changes)
}

func TestFilterUserUpdateRejections(t *testing.T) {
	_, err := FilterUserUpdate(alice, 3, UserUpdate{FirstName: ptr("x")})
	assert.Equal(t, apperrors.CodeNotSelfOrAdmin, codeOf(t, err))

	_, err = FilterUserUpdate(admin, 1, UserUpdate{IsActive: ptr(false)})
	assert.Equal(t, apperrors.CodeSelfDeactivation, codeOf(t, err))

	_, err = FilterUserUpdate(admin, 2, UserUpdate{Role: ptr("root")})
	assert.Equal(t, apperrors.CodeValidation, codeOf(t, err))
}
