// policy.go - Role and ownership checks layered on top of a verified identity
//
// The functions here are pure: they take the identity attached by the auth
// middleware plus the target of the request and return nil or an
// *apperrors.Error with a stable code. Handlers and route middleware compose
// them; nothing here touches the database.

package policy

import (
	"go-user-backend/apperrors"
	"go-user-backend/models"
)

// Identity is the request-scoped view of the authenticated user.
// It never carries the password hash.
type Identity struct {
	ID       uint
	Email    string
	Role     string
	IsActive bool
}

// IdentityOf builds an Identity from a loaded user.
func IdentityOf(u *models.User) *Identity {
	return &Identity{ID: u.ID, Email: u.Email, Role: u.Role, IsActive: u.IsActive}
}

func IsAdmin(id *Identity) bool {
	return id != nil && id.Role == models.RoleAdmin
}

func IsSelf(id *Identity, targetID uint) bool {
	return id != nil && id.ID == targetID
}

// RequireAdmin fails with forbidden:not-admin.
func RequireAdmin(id *Identity) error {
	if !IsAdmin(id) {
		return apperrors.Authorization(apperrors.CodeNotAdmin, "Access denied. Admin privileges required.")
	}
	return nil
}

// RequireSelfOrAdmin fails with forbidden:not-self-or-admin.
func RequireSelfOrAdmin(id *Identity, targetID uint) error {
	if !IsAdmin(id) && !IsSelf(id, targetID) {
		return apperrors.Authorization(apperrors.CodeNotSelfOrAdmin, "Access denied. You can only access your own profile.")
	}
	return nil
}

// CheckToggle allows an admin to flip any account's active flag except their own.
func CheckToggle(actor *Identity, targetID uint) error {
	if err := RequireAdmin(actor); err != nil {
		return err
	}
	if IsSelf(actor, targetID) {
		return apperrors.BadRequest(apperrors.CodeSelfDeactivation, "You cannot deactivate your own account")
	}
	return nil
}

// UserUpdate is a partial update request. Nil pointers mean "not supplied".
type UserUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
	Role      *string
	IsActive  *bool
}

// FilterUserUpdate returns the column changes actor is allowed to apply to
// targetID. Name fields are always honoured; email, role and active flag are
// only honoured for admins and are dropped from a non-admin's request.
func FilterUserUpdate(actor *Identity, targetID uint, in UserUpdate) (map[string]any, error) {
	if err := RequireSelfOrAdmin(actor, targetID); err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if in.FirstName != nil && *in.FirstName != "" {
		changes["first_name"] = *in.FirstName
	}
	if in.LastName != nil && *in.LastName != "" {
		changes["last_name"] = *in.LastName
	}

	if !IsAdmin(actor) {
		return changes, nil
	}

	if in.Email != nil && *in.Email != "" {
		changes["email"] = *in.Email
	}
	if in.Role != nil && *in.Role != "" {
		if !models.ValidRole(*in.Role) {
			return nil, apperrors.Validation(apperrors.FieldError{Field: "role", Message: "Role must be one of: user, admin"})
		}
		changes["role"] = *in.Role
	}
	if in.IsActive != nil {
		if !*in.IsActive && IsSelf(actor, targetID) {
			return nil, apperrors.BadRequest(apperrors.CodeSelfDeactivation, "You cannot deactivate your own account")
		}
		changes["is_active"] = *in.IsActive
	}
	return changes, nil
}
