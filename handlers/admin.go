// admin.go - User administration: listing, creating, updating and (de)activating accounts

package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"go-user-backend/apperrors"
	"go-user-backend/events"
	"go-user-backend/middleware"
	"go-user-backend/models"
	"go-user-backend/policy"
	"go-user-backend/store"
	"go-user-backend/validation"

	"github.com/gin-gonic/gin"
)

type CreateUserInput struct {
	RegisterInput
	Role string `json:"role" binding:"omitempty,oneof=user admin"`
}

// UpdateUserInput is a partial update; absent fields are left unchanged.
type UpdateUserInput struct {
	FirstName *string `json:"firstName" binding:"omitempty,min=2,max=50"`
	LastName  *string `json:"lastName" binding:"omitempty,min=2,max=50"`
	Email     *string `json:"email" binding:"omitempty,email,max=255"`
	Role      *string `json:"role" binding:"omitempty,oneof=user admin"`
	IsActive  *bool   `json:"isActive"`
}

// ListUsers returns every account, newest first. Admin only.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.Store.ListUsers(c.Request.Context())
	if err != nil {
		h.fail(c, apperrors.Internal("An error occurred while fetching users", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(users), "data": users})
}

// CreateUser creates an account with an explicit role. Admin only.
func (h *Handler) CreateUser(c *gin.Context) {
	ctx := c.Request.Context()

	var input CreateUserInput
	if err := validation.BindJSON(c, &input); err != nil {
		h.fail(c, err)
		return
	}
	if input.ConfirmPassword != "" && input.ConfirmPassword != input.Password {
		h.fail(c, apperrors.BadRequest(apperrors.CodePasswordMismatch, "Passwords do not match"))
		return
	}
	role := input.Role
	if role == "" {
		role = models.RoleUser
	}

	hash, err := h.Hasher.Hash(ctx, input.Password)
	if err != nil {
		h.fail(c, apperrors.Internal("An error occurred while creating the user", err))
		return
	}

	user := models.User{
		FirstName:     strings.TrimSpace(input.FirstName),
		LastName:      strings.TrimSpace(input.LastName),
		Email:         strings.TrimSpace(input.Email),
		Password:      hash,
		Role:          role,
		IsActive:      true,
		EmailVerified: true,
	}
	if err := h.Store.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			h.fail(c, apperrors.Conflict(apperrors.CodeEmailTaken, "Email already in use"))
			return
		}
		h.fail(c, apperrors.Internal("An error occurred while creating the user", err))
		return
	}

	h.emit(events.UserCreated, &user, map[string]any{"role": user.Role, "by": middleware.CurrentIdentity(c).ID})
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "User created successfully", "data": user})
}

// GetUser returns one account. Self or admin.
func (h *Handler) GetUser(c *gin.Context) {
	id, err := middleware.IDParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	user, err := h.Store.FindUserByID(c.Request.Context(), id)
	if err != nil {
		h.failUserLookup(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": user})
}

// UpdateUser applies a partial update. Users may change their own names;
// admins may also change email, role and active flag.
func (h *Handler) UpdateUser(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := middleware.IDParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var input UpdateUserInput
	if err := validation.BindJSON(c, &input); err != nil {
		h.fail(c, err)
		return
	}

	// STEP 1: Decide which fields this caller may change
	changes, err := policy.FilterUserUpdate(middleware.CurrentIdentity(c), id, policy.UserUpdate{
		FirstName: trimmed(input.FirstName),
		LastName:  trimmed(input.LastName),
		Email:     trimmed(input.Email),
		Role:      input.Role,
		IsActive:  input.IsActive,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	// STEP 2: The target must exist
	if _, err := h.Store.FindUserByID(ctx, id); err != nil {
		h.failUserLookup(c, err)
		return
	}

	// STEP 3: Email must stay unique
	if email, ok := changes["email"].(string); ok {
		taken, err := h.Store.EmailTakenByOther(ctx, email, id)
		if err != nil {
			h.fail(c, apperrors.Internal("An error occurred while updating the user", err))
			return
		}
		if taken {
			h.fail(c, apperrors.Conflict(apperrors.CodeEmailTaken, "Email already in use by another user"))
			return
		}
	}

	user, err := h.Store.UpdateUser(ctx, id, changes)
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			h.fail(c, apperrors.Conflict(apperrors.CodeEmailTaken, "Email already in use by another user"))
			return
		}
		h.failUserLookup(c, err)
		return
	}

	if active, ok := changes["is_active"].(bool); ok && !active {
		h.revokeSessions(c, user.ID)
	}
	if len(changes) > 0 {
		fields := make([]string, 0, len(changes))
		for k := range changes {
			fields = append(fields, k)
		}
		h.emit(events.UserUpdated, user, map[string]any{"fields": fields})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User updated successfully", "data": user})
}

// ToggleStatus flips an account between active and inactive. Admin only, and
// never on the admin's own account.
func (h *Handler) ToggleStatus(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := middleware.IDParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := policy.CheckToggle(middleware.CurrentIdentity(c), id); err != nil {
		h.fail(c, err)
		return
	}

	user, err := h.Store.ToggleActive(ctx, id)
	if err != nil {
		h.failUserLookup(c, err)
		return
	}
	if !user.IsActive {
		h.revokeSessions(c, user.ID)
	}
	h.emit(events.UserStatusChanged, user, map[string]any{"isActive": user.IsActive})

	state := "activated"
	if !user.IsActive {
		state = "deactivated"
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User " + state + " successfully",
		"data":    gin.H{"id": user.ID, "email": user.Email, "isActive": user.IsActive},
	})
}

func (h *Handler) failUserLookup(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		h.fail(c, apperrors.NotFound("User not found"))
		return
	}
	h.fail(c, apperrors.Internal("An error occurred while loading the user", err))
}

func (h *Handler) revokeSessions(c *gin.Context, userID uint) {
	if err := h.Store.RevokeUserRefreshTokens(c.Request.Context(), userID); err != nil {
		log.Printf("failed to revoke refresh tokens for user %d: %v", userID, err)
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
