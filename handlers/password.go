// password.go - Password change, reset by email, and email verification

package handlers

import (
	"errors"
	"log"
	"net/http"

	"go-user-backend/apperrors"
	"go-user-backend/auth"
	"go-user-backend/events"
	"go-user-backend/middleware"
	"go-user-backend/store"
	"go-user-backend/validation"

	"github.com/gin-gonic/gin"
)

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6,max=72,max_bytes=72,password_policy,nefield=CurrentPassword"`
}

type ForgotPasswordInput struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordInput struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=6,max=72,max_bytes=72,password_policy"`
}

// ChangePassword replaces the caller's password and ends their other sessions.
func (h *Handler) ChangePassword(c *gin.Context) {
	ctx := c.Request.Context()

	var input ChangePasswordInput
	if err := validation.BindJSON(c, &input); err != nil {
		h.fail(c, err)
		return
	}

	user, err := h.Store.FindUserByID(ctx, middleware.CurrentIdentity(c).ID)
	if err != nil {
		h.fail(c, apperrors.Internal("Failed to change password", err))
		return
	}
	if !h.Hasher.Verify(ctx, input.CurrentPassword, user.Password) {
		h.fail(c, apperrors.BadRequest(apperrors.CodeInvalidCreds, "Current password is incorrect"))
		return
	}

	hash, err := h.Hasher.Hash(ctx, input.NewPassword)
	if err != nil {
		h.fail(c, apperrors.Internal("Failed to change password", err))
		return
	}
	if err := h.Store.SetPassword(ctx, user.ID, hash); err != nil {
		h.fail(c, apperrors.Internal("Failed to change password", err))
		return
	}
	if err := h.Store.RevokeUserRefreshTokens(ctx, user.ID); err != nil {
		log.Printf("failed to revoke refresh tokens for user %d: %v", user.ID, err)
	}

	h.emit(events.UserPasswordChanged, user, map[string]any{"via": "change"})
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password changed successfully"})
}

// ForgotPassword mails a reset link. The response is identical whether or
// not the address belongs to an account.
func (h *Handler) ForgotPassword(c *gin.Context) {
	ctx := c.Request.Context()

	var input ForgotPasswordInput
	if err := validation.BindJSON(c, &input); err != nil {
		h.fail(c, err)
		return
	}

	user, err := h.Store.FindUserByEmail(ctx, input.Email)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		h.fail(c, apperrors.Internal("Failed to process request", err))
		return
	case user.IsActive:
		token := auth.NewOpaqueToken()
		if err := h.Store.SetResetToken(ctx, user.ID, auth.HashOpaqueToken(token), h.Now().Add(ResetTokenTTL)); err != nil {
			h.fail(c, apperrors.Internal("Failed to process request", err))
			return
		}
		h.sendMail(user.Email, "Reset your password",
			"A password reset was requested for your account.\n\nOpen this link within one hour to choose a new password:\n"+
				h.link("/auth/reset-password", token)+"\n\nIf you did not ask for this, ignore this email.")
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "If an account with that email exists, a password reset link has been sent",
	})
}

// ResetPassword sets a new password using an emailed reset token.
func (h *Handler) ResetPassword(c *gin.Context) {
	ctx := c.Request.Context()

	var input ResetPasswordInput
	if err := validation.BindJSON(c, &input); err != nil {
		h.fail(c, err)
		return
	}
	invalid := apperrors.BadRequest(apperrors.CodeBadRequest, "Invalid or expired reset token")

	user, err := h.Store.FindUserByResetToken(ctx, auth.HashOpaqueToken(input.Token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.fail(c, invalid)
			return
		}
		h.fail(c, apperrors.Internal("Failed to reset password", err))
		return
	}
	if user.ResetTokenExpiry == nil || !h.Now().Before(*user.ResetTokenExpiry) {
		h.fail(c, invalid)
		return
	}

	hash, err := h.Hasher.Hash(ctx, input.NewPassword)
	if err != nil {
		h.fail(c, apperrors.Internal("Failed to reset password", err))
		return
	}
	if err := h.Store.SetPassword(ctx, user.ID, hash); err != nil {
		h.fail(c, apperrors.Internal("Failed to reset password", err))
		return
	}
	if err := h.Store.RevokeUserRefreshTokens(ctx, user.ID); err != nil {
		log.Printf("failed to revoke refresh tokens for user %d: %v", user.ID, err)
	}

	h.emit(events.UserPasswordChanged, user, map[string]any{"via": "reset"})
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password has been reset successfully"})
}

// VerifyEmail confirms the address a verification link was sent to.
func (h *Handler) VerifyEmail(c *gin.Context) {
	ctx := c.Request.Context()
	invalid := apperrors.BadRequest(apperrors.CodeBadRequest, "Invalid verification token")

	token := c.Query("token")
	if token == "" {
		h.fail(c, invalid)
		return
	}

	user, err := h.Store.FindUserByVerificationToken(ctx, auth.HashOpaqueToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.fail(c, invalid)
			return
		}
		h.fail(c, apperrors.Internal("Failed to verify email", err))
		return
	}
	if err := h.Store.MarkEmailVerified(ctx, user.ID); err != nil {
		h.fail(c, apperrors.Internal("Failed to verify email", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Email verified successfully"})
}
