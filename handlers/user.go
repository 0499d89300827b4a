// user.go - Handles user registration, login, sessions and profile access

package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"go-user-backend/apperrors"
	"go-user-backend/auth"
	"go-user-backend/events"
	"go-user-backend/metrics"
	"go-user-backend/middleware"
	"go-user-backend/models"
	"go-user-backend/ratelimit"
	"go-user-backend/store"
	"go-user-backend/validation"

	"github.com/gin-gonic/gin"
)

type RegisterInput struct {
	FirstName       string `json:"firstName" binding:"required,min=2,max=50"`
	LastName        string `json:"lastName" binding:"required,min=2,max=50"`
	Email           string `json:"email" binding:"required,email,max=255"`
	Password        string `json:"password" binding:"required,min=6,max=72,max_bytes=72,password_policy"`
	ConfirmPassword string `json:"confirmPassword"` // optional; must match when sent
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type RefreshInput struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Register creates a regular account. It does not log the user in.
func (h *Handler) Register(c *gin.Context) {
	ctx := c.Request.Context()

	// STEP 1: Validate input
	var input RegisterInput
	if err := validation.BindJSON(c, &input); err != nil {
		h.fail(c, err)
		return
	}
	if input.ConfirmPassword != "" && input.ConfirmPassword != input.Password {
		h.fail(c, apperrors.BadRequest(apperrors.CodePasswordMismatch, "Passwords do not match"))
		return
	}

	// STEP 2: Hash the password
	hash, err := h.Hasher.Hash(ctx, input.Password)
	if err != nil {
		h.fail(c, apperrors.Internal("Registration failed", err))
		return
	}

	// STEP 3: Save the user; the unique index decides concurrent duplicates
	verifyToken := auth.NewOpaqueToken()
	user := models.User{
		FirstName:              strings.TrimSpace(input.FirstName),
		LastName:               strings.TrimSpace(input.LastName),
		Email:                  strings.TrimSpace(input.Email),
		Password:               hash,
		Role:                   models.RoleUser,
		IsActive:               true,
		EmailVerificationToken: auth.HashOpaqueToken(verifyToken),
	}
	if err := h.Store.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			h.fail(c, apperrors.Conflict(apperrors.CodeEmailTaken, "User already exists"))
			return
		}
		h.fail(c, apperrors.Internal("Registration failed", err))
		return
	}

	// STEP 4: Side effects never fail the request
	h.sendMail(user.Email, "Verify your email address",
		"Welcome, "+user.FirstName+"!\n\nConfirm your address by opening:\n"+h.link("/auth/verify-email", verifyToken))
	h.emit(events.UserRegistered, &user, nil)
	h.Metrics.Registration(ctx)

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "User registered successfully", "data": user})
}

// Login exchanges credentials for a session token and a refresh token.
// Unknown email and wrong password produce the same response.
func (h *Handler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	var input LoginInput
	if err := validation.BindJSON(c, &input); err != nil {
		h.fail(c, err)
		return
	}
	ip := c.ClientIP()

	// STEP 1: Rate limit; an unreachable Redis fails open
	if err := h.Limiter.Check(ctx, input.Email, ip); err != nil {
		if errors.Is(err, ratelimit.ErrRateLimited) {
			h.Metrics.LoginAttempt(ctx, metrics.LoginLimited)
			h.fail(c, apperrors.RateLimited("Too many failed login attempts, please try again later"))
			return
		}
		log.Printf("login limiter: %v", err)
	}

	invalid := func() {
		if err := h.Limiter.Fail(ctx, input.Email, ip); err != nil {
			log.Printf("login limiter: %v", err)
		}
		h.Metrics.LoginAttempt(ctx, metrics.LoginFailure)
		h.fail(c, apperrors.BadRequest(apperrors.CodeInvalidCreds, "Invalid credentials"))
	}

	// STEP 2: Find user and check password
	user, err := h.Store.FindUserByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.Hasher.Verify(ctx, input.Password, h.dummyHash)
			invalid()
			return
		}
		h.fail(c, apperrors.Internal("Login failed", err))
		return
	}
	if !h.Hasher.Verify(ctx, input.Password, user.Password) {
		invalid()
		return
	}

	// STEP 3: Deactivated accounts cannot log in
	if !user.IsActive {
		h.Metrics.LoginAttempt(ctx, metrics.LoginInactive)
		h.fail(c, apperrors.Authentication(apperrors.CodeAccountInactive, "Account is deactivated"))
		return
	}

	if err := h.Limiter.Reset(ctx, input.Email); err != nil {
		log.Printf("login limiter: %v", err)
	}
	now := h.Now()
	if err := h.Store.TouchLastLogin(ctx, user.ID, now); err != nil {
		log.Printf("failed to record last login for user %d: %v", user.ID, err)
	} else {
		user.LastLogin = &now
	}

	// STEP 4: Issue the session
	session, err := h.issueSession(c, user)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.Metrics.LoginAttempt(ctx, metrics.LoginSuccess)
	h.emit(events.UserLoggedIn, user, map[string]any{"ip": ip})

	session["message"] = "Login successful"
	c.JSON(http.StatusOK, session)
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// session token and refresh token are returned.
func (h *Handler) Refresh(c *gin.Context) {
	ctx := c.Request.Context()

	var input RefreshInput
	if err := validation.BindJSON(c, &input); err != nil {
		h.fail(c, err)
		return
	}
	rejected := apperrors.Authentication(apperrors.CodeUnauthenticated, "Invalid or expired refresh token")

	hash := auth.HashOpaqueToken(input.RefreshToken)
	stored, err := h.Store.FindRefreshToken(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.fail(c, rejected)
			return
		}
		h.fail(c, apperrors.Internal("Failed to refresh session", err))
		return
	}
	if !stored.Usable(h.Now()) {
		h.fail(c, rejected)
		return
	}

	// Only the request that actually flips revoked may continue.
	revoked, err := h.Store.RevokeRefreshToken(ctx, hash)
	if err != nil {
		h.fail(c, apperrors.Internal("Failed to refresh session", err))
		return
	}
	if !revoked {
		h.fail(c, rejected)
		return
	}

	user, err := h.Store.FindUserByID(ctx, stored.UserID)
	if err != nil || !user.IsActive {
		h.fail(c, rejected)
		return
	}

	session, err := h.issueSession(c, user)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Logout revokes a refresh token. Unknown or already revoked tokens are not an error.
func (h *Handler) Logout(c *gin.Context) {
	var input RefreshInput
	if err := validation.BindJSON(c, &input); err != nil {
		h.fail(c, err)
		return
	}
	if _, err := h.Store.RevokeRefreshToken(c.Request.Context(), auth.HashOpaqueToken(input.RefreshToken)); err != nil {
		h.fail(c, apperrors.Internal("Logout failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
}

// Profile returns the authenticated user.
func (h *Handler) Profile(c *gin.Context) {
	id := middleware.CurrentIdentity(c)
	user, err := h.Store.FindUserByID(c.Request.Context(), id.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.fail(c, apperrors.NotFound("User not found"))
			return
		}
		h.fail(c, apperrors.Internal("Failed to load profile", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": user})
}

func (h *Handler) issueSession(c *gin.Context, user *models.User) (gin.H, error) {
	token, expiresAt, err := h.Tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.Internal("Failed to issue token", err)
	}

	refresh := auth.NewOpaqueToken()
	record := models.RefreshToken{
		TokenHash: auth.HashOpaqueToken(refresh),
		UserID:    user.ID,
		ExpiresAt: h.Now().Add(h.Config.RefreshTTL),
		UserAgent: truncate(c.Request.UserAgent(), 255),
		IPAddress: c.ClientIP(),
	}
	if err := h.Store.SaveRefreshToken(c.Request.Context(), &record); err != nil {
		return nil, apperrors.Internal("Failed to issue token", err)
	}

	return gin.H{
		"success":      true,
		"token":        token,
		"expiresAt":    expiresAt,
		"refreshToken": refresh,
		"user":         user,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
