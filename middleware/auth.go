// auth.go - Bearer token authentication and role/ownership gates
//
// Authentication Flow:
// 1. Extract the bearer token from the Authorization header
// 2. Verify signature, algorithm and expiry
// 3. Re-load the user by id (the stored role wins over the token role)
// 4. Reject missing or deactivated accounts
// 5. Store the Identity in the context for handlers
//
// Every rejection answers 401 "unauthenticated" to the client. The precise
// reason is logged and kept under ReasonKey for tests and access logs.

package middleware

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"

	"go-user-backend/apperrors"
	"go-user-backend/auth"
	"go-user-backend/metrics"
	"go-user-backend/models"
	"go-user-backend/policy"
	"go-user-backend/store"

	"github.com/gin-gonic/gin"
)

const (
	IdentityKey = "identity"
	ReasonKey   = "auth_reason"
)

// Rejection reasons.
const (
	ReasonMissingHeader   = "auth:missing-header"
	ReasonMalformedHeader = "auth:malformed-header"
	ReasonTokenMalformed  = "auth:token-malformed"
	ReasonTokenSignature  = "auth:token-signature"
	ReasonTokenExpired    = "auth:token-expired"
	ReasonUserMissing     = "auth:user-missing"
	ReasonUserInactive    = "auth:user-inactive"
)

// UserLookup loads the account behind a verified token.
type UserLookup interface {
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
}

type AuthConfig struct {
	Tokens  *auth.TokenManager
	Users   UserLookup
	Metrics *metrics.Metrics // optional
	DevMode bool
}

// AuthMiddleware returns a Gin middleware that admits only requests carrying a
// valid session token for an existing, active user. It never writes state.
func AuthMiddleware(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		reject := func(reason string) {
			c.Set(ReasonKey, reason)
			cfg.Metrics.Rejection(c.Request.Context(), reason)
			log.Printf("auth: rejected %s %s from %s: %s", c.Request.Method, c.Request.URL.Path, c.ClientIP(), reason)
			apperrors.Respond(c, apperrors.Authentication(apperrors.CodeUnauthenticated, "Authentication required"), cfg.DevMode)
		}

		// STEP 1: Extract Authorization header
		header := c.GetHeader("Authorization")
		if header == "" {
			reject(ReasonMissingHeader)
			return
		}
		tokenStr, ok := bearerToken(header)
		if !ok {
			reject(ReasonMalformedHeader)
			return
		}

		// STEP 2: Verify the token
		claims, err := cfg.Tokens.Verify(tokenStr)
		if err != nil {
			reject(verifyReason(err))
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			reject(ReasonTokenMalformed)
			return
		}

		// STEP 3: Load the user; a deleted or deactivated account loses access
		// immediately even though its token is still within its lifetime.
		user, err := cfg.Users.FindUserByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				reject(ReasonUserMissing)
				return
			}
			apperrors.Respond(c, apperrors.Internal("Failed to load user", err), cfg.DevMode)
			return
		}
		if !user.IsActive {
			reject(ReasonUserInactive)
			return
		}

		// STEP 4: Store the identity for handlers
		c.Set(IdentityKey, policy.IdentityOf(user))
		c.Next()
	}
}

// AdminMiddleware rejects non-admins with 403. It must run after AuthMiddleware.
func AdminMiddleware(devMode bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := policy.RequireAdmin(CurrentIdentity(c)); err != nil {
			apperrors.Respond(c, err, devMode)
			return
		}
		c.Next()
	}
}

// SelfOrAdminMiddleware admits admins and the user named by the param path
// segment. It must run after AuthMiddleware.
func SelfOrAdminMiddleware(param string, devMode bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		targetID, err := IDParam(c, param)
		if err != nil {
			apperrors.Respond(c, err, devMode)
			return
		}
		if err := policy.RequireSelfOrAdmin(CurrentIdentity(c), targetID); err != nil {
			apperrors.Respond(c, err, devMode)
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the identity set by AuthMiddleware, or nil.
func CurrentIdentity(c *gin.Context) *policy.Identity {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*policy.Identity)
	return id
}

// IDParam parses a positive numeric path parameter.
func IDParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.BadRequest(apperrors.CodeBadRequest, "Invalid ID format")
	}
	return uint(id), nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

func verifyReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return ReasonTokenExpired
	case errors.Is(err, auth.ErrTokenSignatureInvalid):
		return ReasonTokenSignature
	default:
		return ReasonTokenMalformed
	}
}
