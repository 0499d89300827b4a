// opaque.go - Random opaque tokens for refresh, reset and verification links

package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// NewOpaqueToken returns a random single-use token for refresh, reset and
// verification flows.
func NewOpaqueToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// HashOpaqueToken returns the lookup key stored in place of an opaque token.
func HashOpaqueToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
