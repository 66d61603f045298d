package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/unihousing/internal/pkg/apperrors"
	"github.com/yigit/unihousing/internal/pkg/auth"
)

const (
	// UserIDHeader names the acting user when no token is presented.
	UserIDHeader = "X-User-ID"

	principalKey = "principalID"
)

// AuthMiddleware resolves who is calling. Role checks happen in the services,
// against the stored user.
type AuthMiddleware struct {
	verifier *auth.TokenVerifier
	logger   zerolog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware. A nil verifier disables tokens.
func NewAuthMiddleware(verifier *auth.TokenVerifier, logger zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, logger: logger}
}

// Principal stores the caller's user id in the context. A bearer token wins
// over the X-User-ID header; an invalid token is rejected.
func (m *AuthMiddleware) Principal() gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); header != "" && m.verifier != nil {
			tokenString, err := auth.ExtractBearerToken(header)
			if err != nil {
				HandleAPIError(c, apperrors.New(apperrors.CodeUnauthorized, "authorization header must carry a bearer token"))
				return
			}
			claims, err := m.verifier.ValidateToken(tokenString)
			if err != nil {
				m.logger.Debug().Err(err).Str("path", c.FullPath()).Msg("Rejected principal token")
				HandleAPIError(c, apperrors.New(apperrors.CodeUnauthorized, "invalid or expired token"))
				return
			}
			c.Set(principalKey, claims.Subject)
			c.Next()
			return
		}

		if id := strings.TrimSpace(c.GetHeader(UserIDHeader)); id != "" {
			c.Set(principalKey, id)
		}
		c.Next()
	}
}

// Requester returns the acting user id for a handler. claimed is the id sent
// in the body or query; it is used only when no principal was resolved and
// must match the principal otherwise.
func Requester(c *gin.Context, claimed string) (string, error) {
	claimed = strings.TrimSpace(claimed)
	principal := c.GetString(principalKey)
	if principal == "" {
		return claimed, nil
	}
	if claimed != "" && claimed != principal {
		return "", apperrors.New(apperrors.CodeUnauthorized, "requester does not match the authenticated user")
	}
	return principal, nil
}
