package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/types"
)

const (
	UserIDKey = "user_id"
	ClaimsKey = "claims"
)

// TokenValidator is an interface for validating bearer tokens
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error)
}

var (
	errNoCredentials = errors.New("authentication credentials were not provided")
	errBadHeader     = errors.New("invalid authorization header format")
)

// AuthMiddleware rejects requests without a valid token
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := authenticate(c, validator)
		if err == nil && claims == nil {
			err = errNoCredentials
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth identifies the caller when a token is sent and lets anonymous requests through.
// A token that is sent but invalid is still rejected.
func OptionalAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := authenticate(c, validator)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		if claims != nil {
			setClaims(c, claims)
		}
		c.Next()
	}
}

// authenticate returns nil claims and nil error when no Authorization header is present.
// Both "Bearer <token>" and "Token <token>" are accepted.
func authenticate(c *gin.Context, validator TokenValidator) (*types.TokenClaims, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, nil
	}

	parts := strings.Fields(header)
	if len(parts) != 2 || (parts[0] != "Bearer" && parts[0] != "Token") {
		return nil, errBadHeader
	}

	claims, err := validator.ValidateToken(c.Request.Context(), parts[1])
	if err != nil {
		logger.Debug("token rejected", zap.String("path", c.FullPath()), zap.Error(err))
		return nil, err
	}
	return claims, nil
}

func setClaims(c *gin.Context, claims *types.TokenClaims) {
	c.Set(UserIDKey, claims.UserID)
	c.Set(ClaimsKey, claims)
}

// UserID returns the authenticated user's id, or 0 for anonymous requests.
func UserID(c *gin.Context) uint {
	if v, ok := c.Get(UserIDKey); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// Claims returns the validated token claims, if any.
func Claims(c *gin.Context) *types.TokenClaims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*types.TokenClaims); ok {
			return claims
		}
	}
	return nil
}
