package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apperrors "github.com/user/nudge/backend/pkg/errors"
	"github.com/user/nudge/backend/pkg/jwt"
)

const (
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
	UserIDKey           = "user_id"
	EmailKey            = "email"
	// TokenQueryParam carries the access token for WebSocket clients that
	// cannot set headers on the upgrade request.
	TokenQueryParam = "token"
)

// AuthMiddleware creates a middleware that validates JWT access tokens
func AuthMiddleware(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, appErr := bearerToken(c)
		if appErr != nil {
			abort(c, appErr)
			return
		}

		claims, err := jwtManager.ValidateAccessToken(tokenString)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				abort(c, apperrors.ErrTokenExpired)
				return
			}
			abort(c, apperrors.ErrInvalidToken)
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(EmailKey, claims.Email)

		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, *apperrors.AppError) {
	authHeader := c.GetHeader(AuthorizationHeader)
	if authHeader == "" {
		if isWebSocketUpgrade(c) {
			if token := c.Query(TokenQueryParam); token != "" {
				return token, nil
			}
		}
		return "", apperrors.ErrUnauthorized
	}
	if !strings.HasPrefix(authHeader, BearerPrefix) {
		return "", apperrors.ErrInvalidToken
	}
	return strings.TrimPrefix(authHeader, BearerPrefix), nil
}

func isWebSocketUpgrade(c *gin.Context) bool {
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
}

// CronAuthMiddleware guards scheduler endpoints with a shared secret sent as
// a bearer token. An empty secret disables the endpoints.
func CronAuthMiddleware(secret string) gin.HandlerFunc {
	expected := []byte(BearerPrefix + secret)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(AuthorizationHeader))
		if secret == "" || subtle.ConstantTimeCompare(got, expected) != 1 {
			abort(c, apperrors.ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, err *apperrors.AppError) {
	status := err.StatusCode
	if status == 0 {
		status = http.StatusUnauthorized
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err})
}

// GetUserID extracts the user ID from the context
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := userID.(uuid.UUID)
	return id, ok
}

