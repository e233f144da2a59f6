package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// TokenKind separates short-lived access tokens from refresh tokens so that
// one cannot be replayed as the other.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Claims represents the JWT claims
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Kind   TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Manager handles JWT operations
type Manager struct {
	secret          []byte
	accessDuration  time.Duration
	refreshDuration time.Duration
}

// NewManager creates a new JWT manager
func NewManager(secret string) *Manager {
	return &Manager{
		secret:          []byte(secret),
		accessDuration:  15 * time.Minute,
		refreshDuration: 30 * 24 * time.Hour,
	}
}

// GenerateTokenPair creates a new access and refresh token pair
func (m *Manager) GenerateTokenPair(userID uuid.UUID, email string) (*TokenPair, error) {
	now := time.Now()
	accessExpiresAt := now.Add(m.accessDuration)

	access, err := m.sign(userID, email, KindAccess, now, accessExpiresAt)
	if err != nil {
		return nil, err
	}

	refresh, err := m.sign(userID, email, KindRefresh, now, now.Add(m.refreshDuration))
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    accessExpiresAt,
	}, nil
}

func (m *Manager) sign(userID uuid.UUID, email string, kind TokenKind, issuedAt, expiresAt time.Time) (string, error) {
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			Subject:   userID.String(),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// ValidateToken validates a JWT token and returns the claims
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// ValidateAccessToken is ValidateToken restricted to access tokens.
func (m *Manager) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := m.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Kind != KindAccess {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RefreshTokens generates a new token pair from a valid refresh token
func (m *Manager) RefreshTokens(refreshTokenString string) (*TokenPair, *Claims, error) {
	claims, err := m.ValidateToken(refreshTokenString)
	if err != nil {
		return nil, nil, err
	}
	if claims.Kind != KindRefresh {
		return nil, nil, ErrInvalidToken
	}

	pair, err := m.GenerateTokenPair(claims.UserID, claims.Email)
	if err != nil {
		return nil, nil, err
	}
	return pair, claims, nil
}

// GetAccessDuration returns the access token duration in seconds
func (m *Manager) GetAccessDuration() int64 {
	return int64(m.accessDuration.Seconds())
}
