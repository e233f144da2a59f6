package dto

import (
	"time"

	"github.com/user/nudge/backend/internal/models"
)

// RegisterRequest is the request body for creating an account
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email,max=255"`
	Password    string `json:"password" binding:"required,min=8,max=72"`
	DisplayName string `json:"display_name" binding:"max=255"`
}

// LoginRequest is the request body for email/password login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is the response for successful authentication
type AuthResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresIn    int64   `json:"expires_in"`
	User         UserDTO `json:"user"`
}

// RefreshTokenRequest is the request body for refreshing tokens
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UserDTO represents user data in responses
type UserDTO struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	DisplayName string      `json:"display_name"`
	Settings    SettingsDTO `json:"settings"`
	CreatedAt   time.Time   `json:"created_at"`
}

// SettingsDTO holds the per-user toggles
type SettingsDTO struct {
	NotificationsEnabled bool `json:"notifications_enabled"`
	AISuggestionsEnabled bool `json:"ai_suggestions_enabled"`
}

// UpdateSettingsRequest changes any subset of the toggles
type UpdateSettingsRequest struct {
	NotificationsEnabled *bool `json:"notifications_enabled,omitempty"`
	AISuggestionsEnabled *bool `json:"ai_suggestions_enabled,omitempty"`
}

func UserToDTO(u *models.User) UserDTO {
	return UserDTO{
		ID:          u.ID.String(),
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Settings:    SettingsToDTO(u),
		CreatedAt:   u.CreatedAt,
	}
}

func SettingsToDTO(u *models.User) SettingsDTO {
	return SettingsDTO{
		NotificationsEnabled: u.NotificationsEnabled,
		AISuggestionsEnabled: u.AISuggestionsEnabled,
	}
}
