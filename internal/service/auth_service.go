package service

import (
	"errors"
	"net/http"
	"strings"

	"github.com/user/nudge/backend/internal/dto"
	"github.com/user/nudge/backend/internal/models"
	"github.com/user/nudge/backend/internal/notification/slack"
	"github.com/user/nudge/backend/internal/repository"
	apperrors "github.com/user/nudge/backend/pkg/errors"
	"github.com/user/nudge/backend/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type AuthService struct {
	userRepo    *repository.UserRepository
	jwtManager  *jwt.Manager
	slackClient *slack.Client
	bcryptCost  int
}

func NewAuthService(userRepo *repository.UserRepository, jwtManager *jwt.Manager, slackClient *slack.Client) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		jwtManager:  jwtManager,
		slackClient: slackClient,
		bcryptCost:  bcrypt.DefaultCost,
	}
}

// Register creates an account, or revives one that was deleted but not yet
// purged, and returns a fresh token pair.
func (s *AuthService) Register(req dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := repository.NormalizeEmail(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.ValidationError("A valid email is required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, apperrors.ValidationError("Password must be at least 8 characters")
	}

	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, apperrors.ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal(err, "Failed to look up user")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, apperrors.Internal(err, "Failed to hash password")
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = strings.SplitN(email, "@", 2)[0]
	}

	user, err := s.userRepo.FindDeletedByEmail(email)
	switch {
	case err == nil:
		if err := s.userRepo.Restore(user, string(hash), displayName); err != nil {
			return nil, apperrors.Internal(err, "Failed to restore account")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = &models.User{
			Email:                email,
			PasswordHash:         string(hash),
			DisplayName:          displayName,
			NotificationsEnabled: true,
			AISuggestionsEnabled: true,
		}
		if err := s.userRepo.Create(user); err != nil {
			return nil, apperrors.Internal(err, "Failed to create user")
		}
		s.slackClient.SendNewUserNotification(user.Email, user.DisplayName)
	default:
		return nil, apperrors.Internal(err, "Failed to look up user")
	}

	return s.issueTokens(user)
}

// Login checks the password and returns a token pair. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(req dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.Internal(err, "Failed to look up user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.issueTokens(user)
}

// RefreshToken generates new tokens from a valid refresh token
func (s *AuthService) RefreshToken(refreshToken string) (*dto.AuthResponse, error) {
	tokenPair, claims, err := s.jwtManager.RefreshTokens(refreshToken)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		return nil, apperrors.ErrUserNotFound
	}

	return &dto.AuthResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresIn:    s.jwtManager.GetAccessDuration(),
		User:         dto.UserToDTO(user),
	}, nil
}

func (s *AuthService) issueTokens(user *models.User) (*dto.AuthResponse, error) {
	tokenPair, err := s.jwtManager.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalError, "Failed to generate tokens", http.StatusInternalServerError)
	}

	return &dto.AuthResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresIn:    s.jwtManager.GetAccessDuration(),
		User:         dto.UserToDTO(user),
	}, nil
}
