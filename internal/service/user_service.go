package service

import (
	"github.com/google/uuid"
	"github.com/user/nudge/backend/internal/dto"
	"github.com/user/nudge/backend/internal/models"
	"github.com/user/nudge/backend/internal/repository"
	apperrors "github.com/user/nudge/backend/pkg/errors"
)

type UserService struct {
	userRepo     *repository.UserRepository
	deviceRepo   *repository.DeviceRepository
	scheduleRepo *repository.ScheduledNotificationRepository
}

func NewUserService(
	userRepo *repository.UserRepository,
	deviceRepo *repository.DeviceRepository,
	scheduleRepo *repository.ScheduledNotificationRepository,
) *UserService {
	return &UserService{
		userRepo:     userRepo,
		deviceRepo:   deviceRepo,
		scheduleRepo: scheduleRepo,
	}
}

// GetByID returns a user by their ID.
func (s *UserService) GetByID(id uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		return nil, apperrors.ErrUserNotFound
	}
	return user, nil
}

func (s *UserService) GetMe(id uuid.UUID) (*dto.UserDTO, error) {
	user, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	out := dto.UserToDTO(user)
	return &out, nil
}

func (s *UserService) GetSettings(id uuid.UUID) (*dto.SettingsDTO, error) {
	user, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	out := dto.SettingsToDTO(user)
	return &out, nil
}

// UpdateSettings applies the toggles present in req and leaves the rest.
func (s *UserService) UpdateSettings(id uuid.UUID, req dto.UpdateSettingsRequest) (*dto.SettingsDTO, error) {
	user, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	if req.NotificationsEnabled != nil {
		user.NotificationsEnabled = *req.NotificationsEnabled
	}
	if req.AISuggestionsEnabled != nil {
		user.AISuggestionsEnabled = *req.AISuggestionsEnabled
	}

	if err := s.userRepo.UpdateSettings(id, user.NotificationsEnabled, user.AISuggestionsEnabled); err != nil {
		return nil, apperrors.Internal(err, "Failed to update settings")
	}

	out := dto.SettingsToDTO(user)
	return &out, nil
}

// NotificationsEnabled reports whether alerts may be sent to the user.
func (s *UserService) NotificationsEnabled(id uuid.UUID) (bool, error) {
	user, err := s.GetByID(id)
	if err != nil {
		return false, err
	}
	return user.NotificationsEnabled, nil
}

func (s *UserService) AISuggestionsEnabled(id uuid.UUID) (bool, error) {
	user, err := s.GetByID(id)
	if err != nil {
		return false, err
	}
	return user.AISuggestionsEnabled, nil
}

// DeleteAccount soft-deletes the user. Pending alerts and push devices go
// immediately; reminders stay until the purge job removes the account.
func (s *UserService) DeleteAccount(id uuid.UUID) error {
	if _, err := s.GetByID(id); err != nil {
		return err
	}

	if err := s.scheduleRepo.DeleteByUser(id); err != nil {
		return apperrors.Internal(err, "Failed to cancel scheduled alerts")
	}
	if err := s.deviceRepo.DeleteByUser(id); err != nil {
		return apperrors.Internal(err, "Failed to remove devices")
	}
	if err := s.userRepo.Delete(id); err != nil {
		return apperrors.Internal(err, "Failed to delete account")
	}
	return nil
}
