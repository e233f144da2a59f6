package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/user/nudge/backend/internal/repository"
	"github.com/user/nudge/backend/internal/suggest"
	apperrors "github.com/user/nudge/backend/pkg/errors"
)

type SuggestionService struct {
	reminderRepo *repository.ReminderRepository
	userRepo     *repository.UserRepository
	provider     suggest.Provider
}

func NewSuggestionService(reminderRepo *repository.ReminderRepository, userRepo *repository.UserRepository, provider suggest.Provider) *SuggestionService {
	return &SuggestionService{
		reminderRepo: reminderRepo,
		userRepo:     userRepo,
		provider:     provider,
	}
}

// Suggestions returns nothing for users who turned suggestions off.
func (s *SuggestionService) Suggestions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, apperrors.ErrUserNotFound
	}
	if !user.AISuggestionsEnabled || s.provider == nil {
		return []string{}, nil
	}

	reminders, err := s.reminderRepo.ListByUser(userID)
	if err != nil {
		return nil, apperrors.Internal(err, "Failed to load reminders")
	}

	out := s.provider.Suggestions(ctx, reminders)
	if out == nil {
		out = []string{}
	}
	return out, nil
}
