package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	userserrors "meetsync/internal/users/errors"
	"meetsync/internal/users/repository"
	"meetsync/pkg/config"
	apperrors "meetsync/pkg/errors"
	"meetsync/pkg/model"
	"meetsync/pkg/timeutil"
)

// LocalTimeLayout renders the user's current wall-clock time in the timezone
// confirmation, letting the caller resolve relative dates in the same turn.
const LocalTimeLayout = "2006-01-02 03:04 PM"

type UserService interface {
	Get(ctx context.Context, id string) (*model.User, error)
	GetOrCreate(ctx context.Context, email string) (*model.User, error)
	UpdateTimezone(ctx context.Context, userID, timezone string) (*model.TimezoneUpdateResult, error)
}

type userService struct {
	repo repository.UserRepository
	cfg  *config.Config
	now  func() time.Time
}

func NewUserService(repo repository.UserRepository, cfg *config.Config) UserService {
	return &userService{
		repo: repo,
		cfg:  cfg,
		now:  time.Now,
	}
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("User", id)
		}
		return nil, apperrors.Internal("Failed to look up user", err)
	}
	return user, nil
}

func (s *userService) GetOrCreate(ctx context.Context, email string) (*model.User, error) {
	user, err := s.repo.GetOrCreateByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Internal("Failed to resolve user profile", err)
	}
	return user, nil
}

// UpdateTimezone validates the IANA name before persisting it and echoes the
// user's new current local time back in the result.
func (s *userService) UpdateTimezone(ctx context.Context, userID, timezone string) (*model.TimezoneUpdateResult, error) {
	loc, err := timeutil.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateTimezone(ctx, userID, timezone); err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("User", userID)
		}
		return nil, apperrors.Internal("Failed to update user timezone", err)
	}

	localTime := s.now().In(loc).Format(LocalTimeLayout)
	s.cfg.Log.Info("User timezone updated", "user_id", userID, "timezone", timezone)

	return &model.TimezoneUpdateResult{
		Status:           "success",
		Message:          fmt.Sprintf("Timezone updated to %s", timezone),
		CurrentLocalTime: localTime,
	}, nil
}
