package service

import (
	"context"
	"testing"
	"time"

	userserrors "meetsync/internal/users/errors"
	"meetsync/pkg/config"
	apperrors "meetsync/pkg/errors"
	"meetsync/pkg/logger"
	"meetsync/pkg/model"
)

type mockUserRepository struct {
	findByIDFn       func(ctx context.Context, id string) (*model.User, error)
	getOrCreateFn    func(ctx context.Context, email string) (*model.User, error)
	updateTimezoneFn func(ctx context.Context, id, timezone string) error

	timezoneUpdates int
}

func (m *mockUserRepository) EnsureIndexes(context.Context) error { return nil }

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, userserrors.ErrNotFound
}

func (m *mockUserRepository) FindByEmail(context.Context, string) (*model.User, error) {
	return nil, userserrors.ErrNotFound
}

func (m *mockUserRepository) GetOrCreateByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.getOrCreateFn != nil {
		return m.getOrCreateFn(ctx, email)
	}
	return &model.User{ID: "665f1f77bcf86cd799439011", Email: email}, nil
}

func (m *mockUserRepository) UpdateTimezone(ctx context.Context, id, timezone string) error {
	m.timezoneUpdates++
	if m.updateTimezoneFn != nil {
		return m.updateTimezoneFn(ctx, id, timezone)
	}
	return nil
}

func newTestUserService(repo *mockUserRepository) *userService {
	cfg := &config.Config{
		Log: logger.New(logger.Config{Level: "error", Service: "test"}),
	}
	svc := NewUserService(repo, cfg).(*userService)
	svc.now = func() time.Time {
		return time.Date(2025, 6, 10, 18, 30, 0, 0, time.UTC)
	}
	return svc
}

func TestUpdateTimezoneEchoesLocalTime(t *testing.T) {
	repo := &mockUserRepository{}
	svc := newTestUserService(repo)

	result, err := svc.UpdateTimezone(context.Background(), "665f1f77bcf86cd799439011", "America/New_York")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != "success" {
		t.Errorf("status = %q", result.Status)
	}
	// 18:30 UTC is 2:30 PM in New York during June.
	if result.CurrentLocalTime != "2025-06-10 02:30 PM" {
		t.Errorf("current local time = %q, want 2025-06-10 02:30 PM", result.CurrentLocalTime)
	}
	if repo.timezoneUpdates != 1 {
		t.Errorf("timezone updates = %d, want 1", repo.timezoneUpdates)
	}
}

func TestUpdateTimezoneRejectsUnknownName(t *testing.T) {
	repo := &mockUserRepository{}
	svc := newTestUserService(repo)

	_, err := svc.UpdateTimezone(context.Background(), "665f1f77bcf86cd799439011", "Mars/Olympus_Mons")
	if !apperrors.IsCode(err, apperrors.CodeUnknownTimezone) {
		t.Fatalf("error = %v, want %s", err, apperrors.CodeUnknownTimezone)
	}
	if repo.timezoneUpdates != 0 {
		t.Errorf("timezone persisted despite invalid name")
	}
}

func TestUpdateTimezoneUnknownUser(t *testing.T) {
	repo := &mockUserRepository{
		updateTimezoneFn: func(context.Context, string, string) error {
			return userserrors.ErrNotFound
		},
	}
	svc := newTestUserService(repo)

	_, err := svc.UpdateTimezone(context.Background(), "665f1f77bcf86cd799439022", "UTC")
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("error = %v, want %s", err, apperrors.CodeNotFound)
	}
}

func TestGetUnknownUser(t *testing.T) {
	svc := newTestUserService(&mockUserRepository{})

	_, err := svc.Get(context.Background(), "665f1f77bcf86cd799439033")
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("error = %v, want %s", err, apperrors.CodeNotFound)
	}
}
