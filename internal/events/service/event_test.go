package service

import (
	"context"
	"errors"
	"testing"
	"time"

	eventserrors "meetsync/internal/events/errors"
	"meetsync/internal/events/notify"
	extsync "meetsync/internal/events/sync"
	"meetsync/internal/events/validator"
	"meetsync/pkg/config"
	apperrors "meetsync/pkg/errors"
	"meetsync/pkg/logger"
	"meetsync/pkg/model"
)

type mockEventRepository struct {
	reserveFn         func(ctx context.Context, event *model.Event) (string, error)
	findConflictingFn func(ctx context.Context, start, end time.Time, buffer time.Duration, excludeID string) (*model.Event, error)
	finalizeFn        func(ctx context.Context, id, externalID string) error
	abortFn           func(ctx context.Context, id string) error
	updateFieldsFn    func(ctx context.Context, id string, fields model.EventFields) error
	revertFieldsFn    func(ctx context.Context, id string, fields model.EventFields) error
	findByExternalFn  func(ctx context.Context, externalID string) (*model.Event, error)
	deleteByExternal  func(ctx context.Context, externalID string) error
	listForOwnerFn    func(ctx context.Context, ownerID string, start, end *time.Time) ([]*model.Event, error)
	findInWindowFn    func(ctx context.Context, start, end time.Time) ([]*model.Event, error)

	conflictChecks int
	reserves       int
	finalizes      int
	aborts         int
	reverts        int
	ledgerDeletes  int
}

func (m *mockEventRepository) EnsureIndexes(context.Context) error { return nil }

func (m *mockEventRepository) Reserve(ctx context.Context, event *model.Event) (string, error) {
	m.reserves++
	if m.reserveFn != nil {
		return m.reserveFn(ctx, event)
	}
	return "665f1f77bcf86cd799439099", nil
}

func (m *mockEventRepository) FindConflicting(ctx context.Context, start, end time.Time, buffer time.Duration, excludeID string) (*model.Event, error) {
	m.conflictChecks++
	if m.findConflictingFn != nil {
		return m.findConflictingFn(ctx, start, end, buffer, excludeID)
	}
	return nil, nil
}

func (m *mockEventRepository) Finalize(ctx context.Context, id, externalID string) error {
	m.finalizes++
	if m.finalizeFn != nil {
		return m.finalizeFn(ctx, id, externalID)
	}
	return nil
}

func (m *mockEventRepository) Abort(ctx context.Context, id string) error {
	m.aborts++
	if m.abortFn != nil {
		return m.abortFn(ctx, id)
	}
	return nil
}

func (m *mockEventRepository) UpdateFields(ctx context.Context, id string, fields model.EventFields) error {
	if m.updateFieldsFn != nil {
		return m.updateFieldsFn(ctx, id, fields)
	}
	return nil
}

func (m *mockEventRepository) RevertFields(ctx context.Context, id string, fields model.EventFields) error {
	m.reverts++
	if m.revertFieldsFn != nil {
		return m.revertFieldsFn(ctx, id, fields)
	}
	return nil
}

func (m *mockEventRepository) FindByExternalID(ctx context.Context, externalID string) (*model.Event, error) {
	if m.findByExternalFn != nil {
		return m.findByExternalFn(ctx, externalID)
	}
	return nil, eventserrors.ErrNotFound
}

func (m *mockEventRepository) DeleteByExternalID(ctx context.Context, externalID string) error {
	m.ledgerDeletes++
	if m.deleteByExternal != nil {
		return m.deleteByExternal(ctx, externalID)
	}
	return nil
}

func (m *mockEventRepository) ListForOwner(ctx context.Context, ownerID string, start, end *time.Time) ([]*model.Event, error) {
	if m.listForOwnerFn != nil {
		return m.listForOwnerFn(ctx, ownerID, start, end)
	}
	return nil, nil
}

func (m *mockEventRepository) FindInWindow(ctx context.Context, start, end time.Time) ([]*model.Event, error) {
	if m.findInWindowFn != nil {
		return m.findInWindowFn(ctx, start, end)
	}
	return nil, nil
}

type mockSyncer struct {
	createFn func(ctx context.Context, details extsync.EventDetails) (string, string, error)
	updateFn func(ctx context.Context, externalID string, fields model.EventFields, timezone string) (string, error)
	deleteFn func(ctx context.Context, externalID string) (bool, error)

	creates int
	updates int
	deletes int
}

func (m *mockSyncer) Create(ctx context.Context, details extsync.EventDetails) (string, string, error) {
	m.creates++
	if m.createFn != nil {
		return m.createFn(ctx, details)
	}
	return "ext-abc123", "https://calendar.example/ext-abc123", nil
}

func (m *mockSyncer) Update(ctx context.Context, externalID string, fields model.EventFields, timezone string) (string, error) {
	m.updates++
	if m.updateFn != nil {
		return m.updateFn(ctx, externalID, fields, timezone)
	}
	return "2025-06-11T10:00:00-04:00", nil
}

func (m *mockSyncer) Delete(ctx context.Context, externalID string) (bool, error) {
	m.deletes++
	if m.deleteFn != nil {
		return m.deleteFn(ctx, externalID)
	}
	return false, nil
}

type recordingNotifier struct {
	eventTypes []string
}

func (r *recordingNotifier) Notify(_ context.Context, eventType, _ string, _ any) {
	r.eventTypes = append(r.eventTypes, eventType)
}

var _ notify.Notifier = (*recordingNotifier)(nil)

func testConfig() *config.Config {
	return &config.Config{
		CompanyTimezone:      "America/New_York",
		WorkingStartHour:     9,
		WorkingEndHour:       17,
		MeetingBufferMinutes: 15,
		SlotCheckMinutes:     15,
		Log:                  logger.New(logger.Config{Level: "error", Service: "test"}),
	}
}

func newTestService(repo *mockEventRepository, syncer *mockSyncer, notifier notify.Notifier) *eventService {
	cfg := testConfig()
	if notifier == nil {
		notifier = notify.NewNoopNotifier()
	}
	svc := NewEventService(repo, syncer, notifier, validator.NewEventValidator(cfg.Log), cfg).(*eventService)
	svc.now = func() time.Time {
		return time.Date(2025, 6, 9, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func testUser() *model.User {
	return &model.User{
		ID:       "665f1f77bcf86cd799439011",
		Email:    "dana@example.com",
		Timezone: "America/New_York",
	}
}

func validBooking() *model.BookingRequest {
	return &model.BookingRequest{
		Summary:   "Design review",
		StartTime: "2025-06-10T14:00:00",
		EndTime:   "2025-06-10T15:00:00",
	}
}

func TestBookSuccess(t *testing.T) {
	repo := &mockEventRepository{}
	syncer := &mockSyncer{}
	notifier := &recordingNotifier{}
	svc := newTestService(repo, syncer, notifier)

	conf, err := svc.Book(context.Background(), testUser(), validBooking())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conf.ExternalID != "ext-abc123" {
		t.Errorf("external id = %q, want ext-abc123", conf.ExternalID)
	}
	if repo.conflictChecks != 1 || repo.reserves != 1 || repo.finalizes != 1 {
		t.Errorf("flow counts = checks %d, reserves %d, finalizes %d; want 1 each",
			repo.conflictChecks, repo.reserves, repo.finalizes)
	}
	if len(notifier.eventTypes) != 1 || notifier.eventTypes[0] != notify.EventConfirmed {
		t.Errorf("notifications = %v, want [%s]", notifier.eventTypes, notify.EventConfirmed)
	}
}

func TestBookNaiveTimesUseUserTimezone(t *testing.T) {
	repo := &mockEventRepository{
		reserveFn: func(_ context.Context, event *model.Event) (string, error) {
			// 14:00 New York in June is 18:00 UTC.
			want := time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC)
			if !event.StartUTC.Equal(want) {
				t.Errorf("reserved start = %v, want %v", event.StartUTC, want)
			}
			if event.OriginalTimezone != "America/New_York" {
				t.Errorf("original timezone = %q", event.OriginalTimezone)
			}
			return "665f1f77bcf86cd799439099", nil
		},
	}
	svc := newTestService(repo, &mockSyncer{}, nil)

	if _, err := svc.Book(context.Background(), testUser(), validBooking()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBookConflictNeverReserves(t *testing.T) {
	repo := &mockEventRepository{
		findConflictingFn: func(context.Context, time.Time, time.Time, time.Duration, string) (*model.Event, error) {
			return &model.Event{Title: "Existing"}, nil
		},
	}
	syncer := &mockSyncer{}
	svc := newTestService(repo, syncer, nil)

	_, err := svc.Book(context.Background(), testUser(), validBooking())
	if !apperrors.IsCode(err, apperrors.CodeSlotUnavailable) {
		t.Fatalf("error = %v, want %s", err, apperrors.CodeSlotUnavailable)
	}
	if repo.reserves != 0 || syncer.creates != 0 {
		t.Errorf("reserves = %d, creates = %d; want 0 each", repo.reserves, syncer.creates)
	}
}

func TestBookRaceLostSurfacesSlotUnavailable(t *testing.T) {
	repo := &mockEventRepository{
		reserveFn: func(context.Context, *model.Event) (string, error) {
			return "", eventserrors.ErrSlotRaceLost
		},
	}
	syncer := &mockSyncer{}
	svc := newTestService(repo, syncer, nil)

	_, err := svc.Book(context.Background(), testUser(), validBooking())
	if !apperrors.IsCode(err, apperrors.CodeSlotUnavailable) {
		t.Fatalf("error = %v, want %s", err, apperrors.CodeSlotUnavailable)
	}
	if syncer.creates != 0 {
		t.Errorf("syncer called %d times after losing the reservation race", syncer.creates)
	}
}

func TestBookSyncFailureRollsBackReservation(t *testing.T) {
	repo := &mockEventRepository{}
	syncer := &mockSyncer{
		createFn: func(context.Context, extsync.EventDetails) (string, string, error) {
			return "", "", errors.New("calendar api unavailable")
		},
	}
	notifier := &recordingNotifier{}
	svc := newTestService(repo, syncer, notifier)

	_, err := svc.Book(context.Background(), testUser(), validBooking())
	if !apperrors.IsCode(err, apperrors.CodeExternalSyncFailure) {
		t.Fatalf("error = %v, want %s", err, apperrors.CodeExternalSyncFailure)
	}
	if repo.aborts != 1 {
		t.Errorf("aborts = %d, want 1: a failed sync must release the reservation", repo.aborts)
	}
	if repo.finalizes != 0 {
		t.Errorf("finalizes = %d, want 0", repo.finalizes)
	}
	if len(notifier.eventTypes) != 0 {
		t.Errorf("notifications sent for failed booking: %v", notifier.eventTypes)
	}

	appErr := apperrors.AsAppError(err)
	if compensated, ok := appErr.Details["compensated"].(bool); !ok || !compensated {
		t.Errorf("compensated detail = %v, want true", appErr.Details["compensated"])
	}
}

func TestBookCompensationFailureIsItsOwnError(t *testing.T) {
	repo := &mockEventRepository{
		abortFn: func(context.Context, string) error {
			return errors.New("delete timed out")
		},
	}
	syncer := &mockSyncer{
		createFn: func(context.Context, extsync.EventDetails) (string, string, error) {
			return "", "", errors.New("calendar api unavailable")
		},
	}
	svc := newTestService(repo, syncer, nil)

	_, err := svc.Book(context.Background(), testUser(), validBooking())
	if !apperrors.IsCode(err, apperrors.CodeCompensationFailure) {
		t.Fatalf("error = %v, want %s", err, apperrors.CodeCompensationFailure)
	}
	appErr := apperrors.AsAppError(err)
	if _, ok := appErr.Details["sync_error"]; !ok {
		t.Error("compensation error must preserve the original sync cause")
	}
}

func TestBookRejectsInvertedInterval(t *testing.T) {
	svc := newTestService(&mockEventRepository{}, &mockSyncer{}, nil)

	_, err := svc.Book(context.Background(), testUser(), &model.BookingRequest{
		Summary:   "Backwards",
		StartTime: "2025-06-10T15:00:00",
		EndTime:   "2025-06-10T14:00:00",
	})
	if !apperrors.IsCode(err, apperrors.CodeInvalidInput) {
		t.Fatalf("error = %v, want %s", err, apperrors.CodeInvalidInput)
	}
}

func TestBookRejectsUnparsableTime(t *testing.T) {
	svc := newTestService(&mockEventRepository{}, &mockSyncer{}, nil)

	_, err := svc.Book(context.Background(), testUser(), &model.BookingRequest{
		Summary:   "Bad time",
		StartTime: "tomorrow at noon",
		EndTime:   "2025-06-10T15:00:00",
	})
	if !apperrors.IsCode(err, apperrors.CodeInvalidTimeFormat) {
		t.Fatalf("error = %v, want %s", err, apperrors.CodeInvalidTimeFormat)
	}
}

func existingEvent() *model.Event {
	externalID := "ext-abc123"
	return &model.Event{
		ID:               "665f1f77bcf86cd799439099",
		ExternalID:       &externalID,
		OwnerID:          "665f1f77bcf86cd799439011",
		Title:            "Design review",
		StartUTC:         time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC),
		EndUTC:           time.Date(2025, 6, 10, 19, 0, 0, 0, time.UTC),
		OriginalTimezone: "America/New_York",
		Status:           model.StatusConfirmed,
	}
}

func TestUpdateTitleOnlySkipsConflictCheck(t *testing.T) {
	repo := &mockEventRepository{
		findByExternalFn: func(context.Context, string) (*model.Event, error) {
			return existingEvent(), nil
		},
	}
	syncer := &mockSyncer{}
	svc := newTestService(repo, syncer, nil)

	conf, err := svc.Update(context.Background(), testUser(), "ext-abc123", &model.UpdateRequest{
		NewSummary: "Design review (moved agenda)",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.conflictChecks != 0 {
		t.Errorf("conflict checks = %d, want 0 for a title-only update", repo.conflictChecks)
	}
	if conf.Title != "Design review (moved agenda)" {
		t.Errorf("title = %q", conf.Title)
	}
}

func TestUpdateReschedulePreservesDuration(t *testing.T) {
	var updated model.EventFields
	repo := &mockEventRepository{
		findByExternalFn: func(context.Context, string) (*model.Event, error) {
			return existingEvent(), nil
		},
		updateFieldsFn: func(_ context.Context, _ string, fields model.EventFields) error {
			updated = fields
			return nil
		},
	}
	svc := newTestService(repo, &mockSyncer{}, nil)

	_, err := svc.Update(context.Background(), testUser(), "ext-abc123", &model.UpdateRequest{
		NewStartTime: "2025-06-11T10:00:00",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.StartUTC == nil || updated.EndUTC == nil {
		t.Fatal("expected both start and end to be updated")
	}
	if got := updated.EndUTC.Sub(*updated.StartUTC); got != time.Hour {
		t.Errorf("rescheduled duration = %v, want 1h", got)
	}
	if repo.conflictChecks != 1 {
		t.Errorf("conflict checks = %d, want 1", repo.conflictChecks)
	}
}

func TestUpdateSyncFailureRevertsLedger(t *testing.T) {
	var reverted model.EventFields
	repo := &mockEventRepository{
		findByExternalFn: func(context.Context, string) (*model.Event, error) {
			return existingEvent(), nil
		},
		revertFieldsFn: func(_ context.Context, _ string, fields model.EventFields) error {
			reverted = fields
			return nil
		},
	}
	syncer := &mockSyncer{
		updateFn: func(context.Context, string, model.EventFields, string) (string, error) {
			return "", errors.New("calendar api unavailable")
		},
	}
	svc := newTestService(repo, syncer, nil)

	_, err := svc.Update(context.Background(), testUser(), "ext-abc123", &model.UpdateRequest{
		NewStartTime: "2025-06-11T10:00:00",
		NewSummary:   "Moved",
	})
	if !apperrors.IsCode(err, apperrors.CodeExternalSyncFailure) {
		t.Fatalf("error = %v, want %s", err, apperrors.CodeExternalSyncFailure)
	}
	if repo.reverts != 1 {
		t.Fatalf("reverts = %d, want 1", repo.reverts)
	}

	// Revert must restore the exact pre-update values.
	orig := existingEvent()
	if reverted.Title == nil || *reverted.Title != orig.Title {
		t.Errorf("reverted title = %v, want %q", reverted.Title, orig.Title)
	}
	if reverted.StartUTC == nil || !reverted.StartUTC.Equal(orig.StartUTC) {
		t.Errorf("reverted start = %v, want %v", reverted.StartUTC, orig.StartUTC)
	}
	if reverted.EndUTC == nil || !reverted.EndUTC.Equal(orig.EndUTC) {
		t.Errorf("reverted end = %v, want %v", reverted.EndUTC, orig.EndUTC)
	}
}

func TestUpdateNoChangeRequested(t *testing.T) {
	repo := &mockEventRepository{
		findByExternalFn: func(context.Context, string) (*model.Event, error) {
			return existingEvent(), nil
		},
	}
	svc := newTestService(repo, &mockSyncer{}, nil)

	_, err := svc.Update(context.Background(), testUser(), "ext-abc123", &model.UpdateRequest{})
	if !apperrors.IsCode(err, apperrors.CodeNoChangeRequested) {
		t.Fatalf("error = %v, want %s", err, apperrors.CodeNoChangeRequested)
	}
}

func TestUpdateRejectsNonOwner(t *testing.T) {
	repo := &mockEventRepository{
		findByExternalFn: func(context.Context, string) (*model.Event, error) {
			return existingEvent(), nil
		},
	}
	svc := newTestService(repo, &mockSyncer{}, nil)

	intruder := &model.User{ID: "665f1f77bcf86cd799439022", Email: "mallory@example.com", Timezone: "UTC"}
	_, err := svc.Update(context.Background(), intruder, "ext-abc123", &model.UpdateRequest{NewSummary: "Mine now"})
	if !apperrors.IsCode(err, apperrors.CodePermissionDenied) {
		t.Fatalf("error = %v, want %s", err, apperrors.CodePermissionDenied)
	}
}

func TestDeleteAlreadyGoneExternallyStillClearsLedger(t *testing.T) {
	repo := &mockEventRepository{
		findByExternalFn: func(context.Context, string) (*model.Event, error) {
			return existingEvent(), nil
		},
	}
	syncer := &mockSyncer{
		deleteFn: func(context.Context, string) (bool, error) {
			return true, nil
		},
	}
	notifier := &recordingNotifier{}
	svc := newTestService(repo, syncer, notifier)

	conf, err := svc.Delete(context.Background(), testUser(), "ext-abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !conf.AlreadyGone {
		t.Error("expected AlreadyGone to be reported")
	}
	if repo.ledgerDeletes != 1 {
		t.Errorf("ledger deletes = %d, want 1", repo.ledgerDeletes)
	}
	if len(notifier.eventTypes) != 1 || notifier.eventTypes[0] != notify.EventCancelled {
		t.Errorf("notifications = %v, want [%s]", notifier.eventTypes, notify.EventCancelled)
	}
}

func TestDeleteSyncFailureKeepsLedgerRecord(t *testing.T) {
	repo := &mockEventRepository{
		findByExternalFn: func(context.Context, string) (*model.Event, error) {
			return existingEvent(), nil
		},
	}
	syncer := &mockSyncer{
		deleteFn: func(context.Context, string) (bool, error) {
			return false, errors.New("calendar api unavailable")
		},
	}
	svc := newTestService(repo, syncer, nil)

	_, err := svc.Delete(context.Background(), testUser(), "ext-abc123")
	if !apperrors.IsCode(err, apperrors.CodeExternalSyncFailure) {
		t.Fatalf("error = %v, want %s", err, apperrors.CodeExternalSyncFailure)
	}
	if repo.ledgerDeletes != 0 {
		t.Errorf("ledger deletes = %d, want 0 when the provider delete failed", repo.ledgerDeletes)
	}
}

func TestDeleteUnknownEvent(t *testing.T) {
	svc := newTestService(&mockEventRepository{}, &mockSyncer{}, nil)

	_, err := svc.Delete(context.Background(), testUser(), "ext-missing")
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("error = %v, want %s", err, apperrors.CodeNotFound)
	}
}

func TestListConvertsToUserTimezone(t *testing.T) {
	repo := &mockEventRepository{
		listForOwnerFn: func(context.Context, string, *time.Time, *time.Time) ([]*model.Event, error) {
			return []*model.Event{existingEvent()}, nil
		},
	}
	svc := newTestService(repo, &mockSyncer{}, nil)

	views, err := svc.List(context.Background(), testUser(), "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("got %d views, want 1", len(views))
	}
	// 18:00 UTC is 14:00 in New York during June.
	if views[0].StartTime != "2025-06-10T14:00:00-04:00" {
		t.Errorf("start = %q, want 2025-06-10T14:00:00-04:00", views[0].StartTime)
	}
}

func TestListDefaultsToUpcoming(t *testing.T) {
	var gotStart, gotEnd *time.Time
	repo := &mockEventRepository{
		listForOwnerFn: func(_ context.Context, _ string, start, end *time.Time) ([]*model.Event, error) {
			gotStart, gotEnd = start, end
			return nil, nil
		},
	}
	svc := newTestService(repo, &mockSyncer{}, nil)

	if _, err := svc.List(context.Background(), testUser(), "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotStart == nil || gotEnd != nil {
		t.Fatalf("window = [%v, %v], want [now, nil]", gotStart, gotEnd)
	}
	if !gotStart.Equal(time.Date(2025, 6, 9, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("default start = %v, want the current instant", gotStart)
	}
}
