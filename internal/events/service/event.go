package service

import (
	"context"
	"errors"
	"time"

	eventserrors "meetsync/internal/events/errors"
	"meetsync/internal/events/notify"
	"meetsync/internal/events/repository"
	extsync "meetsync/internal/events/sync"
	"meetsync/internal/events/validator"
	"meetsync/pkg/config"
	apperrors "meetsync/pkg/errors"
	"meetsync/pkg/model"
	"meetsync/pkg/timeutil"
)

// BookingConfirmation is returned by a successful create flow.
type BookingConfirmation struct {
	ExternalID string `json:"external_id"`
	Link       string `json:"link,omitempty"`
	Title      string `json:"title"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

// UpdateConfirmation carries the provider's echoed new start time.
type UpdateConfirmation struct {
	ExternalID string `json:"external_id"`
	Title      string `json:"title"`
	NewStart   string `json:"new_start_time"`
}

type DeleteConfirmation struct {
	Title       string `json:"title"`
	AlreadyGone bool   `json:"already_gone"`
}

// EventService is the two-phase commit orchestrator: it sequences
// ledger-reservation, external sync, and finalize-or-compensate for every
// calendar mutation, and answers the read-only availability and list queries.
type EventService interface {
	Propose(summary, startTime, endTime string) *model.EventDraft
	Book(ctx context.Context, user *model.User, req *model.BookingRequest) (*BookingConfirmation, error)
	List(ctx context.Context, user *model.User, startTime, endTime string) ([]*model.EventView, error)
	Update(ctx context.Context, user *model.User, externalID string, req *model.UpdateRequest) (*UpdateConfirmation, error)
	Delete(ctx context.Context, user *model.User, externalID string) (*DeleteConfirmation, error)
	FindAvailableSlots(ctx context.Context, date, userTimezone string, durationMinutes int) ([]string, error)
}

type eventService struct {
	repo      repository.EventRepository
	syncer    extsync.Syncer
	notifier  notify.Notifier
	validator *validator.EventValidator
	cfg       *config.Config
	now       func() time.Time
}

func NewEventService(
	repo repository.EventRepository,
	syncer extsync.Syncer,
	notifier notify.Notifier,
	eventValidator *validator.EventValidator,
	cfg *config.Config,
) EventService {
	return &eventService{
		repo:      repo,
		syncer:    syncer,
		notifier:  notifier,
		validator: eventValidator,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Propose shapes the draft the user confirms before booking. Pure data, no
// side effect, no validation beyond what the caller already supplied.
func (s *eventService) Propose(summary, startTime, endTime string) *model.EventDraft {
	return &model.EventDraft{
		Summary:   summary,
		StartTime: startTime,
		EndTime:   endTime,
	}
}

// Book runs the create flow: conflict check, local reservation, external
// sync, then finalize. The conflict check always re-runs here regardless of
// any earlier availability call, since state may have changed in between.
func (s *eventService) Book(ctx context.Context, user *model.User, req *model.BookingRequest) (*BookingConfirmation, error) {
	if err := s.validator.ValidateBooking(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return nil, apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}

	userLoc, err := timeutil.LoadLocation(user.TimezoneOrUTC())
	if err != nil {
		return nil, err
	}
	startUTC, err := timeutil.ToUTC(req.StartTime, userLoc)
	if err != nil {
		return nil, err
	}
	endUTC, err := timeutil.ToUTC(req.EndTime, userLoc)
	if err != nil {
		return nil, err
	}
	if !endUTC.After(startUTC) {
		return nil, apperrors.InvalidInput("End time must be after start time")
	}

	sg := newSaga("create", s.cfg.Log)

	conflicting, err := s.repo.FindConflicting(ctx, startUTC, endUTC, s.cfg.Buffer(), "")
	if err != nil {
		return nil, apperrors.Internal("Failed to check slot availability", err)
	}
	if conflicting != nil {
		return nil, apperrors.SlotUnavailable(
			"That time slot is no longer available: it was booked or is too close to another meeting")
	}
	sg.transition(StateConflictChecked)

	event := &model.Event{
		ExternalID:       nil,
		OwnerID:          user.ID,
		Title:            req.Summary,
		StartUTC:         startUTC,
		EndUTC:           endUTC,
		OriginalTimezone: user.TimezoneOrUTC(),
		Attendees:        []string{},
		Status:           model.StatusPending,
	}
	id, err := s.repo.Reserve(ctx, event)
	if err != nil {
		if errors.Is(err, eventserrors.ErrSlotRaceLost) {
			return nil, apperrors.SlotUnavailable(
				"That exact time slot was booked while finalizing; please pick another time")
		}
		return nil, apperrors.Internal("Failed to reserve event slot", err)
	}
	sg.transition(StateReserved)

	externalID, link, syncErr := s.syncer.Create(ctx, extsync.EventDetails{
		Summary:     req.Summary,
		Description: "Call booked by " + user.Email,
		Start:       startUTC.In(userLoc),
		End:         endUTC.In(userLoc),
		Timezone:    user.TimezoneOrUTC(),
	})
	if syncErr != nil {
		// Compensating action: the reserved row must never outlive a failed sync.
		if abortErr := s.repo.Abort(ctx, id); abortErr != nil {
			sg.fail(StateCompensationFailed, abortErr)
			return nil, apperrors.Compensation(
				"Calendar sync failed and the reserved slot could not be released", syncErr, abortErr)
		}
		sg.fail(StateRolledBack, syncErr)
		return nil, apperrors.ExternalSync(
			"Could not create the event on the external calendar; the reserved slot was released", syncErr, true)
	}

	if err := s.repo.Finalize(ctx, id, externalID); err != nil {
		sg.fail(StateCompensationFailed, err)
		return nil, apperrors.Internal("Event created externally but could not be confirmed in the ledger", err)
	}
	sg.transition(StateSynced)

	s.notifier.Notify(ctx, notify.EventConfirmed, externalID, event)
	s.cfg.Log.Info("Event booked",
		"external_id", externalID,
		"owner_id", user.ID,
		"start_utc", startUTC,
	)

	return &BookingConfirmation{
		ExternalID: externalID,
		Link:       link,
		Title:      req.Summary,
		StartTime:  startUTC.In(userLoc).Format(time.RFC3339),
		EndTime:    endUTC.In(userLoc).Format(time.RFC3339),
	}, nil
}

// List returns the caller's events converted to their timezone, ascending by
// start. Without a range it lists upcoming events only.
func (s *eventService) List(ctx context.Context, user *model.User, startTime, endTime string) ([]*model.EventView, error) {
	userLoc, err := timeutil.LoadLocation(user.TimezoneOrUTC())
	if err != nil {
		return nil, err
	}

	var start, end *time.Time
	if startTime != "" {
		t, err := timeutil.ToUTC(startTime, userLoc)
		if err != nil {
			return nil, err
		}
		start = &t
	}
	if endTime != "" {
		t, err := timeutil.ToUTC(endTime, userLoc)
		if err != nil {
			return nil, err
		}
		end = &t
	}
	if start == nil && end == nil {
		now := s.now().UTC()
		start = &now
	}

	events, err := s.repo.ListForOwner(ctx, user.ID, start, end)
	if err != nil {
		return nil, apperrors.Internal("Failed to list events", err)
	}

	views := make([]*model.EventView, 0, len(events))
	for _, e := range events {
		externalID := ""
		if e.ExternalID != nil {
			externalID = *e.ExternalID
		}
		views = append(views, &model.EventView{
			ExternalID: externalID,
			Title:      e.Title,
			StartTime:  e.StartUTC.In(userLoc).Format(time.RFC3339),
			EndTime:    e.EndUTC.In(userLoc).Format(time.RFC3339),
			Attendees:  e.Attendees,
		})
	}
	return views, nil
}

// Update runs the reschedule/retitle flow. The ledger change commits before
// the external push; a failed push reverts the ledger to the exact pre-update
// values so it never retains state the provider rejected.
func (s *eventService) Update(ctx context.Context, user *model.User, externalID string, req *model.UpdateRequest) (*UpdateConfirmation, error) {
	if err := s.validator.ValidateUpdate(req); err != nil {
		s.cfg.Log.Warn("Update validation failed", "external_id", externalID, "error", err)
		return nil, apperrors.Validation("Update validation failed", map[string]any{"error": err.Error()})
	}

	existing, err := s.findOwned(ctx, user, externalID)
	if err != nil {
		return nil, err
	}

	if req.NewStartTime == "" && req.NewSummary == "" {
		return nil, apperrors.NoChangeRequested()
	}

	sg := newSaga("update", s.cfg.Log)

	var fields model.EventFields
	if req.NewSummary != "" {
		summary := req.NewSummary
		fields.Title = &summary
	}
	if req.NewStartTime != "" {
		userLoc, err := timeutil.LoadLocation(user.TimezoneOrUTC())
		if err != nil {
			return nil, err
		}
		newStartUTC, err := timeutil.ToUTC(req.NewStartTime, userLoc)
		if err != nil {
			return nil, err
		}
		newEndUTC := newStartUTC.Add(existing.Duration())

		conflicting, err := s.repo.FindConflicting(ctx, newStartUTC, newEndUTC, s.cfg.Buffer(), existing.ID)
		if err != nil {
			return nil, apperrors.Internal("Failed to check slot availability", err)
		}
		if conflicting != nil {
			return nil, apperrors.SlotUnavailable(
				"The requested new time conflicts with another scheduled meeting")
		}

		fields.StartUTC = &newStartUTC
		fields.EndUTC = &newEndUTC
	}
	sg.transition(StateConflictChecked)

	// Snapshot before committing so the compensating revert can restore the
	// pre-update values byte for byte.
	prev := fields.Snapshot(existing)

	if err := s.repo.UpdateFields(ctx, existing.ID, fields); err != nil {
		if errors.Is(err, eventserrors.ErrSlotRaceLost) {
			return nil, apperrors.SlotUnavailable("The requested new time slot is already booked")
		}
		return nil, apperrors.Internal("Failed to update event in the ledger", err)
	}
	sg.transition(StateReserved)

	echoedStart, syncErr := s.syncer.Update(ctx, externalID, fields, user.TimezoneOrUTC())
	if syncErr != nil {
		if revertErr := s.repo.RevertFields(ctx, existing.ID, prev); revertErr != nil {
			sg.fail(StateCompensationFailed, revertErr)
			return nil, apperrors.Compensation(
				"Calendar sync failed and the ledger could not be reverted", syncErr, revertErr)
		}
		sg.fail(StateRolledBack, syncErr)
		return nil, apperrors.ExternalSync(
			"Could not update the external calendar; all local changes were reverted", syncErr, true)
	}
	sg.transition(StateSynced)

	title := existing.Title
	if fields.Title != nil {
		title = *fields.Title
	}

	s.notifier.Notify(ctx, notify.EventRescheduled, externalID, map[string]any{
		"external_id": externalID,
		"title":       title,
		"new_start":   echoedStart,
	})
	s.cfg.Log.Info("Event updated", "external_id", externalID, "owner_id", user.ID)

	return &UpdateConfirmation{
		ExternalID: externalID,
		Title:      title,
		NewStart:   echoedStart,
	}, nil
}

// Delete removes the event externally first, then from the ledger. The
// provider reporting the event already gone counts as success; any other
// provider error leaves the ledger record in place, still tracking an event
// that is presumably still externally present.
func (s *eventService) Delete(ctx context.Context, user *model.User, externalID string) (*DeleteConfirmation, error) {
	existing, err := s.findOwned(ctx, user, externalID)
	if err != nil {
		return nil, err
	}

	alreadyGone, syncErr := s.syncer.Delete(ctx, externalID)
	if syncErr != nil {
		return nil, apperrors.ExternalSync(
			"Could not delete the event from the external calendar", syncErr, true)
	}

	if err := s.repo.DeleteByExternalID(ctx, externalID); err != nil {
		if errors.Is(err, eventserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Event", externalID)
		}
		return nil, apperrors.Internal("Failed to delete event from the ledger", err)
	}

	s.notifier.Notify(ctx, notify.EventCancelled, externalID, map[string]any{
		"external_id": externalID,
		"title":       existing.Title,
	})
	s.cfg.Log.Info("Event deleted",
		"external_id", externalID,
		"owner_id", user.ID,
		"already_gone_externally", alreadyGone,
	)

	return &DeleteConfirmation{
		Title:       existing.Title,
		AlreadyGone: alreadyGone,
	}, nil
}

// findOwned loads a record by external id and enforces exclusive ownership.
func (s *eventService) findOwned(ctx context.Context, user *model.User, externalID string) (*model.Event, error) {
	if externalID == "" {
		return nil, apperrors.InvalidInput("Event ID cannot be empty")
	}

	event, err := s.repo.FindByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, eventserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Event", externalID)
		}
		return nil, apperrors.Internal("Failed to look up event", err)
	}

	if event.OwnerID != user.ID {
		return nil, apperrors.PermissionDenied("You are not the owner of this event")
	}

	return event, nil
}
