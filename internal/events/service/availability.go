package service

import (
	"context"
	"sort"
	"time"

	apperrors "meetsync/pkg/errors"
	"meetsync/pkg/interval"
	"meetsync/pkg/timeutil"
)

// FindAvailableSlots proposes open meeting starts for a calendar date as the
// requester experiences it. Candidates are generated on the company's working
// grid, then filtered against buffered busy blocks and re-anchored to the
// user's timezone, so a date near a timezone boundary can draw from two
// different company-side working days.
func (s *eventService) FindAvailableSlots(ctx context.Context, date, userTimezone string, durationMinutes int) ([]string, error) {
	userLoc, err := timeutil.LoadLocation(userTimezone)
	if err != nil {
		return nil, err
	}
	requested, err := timeutil.ParseDate(date, userLoc)
	if err != nil {
		return nil, err
	}
	if durationMinutes <= 0 {
		return nil, apperrors.InvalidInput("Meeting duration must be positive")
	}
	duration := time.Duration(durationMinutes) * time.Minute

	now := s.now()
	nowUser := now.In(userLoc)
	today := time.Date(nowUser.Year(), nowUser.Month(), nowUser.Day(), 0, 0, 0, 0, userLoc)
	if requested.Before(today) {
		return nil, apperrors.DateInPast(date)
	}

	// One extra day on each side covers events whose UTC instant lands on the
	// requested local date despite starting on an adjacent company-side day.
	windowStart := requested.AddDate(0, 0, -1).UTC()
	windowEnd := requested.AddDate(0, 0, 2).UTC()
	events, err := s.repo.FindInWindow(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, apperrors.Internal("Failed to load the booking window", err)
	}

	buffer := s.cfg.Buffer()
	busy := make([]interval.BusyBlock, 0, len(events))
	for _, e := range events {
		busy = append(busy, interval.NewBusyBlock(e.StartUTC, e.EndUTC, buffer))
	}

	companyLoc, err := timeutil.LoadLocation(s.cfg.CompanyTimezone)
	if err != nil {
		return nil, err
	}

	step := s.cfg.SlotStep()
	seen := make(map[time.Time]struct{})
	var slots []time.Time

	// Scan the requested company-side day and the next: a user-local date can
	// straddle two company working days.
	dayAnchor := requested.In(companyLoc)
	for dayOffset := 0; dayOffset < 2; dayOffset++ {
		day := dayAnchor.AddDate(0, 0, dayOffset)
		candidate := time.Date(day.Year(), day.Month(), day.Day(),
			s.cfg.WorkingStartHour, 0, 0, 0, companyLoc)
		dayEnd := time.Date(day.Year(), day.Month(), day.Day(),
			s.cfg.WorkingEndHour, 0, 0, 0, companyLoc)

		for !candidate.Add(duration).After(dayEnd) {
			start := candidate.UTC()
			end := start.Add(duration)

			if !interval.AnyOverlap(busy, start, end) &&
				start.After(now) &&
				timeutil.SameLocalDate(start, requested, userLoc) {
				if _, dup := seen[start]; !dup {
					seen[start] = struct{}{}
					slots = append(slots, start)
				}
			}
			candidate = candidate.Add(step)
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })

	out := make([]string, 0, len(slots))
	for _, slot := range slots {
		out = append(out, slot.In(userLoc).Format(time.RFC3339))
	}
	return out, nil
}
