package validator

import (
	"strings"
	"testing"
	"time"

	"meetsync/pkg/logger"
	"meetsync/pkg/model"
)

func newTestValidator() *EventValidator {
	return NewEventValidator(logger.New(logger.Config{Level: "error", Service: "test"}))
}

func TestValidateBooking(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name    string
		req     model.BookingRequest
		wantErr bool
	}{
		{
			name: "valid",
			req: model.BookingRequest{
				Summary:   "Design review",
				StartTime: "2025-06-10T14:00:00",
				EndTime:   "2025-06-10T15:00:00",
			},
			wantErr: false,
		},
		{
			name:    "missing everything",
			req:     model.BookingRequest{},
			wantErr: true,
		},
		{
			name: "summary too long",
			req: model.BookingRequest{
				Summary:   strings.Repeat("x", 201),
				StartTime: "2025-06-10T14:00:00",
				EndTime:   "2025-06-10T15:00:00",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateBooking(&tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBooking() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateEventRejectsInvertedInterval(t *testing.T) {
	v := newTestValidator()

	start := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	event := &model.Event{
		OwnerID:  "665f1f77bcf86cd799439011",
		Title:    "Backwards",
		StartUTC: start,
		EndUTC:   start.Add(-time.Hour),
		Status:   model.StatusPending,
	}

	err := v.ValidateEvent(event)
	if err == nil {
		t.Fatal("expected error for end before start")
	}
	if !strings.Contains(err.Error(), "end time") && !strings.Contains(err.Error(), "EndUTC") {
		t.Errorf("expected interval error, got %v", err)
	}
}

func TestValidateUpdateAllowsEmptySummary(t *testing.T) {
	v := newTestValidator()

	// A reschedule with no retitle is valid input shape; the orchestrator
	// decides whether anything changed at all.
	if err := v.ValidateUpdate(&model.UpdateRequest{NewStartTime: "2025-06-11T10:00:00"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
