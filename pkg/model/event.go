package model

import (
	"time"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
)

// Event is the booking ledger record. The ledger, not the external calendar,
// is the authority for conflict detection. ExternalID stays nil until the
// external sync step succeeds; a record with Status pending only exists
// transiently inside the commit protocol.
type Event struct {
	ID               string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	ExternalID       *string   `json:"external_id" bson:"external_id"`
	OwnerID          string    `json:"owner_id" bson:"owner_id" validate:"required"`
	Title            string    `json:"title" bson:"title" validate:"required,min=1,max=200"`
	StartUTC         time.Time `json:"start_time_utc" bson:"start_time_utc" validate:"required"`
	EndUTC           time.Time `json:"end_time_utc" bson:"end_time_utc" validate:"required,gtfield=StartUTC"`
	OriginalTimezone string    `json:"original_timezone" bson:"original_timezone"`
	Attendees        []string  `json:"attendees" bson:"attendees"`
	Status           string    `json:"status" bson:"status" validate:"required,oneof=pending confirmed"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// Confirmed reports whether the record completed external sync.
func (e *Event) Confirmed() bool {
	return e.Status == StatusConfirmed && e.ExternalID != nil
}

// Duration returns the stored interval length, preserved by reschedules.
func (e *Event) Duration() time.Duration {
	return e.EndUTC.Sub(e.StartUTC)
}

// EventFields is a partial update of the mutable ledger fields. The update
// flow commits one of these and keeps its inverse for the compensating revert.
type EventFields struct {
	Title    *string    `json:"title,omitempty" bson:"title,omitempty"`
	StartUTC *time.Time `json:"start_time_utc,omitempty" bson:"start_time_utc,omitempty"`
	EndUTC   *time.Time `json:"end_time_utc,omitempty" bson:"end_time_utc,omitempty"`
}

// Empty reports whether the update carries no field changes at all.
func (f *EventFields) Empty() bool {
	return f.Title == nil && f.StartUTC == nil && f.EndUTC == nil
}

// Snapshot captures the current values of every field set in f, so a failed
// external sync can restore exactly the pre-update state.
func (f *EventFields) Snapshot(e *Event) EventFields {
	var prev EventFields
	if f.Title != nil {
		title := e.Title
		prev.Title = &title
	}
	if f.StartUTC != nil {
		start := e.StartUTC
		prev.StartUTC = &start
	}
	if f.EndUTC != nil {
		end := e.EndUTC
		prev.EndUTC = &end
	}
	return prev
}

// EventView is the listing shape returned to callers: times converted to the
// querying user's timezone, external id exposed as the public handle.
type EventView struct {
	ExternalID string   `json:"external_id"`
	Title      string   `json:"title"`
	StartTime  string   `json:"start_time"`
	EndTime    string   `json:"end_time"`
	Attendees  []string `json:"attendees"`
}

// EventDraft is the side-effect-free shape produced by proposeEvent for the
// user to confirm before booking.
type EventDraft struct {
	Summary   string `json:"summary"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// BookingRequest carries the arguments of a confirmed booking.
type BookingRequest struct {
	Summary   string `json:"summary" validate:"required,min=1,max=200"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// UpdateRequest carries the arguments of a reschedule/retitle. End time is
// never supplied; the original duration is preserved.
type UpdateRequest struct {
	NewStartTime string `json:"new_start_time,omitempty"`
	NewSummary   string `json:"new_summary,omitempty" validate:"omitempty,min=1,max=200"`
}
