// Package sync wraps the external calendar provider, isolating its failure
// modes from the commit orchestrator.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"meetsync/pkg/logger"
	"meetsync/pkg/model"
)

// EventDetails carries everything the provider needs to create an event.
type EventDetails struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Timezone    string
}

// Syncer is the external calendar port. Implementations must treat a
// provider-side "not found" on delete as the already-gone terminal state,
// not a failure.
type Syncer interface {
	Create(ctx context.Context, details EventDetails) (externalID, link string, err error)
	Update(ctx context.Context, externalID string, fields model.EventFields, timezone string) (echoedStart string, err error)
	Delete(ctx context.Context, externalID string) (alreadyGone bool, err error)
}

type googleSyncer struct {
	service    *calendar.Service
	calendarID string
	log        *logger.Logger
}

func NewGoogleSyncer(service *calendar.Service, calendarID string, log *logger.Logger) Syncer {
	return &googleSyncer{
		service:    service,
		calendarID: calendarID,
		log:        log,
	}
}

func (g *googleSyncer) Create(ctx context.Context, details EventDetails) (string, string, error) {
	body := &calendar.Event{
		Summary:     details.Summary,
		Description: details.Description,
		Start: &calendar.EventDateTime{
			DateTime: details.Start.Format(time.RFC3339),
			TimeZone: details.Timezone,
		},
		End: &calendar.EventDateTime{
			DateTime: details.End.Format(time.RFC3339),
			TimeZone: details.Timezone,
		},
	}

	created, err := g.service.Events.Insert(g.calendarID, body).Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("calendar insert failed: %w", err)
	}

	g.log.Info("External event created", "external_id", created.Id)
	return created.Id, created.HtmlLink, nil
}

// Update fetches the current provider state, applies only the changed fields,
// and pushes the result back. Returns the provider's echoed new start time.
func (g *googleSyncer) Update(ctx context.Context, externalID string, fields model.EventFields, timezone string) (string, error) {
	current, err := g.service.Events.Get(g.calendarID, externalID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("calendar get failed: %w", err)
	}

	if fields.Title != nil {
		current.Summary = *fields.Title
	}
	if fields.StartUTC != nil {
		current.Start = &calendar.EventDateTime{
			DateTime: fields.StartUTC.Format(time.RFC3339),
			TimeZone: timezone,
		}
	}
	if fields.EndUTC != nil {
		current.End = &calendar.EventDateTime{
			DateTime: fields.EndUTC.Format(time.RFC3339),
			TimeZone: timezone,
		}
	}

	updated, err := g.service.Events.Update(g.calendarID, externalID, current).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("calendar update failed: %w", err)
	}

	echoed := ""
	if updated.Start != nil {
		echoed = updated.Start.DateTime
		if echoed == "" {
			echoed = updated.Start.Date
		}
	}

	g.log.Info("External event updated", "external_id", externalID, "new_start", echoed)
	return echoed, nil
}

// Delete removes the provider event. A 404/410 means someone already removed
// it on the provider side; reported as alreadyGone, not as an error.
func (g *googleSyncer) Delete(ctx context.Context, externalID string) (bool, error) {
	err := g.service.Events.Delete(g.calendarID, externalID).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			g.log.Warn("External event already removed on provider", "external_id", externalID)
			return true, nil
		}
		return false, fmt.Errorf("calendar delete failed: %w", err)
	}

	g.log.Info("External event deleted", "external_id", externalID)
	return false, nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 404 || apiErr.Code == 410
	}
	return false
}
