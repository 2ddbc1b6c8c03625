package client

import (
	"context"
	"encoding/base64"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"meetsync/pkg/logger"
)

// SetCalendar builds the Google Calendar service from base64-encoded
// service-account credentials, authenticated with full calendar scope.
func (c *Client) SetCalendar(log *logger.Logger, credentialsBase64 string) {
	if credentialsBase64 == "" {
		log.Fatal("Google credentials are not configured")
	}

	raw, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		log.Fatal("Failed to decode Google credentials", "error", err)
	}

	ctx := context.Background()
	creds, err := google.CredentialsFromJSON(ctx, raw, calendar.CalendarScope)
	if err != nil {
		log.Fatal("Failed to parse Google credentials", "error", err)
	}

	service, err := calendar.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		log.Fatal("Failed to build Google Calendar service", "error", err)
	}

	log.Info("Successfully initialized Google Calendar client")
	c.Calendar = service
}
