// Package scheduling exposes the booking operations as MCP tools. Every
// handler returns a result value, success or failure, so the reasoning loop
// driving the tools can always feed the outcome back into its next step.
package scheduling

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	eventservice "meetsync/internal/events/service"
	userservice "meetsync/internal/users/service"
	apperrors "meetsync/pkg/errors"
	"meetsync/pkg/logger"
	"meetsync/pkg/model"
)

type Toolset struct {
	events eventservice.EventService
	users  userservice.UserService
	log    *logger.Logger
}

func NewToolset(events eventservice.EventService, users userservice.UserService, log *logger.Logger) *Toolset {
	return &Toolset{
		events: events,
		users:  users,
		log:    log,
	}
}

// Register declares every scheduling tool on the MCP server.
func (t *Toolset) Register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("propose_event",
		mcp.WithDescription("Shape a draft event for the user to confirm. No booking happens; call confirm_and_book_event after the user agrees."),
		mcp.WithString("summary", mcp.Required(), mcp.Description("Meeting title")),
		mcp.WithString("start_time", mcp.Required(), mcp.Description("Proposed start, ISO 8601, user-local unless an offset is given")),
		mcp.WithString("end_time", mcp.Required(), mcp.Description("Proposed end, ISO 8601")),
	), t.handleProposeEvent)

	s.AddTool(mcp.NewTool("confirm_and_book_event",
		mcp.WithDescription("Book a confirmed event: checks availability, reserves the slot, and creates it on the calendar."),
		mcp.WithString("user_email", mcp.Required(), mcp.Description("Email of the user booking the meeting")),
		mcp.WithString("summary", mcp.Required(), mcp.Description("Meeting title")),
		mcp.WithString("start_time", mcp.Required(), mcp.Description("Start, ISO 8601, user-local unless an offset is given")),
		mcp.WithString("end_time", mcp.Required(), mcp.Description("End, ISO 8601")),
	), t.handleConfirmAndBook)

	s.AddTool(mcp.NewTool("list_events",
		mcp.WithDescription("List the user's events with times in their timezone. Without a range, lists upcoming events."),
		mcp.WithString("user_email", mcp.Required(), mcp.Description("Email of the user")),
		mcp.WithString("start_time", mcp.Description("Optional range start, ISO 8601")),
		mcp.WithString("end_time", mcp.Description("Optional range end, ISO 8601")),
	), t.handleListEvents)

	s.AddTool(mcp.NewTool("update_event",
		mcp.WithDescription("Reschedule or retitle an event the user owns. Duration is preserved on reschedule."),
		mcp.WithString("user_email", mcp.Required(), mcp.Description("Email of the user")),
		mcp.WithString("event_id", mcp.Required(), mcp.Description("Calendar event id from list_events")),
		mcp.WithString("new_start_time", mcp.Description("New start, ISO 8601; omit to keep the current time")),
		mcp.WithString("new_summary", mcp.Description("New title; omit to keep the current title")),
	), t.handleUpdateEvent)

	s.AddTool(mcp.NewTool("delete_event",
		mcp.WithDescription("Cancel an event the user owns, removing it from the calendar and the booking record."),
		mcp.WithString("user_email", mcp.Required(), mcp.Description("Email of the user")),
		mcp.WithString("event_id", mcp.Required(), mcp.Description("Calendar event id from list_events")),
	), t.handleDeleteEvent)

	s.AddTool(mcp.NewTool("update_user_timezone",
		mcp.WithDescription("Set the user's IANA timezone and return their current local time."),
		mcp.WithString("user_email", mcp.Required(), mcp.Description("Email of the user")),
		mcp.WithString("timezone", mcp.Required(), mcp.Description("IANA timezone name, e.g. America/New_York")),
	), t.handleUpdateTimezone)

	s.AddTool(mcp.NewTool("find_available_slots",
		mcp.WithDescription("Find open meeting slots on a date, within company working hours, rendered in the user's timezone."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Requested date, YYYY-MM-DD, in the user's timezone")),
		mcp.WithString("timezone", mcp.Required(), mcp.Description("IANA timezone the date refers to")),
		mcp.WithNumber("duration_minutes", mcp.Description("Meeting length in minutes, default 60")),
	), t.handleFindAvailableSlots)
}

func (t *Toolset) handleProposeEvent(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := request.RequireString("summary")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	startTime, err := request.RequireString("start_time")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	endTime, err := request.RequireString("end_time")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return t.resultJSON(t.events.Propose(summary, startTime, endTime))
}

func (t *Toolset) handleConfirmAndBook(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user, res := t.resolveUser(ctx, request)
	if res != nil {
		return res, nil
	}
	summary, err := request.RequireString("summary")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	startTime, err := request.RequireString("start_time")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	endTime, err := request.RequireString("end_time")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	conf, err := t.events.Book(ctx, user, &model.BookingRequest{
		Summary:   summary,
		StartTime: startTime,
		EndTime:   endTime,
	})
	if err != nil {
		return t.errorResult(err), nil
	}
	return t.resultJSON(conf)
}

func (t *Toolset) handleListEvents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user, res := t.resolveUser(ctx, request)
	if res != nil {
		return res, nil
	}

	views, err := t.events.List(ctx, user,
		request.GetString("start_time", ""),
		request.GetString("end_time", ""),
	)
	if err != nil {
		return t.errorResult(err), nil
	}
	return t.resultJSON(views)
}

func (t *Toolset) handleUpdateEvent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user, res := t.resolveUser(ctx, request)
	if res != nil {
		return res, nil
	}
	eventID, err := request.RequireString("event_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	conf, err := t.events.Update(ctx, user, eventID, &model.UpdateRequest{
		NewStartTime: request.GetString("new_start_time", ""),
		NewSummary:   request.GetString("new_summary", ""),
	})
	if err != nil {
		return t.errorResult(err), nil
	}
	return t.resultJSON(conf)
}

func (t *Toolset) handleDeleteEvent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user, res := t.resolveUser(ctx, request)
	if res != nil {
		return res, nil
	}
	eventID, err := request.RequireString("event_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	conf, err := t.events.Delete(ctx, user, eventID)
	if err != nil {
		return t.errorResult(err), nil
	}
	return t.resultJSON(conf)
}

func (t *Toolset) handleUpdateTimezone(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user, res := t.resolveUser(ctx, request)
	if res != nil {
		return res, nil
	}
	timezone, err := request.RequireString("timezone")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := t.users.UpdateTimezone(ctx, user.ID, timezone)
	if err != nil {
		return t.errorResult(err), nil
	}
	return t.resultJSON(result)
}

func (t *Toolset) handleFindAvailableSlots(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := request.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	timezone, err := request.RequireString("timezone")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	duration := request.GetInt("duration_minutes", 60)

	slots, err := t.events.FindAvailableSlots(ctx, date, timezone, duration)
	if err != nil {
		return t.errorResult(err), nil
	}
	return t.resultJSON(map[string]any{"available_slots": slots})
}

func (t *Toolset) resolveUser(ctx context.Context, request mcp.CallToolRequest) (*model.User, *mcp.CallToolResult) {
	email, err := request.RequireString("user_email")
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	user, err := t.users.GetOrCreate(ctx, email)
	if err != nil {
		return nil, t.errorResult(err)
	}
	return user, nil
}

// errorResult renders any failure as the structured error payload; typed
// failures cross the tool boundary as data, never as a transport error.
func (t *Toolset) errorResult(err error) *mcp.CallToolResult {
	appErr := apperrors.AsAppError(err)
	if appErr.Code == apperrors.CodeInternal {
		t.log.Error("Tool call failed", "error", err)
	}
	return mcp.NewToolResultError(string(appErr.ToJSON()))
}

func (t *Toolset) resultJSON(payload any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return mcp.NewToolResultError("failed to encode result"), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
