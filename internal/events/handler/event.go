package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	eventservice "meetsync/internal/events/service"
	userservice "meetsync/internal/users/service"
	apperrors "meetsync/pkg/errors"
	httputil "meetsync/pkg/http"
	"meetsync/pkg/logger"
	"meetsync/pkg/model"
)

// EventHandler mirrors the scheduling tools over REST for non-conversational
// callers and operational poking.
type EventHandler struct {
	events eventservice.EventService
	users  userservice.UserService
	log    *logger.Logger
}

func NewEventHandler(events eventservice.EventService, users userservice.UserService, log *logger.Logger) *EventHandler {
	return &EventHandler{
		events: events,
		users:  users,
		log:    log,
	}
}

func (h *EventHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/events", h.Book)
	router.GET("/api/v1/events", h.List)
	router.PATCH("/api/v1/events/:id", h.Update)
	router.DELETE("/api/v1/events/:id", h.Delete)
	router.GET("/api/v1/availability", h.FindAvailableSlots)
	router.PUT("/api/v1/users/timezone", h.UpdateTimezone)
}

type bookEventRequest struct {
	UserEmail string `json:"user_email"`
	Summary   string `json:"summary"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (h *EventHandler) Book(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req bookEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Book", apperrors.InvalidInput("Invalid request body"))
		return
	}

	user, err := h.resolveUser(r.Context(), req.UserEmail)
	if err != nil {
		h.writeError(w, "Book", err)
		return
	}

	conf, err := h.events.Book(r.Context(), user, &model.BookingRequest{
		Summary:   req.Summary,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		h.writeError(w, "Book", err)
		return
	}

	if err := httputil.WriteCreated(w, conf); err != nil {
		h.log.Error("failed to write created response", "handler", "Book", "error", err)
	}
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	user, err := h.resolveUser(r.Context(), query.Get("user_email"))
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	views, err := h.events.List(r.Context(), user, query.Get("start_time"), query.Get("end_time"))
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WriteSuccess(w, views); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "error", err)
	}
}

type updateEventRequest struct {
	UserEmail    string `json:"user_email"`
	NewStartTime string `json:"new_start_time,omitempty"`
	NewSummary   string `json:"new_summary,omitempty"`
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req updateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Update", apperrors.InvalidInput("Invalid request body"))
		return
	}

	user, err := h.resolveUser(r.Context(), req.UserEmail)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	conf, err := h.events.Update(r.Context(), user, ps.ByName("id"), &model.UpdateRequest{
		NewStartTime: req.NewStartTime,
		NewSummary:   req.NewSummary,
	})
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, conf); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "error", err)
	}
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := h.resolveUser(r.Context(), r.URL.Query().Get("user_email"))
	if err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	conf, err := h.events.Delete(r.Context(), user, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := httputil.WriteSuccess(w, conf); err != nil {
		h.log.Error("failed to write success response", "handler", "Delete", "error", err)
	}
}

func (h *EventHandler) FindAvailableSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	duration := 60
	if s := query.Get("duration_minutes"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			h.writeError(w, "FindAvailableSlots", apperrors.InvalidInput("invalid duration_minutes parameter: "+s))
			return
		}
		duration = v
	}

	slots, err := h.events.FindAvailableSlots(r.Context(), query.Get("date"), query.Get("timezone"), duration)
	if err != nil {
		h.writeError(w, "FindAvailableSlots", err)
		return
	}

	if err := httputil.WriteSuccess(w, map[string]any{"available_slots": slots}); err != nil {
		h.log.Error("failed to write success response", "handler", "FindAvailableSlots", "error", err)
	}
}

type updateTimezoneRequest struct {
	UserEmail string `json:"user_email"`
	Timezone  string `json:"timezone"`
}

func (h *EventHandler) UpdateTimezone(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req updateTimezoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "UpdateTimezone", apperrors.InvalidInput("Invalid request body"))
		return
	}

	user, err := h.resolveUser(r.Context(), req.UserEmail)
	if err != nil {
		h.writeError(w, "UpdateTimezone", err)
		return
	}

	result, err := h.users.UpdateTimezone(r.Context(), user.ID, req.Timezone)
	if err != nil {
		h.writeError(w, "UpdateTimezone", err)
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateTimezone", "error", err)
	}
}

func (h *EventHandler) resolveUser(ctx context.Context, email string) (*model.User, error) {
	if email == "" {
		return nil, apperrors.InvalidInput("user_email is required")
	}
	return h.users.GetOrCreate(ctx, email)
}

func (h *EventHandler) writeError(w http.ResponseWriter, handlerName string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handlerName, "error", writeErr)
	}
}
