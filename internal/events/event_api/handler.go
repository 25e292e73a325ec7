package event_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-booking/internal/auth"
	"ms-booking/internal/events"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"
)

type Handler struct {
	EventService *events.EventService
	Logger       *logger.Logger
	DevMode      bool
}

func NewHandler(service *events.EventService, log *logger.Logger, devMode bool) *Handler {
	return &Handler{EventService: service, Logger: log, DevMode: devMode}
}

// RegisterPublicRoutes mounts the unauthenticated event endpoints.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/api/events", h.ListEvents)
	r.Get("/api/events/{id}", h.GetEvent)
}

// RegisterProtectedRoutes mounts the endpoints that require a token; admin
// checks happen per route. The routes are registered method by method so
// they share path nodes with the public GET routes.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.With(auth.RequireAdmin).Post("/api/events", h.CreateEvent)
	r.With(auth.RequireAdmin).Get("/api/events/admin/stats", h.GetStats)
	r.Put("/api/events/{id}", h.UpdateEvent)
	r.Delete("/api/events/{id}", h.DeleteEvent)
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.EventFilter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Page:     intQuery(q.Get("page"), 1),
		Limit:    intQuery(q.Get("limit"), 10),
	}

	list, err := h.EventService.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, err, "ListEvents")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("events retrieved", list))
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	event, err := h.EventService.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "GetEvent")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("event retrieved", event))
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	claims := auth.Claims(r.Context())

	var req models.EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	event, err := h.EventService.Create(r.Context(), *claims, req)
	if err != nil {
		h.writeError(w, err, "CreateEvent")
		return
	}

	h.Logger.LogAPI(r.Method, r.URL.Path, "201", "-")
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("event created successfully", event))
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	claims := auth.Claims(r.Context())
	id := chi.URLParam(r, "id")

	var req models.EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	event, err := h.EventService.Update(r.Context(), *claims, id, req)
	if err != nil {
		h.writeError(w, err, "UpdateEvent")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("event updated successfully", event))
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	claims := auth.Claims(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.EventService.Delete(r.Context(), *claims, id); err != nil {
		h.writeError(w, err, "DeleteEvent")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("event deleted successfully", nil))
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.EventService.Stats(r.Context())
	if err != nil {
		h.writeError(w, err, "GetStats")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("event stats retrieved", stats))
}

func (h *Handler) writeError(w http.ResponseWriter, err error, op string) {
	var valErrs models.ValidationErrors
	switch {
	case errors.As(err, &valErrs):
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("validation failed", valErrs.Error()))
	case errors.Is(err, events.ErrEventNotFound):
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("event not found", err.Error()))
	case errors.Is(err, events.ErrNotAuthorized):
		utils.WriteJSON(w, http.StatusForbidden, utils.ErrorResponse("not authorized", err.Error()))
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		detail := ""
		if h.DevMode {
			detail = err.Error()
		}
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("server error", detail))
	}
}

func intQuery(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
