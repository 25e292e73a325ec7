package booking_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-booking/internal/auth"
	"ms-booking/internal/bookings"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"
)

type Handler struct {
	BookingService *bookings.BookingService
	Logger         *logger.Logger
	DevMode        bool
}

func NewHandler(service *bookings.BookingService, log *logger.Logger, devMode bool) *Handler {
	return &Handler{BookingService: service, Logger: log, DevMode: devMode}
}

// RegisterProtectedRoutes mounts the booking and payment endpoints that
// require a token. The webhook is registered separately because Stripe
// authenticates by signature, not bearer token.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Route("/api/bookings", func(r chi.Router) {
		r.Post("/", h.CreateBooking)
		r.Get("/my-bookings", h.GetMyBookings)
		r.With(auth.RequireAdmin).Get("/all", h.GetAllBookings)
		r.Post("/confirm", h.ConfirmBooking)
		r.Get("/{id}", h.GetBooking)
		r.Patch("/{id}/cancel", h.CancelBooking)
	})
	r.Route("/api/payments", func(r chi.Router) {
		r.Post("/create-payment-intent", h.CreatePaymentIntent)
		r.Get("/status/{paymentIntentId}", h.GetPaymentStatus)
	})
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	claims := auth.Claims(r.Context())

	var req models.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	booking, err := h.BookingService.RequestBooking(r.Context(), *claims, req)
	if err != nil {
		h.writeError(w, err, "CreateBooking")
		return
	}

	h.Logger.LogAPI(r.Method, r.URL.Path, "201", "-")
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("booking created successfully", booking))
}

func (h *Handler) GetMyBookings(w http.ResponseWriter, r *http.Request) {
	claims := auth.Claims(r.Context())

	list, err := h.BookingService.ListUserBookings(r.Context(), claims.ID)
	if err != nil {
		h.writeError(w, err, "GetMyBookings")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("bookings retrieved", list))
}

func (h *Handler) GetAllBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.BookingFilter{
		Status:  models.BookingStatus(q.Get("status")),
		EventID: q.Get("event_id"),
		Page:    intQuery(q.Get("page"), 1),
		Limit:   intQuery(q.Get("limit"), 10),
	}

	list, err := h.BookingService.ListAllBookings(r.Context(), filter)
	if err != nil {
		h.writeError(w, err, "GetAllBookings")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("bookings retrieved", list))
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	claims := auth.Claims(r.Context())
	id := chi.URLParam(r, "id")

	booking, err := h.BookingService.GetBooking(r.Context(), *claims, id)
	if err != nil {
		h.writeError(w, err, "GetBooking")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("booking retrieved", booking))
}

func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	claims := auth.Claims(r.Context())
	id := chi.URLParam(r, "id")

	booking, err := h.BookingService.CancelBooking(r.Context(), *claims, id)
	if err != nil {
		h.writeError(w, err, "CancelBooking")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("booking cancelled successfully", booking))
}

// ConfirmBooking lets the client report a completed payment directly. The
// webhook is the authoritative path; this endpoint exists so the checkout
// page can confirm without waiting for webhook delivery.
func (h *Handler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	claims := auth.Claims(r.Context())

	var req models.ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}
	if req.BookingID == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("validation failed", "booking_id is required"))
		return
	}

	// Only the owner may confirm through this endpoint.
	if _, err := h.BookingService.GetBooking(r.Context(), *claims, req.BookingID); err != nil {
		h.writeError(w, err, "ConfirmBooking")
		return
	}

	booking, err := h.BookingService.ConfirmBooking(r.Context(), req.BookingID, req.PaymentIntentID)
	if err != nil {
		h.writeError(w, err, "ConfirmBooking")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("booking confirmed successfully", booking))
}

func (h *Handler) writeError(w http.ResponseWriter, err error, op string) {
	var valErrs models.ValidationErrors
	switch {
	case errors.As(err, &valErrs):
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("validation failed", valErrs.Error()))
	case errors.Is(err, bookings.ErrBookingNotFound), errors.Is(err, bookings.ErrEventNotFound):
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("not found", err.Error()))
	case errors.Is(err, bookings.ErrNotAuthorized):
		utils.WriteJSON(w, http.StatusForbidden, utils.ErrorResponse("not authorized", err.Error()))
	case errors.Is(err, bookings.ErrEventInPast),
		errors.Is(err, bookings.ErrEventStarted),
		errors.Is(err, bookings.ErrInsufficientTickets),
		errors.Is(err, bookings.ErrAlreadyCancelled),
		errors.Is(err, bookings.ErrInvalidTransition),
		errors.Is(err, bookings.ErrConfirmInProgress):
		utils.WriteJSON(w, http.StatusConflict, utils.ErrorResponse("booking conflict", err.Error()))
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
