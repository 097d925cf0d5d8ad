package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/palakgarg19/Happening/internal/model"
	"github.com/palakgarg19/Happening/internal/repository"
	"github.com/palakgarg19/Happening/internal/service"
)

// BookingHandler exposes booking submission, listing and cancellation.
type BookingHandler struct {
	Bookings      *service.BookingService
	Cancellations *service.CancellationService
	BookingRepo   *repository.BookingRepo
	EventRepo     *repository.EventRepo
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(bookings *service.BookingService, cancellations *service.CancellationService, bookingRepo *repository.BookingRepo, eventRepo *repository.EventRepo) *BookingHandler {
	return &BookingHandler{
		Bookings:      bookings,
		Cancellations: cancellations,
		BookingRepo:   bookingRepo,
		EventRepo:     eventRepo,
	}
}

type createBookingReq struct {
	EventID     uint64 `json:"event_id"`
	TicketCount int    `json:"ticket_count"`
}

// Create handles POST /v1/bookings. When the queue is configured the
// reservation is enqueued and the client gets 202; otherwise inventory
// is decremented inline and the pending booking comes back with 201.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	res, err := h.Bookings.Submit(c.Request().Context(), req.EventID, uid, req.TicketCount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEventID), errors.Is(err, service.ErrInvalidTicketCount):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case errors.Is(err, repository.ErrEventNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		case errors.Is(err, repository.ErrEventCancelled):
			return c.JSON(http.StatusConflict, echo.Map{"error": "event is cancelled"})
		case errors.Is(err, repository.ErrInsufficientTickets):
			return c.JSON(http.StatusConflict, echo.Map{"error": "not enough tickets available"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
		}
	}

	if res.Queued {
		return c.JSON(http.StatusAccepted, echo.Map{
			"status":  "queued",
			"message": "booking request accepted, check your bookings for the result",
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "created", "booking": res.Booking})
}

// ListMine handles GET /v1/bookings/mine: all of the caller's bookings
// newest first, each with its event summary and payment state.
func (h *BookingHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.BookingRepo.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "fetch bookings failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": items})
}

// ListCancellable handles GET /v1/bookings/cancellable: confirmed
// bookings still outside the cancellation window.
func (h *BookingHandler) ListCancellable(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.BookingRepo.ListCancellable(c.Request().Context(), uid, service.CancellationWindow)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "fetch bookings failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": items})
}

// CancelPending handles POST /v1/bookings/:id/cancel-pending: abandon a
// never-paid booking and put its tickets back.
func (h *BookingHandler) CancelPending(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	if err := h.Cancellations.CancelPending(c.Request().Context(), id, uid); err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no pending booking found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "cancelled"})
}

// Cancel handles POST /v1/bookings/:id/cancel: cancel a confirmed
// booking, refunding its payment and restoring inventory in one
// transaction. The refund outcome is reported to the caller.
func (h *BookingHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	outcome, refundID, err := h.Cancellations.CancelConfirmed(c.Request().Context(), id, uid)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no confirmed booking found"})
		case errors.Is(err, service.ErrCancellationWindow):
			return c.JSON(http.StatusConflict, echo.Map{"error": "cannot cancel within 24 hours of the event"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
		}
	}

	resp := echo.Map{"status": "cancelled", "refund": string(outcome)}
	if refundID != nil {
		resp["refund_id"] = *refundID
	}
	return c.JSON(http.StatusOK, resp)
}

// ListByEvent handles GET /v1/events/:id/bookings for the event's host
// (or an admin): every confirmed or cancelled booking on the event.
func (h *BookingHandler) ListByEvent(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ev, err := h.EventRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "fetch event failed"})
	}
	if ev.CreatedBy != uid && getRole(c) != model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	items, err := h.BookingRepo.ListByEvent(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "fetch bookings failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"event_id": id, "bookings": items})
}
