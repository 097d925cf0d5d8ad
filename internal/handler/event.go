package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/palakgarg19/Happening/internal/cache"
	"github.com/palakgarg19/Happening/internal/model"
	"github.com/palakgarg19/Happening/internal/repository"
	"github.com/palakgarg19/Happening/internal/service"
)

// EventHandler exposes the event catalog and the event-wide
// cancellation cascade.
type EventHandler struct {
	Events        *repository.EventRepo
	Cancellations *service.CancellationService
	Cache         cache.Cache   // may be nil
	CacheTTL      time.Duration // TTL for cached listings
}

// NewEventHandler constructs an EventHandler. evCache may be nil when
// no cache is configured.
func NewEventHandler(events *repository.EventRepo, cancellations *service.CancellationService, evCache cache.Cache, cacheTTL time.Duration) *EventHandler {
	return &EventHandler{Events: events, Cancellations: cancellations, Cache: evCache, CacheTTL: cacheTTL}
}

type createEventReq struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	DateTime     time.Time `json:"date_time"`
	Venue        string    `json:"venue"`
	PriceCents   int64     `json:"price_cents"`
	TotalTickets int       `json:"total_tickets"`
}

// List handles GET /v1/events: upcoming, non-cancelled events. The
// listing is served from cache when present.
func (h *EventHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	if h.Cache != nil {
		if body, ok := h.Cache.Get(ctx, cache.KeyUpcomingEvents); ok {
			return c.JSONBlob(http.StatusOK, body)
		}
	}

	events, err := h.Events.ListUpcoming(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "fetch events failed"})
	}

	body, err := json.Marshal(echo.Map{"events": events})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "fetch events failed"})
	}
	if h.Cache != nil {
		h.Cache.Set(ctx, cache.KeyUpcomingEvents, body, h.CacheTTL)
	}
	return c.JSONBlob(http.StatusOK, body)
}

// Get handles GET /v1/events/:id. Cancelled events read as not found.
func (h *EventHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx := c.Request().Context()

	if h.Cache != nil {
		if body, ok := h.Cache.Get(ctx, cache.EventKey(id)); ok {
			return c.JSONBlob(http.StatusOK, body)
		}
	}

	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "fetch event failed"})
	}
	if ev.IsCancelled {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}

	body, err := json.Marshal(echo.Map{"event": ev})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "fetch event failed"})
	}
	if h.Cache != nil {
		h.Cache.Set(ctx, cache.EventKey(id), body, h.CacheTTL)
	}
	return c.JSONBlob(http.StatusOK, body)
}

// Create handles POST /v1/events for hosts and admins.
func (h *EventHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Venue = strings.TrimSpace(req.Venue)
	switch {
	case req.Title == "" || req.Venue == "":
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and venue are required"})
	case req.DateTime.IsZero() || !req.DateTime.After(time.Now()):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date_time must be in the future"})
	case req.PriceCents < 0:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price_cents must not be negative"})
	case req.TotalTickets <= 0:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "total_tickets must be positive"})
	}

	ev := &model.Event{
		Title:        req.Title,
		Description:  req.Description,
		DateTime:     req.DateTime.UTC(),
		Venue:        req.Venue,
		PriceCents:   req.PriceCents,
		TotalTickets: req.TotalTickets,
		CreatedBy:    uid,
	}
	ctx := c.Request().Context()
	if err := h.Events.Create(ctx, ev); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
	}
	if h.Cache != nil {
		h.Cache.Delete(ctx, cache.KeyUpcomingEvents)
	}
	log.Printf("[event] created id=%d by user=%d tickets=%d", ev.ID, uid, ev.TotalTickets)
	return c.JSON(http.StatusCreated, echo.Map{"event": ev})
}

// Cancel handles POST /v1/events/:id/cancel: cancel the event and
// refund every confirmed booking in a single transaction. Only the
// event's host or an admin may do this.
func (h *EventHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	refunded, err := h.Cancellations.CancelEvent(c.Request().Context(), id, uid, getRole(c))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEventNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, repository.ErrEventCancelled):
			return c.JSON(http.StatusConflict, echo.Map{"error": "event already cancelled"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "cancelled", "refunded_bookings": refunded})
}
