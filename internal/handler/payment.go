package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/palakgarg19/Happening/internal/repository"
	"github.com/palakgarg19/Happening/internal/service"
)

// PaymentHandler exposes gateway order creation and payment
// verification for pending bookings.
type PaymentHandler struct {
	Payments *service.PaymentService
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{Payments: payments}
}

type orderReq struct {
	BookingID uint64 `json:"booking_id"`
}

type verifyReq struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// CreateOrder handles POST /v1/payments/orders: register a gateway
// order for a pending booking the caller owns.
func (h *PaymentHandler) CreateOrder(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req orderReq
	if err := c.Bind(&req); err != nil || req.BookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_id required"})
	}

	order, err := h.Payments.CreateOrder(c.Request().Context(), req.BookingID, uid)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no pending booking found"})
		}
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "order creation failed"})
	}
	return c.JSON(http.StatusCreated, order)
}

// ResumeOrder handles POST /v1/payments/orders/resume: issue a fresh
// gateway order for a pending booking whose earlier checkout was
// abandoned. The payment row is re-pointed at the new order.
func (h *PaymentHandler) ResumeOrder(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req orderReq
	if err := c.Bind(&req); err != nil || req.BookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_id required"})
	}

	order, err := h.Payments.ResumeOrder(c.Request().Context(), req.BookingID, uid)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no pending booking found"})
		}
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "order creation failed"})
	}
	return c.JSON(http.StatusCreated, order)
}

// Verify handles POST /v1/payments/verify: check the checkout signature
// and, when it holds, confirm the booking and mark the payment
// succeeded in one transaction.
func (h *PaymentHandler) Verify(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order_id/payment_id/signature required"})
	}

	err := h.Payments.Verify(c.Request().Context(), req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSignatureMismatch):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment verification failed"})
		case errors.Is(err, repository.ErrPaymentNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no pending payment for this order"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verification failed"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "confirmed"})
}

// Status handles GET /v1/payments/status/:booking_id for the booking's
// owner.
func (h *PaymentHandler) Status(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c, "booking_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	st, err := h.Payments.Status(c.Request().Context(), bookingID, uid)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no payment for this booking"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "fetch payment failed"})
	}
	return c.JSON(http.StatusOK, st)
}

// RefundStatus handles GET /v1/refunds/:refund_id: the gateway's view
// of the refund, with the local record reconciled when it lags.
func (h *PaymentHandler) RefundStatus(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	refundID := strings.TrimSpace(c.Param("refund_id"))
	if refundID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refund id required"})
	}

	details, err := h.Payments.RefundStatus(c.Request().Context(), refundID, uid)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "refund not found"})
		}
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "fetch refund failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"refund": details})
}
