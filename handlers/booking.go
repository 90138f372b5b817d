package handlers

import (
	"errors"
	"io"
	"net/http"

	"telecare/middleware"
	"telecare/models"
	"telecare/services/booking"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler exposes the booking lifecycle commands.
type BookingHandler struct {
	Service booking.BookingService
}

func NewBookingHandler(svc booking.BookingService) *BookingHandler {
	return &BookingHandler{Service: svc}
}

func (h *BookingHandler) CreateBookingHandler(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.PatientID = middleware.Actor(c)

	b, err := h.Service.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	getLogger(c).Info("Booking requested", zap.String("bookingID", b.ID))
	c.JSON(http.StatusCreated, b)
}

func (h *BookingHandler) CreateEmergencyHandler(c *gin.Context) {
	var req models.CreateEmergencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.PatientID = middleware.Actor(c)

	b, err := h.Service.CreateEmergency(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *BookingHandler) ConfirmHandler(c *gin.Context) {
	b, err := h.Service.Confirm(c.Request.Context(), c.Param("id"), middleware.Actor(c))
	h.reply(c, b, err)
}

func (h *BookingHandler) RejectHandler(c *gin.Context) {
	var body models.ReasonRequest
	if !bindOptionalJSON(c, &body) {
		return
	}
	b, err := h.Service.Reject(c.Request.Context(), c.Param("id"), middleware.Actor(c), body.Reason)
	h.reply(c, b, err)
}

func (h *BookingHandler) CancelHandler(c *gin.Context) {
	var body models.ReasonRequest
	if !bindOptionalJSON(c, &body) {
		return
	}
	b, err := h.Service.Cancel(c.Request.Context(), c.Param("id"), middleware.Actor(c), body.Reason)
	h.reply(c, b, err)
}

func (h *BookingHandler) InitiateCallHandler(c *gin.Context) {
	b, err := h.Service.InitiateCall(c.Request.Context(), c.Param("id"), middleware.Actor(c))
	h.reply(c, b, err)
}

func (h *BookingHandler) JoinCallHandler(c *gin.Context) {
	resp, err := h.Service.JoinCall(c.Request.Context(), c.Param("id"), middleware.Actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) CompleteHandler(c *gin.Context) {
	b, err := h.Service.Complete(c.Request.Context(), c.Param("id"), middleware.Actor(c))
	h.reply(c, b, err)
}

func (h *BookingHandler) RejectDuringCallHandler(c *gin.Context) {
	b, err := h.Service.RejectDuringCall(c.Request.Context(), c.Param("id"), middleware.Actor(c))
	h.reply(c, b, err)
}

func (h *BookingHandler) GetBookingHandler(c *gin.Context) {
	b, err := h.Service.GetBooking(c.Request.Context(), c.Param("id"))
	h.reply(c, b, err)
}

// StreamBookingHandler pushes a snapshot of the booking on every change.
func (h *BookingHandler) StreamBookingHandler(c *gin.Context) {
	ch, err := h.Service.WatchBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	streamSnapshots(c, "booking", ch)
}

func (h *BookingHandler) reply(c *gin.Context, b *models.Booking, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// bindOptionalJSON accepts an empty body and rejects a malformed one.
func bindOptionalJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return false
	}
	return true
}
