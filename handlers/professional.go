package handlers

import (
	"net/http"

	"telecare/middleware"
	"telecare/models"
	"telecare/services/availability"
	"telecare/services/booking"
	"telecare/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProfessionalHandler serves availability, queue and presence endpoints.
type ProfessionalHandler struct {
	Availability availability.AvailabilityService
	Bookings     booking.BookingService
}

func NewProfessionalHandler(avail availability.AvailabilityService, bookings booking.BookingService) *ProfessionalHandler {
	return &ProfessionalHandler{Availability: avail, Bookings: bookings}
}

func (h *ProfessionalHandler) GetSlotsHandler(c *gin.Context) {
	resp, err := h.Bookings.GetAvailableSlots(c.Request.Context(), c.Param("id"), c.Query("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProfessionalHandler) GetQueueHandler(c *gin.Context) {
	queue, err := h.Bookings.GetQueue(c.Request.Context(), c.Param("id"), c.Query("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	if queue == nil {
		queue = []models.Booking{}
	}
	c.JSON(http.StatusOK, gin.H{"professionalId": c.Param("id"), "date": c.Query("date"), "queue": queue})
}

func (h *ProfessionalHandler) StreamQueueHandler(c *gin.Context) {
	ch, err := h.Bookings.WatchQueue(c.Request.Context(), c.Param("id"), c.Query("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	streamSnapshots(c, "queue", ch)
}

func (h *ProfessionalHandler) GetAvailabilityHandler(c *gin.Context) {
	entries, err := h.Availability.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"availability": entries})
}

func (h *ProfessionalHandler) SetAvailabilityHandler(c *gin.Context) {
	if !h.ownProfile(c) {
		return
	}
	var req models.SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	entries, err := h.Availability.SetTemplate(c.Request.Context(), c.Param("id"), req.Availability)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"availability": entries})
}

func (h *ProfessionalHandler) SetStatusHandler(c *gin.Context) {
	if !h.ownProfile(c) {
		return
	}
	var req models.ProfessionalStatusUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.Availability.SetStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	getLogger(c).Info("Professional presence updated",
		zap.String("professionalID", p.ID), zap.Bool("online", p.Online), zap.Bool("acceptsEmergency", p.AcceptsEmergency))
	c.JSON(http.StatusOK, p)
}

// UpsertProfileHandler registers or updates the acting professional's profile.
func (h *ProfessionalHandler) UpsertProfileHandler(c *gin.Context) {
	if !h.ownProfile(c) {
		return
	}
	var req models.Professional
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.ID = c.Param("id")
	p, err := h.Availability.RegisterProfessional(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProfessionalHandler) ownProfile(c *gin.Context) bool {
	if middleware.Actor(c) != c.Param("id") {
		utils.JSONError(c, http.StatusForbidden, string(booking.CodeUnauthorized), "professionals may only change their own profile")
		return false
	}
	return true
}
