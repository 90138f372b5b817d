package handlers

import (
	"net/http"

	deviceRepo "telecare/database/repository/device"
	"telecare/middleware"

	"github.com/gin-gonic/gin"
)

// DeviceHandler registers the push token of the acting user's device.
type DeviceHandler struct {
	Devices deviceRepo.DeviceRepository
}

func NewDeviceHandler(devices deviceRepo.DeviceRepository) *DeviceHandler {
	return &DeviceHandler{Devices: devices}
}

func (h *DeviceHandler) SaveTokenHandler(c *gin.Context) {
	var body struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Devices.SaveToken(c.Request.Context(), middleware.Actor(c), body.Token); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
