package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/nudge/backend/internal/dto"
)

func (h *Handler) ListDevices(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	devices, err := h.services.Devices.ListByUser(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DeviceListResponse{Devices: devices, Total: len(devices)})
}

func (h *Handler) RegisterDevice(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.RegisterDeviceRequest
	if !bindJSON(c, &req) {
		return
	}
	device, err := h.services.Devices.Register(userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, device)
}

func (h *Handler) ReportLocation(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.ReportLocationRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.services.Devices.ReportLocation(userID, id, req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DeleteDevice(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.services.Devices.Unregister(userID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
