package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hanuri-school/registration-api/internal/service"
	appErrors "github.com/hanuri-school/registration-api/pkg/errors"
	"github.com/hanuri-school/registration-api/pkg/response"
)

// ScheduleHandler exposes registration window endpoints. Listing carries the
// server clock in the response meta so clients can gate on server time.
type ScheduleHandler struct {
	schedules *service.ScheduleService
}

// NewScheduleHandler constructs ScheduleHandler.
func NewScheduleHandler(schedules *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

// List returns every registration window plus the server time.
func (h *ScheduleHandler) List(c *gin.Context) {
	windows, serverNow, err := h.schedules.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := map[string]interface{}{"server_time": serverNow.Format(time.RFC3339Nano)}
	response.JSON(c, http.StatusOK, windows, nil, meta)
}

// Create adds a registration window.
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req service.SaveWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	window, err := h.schedules.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, window)
}

// Update modifies a registration window.
func (h *ScheduleHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid window id"))
		return
	}
	var req service.SaveWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	window, err := h.schedules.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, window, nil)
}
