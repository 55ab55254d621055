package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hanuri-school/registration-api/internal/models"
	"github.com/hanuri-school/registration-api/internal/service"
	appErrors "github.com/hanuri-school/registration-api/pkg/errors"
	"github.com/hanuri-school/registration-api/pkg/response"
)

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// List returns enrollments filtered by student, term and status.
func (h *EnrollmentHandler) List(c *gin.Context) {
	var filter models.EnrollmentFilter
	filter.StudentID = c.Query("studentId")
	if year, err := strconv.Atoi(c.Query("year")); err == nil {
		filter.Year = year
	}
	if term, err := strconv.Atoi(c.Query("term")); err == nil {
		filter.Term = term
	}
	filter.Status = models.EnrollmentStatus(strings.ToUpper(c.Query("status")))

	enrollments, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}

// Create records an enrollment without a capacity check.
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req service.AddEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.enrollments.Add(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Delete removes an enrollment and frees its seat.
func (h *EnrollmentHandler) Delete(c *gin.Context) {
	if err := h.enrollments.Remove(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
