package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hanuri-school/registration-api/internal/service"
	appErrors "github.com/hanuri-school/registration-api/pkg/errors"
	"github.com/hanuri-school/registration-api/pkg/response"
)

// RegistrationHandler exposes the public session and conditional enrollment
// endpoints used during the registration window.
type RegistrationHandler struct {
	sessions    *service.RegistrationService
	enrollments *service.EnrollmentService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(sessions *service.RegistrationService, enrollments *service.EnrollmentService) *RegistrationHandler {
	return &RegistrationHandler{sessions: sessions, enrollments: enrollments}
}

// StartSession opens a session for a parent email.
func (h *RegistrationHandler) StartSession(c *gin.Context) {
	var req service.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	session, err := h.sessions.StartSession(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

type sessionKeyRequest struct {
	SessionKey string `json:"session_key" binding:"required"`
}

// CheckSession reports the caller's queue position.
func (h *RegistrationHandler) CheckSession(c *gin.Context) {
	var req sessionKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	position, err := h.sessions.CheckSession(c.Request.Context(), req.SessionKey)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"position": position}, nil)
}

// EndSession releases the caller's queue slot.
func (h *RegistrationHandler) EndSession(c *gin.Context) {
	var req sessionKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.sessions.EndSession(c.Request.Context(), req.SessionKey); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ConditionalEnroll claims a seat atomically. A full class answers 409 with
// the SEAT_UNAVAILABLE code.
func (h *RegistrationHandler) ConditionalEnroll(c *gin.Context) {
	var req service.AddEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.enrollments.ConditionalAdd(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}
