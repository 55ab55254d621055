package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hanuri-school/registration-api/internal/service"
	appErrors "github.com/hanuri-school/registration-api/pkg/errors"
	"github.com/hanuri-school/registration-api/pkg/response"
)

// StudentHandler exposes student lookup and level confirmation.
type StudentHandler struct {
	students *service.StudentService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students *service.StudentService) *StudentHandler {
	return &StudentHandler{students: students}
}

// Search returns students matching a parent email or partial name.
func (h *StudentHandler) Search(c *gin.Context) {
	students, err := h.students.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// ConfirmLevels updates a student's grade and Korean level.
func (h *StudentHandler) ConfirmLevels(c *gin.Context) {
	var req service.ConfirmLevelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.students.ConfirmLevels(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}
