package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hanuri-school/registration-api/internal/models"
	"github.com/hanuri-school/registration-api/internal/service"
	"github.com/hanuri-school/registration-api/pkg/response"
)

// OfferingHandler exposes the class catalog.
type OfferingHandler struct {
	catalog *service.CatalogService
}

// NewOfferingHandler constructs OfferingHandler.
func NewOfferingHandler(catalog *service.CatalogService) *OfferingHandler {
	return &OfferingHandler{catalog: catalog}
}

// List returns the offerings for a term with live seat counts.
func (h *OfferingHandler) List(c *gin.Context) {
	var filter models.OfferingFilter
	if year, err := strconv.Atoi(c.Query("year")); err == nil {
		filter.Year = year
	}
	if term, err := strconv.Atoi(c.Query("term")); err == nil {
		filter.Term = term
	}
	offerings, err := h.catalog.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offerings, nil)
}
