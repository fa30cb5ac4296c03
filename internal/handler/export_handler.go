package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Anshuhim02/student-result-api/internal/service"
	appErrors "github.com/Anshuhim02/student-result-api/pkg/errors"
	"github.com/Anshuhim02/student-result-api/pkg/response"
)

// ExportHandler serves downloadable exports of a user's results.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler creates a new handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// ExportCSV godoc
// @Summary Export results as CSV
// @Description Download all of the owner's results as my_results.csv, newest first
// @Tags Export
// @Produce text/csv
// @Success 200 {string} string "CSV file"
// @Failure 401 {object} response.Envelope
// @Router /results/export/csv [get]
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	payload, err := h.service.ExportCSV(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", service.CSVFilename))
	c.Data(http.StatusOK, "text/csv", payload)
}

// ExportPDF godoc
// @Summary Export one result as a marksheet PDF
// @Tags Export
// @Produce application/pdf
// @Param id path string true "Result ID"
// @Success 200 {string} string "PDF file"
// @Failure 404 {object} response.Envelope
// @Router /results/{id}/pdf [get]
func (h *ExportHandler) ExportPDF(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	payload, filename, err := h.service.ExportMarksheetPDF(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/pdf", payload)
}
