package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Anshuhim02/student-result-api/internal/dto"
	"github.com/Anshuhim02/student-result-api/internal/models"
	"github.com/Anshuhim02/student-result-api/internal/service"
	appErrors "github.com/Anshuhim02/student-result-api/pkg/errors"
	"github.com/Anshuhim02/student-result-api/pkg/response"
)

// ResultHandler wires HTTP endpoints to the result service.
type ResultHandler struct {
	service *service.ResultService
}

// NewResultHandler creates a new handler.
func NewResultHandler(svc *service.ResultService) *ResultHandler {
	return &ResultHandler{service: svc}
}

// List godoc
// @Summary List results with stats
// @Description Dashboard: the owner's results filtered by student name, sorted by percentage, with aggregate stats
// @Tags Results
// @Produce json
// @Param search query string false "Student name substring"
// @Param sort query string false "asc or desc (default desc)"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /results [get]
func (h *ResultHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.ResultFilter{
		Search: c.Query("search"),
		Sort:   c.DefaultQuery("sort", models.SortDescending),
	}

	payload, err := h.service.List(c.Request.Context(), claims.UserID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, payload)
}

// Create godoc
// @Summary Add a result
// @Description Create a result from a multipart form with per-subject marks and an optional marksheet image
// @Tags Results
// @Accept multipart/form-data
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /results [post]
func (h *ResultHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var form dto.ResultForm
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid result payload"))
		return
	}

	image, cleanup, err := uploadFromForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer cleanup()

	detail, err := h.service.Create(c.Request.Context(), claims.UserID, form, image)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, detail)
}

// Get godoc
// @Summary View one result
// @Tags Results
// @Produce json
// @Param id path string true "Result ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /results/{id} [get]
func (h *ResultHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.service.Get(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail)
}

// Update godoc
// @Summary Edit a result
// @Description Overwrite a result's fields and replace its subject rows wholesale
// @Tags Results
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Result ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /results/{id} [put]
func (h *ResultHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var form dto.ResultForm
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid result payload"))
		return
	}

	image, cleanup, err := uploadFromForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer cleanup()

	detail, err := h.service.Update(c.Request.Context(), claims.UserID, c.Param("id"), form, image)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail)
}

// Delete godoc
// @Summary Delete a result
// @Description Remove a result, its subject rows and any stored image
// @Tags Results
// @Produce json
// @Param id path string true "Result ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /results/{id} [delete]
func (h *ResultHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// uploadFromForm extracts the optional image file from the multipart form.
// A request without a file is not an error.
func uploadFromForm(c *gin.Context) (*service.Upload, func(), error) {
	noop := func() {}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		if err == http.ErrMissingFile || err == http.ErrNotMultipart {
			return nil, noop, nil
		}
		return nil, noop, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid image upload")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, noop, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to read image upload")
	}

	upload := &service.Upload{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		Reader:   file,
	}
	return upload, func() { _ = file.Close() }, nil
}
