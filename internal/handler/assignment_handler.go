package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursework-ledger-api/internal/middleware"
	"github.com/noah-isme/coursework-ledger-api/internal/models"
	"github.com/noah-isme/coursework-ledger-api/internal/service"
	appErrors "github.com/noah-isme/coursework-ledger-api/pkg/errors"
	"github.com/noah-isme/coursework-ledger-api/pkg/response"
)

// AssignmentHandler exposes the assignment catalog endpoints.
type AssignmentHandler struct {
	catalog *service.CatalogService
}

// NewAssignmentHandler constructs handler.
func NewAssignmentHandler(catalog *service.CatalogService) *AssignmentHandler {
	return &AssignmentHandler{catalog: catalog}
}

// Create godoc
// @Summary Publish a new assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body service.CreateAssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assignment, err := h.catalog.Create(c.Request.Context(), req, claims.Address)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// List godoc
// @Summary List assignments
// @Tags Assignments
// @Produce json
// @Param instructor query string false "Filter by instructor address"
// @Param active query bool false "Filter by active flag"
// @Param kind query string false "Filter by assignment kind"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	filter := models.AssignmentFilter{
		Instructor: c.Query("instructor"),
		Kind:       models.AssignmentKind(c.Query("kind")),
	}
	if raw := c.Query("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &active
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	assignments, pagination, err := h.catalog.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, pagination, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get assignment by id
// @Tags Assignments
// @Produce json
// @Param id path int true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) Get(c *gin.Context) {
	id, err := assignmentIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	assignment, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil, middleware.ExtractMeta(c))
}

// SubmissionCount godoc
// @Summary Get the number of submissions recorded for an assignment
// @Tags Assignments
// @Produce json
// @Param id path int true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/submission-count [get]
func (h *AssignmentHandler) SubmissionCount(c *gin.Context) {
	id, err := assignmentIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	count, err := h.catalog.SubmissionCount(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"assignment_id": id, "submission_count": count}, nil)
}

// Deactivate godoc
// @Summary Deactivate an assignment
// @Tags Assignments
// @Produce json
// @Param id path int true "Assignment ID"
// @Success 204
// @Security BearerAuth
// @Router /assignments/{id}/deactivate [post]
func (h *AssignmentHandler) Deactivate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := assignmentIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.catalog.Deactivate(c.Request.Context(), id, claims.Address); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func assignmentIDParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "assignment id must be a positive integer")
	}
	return id, nil
}
