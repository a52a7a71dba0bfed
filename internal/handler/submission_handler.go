package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursework-ledger-api/internal/service"
	appErrors "github.com/noah-isme/coursework-ledger-api/pkg/errors"
	"github.com/noah-isme/coursework-ledger-api/pkg/response"
)

// SubmissionHandler exposes submission and grading endpoints.
type SubmissionHandler struct {
	submissions *service.SubmissionService
}

// NewSubmissionHandler constructs handler.
func NewSubmissionHandler(submissions *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions}
}

type submitRequest struct {
	ContentRef string `json:"content_ref" binding:"required"`
}

type gradeRequest struct {
	Grade       int    `json:"grade"`
	FeedbackRef string `json:"feedback_ref"`
}

// Submit godoc
// @Summary Submit work for an assignment
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path int true "Assignment ID"
// @Param payload body submitRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/{id}/submissions [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
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
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	submission, err := h.submissions.Submit(c.Request.Context(), id, req.ContentRef, claims.Address)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}

// Grade godoc
// @Summary Record a grade for a submission
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path int true "Assignment ID"
// @Param student path string true "Student address"
// @Param payload body gradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/{id}/submissions/{student}/grade [post]
func (h *SubmissionHandler) Grade(c *gin.Context) {
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
	var req gradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	submission, err := h.submissions.Grade(c.Request.Context(), id, c.Param("student"), req.Grade, req.FeedbackRef, claims.Address)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// Get godoc
// @Summary Get a submission
// @Tags Submissions
// @Produce json
// @Param id path int true "Assignment ID"
// @Param student path string true "Student address"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/submissions/{student} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	id, err := assignmentIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	submission, err := h.submissions.Get(c.Request.Context(), id, c.Param("student"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// Eligibility godoc
// @Summary Report reward eligibility for a submission
// @Tags Submissions
// @Produce json
// @Param id path int true "Assignment ID"
// @Param student path string true "Student address"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/submissions/{student}/eligibility [get]
func (h *SubmissionHandler) Eligibility(c *gin.Context) {
	id, err := assignmentIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	eligibility, err := h.submissions.Eligibility(c.Request.Context(), id, c.Param("student"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, eligibility, nil)
}

// StudentHistory godoc
// @Summary List assignment ids a student has submitted to
// @Tags Submissions
// @Produce json
// @Param address path string true "Student address"
// @Success 200 {object} response.Envelope
// @Router /students/{address}/submissions [get]
func (h *SubmissionHandler) StudentHistory(c *gin.Context) {
	ids, err := h.submissions.ListStudentAssignments(c.Request.Context(), c.Param("address"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"student": c.Param("address"), "assignment_ids": ids}, nil)
}

// Balance godoc
// @Summary Get a student's accrued reward balance
// @Tags Submissions
// @Produce json
// @Param address path string true "Student address"
// @Success 200 {object} response.Envelope
// @Router /students/{address}/balance [get]
func (h *SubmissionHandler) Balance(c *gin.Context) {
	balance, err := h.submissions.Balance(c.Request.Context(), c.Param("address"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, balance, nil)
}
