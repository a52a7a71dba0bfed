package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursework-ledger-api/internal/service"
	appErrors "github.com/noah-isme/coursework-ledger-api/pkg/errors"
	"github.com/noah-isme/coursework-ledger-api/pkg/response"
)

// SettingsHandler exposes the global parameter endpoints.
type SettingsHandler struct {
	settings *service.SettingsService
}

// NewSettingsHandler constructs handler.
func NewSettingsHandler(settings *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

type minGradeRequest struct {
	MinPassingGrade int `json:"min_passing_grade"`
}

// Get godoc
// @Summary Get the current ledger settings
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settings [get]
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// UpdateMinPassingGrade godoc
// @Summary Update the minimum passing grade
// @Tags Settings
// @Accept json
// @Produce json
// @Param payload body minGradeRequest true "Threshold payload"
// @Success 204
// @Security BearerAuth
// @Router /settings/min-passing-grade [put]
func (h *SettingsHandler) UpdateMinPassingGrade(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req minGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.settings.UpdateMinPassingGrade(c.Request.Context(), req.MinPassingGrade, claims.Address); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Pause godoc
// @Summary Pause all ledger mutations
// @Tags Settings
// @Produce json
// @Success 204
// @Security BearerAuth
// @Router /settings/pause [post]
func (h *SettingsHandler) Pause(c *gin.Context) {
	h.setPaused(c, h.settings.Pause)
}

// Unpause godoc
// @Summary Resume ledger mutations
// @Tags Settings
// @Produce json
// @Success 204
// @Security BearerAuth
// @Router /settings/unpause [post]
func (h *SettingsHandler) Unpause(c *gin.Context) {
	h.setPaused(c, h.settings.Unpause)
}

func (h *SettingsHandler) setPaused(c *gin.Context, op func(ctx context.Context, actor string) error) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := op(c.Request.Context(), claims.Address); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
