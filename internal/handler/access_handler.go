package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursework-ledger-api/internal/models"
	"github.com/noah-isme/coursework-ledger-api/internal/service"
	appErrors "github.com/noah-isme/coursework-ledger-api/pkg/errors"
	"github.com/noah-isme/coursework-ledger-api/pkg/response"
)

// AccessHandler exposes capability management endpoints.
type AccessHandler struct {
	access *service.AccessService
}

// NewAccessHandler constructs handler.
func NewAccessHandler(access *service.AccessService) *AccessHandler {
	return &AccessHandler{access: access}
}

type roleRequest struct {
	Capability models.Capability `json:"capability" binding:"required"`
	Address    string            `json:"address" binding:"required"`
}

type transferOwnershipRequest struct {
	NewOwner string `json:"new_owner" binding:"required"`
}

// Grant godoc
// @Summary Grant a capability to an address
// @Tags Roles
// @Accept json
// @Produce json
// @Param payload body roleRequest true "Role payload"
// @Success 204
// @Security BearerAuth
// @Router /roles/grant [post]
func (h *AccessHandler) Grant(c *gin.Context) {
	h.mutate(c, h.access.Grant)
}

// Revoke godoc
// @Summary Revoke a capability from an address
// @Tags Roles
// @Accept json
// @Produce json
// @Param payload body roleRequest true "Role payload"
// @Success 204
// @Security BearerAuth
// @Router /roles/revoke [post]
func (h *AccessHandler) Revoke(c *gin.Context) {
	h.mutate(c, h.access.Revoke)
}

// TransferOwnership godoc
// @Summary Transfer the owner capability to another address
// @Tags Roles
// @Accept json
// @Produce json
// @Param payload body transferOwnershipRequest true "Transfer payload"
// @Success 204
// @Security BearerAuth
// @Router /roles/transfer-ownership [post]
func (h *AccessHandler) TransferOwnership(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req transferOwnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.access.TransferOwnership(c.Request.Context(), req.NewOwner, claims.Address); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Check godoc
// @Summary Check whether an address holds a capability
// @Tags Roles
// @Produce json
// @Param capability path string true "Capability"
// @Param address path string true "Address"
// @Success 200 {object} response.Envelope
// @Router /roles/{capability}/{address} [get]
func (h *AccessHandler) Check(c *gin.Context) {
	capability := models.Capability(c.Param("capability"))
	address := c.Param("address")
	held, err := h.access.Check(c.Request.Context(), capability, address)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"capability": capability, "address": address, "held": held}, nil)
}

// List godoc
// @Summary List addresses holding a capability
// @Tags Roles
// @Produce json
// @Param capability path string true "Capability"
// @Success 200 {object} response.Envelope
// @Router /roles/{capability} [get]
func (h *AccessHandler) List(c *gin.Context) {
	grants, err := h.access.List(c.Request.Context(), models.Capability(c.Param("capability")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grants, nil)
}

func (h *AccessHandler) mutate(c *gin.Context, op func(ctx context.Context, capability models.Capability, address, actor string) error) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := op(c.Request.Context(), req.Capability, req.Address, claims.Address); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
