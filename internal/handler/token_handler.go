package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursework-ledger-api/internal/service"
	appErrors "github.com/noah-isme/coursework-ledger-api/pkg/errors"
	"github.com/noah-isme/coursework-ledger-api/pkg/response"
)

// TokenHandler exposes the token ledger endpoints.
type TokenHandler struct {
	tokens *service.TokenService
}

// NewTokenHandler constructs handler.
func NewTokenHandler(tokens *service.TokenService) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

type supplyRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

// Balance godoc
// @Summary Get the token balance of an address
// @Tags Token
// @Produce json
// @Param address path string true "Address"
// @Success 200 {object} response.Envelope
// @Router /token/balances/{address} [get]
func (h *TokenHandler) Balance(c *gin.Context) {
	address := c.Param("address")
	balance, err := h.tokens.BalanceOf(c.Request.Context(), address)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"address": address, "balance": balance}, nil)
}

// Supply godoc
// @Summary Get the total token supply
// @Tags Token
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /token/supply [get]
func (h *TokenHandler) Supply(c *gin.Context) {
	total, err := h.tokens.TotalSupply(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"total_supply": total}, nil)
}

// Mint godoc
// @Summary Mint new tokens onto the treasury account
// @Tags Token
// @Accept json
// @Produce json
// @Param payload body supplyRequest true "Supply payload"
// @Success 204
// @Security BearerAuth
// @Router /token/mint [post]
func (h *TokenHandler) Mint(c *gin.Context) {
	h.supplyOp(c, h.tokens.Mint)
}

// Burn godoc
// @Summary Burn tokens held by the treasury account
// @Tags Token
// @Accept json
// @Produce json
// @Param payload body supplyRequest true "Supply payload"
// @Success 204
// @Security BearerAuth
// @Router /token/burn [post]
func (h *TokenHandler) Burn(c *gin.Context) {
	h.supplyOp(c, h.tokens.Burn)
}

func (h *TokenHandler) supplyOp(c *gin.Context, op func(ctx context.Context, amount int64, actor string) error) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req supplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := op(c.Request.Context(), req.Amount, claims.Address); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
