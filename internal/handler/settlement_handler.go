package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursework-ledger-api/internal/service"
	appErrors "github.com/noah-isme/coursework-ledger-api/pkg/errors"
	"github.com/noah-isme/coursework-ledger-api/pkg/response"
)

// SettlementHandler exposes reward claim and treasury endpoints.
type SettlementHandler struct {
	settlement *service.SettlementService
}

// NewSettlementHandler constructs handler.
func NewSettlementHandler(settlement *service.SettlementService) *SettlementHandler {
	return &SettlementHandler{settlement: settlement}
}

type claimRequest struct {
	AssignmentID int64 `json:"assignment_id" binding:"required"`
}

type claimBatchRequest struct {
	AssignmentIDs []int64 `json:"assignment_ids" binding:"required"`
}

type treasuryRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

// Claim godoc
// @Summary Claim the reward for a passed submission
// @Tags Claims
// @Accept json
// @Produce json
// @Param payload body claimRequest true "Claim payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /claims [post]
func (h *SettlementHandler) Claim(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	amount, err := h.settlement.Claim(c.Request.Context(), req.AssignmentID, claims.Address)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"assignment_id": req.AssignmentID, "student": claims.Address, "amount": amount}, nil)
}

// ClaimBatch godoc
// @Summary Claim rewards across several assignments in one settlement
// @Tags Claims
// @Accept json
// @Produce json
// @Param payload body claimBatchRequest true "Batch claim payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /claims/batch [post]
func (h *SettlementHandler) ClaimBatch(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req claimBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	total, claimed, err := h.settlement.ClaimBatch(c.Request.Context(), req.AssignmentIDs, claims.Address)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"student": claims.Address, "total_amount": total, "claimed_assignment_ids": claimed}, nil)
}

// Deposit godoc
// @Summary Move tokens from the caller into the treasury float
// @Tags Treasury
// @Accept json
// @Produce json
// @Param payload body treasuryRequest true "Deposit payload"
// @Success 204
// @Security BearerAuth
// @Router /treasury/deposit [post]
func (h *SettlementHandler) Deposit(c *gin.Context) {
	h.treasuryOp(c, h.settlement.Deposit)
}

// Withdraw godoc
// @Summary Drain tokens from the treasury back to the owner
// @Tags Treasury
// @Accept json
// @Produce json
// @Param payload body treasuryRequest true "Withdraw payload"
// @Success 204
// @Security BearerAuth
// @Router /treasury/withdraw [post]
func (h *SettlementHandler) Withdraw(c *gin.Context) {
	h.treasuryOp(c, h.settlement.EmergencyWithdraw)
}

func (h *SettlementHandler) treasuryOp(c *gin.Context, op func(ctx context.Context, amount int64, actor string) error) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req treasuryRequest
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
