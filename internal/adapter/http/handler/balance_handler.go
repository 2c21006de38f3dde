package handler

import (
	"currency-ledger/internal/adapter/http/dto"
	"currency-ledger/internal/core/ports"
	"currency-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// BalanceHandler handles balance reporting endpoints.
type BalanceHandler struct {
	balanceSvc ports.BalanceService
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(balanceSvc ports.BalanceService) *BalanceHandler {
	return &BalanceHandler{balanceSvc: balanceSvc}
}

// List handles GET /api/v1/balances.
func (h *BalanceHandler) List(c *gin.Context) {
	balances, err := h.balanceSvc.ListBalances(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.BalanceResponse, 0, len(balances))
	for i := range balances {
		items = append(items, dto.FromBalance(&balances[i]))
	}
	response.OK(c, dto.BalanceListResponse{Items: items})
}
