package handler

import (
	"context"
	"math"
	"strconv"

	"currency-ledger/internal/adapter/http/dto"
	"currency-ledger/internal/core/domain"
	"currency-ledger/internal/core/ports"
	"currency-ledger/pkg/apperror"
	"currency-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// TransactionHandler handles the transaction endpoints.
type TransactionHandler struct {
	txSvc ports.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(txSvc ports.TransactionService) *TransactionHandler {
	return &TransactionHandler{txSvc: txSvc}
}

// Conversion handles POST /api/v1/transactions/conversion.
func (h *TransactionHandler) Conversion(c *gin.Context) {
	h.process(c, h.txSvc.ProcessConversion)
}

// ServiceSpend handles POST /api/v1/transactions/service-spend.
func (h *TransactionHandler) ServiceSpend(c *gin.Context) {
	h.process(c, h.txSvc.ProcessServiceSpend)
}

// AccountTopup handles POST /api/v1/transactions/account-topup.
func (h *TransactionHandler) AccountTopup(c *gin.Context) {
	h.process(c, h.txSvc.ProcessAccountTopup)
}

// process is the shared request pipeline: bind, parse decimals, run the
// service operation, render the committed transaction.
func (h *TransactionHandler) process(c *gin.Context, run func(context.Context, ports.TransactionInput) (*domain.Transaction, error)) {
	var req dto.TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	in, appErr := req.ToInput()
	if appErr != nil {
		response.Error(c, appErr)
		return
	}

	txn, err := run(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromTransaction(txn))
}

// List handles GET /api/v1/transactions.
func (h *TransactionHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	params := ports.TransactionListParams{
		Page:     page,
		PageSize: pageSize,
	}
	if t := c.Query("type"); t != "" {
		txType := domain.TransactionType(t)
		switch txType {
		case domain.TransactionTypeConversion, domain.TransactionTypeServiceSpend, domain.TransactionTypeAccountTopup:
			params.Type = &txType
		default:
			response.Error(c, apperror.FieldValidation(map[string]string{
				"type": "type must be one of conversion, service_spend or account_topup.",
			}))
			return
		}
	}
	if cur := c.Query("currency_id"); cur != "" {
		params.Currency = &cur
	}

	txns, total, err := h.txSvc.ListTransactions(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, dto.FromTransaction(&txns[i]))
	}

	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))

	response.OK(c, dto.TransactionListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}
