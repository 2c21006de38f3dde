package ports

import (
	"context"

	"currency-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
)

// TransactionInput holds validated, parsed input for one transaction request.
// The transaction type is implied by the endpoint and supplied by the caller
// of the service method, not by the client payload.
type TransactionInput struct {
	Amount        decimal.Decimal
	Currency      string
	GrossCurrency *string
	ExchangeRate  *decimal.Decimal
}

// TransactionService is the transaction orchestrator: it validates input,
// runs the balance-mutation rules inside one unit of work and persists the
// transaction record, committing all or nothing.
type TransactionService interface {
	ProcessConversion(ctx context.Context, in TransactionInput) (*domain.Transaction, error)
	ProcessServiceSpend(ctx context.Context, in TransactionInput) (*domain.Transaction, error)
	ProcessAccountTopup(ctx context.Context, in TransactionInput) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}

// BalanceService exposes read access to the current balance pool.
type BalanceService interface {
	ListBalances(ctx context.Context) ([]domain.Balance, error)
}
