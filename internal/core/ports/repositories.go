package ports

import (
	"context"

	"currency-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// CurrencyRepository defines persistence operations for currency reference data.
type CurrencyRepository interface {
	// CreateIfAbsent inserts the currency if it does not exist yet (idempotent).
	CreateIfAbsent(ctx context.Context, code string) error
	GetByCode(ctx context.Context, code string) (*domain.Currency, error)
	List(ctx context.Context) ([]domain.Currency, error)
}

// BalanceRepository defines persistence operations for per-currency balances.
// Methods accepting pgx.Tx run inside a unit of work; GetByCurrencyForUpdate
// takes an exclusive row lock held until that unit of work ends.
type BalanceRepository interface {
	// CreateIfAbsent inserts the balance row if the currency has none yet.
	// An existing row keeps its amount (idempotent seeding).
	CreateIfAbsent(ctx context.Context, balance *domain.Balance) error
	GetByCurrency(ctx context.Context, currency string) (*domain.Balance, error)
	GetByCurrencyForUpdate(ctx context.Context, tx pgx.Tx, currency string) (*domain.Balance, error)
	UpdateAmount(ctx context.Context, tx pgx.Tx, currency string, amount decimal.Decimal) error
	List(ctx context.Context) ([]domain.Balance, error)
}

// TransactionRepository defines persistence operations for the immutable
// transaction history. Records are only ever inserted and read.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	List(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}

// TransactionListParams holds filter + pagination for listing transactions.
type TransactionListParams struct {
	Type     *domain.TransactionType
	Currency *string
	Page     int
	PageSize int
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
