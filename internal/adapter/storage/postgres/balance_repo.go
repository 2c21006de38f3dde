package postgres

import (
	"context"
	"errors"
	"fmt"

	"currency-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// BalanceRepo implements ports.BalanceRepository.
type BalanceRepo struct {
	pool Pool
}

// NewBalanceRepo creates a new BalanceRepo.
func NewBalanceRepo(pool Pool) *BalanceRepo {
	return &BalanceRepo{pool: pool}
}

// CreateIfAbsent inserts a balance row for the currency if none exists.
// An existing row keeps its amount, so seeding never resets an advanced
// balance.
func (r *BalanceRepo) CreateIfAbsent(ctx context.Context, b *domain.Balance) error {
	query := `INSERT INTO balances (currency_code, amount)
		VALUES ($1, $2) ON CONFLICT (currency_code) DO NOTHING`

	if _, err := r.pool.Exec(ctx, query, b.Currency, b.Amount); err != nil {
		return fmt.Errorf("insert balance: %w", err)
	}
	return nil
}

// GetByCurrency fetches a balance by currency code (non-locking read).
func (r *BalanceRepo) GetByCurrency(ctx context.Context, currency string) (*domain.Balance, error) {
	query := `SELECT currency_code, amount, created_at, updated_at
		FROM balances WHERE currency_code = $1`

	return scanBalance(r.pool.QueryRow(ctx, query, currency))
}

// GetByCurrencyForUpdate fetches a balance with pessimistic locking.
// This MUST be called within a transaction; the row lock is held until the
// transaction commits or rolls back, blocking other lockers of the same
// currency's balance.
func (r *BalanceRepo) GetByCurrencyForUpdate(ctx context.Context, tx pgx.Tx, currency string) (*domain.Balance, error) {
	query := `SELECT currency_code, amount, created_at, updated_at
		FROM balances WHERE currency_code = $1 FOR UPDATE`

	return scanBalance(tx.QueryRow(ctx, query, currency))
}

// UpdateAmount writes a balance's new amount within a transaction.
func (r *BalanceRepo) UpdateAmount(ctx context.Context, tx pgx.Tx, currency string, amount decimal.Decimal) error {
	query := `UPDATE balances SET amount = $1, updated_at = NOW() WHERE currency_code = $2`

	tag, err := tx.Exec(ctx, query, amount, currency)
	if err != nil {
		return fmt.Errorf("update balance amount: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("balance not found: %s", currency)
	}
	return nil
}

// List returns all balances ordered by currency code.
func (r *BalanceRepo) List(ctx context.Context) ([]domain.Balance, error) {
	query := `SELECT currency_code, amount, created_at, updated_at
		FROM balances ORDER BY currency_code`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	var balances []domain.Balance
	for rows.Next() {
		var b domain.Balance
		if err := rows.Scan(&b.Currency, &b.Amount, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balances: %w", err)
	}
	return balances, nil
}

func scanBalance(row pgx.Row) (*domain.Balance, error) {
	b := &domain.Balance{}
	err := row.Scan(&b.Currency, &b.Amount, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan balance: %w", err)
	}
	return b, nil
}
