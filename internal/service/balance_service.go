package service

import (
	"context"
	"fmt"
	"sort"

	"currency-ledger/internal/core/domain"
	"currency-ledger/internal/core/ports"
	"currency-ledger/pkg/apperror"
)

// BalanceServiceImpl exposes read access to the balance pool.
type BalanceServiceImpl struct {
	balances ports.BalanceRepository
}

// NewBalanceService creates the balance read service.
func NewBalanceService(balances ports.BalanceRepository) *BalanceServiceImpl {
	return &BalanceServiceImpl{balances: balances}
}

// ListBalances returns all balances ordered by currency code. Reads are not
// serialized against in-flight transactions; each row is a committed snapshot.
func (s *BalanceServiceImpl) ListBalances(ctx context.Context) ([]domain.Balance, error) {
	balances, err := s.balances.List(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list balances: %w", err))
	}
	sort.Slice(balances, func(i, j int) bool {
		return balances[i].Currency < balances[j].Currency
	})
	return balances, nil
}
