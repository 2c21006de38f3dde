package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"currency-ledger/internal/core/domain"
	"currency-ledger/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Seeder bootstraps the currency reference data and opening balances on
// startup. Seeding is idempotent: currencies and balances that already exist
// are left untouched, so restarting the service never resets amounts.
type Seeder struct {
	currencies ports.CurrencyRepository
	balances   ports.BalanceRepository
	log        zerolog.Logger
}

// NewSeeder creates a startup seeder.
func NewSeeder(currencies ports.CurrencyRepository, balances ports.BalanceRepository, log zerolog.Logger) *Seeder {
	return &Seeder{
		currencies: currencies,
		balances:   balances,
		log:        log.With().Str("component", "seeder").Logger(),
	}
}

// Seed ensures a currency row and a balance row exist for every entry in
// seed (currency code to opening amount, as a decimal string).
func (s *Seeder) Seed(ctx context.Context, seed map[string]string) error {
	codes := make([]string, 0, len(seed))
	for code := range seed {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		amount, err := decimal.NewFromString(seed[code])
		if err != nil {
			return fmt.Errorf("seed amount for %s: %w", code, err)
		}
		if amount.IsNegative() {
			return fmt.Errorf("seed amount for %s is negative", code)
		}

		if err := s.currencies.CreateIfAbsent(ctx, code); err != nil {
			return fmt.Errorf("seed currency %s: %w", code, err)
		}

		now := time.Now().UTC()
		balance := &domain.Balance{
			Currency:  code,
			Amount:    amount.RoundBank(2),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.balances.CreateIfAbsent(ctx, balance); err != nil {
			return fmt.Errorf("seed balance %s: %w", code, err)
		}

		s.log.Info().
			Str("currency", code).
			Str("opening_amount", balance.Amount.String()).
			Msg("currency seeded")
	}
	return nil
}
