package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"currency-ledger/internal/core/domain"
	"currency-ledger/internal/core/ports"
	"currency-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Engine is the conversion/spend/topup rules engine. Given a transaction it
// decides which balances are locked, validated and adjusted. The supported
// currency set and the base currency are injected configuration, not
// literals in the logic.
//
// Balance mutations are quantized to 2 fractional digits using banker's
// rounding (round half to even).
type Engine struct {
	balances ports.BalanceRepository
	allowed  map[string]struct{}
	base     string
}

// NewEngine creates a rules engine with the given currency policy.
// Currency codes are matched case-insensitively; baseCurrency is the
// required primary currency for service_spend and account_topup.
func NewEngine(balances ports.BalanceRepository, allowedCurrencies []string, baseCurrency string) *Engine {
	allowed := make(map[string]struct{}, len(allowedCurrencies))
	for _, code := range allowedCurrencies {
		allowed[strings.ToUpper(code)] = struct{}{}
	}
	return &Engine{
		balances: balances,
		allowed:  allowed,
		base:     strings.ToUpper(baseCurrency),
	}
}

// Validate applies the shared precondition checks for a transaction of the
// given type. It returns a field-keyed validation error, or nil when the
// input is acceptable. Currency codes in the input must already be
// normalized to upper case.
func (e *Engine) Validate(txType domain.TransactionType, in ports.TransactionInput) *apperror.AppError {
	fields := make(map[string]string)

	if in.Amount.LessThanOrEqual(decimal.Zero) {
		fields["sum"] = "sum must be greater than 0."
	}

	if in.Currency != "" {
		if _, ok := e.allowed[in.Currency]; !ok {
			fields["currency_id"] = e.unsupportedMessage()
		}
	} else {
		fields["currency_id"] = "currency_id is required."
	}

	if in.GrossCurrency != nil {
		if _, ok := e.allowed[*in.GrossCurrency]; !ok {
			fields["gross_currency_id"] = e.unsupportedMessage()
		}
	}

	if in.ExchangeRate != nil && in.ExchangeRate.LessThanOrEqual(decimal.Zero) {
		fields["exchange_rate"] = "exchange_rate must be greater than 0."
	}

	// service_spend and account_topup are restricted to the base currency;
	// their optional exchange leg must come from a non-base currency.
	if txType == domain.TransactionTypeServiceSpend || txType == domain.TransactionTypeAccountTopup {
		if in.Currency != "" && in.Currency != e.base {
			fields["currency_id"] = fmt.Sprintf("currency_id must be %s.", e.base)
		}
		if in.GrossCurrency != nil && *in.GrossCurrency == e.base {
			fields["gross_currency_id"] = fmt.Sprintf("gross_currency_id must not be %s.", e.base)
		}
	}

	hasGross := in.GrossCurrency != nil
	hasRate := in.ExchangeRate != nil
	if hasGross != hasRate {
		fields["gross_currency_id"] = "gross_currency_id and exchange_rate must be provided together."
	}

	if txType == domain.TransactionTypeConversion {
		if !hasGross || !hasRate {
			fields["gross_currency_id"] = "gross_currency_id and exchange_rate are required for conversion."
		} else if in.Currency == *in.GrossCurrency {
			fields["gross_currency_id"] = "currency_id and gross_currency_id must be different for conversion."
		}
	}

	if len(fields) > 0 {
		return apperror.FieldValidation(fields)
	}
	return nil
}

// Apply runs the balance reads, locks, arithmetic and mutations for the
// transaction inside the given unit of work. Any returned error must abort
// the whole unit of work.
func (e *Engine) Apply(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error {
	switch txn.Type {
	case domain.TransactionTypeConversion:
		return e.applyConversion(ctx, tx, txn)
	case domain.TransactionTypeServiceSpend:
		return e.applyServiceSpend(ctx, tx, txn)
	case domain.TransactionTypeAccountTopup:
		return e.applyAccountTopup(ctx, tx, txn)
	default:
		return apperror.Validation(fmt.Sprintf("unknown transaction type %q", txn.Type))
	}
}

// applyConversion withdraws round(sum * rate, 2) from the gross-currency
// balance and deposits sum into the primary-currency balance.
func (e *Engine) applyConversion(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error {
	source, target, err := e.lockPair(ctx, tx, *txn.GrossCurrency, txn.Currency)
	if err != nil {
		return err
	}

	if err := e.withdrawGross(ctx, tx, source, txn); err != nil {
		return err
	}
	return e.credit(ctx, tx, target, txn.Amount)
}

// applyServiceSpend debits a balance for a purchased service. With an
// exchange leg only the gross balance is debited; the primary balance is
// deliberately not credited: the money leaves the system.
func (e *Engine) applyServiceSpend(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error {
	if txn.HasExchange() {
		source, err := e.lockBalance(ctx, tx, *txn.GrossCurrency)
		if err != nil {
			return err
		}
		return e.withdrawGross(ctx, tx, source, txn)
	}

	balance, err := e.lockBalance(ctx, tx, txn.Currency)
	if err != nil {
		return err
	}

	spend := txn.Amount.RoundBank(2)
	if spend.LessThanOrEqual(decimal.Zero) {
		return apperror.FieldValidation(map[string]string{"sum": "sum must be greater than 0."})
	}
	if balance.Amount.LessThan(spend) {
		return apperror.ErrInsufficientFunds()
	}
	return e.debit(ctx, tx, balance, spend)
}

// applyAccountTopup credits the primary-currency balance, funded either by
// the rounded sum directly or by a conversion-withdrawal from the gross
// balance.
func (e *Engine) applyAccountTopup(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error {
	if txn.HasExchange() {
		source, target, err := e.lockPair(ctx, tx, *txn.GrossCurrency, txn.Currency)
		if err != nil {
			return err
		}
		if err := e.withdrawGross(ctx, tx, source, txn); err != nil {
			return err
		}
		return e.credit(ctx, tx, target, txn.Amount)
	}

	target, err := e.lockBalance(ctx, tx, txn.Currency)
	if err != nil {
		return err
	}

	amount := txn.Amount.RoundBank(2)
	if amount.LessThanOrEqual(decimal.Zero) {
		return apperror.FieldValidation(map[string]string{"sum": "sum must be greater than 0."})
	}
	return e.credit(ctx, tx, target, amount)
}

// withdrawGross performs the conversion-withdrawal half shared by all three
// operations: it validates the computed gross amount against the locked
// source balance and debits it.
func (e *Engine) withdrawGross(ctx context.Context, tx pgx.Tx, source *domain.Balance, txn *domain.Transaction) error {
	grossAmount := txn.GrossAmount()
	if grossAmount.LessThanOrEqual(decimal.Zero) {
		return apperror.ErrInsufficientFunds()
	}
	if source.Amount.LessThan(grossAmount) {
		return apperror.ErrInsufficientFunds()
	}
	return e.debit(ctx, tx, source, grossAmount)
}

// lockBalance acquires the exclusive row lock on one currency's balance for
// the rest of the unit of work. A missing balance row is a rejected request:
// currencies must be pre-seeded.
func (e *Engine) lockBalance(ctx context.Context, tx pgx.Tx, currency string) (*domain.Balance, error) {
	balance, err := e.balances.GetByCurrencyForUpdate(ctx, tx, currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock balance %s: %w", currency, err))
	}
	if balance == nil {
		return nil, apperror.ErrBalanceNotFound(currency)
	}
	return balance, nil
}

// lockPair locks two balances in ascending currency-code order. One fixed
// global order across all code paths that touch two balances means two
// opposite-direction conversions cannot deadlock. Results are returned in
// the (first, second) order requested by the caller.
func (e *Engine) lockPair(ctx context.Context, tx pgx.Tx, first, second string) (*domain.Balance, *domain.Balance, error) {
	ordered := []string{first, second}
	sort.Strings(ordered)

	locked := make(map[string]*domain.Balance, 2)
	for _, currency := range ordered {
		b, err := e.lockBalance(ctx, tx, currency)
		if err != nil {
			return nil, nil, err
		}
		locked[currency] = b
	}
	return locked[first], locked[second], nil
}

func (e *Engine) debit(ctx context.Context, tx pgx.Tx, balance *domain.Balance, amount decimal.Decimal) error {
	if err := balance.Change(amount, true); err != nil {
		return apperror.ErrInsufficientFunds()
	}
	return e.persist(ctx, tx, balance)
}

func (e *Engine) credit(ctx context.Context, tx pgx.Tx, balance *domain.Balance, amount decimal.Decimal) error {
	if err := balance.Change(amount, false); err != nil {
		return apperror.FieldValidation(map[string]string{"sum": "sum must be greater than 0."})
	}
	return e.persist(ctx, tx, balance)
}

func (e *Engine) persist(ctx context.Context, tx pgx.Tx, balance *domain.Balance) error {
	if err := e.balances.UpdateAmount(ctx, tx, balance.Currency, balance.Amount); err != nil {
		return apperror.InternalError(fmt.Errorf("update balance %s: %w", balance.Currency, err))
	}
	return nil
}

// unsupportedMessage names the configured currency set in validation errors.
func (e *Engine) unsupportedMessage() string {
	codes := make([]string, 0, len(e.allowed))
	for code := range e.allowed {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return fmt.Sprintf("Only %s are supported.", strings.Join(codes, " and "))
}
