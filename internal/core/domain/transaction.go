package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeConversion   TransactionType = "conversion"
	TransactionTypeServiceSpend TransactionType = "service_spend"
	TransactionTypeAccountTopup TransactionType = "account_topup"
)

// Transaction is an immutable ledger entry. Amount is stored with 5
// fractional digits, the exchange rate with 16. GrossCurrency and
// ExchangeRate are either both set or both nil.
type Transaction struct {
	ID            uuid.UUID        `json:"id"`
	Type          TransactionType  `json:"transaction_type"`
	Amount        decimal.Decimal  `json:"sum"`
	Currency      string           `json:"currency_id"`
	GrossCurrency *string          `json:"gross_currency_id,omitempty"`
	ExchangeRate  *decimal.Decimal `json:"exchange_rate,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// HasExchange reports whether the transaction carries a currency-exchange
// leg (gross currency plus rate).
func (t *Transaction) HasExchange() bool {
	return t.GrossCurrency != nil && t.ExchangeRate != nil
}

// GrossAmount computes the amount withdrawn from the gross-currency balance:
// amount * rate quantized to 2 fractional digits using banker's rounding.
// Returns the zero decimal when the transaction has no exchange leg.
func (t *Transaction) GrossAmount() decimal.Decimal {
	if !t.HasExchange() {
		return decimal.Zero
	}
	return t.Amount.Mul(*t.ExchangeRate).RoundBank(2)
}
