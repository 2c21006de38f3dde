package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNonPositiveChange is returned when a balance mutation is attempted
// with a zero or negative magnitude.
var ErrNonPositiveChange = errors.New("change amount must be greater than 0")

// ErrNegativeBalance is returned when a decrease would drive the balance
// below zero.
var ErrNegativeBalance = errors.New("balance cannot go negative")

// Balance is the current amount held for one currency. There is exactly one
// row per currency; the amount is a fixed-scale decimal (2 fractional digits)
// and is never negative.
type Balance struct {
	Currency  string          `json:"currency_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Change mutates the balance by a positive magnitude in the given direction.
// It is the only way a balance amount moves. The amount must be strictly
// positive and a decrease must not take the balance below zero.
func (b *Balance) Change(amount decimal.Decimal, decrease bool) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrNonPositiveChange
	}

	if decrease {
		next := b.Amount.Sub(amount)
		if next.IsNegative() {
			return ErrNegativeBalance
		}
		b.Amount = next
		return nil
	}

	b.Amount = b.Amount.Add(amount)
	return nil
}
