package dto

import (
	"currency-ledger/internal/core/domain"
	"currency-ledger/internal/core/ports"
	"currency-ledger/pkg/apperror"

	"github.com/shopspring/decimal"
)

// TransactionRequest is the request body shared by the conversion, spend and
// topup endpoints. The transaction type comes from the route, not the body.
// Amounts travel as strings so clients never lose precision to float64.
type TransactionRequest struct {
	Sum           string  `json:"sum" binding:"required"`
	Currency      string  `json:"currency_id" binding:"required,currency_code"`
	GrossCurrency *string `json:"gross_currency_id,omitempty" binding:"omitempty,currency_code"`
	ExchangeRate  *string `json:"exchange_rate,omitempty"`
}

// ToInput parses the decimal strings into a service input. Unparseable
// amounts come back as field-keyed validation errors.
func (r *TransactionRequest) ToInput() (ports.TransactionInput, *apperror.AppError) {
	fields := make(map[string]string)

	sum, err := decimal.NewFromString(r.Sum)
	if err != nil {
		fields["sum"] = "sum must be a decimal number."
	}

	in := ports.TransactionInput{
		Amount:        sum,
		Currency:      r.Currency,
		GrossCurrency: r.GrossCurrency,
	}

	if r.ExchangeRate != nil {
		rate, err := decimal.NewFromString(*r.ExchangeRate)
		if err != nil {
			fields["exchange_rate"] = "exchange_rate must be a decimal number."
		} else {
			in.ExchangeRate = &rate
		}
	}

	if len(fields) > 0 {
		return ports.TransactionInput{}, apperror.FieldValidation(fields)
	}
	return in, nil
}

// TransactionResponse is the response body for a committed transaction.
type TransactionResponse struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	Sum           string  `json:"sum"`
	Currency      string  `json:"currency_id"`
	GrossCurrency *string `json:"gross_currency_id,omitempty"`
	ExchangeRate  *string `json:"exchange_rate,omitempty"`
	GrossSum      *string `json:"gross_sum,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// FromTransaction converts a domain transaction to its wire form.
// Sums are rendered with 5 fractional digits, the computed gross with 2.
func FromTransaction(t *domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:        t.ID.String(),
		Type:      string(t.Type),
		Sum:       t.Amount.StringFixed(5),
		Currency:  t.Currency,
		CreatedAt: t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if t.HasExchange() {
		resp.GrossCurrency = t.GrossCurrency
		rate := t.ExchangeRate.String()
		resp.ExchangeRate = &rate
		gross := t.GrossAmount().StringFixed(2)
		resp.GrossSum = &gross
	}
	return resp
}

// TransactionListResponse wraps a paginated transaction history page.
type TransactionListResponse struct {
	Items      []TransactionResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// BalanceResponse is one currency balance in its wire form.
type BalanceResponse struct {
	Currency  string `json:"currency_id"`
	Amount    string `json:"amount"`
	UpdatedAt string `json:"updated_at"`
}

// FromBalance converts a domain balance to its wire form.
func FromBalance(b *domain.Balance) BalanceResponse {
	return BalanceResponse{
		Currency:  b.Currency,
		Amount:    b.Amount.StringFixed(2),
		UpdatedAt: b.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// BalanceListResponse wraps the full balance pool.
type BalanceListResponse struct {
	Items []BalanceResponse `json:"items"`
}
