package postgres

import (
	"context"
	"fmt"
)

// schema is the ledger DDL. Balances carry a declared uniqueness constraint
// on currency (currency_code is the primary key) and a non-negativity check,
// so both invariants hold at the storage layer and not just by seeding
// discipline.
const schema = `
CREATE TABLE IF NOT EXISTS currencies (
	code VARCHAR(5) PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS balances (
	currency_code VARCHAR(5) PRIMARY KEY REFERENCES currencies(code),
	amount NUMERIC(20,2) NOT NULL DEFAULT 0 CHECK (amount >= 0),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS transactions (
	id UUID PRIMARY KEY,
	transaction_type VARCHAR(50) NOT NULL,
	amount NUMERIC(20,5) NOT NULL,
	currency_code VARCHAR(5) NOT NULL REFERENCES currencies(code),
	gross_currency_code VARCHAR(5) REFERENCES currencies(code),
	exchange_rate NUMERIC(35,16),
	created_at TIMESTAMPTZ NOT NULL,
	CHECK ((gross_currency_code IS NULL) = (exchange_rate IS NULL))
);

CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_transactions_type ON transactions (transaction_type);
`

// InitSchema creates the ledger tables if they do not exist.
func InitSchema(ctx context.Context, pool Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}
