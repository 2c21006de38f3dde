package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"currency-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var errNotMemoryTx = errors.New("memory: pgx.Tx does not belong to this store")

// Tx is an in-memory unit of work implementing pgx.Tx. Row locks acquired
// through the balance repository are held until Commit or Rollback; balance
// writes and transaction records are staged and applied atomically on
// Commit.
type Tx struct {
	store *Store

	mu       sync.Mutex
	held     map[string]*sync.Mutex
	order    []string
	balances map[string]decimal.Decimal
	records  []domain.Transaction
	done     bool
}

func newTx(store *Store) *Tx {
	return &Tx{
		store:    store,
		held:     make(map[string]*sync.Mutex),
		balances: make(map[string]decimal.Decimal),
	}
}

// lockRow blocks until this unit of work holds the currency's row lock.
// Re-locking a row already held by the same unit of work is a no-op.
func (t *Tx) lockRow(currency string) {
	t.mu.Lock()
	if _, ok := t.held[currency]; ok {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	l := t.store.rowLock(currency)
	l.Lock() // blocks while another unit of work holds the row

	t.mu.Lock()
	t.held[currency] = l
	t.order = append(t.order, currency)
	t.mu.Unlock()
}

func (t *Tx) stageBalance(currency string, amount decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[currency] = amount
}

func (t *Tx) stagedBalance(currency string) (decimal.Decimal, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.balances[currency]
	return a, ok
}

func (t *Tx) stageTransaction(record domain.Transaction) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, record)
}

// Commit applies staged writes and releases all row locks.
func (t *Tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true

	t.store.mu.Lock()
	now := time.Now().UTC()
	for currency, amount := range t.balances {
		if b, ok := t.store.balances[currency]; ok {
			b.Amount = amount
			b.UpdatedAt = now
		}
	}
	t.store.transactions = append(t.store.transactions, t.records...)
	t.store.mu.Unlock()

	t.releaseLocks()
	return nil
}

// Rollback discards staged writes and releases all row locks. Rolling back
// a finished unit of work is a no-op, so `defer tx.Rollback(ctx)` after a
// successful Commit is safe.
func (t *Tx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	t.releaseLocks()
	return nil
}

// releaseLocks must be called with t.mu held.
func (t *Tx) releaseLocks() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.held[t.order[i]].Unlock()
	}
	t.order = nil
	t.held = make(map[string]*sync.Mutex)
}

// The remaining pgx.Tx surface is not used by the ledger repositories.

func (t *Tx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *Tx) Conn() *pgx.Conn                           { return nil }
func (t *Tx) LargeObjects() pgx.LargeObjects            { return pgx.LargeObjects{} }

func (t *Tx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (t *Tx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }

func (t *Tx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (t *Tx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}

func (t *Tx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (t *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
