// Package memory provides in-memory implementations of the ledger
// repositories and transactor. Balances are guarded by per-currency locks
// held until the enclosing unit of work commits or rolls back, mirroring
// the row-lock semantics of the PostgreSQL adapter. Used by service and
// integration tests; also usable as a throwaway dev backend.
package memory

import (
	"context"
	"sync"
	"time"

	"currency-ledger/internal/core/domain"
	"currency-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Store holds the shared in-memory ledger state.
type Store struct {
	mu           sync.Mutex
	currencies   map[string]domain.Currency
	balances     map[string]*domain.Balance
	rowLocks     map[string]*sync.Mutex
	transactions []domain.Transaction
}

// NewStore creates an empty in-memory ledger.
func NewStore() *Store {
	return &Store{
		currencies: make(map[string]domain.Currency),
		balances:   make(map[string]*domain.Balance),
		rowLocks:   make(map[string]*sync.Mutex),
	}
}

// rowLock returns the lock guarding one currency's balance row, creating it
// on first use.
func (s *Store) rowLock(currency string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.rowLocks[currency]
	if !ok {
		l = &sync.Mutex{}
		s.rowLocks[currency] = l
	}
	return l
}

// --- Transactor ---

// Transactor implements ports.DBTransactor over the in-memory store.
type Transactor struct {
	store *Store
}

// NewTransactor creates a transactor bound to the store.
func NewTransactor(store *Store) *Transactor {
	return &Transactor{store: store}
}

// Begin starts a new unit of work. Balance reads-for-update lock rows,
// writes are staged and applied only on Commit.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return newTx(t.store), nil
}

// --- Currency repository ---

// CurrencyRepo implements ports.CurrencyRepository in memory.
type CurrencyRepo struct {
	store *Store
}

func NewCurrencyRepo(store *Store) *CurrencyRepo {
	return &CurrencyRepo{store: store}
}

func (r *CurrencyRepo) CreateIfAbsent(ctx context.Context, code string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.currencies[code]; ok {
		return nil
	}
	r.store.currencies[code] = domain.Currency{Code: code, CreatedAt: time.Now().UTC()}
	return nil
}

func (r *CurrencyRepo) GetByCode(ctx context.Context, code string) (*domain.Currency, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.currencies[code]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *CurrencyRepo) List(ctx context.Context) ([]domain.Currency, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]domain.Currency, 0, len(r.store.currencies))
	for _, c := range r.store.currencies {
		out = append(out, c)
	}
	return out, nil
}

// --- Balance repository ---

// BalanceRepo implements ports.BalanceRepository in memory.
type BalanceRepo struct {
	store *Store
}

func NewBalanceRepo(store *Store) *BalanceRepo {
	return &BalanceRepo{store: store}
}

func (r *BalanceRepo) CreateIfAbsent(ctx context.Context, b *domain.Balance) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.balances[b.Currency]; ok {
		return nil
	}
	now := time.Now().UTC()
	r.store.balances[b.Currency] = &domain.Balance{
		Currency:  b.Currency,
		Amount:    b.Amount,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (r *BalanceRepo) GetByCurrency(ctx context.Context, currency string) (*domain.Balance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	b, ok := r.store.balances[currency]
	if !ok {
		return nil, nil
	}
	copy := *b
	return &copy, nil
}

// GetByCurrencyForUpdate takes the per-currency row lock (blocking until any
// other in-flight unit of work touching the same currency finishes) and
// returns the current view including this unit of work's own staged writes.
func (r *BalanceRepo) GetByCurrencyForUpdate(ctx context.Context, tx pgx.Tx, currency string) (*domain.Balance, error) {
	mtx, ok := tx.(*Tx)
	if !ok {
		return nil, errNotMemoryTx
	}
	mtx.lockRow(currency)

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	b, ok := r.store.balances[currency]
	if !ok {
		return nil, nil
	}
	view := *b
	if staged, ok := mtx.stagedBalance(currency); ok {
		view.Amount = staged
	}
	return &view, nil
}

func (r *BalanceRepo) UpdateAmount(ctx context.Context, tx pgx.Tx, currency string, amount decimal.Decimal) error {
	mtx, ok := tx.(*Tx)
	if !ok {
		return errNotMemoryTx
	}
	mtx.stageBalance(currency, amount)
	return nil
}

func (r *BalanceRepo) List(ctx context.Context) ([]domain.Balance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]domain.Balance, 0, len(r.store.balances))
	for _, b := range r.store.balances {
		out = append(out, *b)
	}
	return out, nil
}

// --- Transaction repository ---

// TransactionRepo implements ports.TransactionRepository in memory.
type TransactionRepo struct {
	store *Store
}

func NewTransactionRepo(store *Store) *TransactionRepo {
	return &TransactionRepo{store: store}
}

// Create stages the record on the unit of work; it becomes visible only
// after Commit, so a rolled-back request leaves no history entry.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	mtx, ok := tx.(*Tx)
	if !ok {
		return errNotMemoryTx
	}
	mtx.stageTransaction(*t)
	return nil
}

func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := range r.store.transactions {
		if r.store.transactions[i].ID == id {
			t := r.store.transactions[i]
			return &t, nil
		}
	}
	return nil, nil
}

func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var filtered []domain.Transaction
	for i := len(r.store.transactions) - 1; i >= 0; i-- { // newest first
		t := r.store.transactions[i]
		if params.Type != nil && t.Type != *params.Type {
			continue
		}
		if params.Currency != nil && t.Currency != *params.Currency {
			continue
		}
		filtered = append(filtered, t)
	}
	total := int64(len(filtered))

	start := (params.Page - 1) * params.PageSize
	if start >= len(filtered) {
		return []domain.Transaction{}, total, nil
	}
	end := start + params.PageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], total, nil
}
