package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"currency-ledger/internal/core/domain"
	"currency-ledger/internal/core/ports"
	"currency-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// TransactionServiceImpl orchestrates transaction processing: validate the
// input, open one unit of work, run the rules engine, record the transaction
// and commit. Any failure rolls back every balance mutation and leaves no
// history entry.
type TransactionServiceImpl struct {
	engine     *Engine
	txRepo     ports.TransactionRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewTransactionService creates the transaction orchestrator.
func NewTransactionService(
	engine *Engine,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *TransactionServiceImpl {
	return &TransactionServiceImpl{
		engine:     engine,
		txRepo:     txRepo,
		transactor: transactor,
		log:        log.With().Str("component", "transaction_service").Logger(),
	}
}

// ProcessConversion converts funds between two currency balances.
func (s *TransactionServiceImpl) ProcessConversion(ctx context.Context, in ports.TransactionInput) (*domain.Transaction, error) {
	return s.process(ctx, domain.TransactionTypeConversion, in)
}

// ProcessServiceSpend debits a balance for an external service purchase.
func (s *TransactionServiceImpl) ProcessServiceSpend(ctx context.Context, in ports.TransactionInput) (*domain.Transaction, error) {
	return s.process(ctx, domain.TransactionTypeServiceSpend, in)
}

// ProcessAccountTopup credits the primary balance with new funds.
func (s *TransactionServiceImpl) ProcessAccountTopup(ctx context.Context, in ports.TransactionInput) (*domain.Transaction, error) {
	return s.process(ctx, domain.TransactionTypeAccountTopup, in)
}

func (s *TransactionServiceImpl) process(ctx context.Context, txType domain.TransactionType, in ports.TransactionInput) (*domain.Transaction, error) {
	in = normalizeInput(in)

	if appErr := s.engine.Validate(txType, in); appErr != nil {
		return nil, appErr
	}

	txn := &domain.Transaction{
		ID:            uuid.New(),
		Type:          txType,
		Amount:        in.Amount,
		Currency:      in.Currency,
		GrossCurrency: in.GrossCurrency,
		ExchangeRate:  in.ExchangeRate,
		CreatedAt:     time.Now().UTC(),
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin transaction: %w", err))
	}
	defer dbTx.Rollback(ctx)

	if err := s.engine.Apply(ctx, dbTx, txn); err != nil {
		s.logRejection(txn, err)
		return nil, err
	}

	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create transaction record: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit transaction: %w", err))
	}

	s.log.Info().
		Str("transaction_id", txn.ID.String()).
		Str("type", string(txn.Type)).
		Str("sum", txn.Amount.String()).
		Str("currency", txn.Currency).
		Msg("transaction committed")

	return txn, nil
}

// ListTransactions returns a filtered, paginated page of the transaction
// history, newest first, plus the total match count.
func (s *TransactionServiceImpl) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}
	if params.Currency != nil {
		upper := strings.ToUpper(*params.Currency)
		params.Currency = &upper
	}

	transactions, total, err := s.txRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrDatabaseError(fmt.Errorf("list transactions: %w", err))
	}
	return transactions, total, nil
}

// logRejection records business rejections at warn and internal failures at
// error, keeping rejected requests out of the error stream.
func (s *TransactionServiceImpl) logRejection(txn *domain.Transaction, err error) {
	event := s.log.Error()
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.HTTPStatus < 500 {
		event = s.log.Warn()
	}
	event.
		Str("type", string(txn.Type)).
		Str("sum", txn.Amount.String()).
		Str("currency", txn.Currency).
		Err(err).
		Msg("transaction rejected")
}

// normalizeInput upper-cases currency codes so policy checks and lock
// ordering see one canonical form.
func normalizeInput(in ports.TransactionInput) ports.TransactionInput {
	in.Currency = strings.ToUpper(in.Currency)
	if in.GrossCurrency != nil {
		upper := strings.ToUpper(*in.GrossCurrency)
		in.GrossCurrency = &upper
	}
	if in.ExchangeRate != nil {
		rate := *in.ExchangeRate
		in.ExchangeRate = &rate
	}
	return in
}
