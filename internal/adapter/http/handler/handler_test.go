package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"currency-ledger/internal/core/domain"
	"currency-ledger/internal/core/ports"
	"currency-ledger/pkg/apperror"
	"currency-ledger/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- stubs ---

type stubTransactionService struct {
	processFn func(ctx context.Context, in ports.TransactionInput) (*domain.Transaction, error)
	listFn    func(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error)
}

func (s *stubTransactionService) ProcessConversion(ctx context.Context, in ports.TransactionInput) (*domain.Transaction, error) {
	return s.processFn(ctx, in)
}

func (s *stubTransactionService) ProcessServiceSpend(ctx context.Context, in ports.TransactionInput) (*domain.Transaction, error) {
	return s.processFn(ctx, in)
}

func (s *stubTransactionService) ProcessAccountTopup(ctx context.Context, in ports.TransactionInput) (*domain.Transaction, error) {
	return s.processFn(ctx, in)
}

func (s *stubTransactionService) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	return s.listFn(ctx, params)
}

type stubBalanceService struct {
	listFn func(ctx context.Context) ([]domain.Balance, error)
}

func (s *stubBalanceService) ListBalances(ctx context.Context) ([]domain.Balance, error) {
	return s.listFn(ctx)
}

type stubChecker struct {
	name string
	err  error
}

func (s *stubChecker) Ping(ctx context.Context) error { return s.err }
func (s *stubChecker) Name() string                   { return s.name }

func newRouter(txSvc ports.TransactionService, balSvc ports.BalanceService, checkers ...ports.HealthChecker) *gin.Engine {
	return SetupRouter(RouterDeps{
		TransactionSvc: txSvc,
		BalanceSvc:     balSvc,
		HealthCheckers: checkers,
		Logger:         logger.NewWithWriter("error", io.Discard),
	})
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func sampleTransaction() *domain.Transaction {
	gross := "USD"
	rate := decimal.RequireFromString("0.5")
	return &domain.Transaction{
		ID:            uuid.New(),
		Type:          domain.TransactionTypeConversion,
		Amount:        decimal.RequireFromString("100"),
		Currency:      "RUB",
		GrossCurrency: &gross,
		ExchangeRate:  &rate,
		CreatedAt:     time.Now().UTC(),
	}
}

// --- transaction endpoints ---

func TestConversion_Created(t *testing.T) {
	txn := sampleTransaction()
	svc := &stubTransactionService{
		processFn: func(ctx context.Context, in ports.TransactionInput) (*domain.Transaction, error) {
			assert.Equal(t, "RUB", in.Currency)
			require.NotNil(t, in.ExchangeRate)
			return txn, nil
		},
	}
	r := newRouter(svc, &stubBalanceService{})

	w := doJSON(t, r, http.MethodPost, "/api/v1/transactions/conversion", gin.H{
		"sum":               "100",
		"currency_id":       "RUB",
		"gross_currency_id": "USD",
		"exchange_rate":     "0.5",
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decodeBody(t, w)
	data := body["data"].(map[string]any)
	assert.Equal(t, "100.00000", data["sum"])
	assert.Equal(t, "conversion", data["type"])
	assert.Equal(t, "50.00", data["gross_sum"])
	assert.NotEmpty(t, body["request_id"])
}

func TestConversion_MalformedJSON(t *testing.T) {
	r := newRouter(&stubTransactionService{}, &stubBalanceService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/conversion", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VAL_001", decodeBody(t, w)["error_code"])
}

func TestConversion_UnparseableSum(t *testing.T) {
	r := newRouter(&stubTransactionService{}, &stubBalanceService{})

	w := doJSON(t, r, http.MethodPost, "/api/v1/transactions/conversion", gin.H{
		"sum":         "abc",
		"currency_id": "RUB",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "VAL_001", body["error_code"])
	fields := body["fields"].(map[string]any)
	assert.Contains(t, fields, "sum")
}

func TestConversion_BadCurrencyCodeRejectedByBinding(t *testing.T) {
	r := newRouter(&stubTransactionService{}, &stubBalanceService{})

	w := doJSON(t, r, http.MethodPost, "/api/v1/transactions/conversion", gin.H{
		"sum":         "100",
		"currency_id": "RUBLES",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VAL_001", decodeBody(t, w)["error_code"])
}

func TestServiceSpend_InsufficientFunds(t *testing.T) {
	svc := &stubTransactionService{
		processFn: func(ctx context.Context, in ports.TransactionInput) (*domain.Transaction, error) {
			return nil, apperror.ErrInsufficientFunds()
		},
	}
	r := newRouter(svc, &stubBalanceService{})

	w := doJSON(t, r, http.MethodPost, "/api/v1/transactions/service-spend", gin.H{
		"sum":         "99999",
		"currency_id": "RUB",
	})

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "LED_002", decodeBody(t, w)["error_code"])
}

func TestAccountTopup_UnknownErrorIsOpaque500(t *testing.T) {
	svc := &stubTransactionService{
		processFn: func(ctx context.Context, in ports.TransactionInput) (*domain.Transaction, error) {
			return nil, errors.New("pool exhausted")
		},
	}
	r := newRouter(svc, &stubBalanceService{})

	w := doJSON(t, r, http.MethodPost, "/api/v1/transactions/account-topup", gin.H{
		"sum":         "10",
		"currency_id": "RUB",
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "SYS_000", body["error_code"])
	assert.NotContains(t, w.Body.String(), "pool exhausted")
}

func TestListTransactions_PassesFiltersAndPagination(t *testing.T) {
	var got ports.TransactionListParams
	svc := &stubTransactionService{
		listFn: func(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
			got = params
			return []domain.Transaction{*sampleTransaction()}, 7, nil
		},
	}
	r := newRouter(svc, &stubBalanceService{})

	w := doJSON(t, r, http.MethodGet, "/api/v1/transactions?type=conversion&currency_id=RUB&page=2&page_size=3", nil)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got.Type)
	assert.Equal(t, domain.TransactionTypeConversion, *got.Type)
	require.NotNil(t, got.Currency)
	assert.Equal(t, "RUB", *got.Currency)
	assert.Equal(t, 2, got.Page)
	assert.Equal(t, 3, got.PageSize)

	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, float64(7), data["total"])
	assert.Equal(t, float64(3), data["total_pages"])
}

func TestListTransactions_RejectsUnknownType(t *testing.T) {
	svc := &stubTransactionService{
		listFn: func(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
			t.Fatal("service must not be called for an unknown type filter")
			return nil, 0, nil
		},
	}
	r := newRouter(svc, &stubBalanceService{})

	w := doJSON(t, r, http.MethodGet, "/api/v1/transactions?type=withdrawal", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "VAL_001", body["error_code"])
	fields := body["fields"].(map[string]any)
	assert.Contains(t, fields, "type")
}

func TestListTransactions_ClampsBadPagination(t *testing.T) {
	svc := &stubTransactionService{
		listFn: func(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
			assert.Equal(t, 1, params.Page)
			assert.Equal(t, 20, params.PageSize)
			return nil, 0, nil
		},
	}
	r := newRouter(svc, &stubBalanceService{})

	w := doJSON(t, r, http.MethodGet, "/api/v1/transactions?page=-1&page_size=9999", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

// --- balances ---

func TestListBalances_OK(t *testing.T) {
	svc := &stubBalanceService{
		listFn: func(ctx context.Context) ([]domain.Balance, error) {
			return []domain.Balance{
				{Currency: "RUB", Amount: decimal.RequireFromString("10000"), UpdatedAt: time.Now().UTC()},
				{Currency: "USD", Amount: decimal.RequireFromString("1000"), UpdatedAt: time.Now().UTC()},
			}, nil
		},
	}
	r := newRouter(&stubTransactionService{}, svc)

	w := doJSON(t, r, http.MethodGet, "/api/v1/balances", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	items := data["items"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "RUB", first["currency_id"])
	assert.Equal(t, "10000.00", first["amount"])
}

// --- health ---

func TestHealthCheck_AllHealthy(t *testing.T) {
	r := newRouter(&stubTransactionService{}, &stubBalanceService{},
		&stubChecker{name: "postgresql"},
		&stubChecker{name: "redis"},
	)

	w := doJSON(t, r, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "healthy", body["status"])
}

func TestHealthCheck_Degraded(t *testing.T) {
	r := newRouter(&stubTransactionService{}, &stubBalanceService{},
		&stubChecker{name: "postgresql"},
		&stubChecker{name: "redis", err: errors.New("connection refused")},
	)

	w := doJSON(t, r, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "degraded", body["status"])
	deps := body["dependencies"].(map[string]any)
	redisDep := deps["redis"].(map[string]any)
	assert.Equal(t, "unhealthy", redisDep["status"])
}
