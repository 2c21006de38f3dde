package handler

import (
	"currency-ledger/internal/adapter/http/middleware"
	redisStore "currency-ledger/internal/adapter/storage/redis"
	"currency-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	TransactionSvc ports.TransactionService
	BalanceSvc     ports.BalanceService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	txHandler := NewTransactionHandler(deps.TransactionSvc)
	transactions := v1.Group("/transactions")
	{
		transactions.POST("/conversion", rl("transactions"), txHandler.Conversion)
		transactions.POST("/service-spend", rl("transactions"), txHandler.ServiceSpend)
		transactions.POST("/account-topup", rl("transactions"), txHandler.AccountTopup)
		transactions.GET("", rl("reporting"), txHandler.List)
	}

	balanceHandler := NewBalanceHandler(deps.BalanceSvc)
	balances := v1.Group("/balances")
	{
		balances.GET("", rl("reporting"), balanceHandler.List)
	}

	return r
}
