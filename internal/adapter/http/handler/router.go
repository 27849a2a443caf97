package handler

import (
	"mobile-money-ledger/internal/adapter/http/middleware"
	redisStore "mobile-money-ledger/internal/adapter/storage/redis"
	"mobile-money-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	TransferSvc    ports.TransferService
	Balances       ports.BalanceCalculator
	Challenges     ports.ChallengeService
	Holds          ports.HoldResolver
	Status         ports.AccountStatusUpdater
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	MetricsEnabled bool
	MetricsPath    string
	Mode           string // gin mode; empty means release
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	mode := deps.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	if deps.MetricsEnabled {
		r.Use(middleware.Metrics())
	}
	r.Use(middleware.MaxBodySize(middleware.DefaultMaxBodyBytes))

	// Health check (deep: pings storage, cache, broker)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	if deps.MetricsEnabled {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(promhttp.Handler()))
	}

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

	v1 := r.Group("/api/v1", middleware.JWTAuth(deps.TokenSvc, deps.Logger))

	transferHandler := NewTransferHandler(deps.TransferSvc)
	v1.POST("/transfers", rl("transfers"), transferHandler.CreateTransfer)

	accountHandler := NewAccountHandler(deps.Balances)
	accounts := v1.Group("/accounts/:id")
	{
		accounts.GET("/balance", rl("reads"), accountHandler.GetBalance)
		accounts.GET("/entries", rl("reads"), accountHandler.ListEntries)
	}

	challengeHandler := NewChallengeHandler(deps.Challenges)
	challenges := v1.Group("/challenges")
	{
		challenges.POST("", rl("challenges_create"), challengeHandler.Create)
		challenges.POST("/:id/consume", rl("challenges_consume"), challengeHandler.Consume)
	}

	adminHandler := NewAdminHandler(deps.Holds, deps.TransferSvc, deps.Status)
	admin := v1.Group("/admin", middleware.RequireRole(ports.RoleAdmin), rl("admin"))
	{
		admin.POST("/holds/:transfer_id/resolve", adminHandler.ResolveHold)
		admin.POST("/cash-in", adminHandler.CashIn)
		admin.PUT("/owners/:owner_id/status", adminHandler.SetAccountStatus)
	}

	return r
}
