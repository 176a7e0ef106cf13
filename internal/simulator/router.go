package simulator

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"trustpay-sync/internal/adapter/http/middleware"
	redisStore "trustpay-sync/internal/adapter/storage/redis"
	"trustpay-sync/internal/core/ports"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Store          *Store
	Hub            *Hub
	TokenSvc       ports.TokenService
	Publisher      ports.EventPublisher
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheck    *redisStore.HealthCheck    // nil = redis probe skipped
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(middleware.DefaultMaxBodyBytes))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		if deps.HealthCheck != nil {
			if err := deps.HealthCheck.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":       "degraded",
					"dependencies": gin.H{deps.HealthCheck.Name(): gin.H{"status": "unhealthy", "error": err.Error()}},
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

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

	h := NewHandler(deps.Logger, deps.Store, deps.TokenSvc, deps.Publisher)

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_login"), h.Register)
		auth.POST("/login", rl("auth_login"), h.Login)
	}

	// Payment gateway callback (authenticated by the gateway, not users)
	v1.POST("/webhooks/payment", h.PaymentWebhook)

	// Websocket endpoint authenticates via its token query parameter.
	v1.GET("/ws", deps.Hub.HandleWS)

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	escrow := v1.Group("/escrows", jwtAuth)
	{
		escrow.POST("/create", rl("escrow_create"), h.CreateEscrow)
		escrow.POST("/join", rl("escrow_join"), h.JoinEscrow)
		escrow.GET("/:id", rl("escrow_read"), h.GetEscrow)
		escrow.POST("/:id/confirm", rl("escrow_read"), h.ConfirmEscrow)
		escrow.POST("/:id/dispute", rl("escrow_read"), h.DisputeEscrow)
		escrow.GET("/:id/payment-status", rl("escrow_read"), h.GetPaymentStatus)
	}

	return r
}
