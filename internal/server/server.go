package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"sore/internal/auth"
	"sore/internal/booking"
	"sore/internal/config"
	"sore/internal/dispute"
	"sore/internal/kol"
	"sore/internal/ledger"
	"sore/internal/notification"
	"sore/internal/user"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	config *config.Config

	// Bookings exposes the booking service to the sweep worker.
	Bookings booking.Service
}

func New(db *sqlx.DB, cache *redis.Client, cfg *config.Config, notify *notification.Service) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RateLimitMiddleware(20, 40))

	walletLedger := ledger.NewWalletLedger(db, cfg.LedgerTimeout)

	userRepo := user.NewRepository(db)
	kolRepo := kol.NewRepository(db)
	disputeRepo := dispute.NewRepository(db)
	bookingRepo := booking.NewRepository(db)

	userService := user.NewService(userRepo, cfg.JWTSecret)
	kolService := kol.NewService(kolRepo, cache)
	bookingService := booking.NewService(
		bookingRepo, kolRepo, userRepo, disputeRepo,
		walletLedger, notify,
		cfg.PlatformFeePercent, cfg.AcceptanceWindow,
	)

	userHandler := user.NewHandler(userService)
	kolHandler := kol.NewHandler(kolService)
	bookingHandler := booking.NewHandler(bookingService)
	walletHandler := ledger.NewHandler(walletLedger)

	public := router.Group("/auth")
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.Refresh)
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/auth/me", userHandler.Me)

		protected.GET("/kols", kolHandler.ListKOLs)
		protected.GET("/kols/leaderboard", kolHandler.Leaderboard)
		protected.GET("/kols/:kolID", kolHandler.GetKOL)
		protected.POST("/kols", kolHandler.BecomeKOL)
		protected.PUT("/kols/:kolID/pricing", kolHandler.UpdatePricing)
		protected.GET("/kols/:kolID/bookings", bookingHandler.ListKOLBookings)
		protected.GET("/kols/:kolID/bookings/pending", bookingHandler.ListKOLPendingBookings)

		protected.POST("/bookings", bookingHandler.CreateBooking)
		protected.GET("/bookings", bookingHandler.ListMyBookings)
		protected.GET("/bookings/:bookingID", bookingHandler.GetBooking)
		protected.PUT("/bookings/:bookingID/status", bookingHandler.UpdateStatus)
		protected.POST("/bookings/:bookingID/dispute", bookingHandler.ReportDispute)

		protected.GET("/wallet", walletHandler.GetBalance)
		protected.POST("/wallet/topup", walletHandler.TopUp)
		protected.GET("/wallet/transactions", walletHandler.GetTransactions)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/disputes", bookingHandler.ListOpenDisputes)
		admin.PUT("/disputes/:disputeID/resolve", bookingHandler.ResolveDispute)
		admin.PUT("/kols/:kolID/reputation", kolHandler.UpdateReputation)
		admin.GET("/analytics/bookings", bookingHandler.Analytics)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	return &Server{
		router:   router,
		config:   cfg,
		Bookings: bookingService,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:         ":" + port,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
