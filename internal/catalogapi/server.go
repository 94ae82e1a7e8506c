// Package catalogapi serves the catalog and order endpoints used by the storefront client.
package catalogapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/storefront/internal/notify"
	"github.com/MarkoPoloResearchLab/storefront/internal/shop"
	"github.com/MarkoPoloResearchLab/storefront/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/storefront/pkg/storefront"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	metricsPath       = "/metrics"
	contextKeyUser    = "storefront_user"
	readHeaderTimeout = 10 * time.Second
)

// Run boots the catalog API using the supplied configuration.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("zap init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	db, cleanup, driver, err := gormstore.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer func() { _ = cleanup() }()
	if err := gormstore.AutoMigrate(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	notifier, err := buildNotifier(cfg)
	if err != nil {
		return err
	}
	service, err := shop.NewService(
		gormstore.New(db),
		func() time.Time { return time.Now().UTC() },
		shop.WithAdminIDs(cfg.AdminIDs...),
		shop.WithOrderNotifier(notifier),
		shop.WithOperationLogger(newServiceLogger(logger)),
	)
	if err != nil {
		return fmt.Errorf("shop service init: %w", err)
	}
	if cfg.Seed {
		seeded, err := service.Seed(ctx, shop.DemoCatalog())
		if err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
		logger.Info("catalog seed", zap.Bool("seeded", seeded))
	}

	handler := &httpHandler{logger: logger, service: service, metrics: newMetrics()}
	router := setupRouter(cfg, handler)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("catalog api listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("driver", driver),
			zap.Bool("notifications", cfg.NotificationsEnabled()),
		)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func buildNotifier(cfg Config) (shop.OrderNotifier, error) {
	if !cfg.NotificationsEnabled() {
		return notify.Nop{}, nil
	}
	notifier, err := notify.NewTelegramFromToken(cfg.TelegramBotToken, cfg.OrderChatID)
	if err != nil {
		return nil, err
	}
	return notifier, nil
}

func setupRouter(cfg Config, handler *httpHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handler.metrics.middleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Origin", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"message": "Storefront API"})
	})
	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET(metricsPath, gin.WrapH(handler.metrics.handler()))

	api := router.Group("/")
	api.Use(handler.authenticate())

	api.GET("/users/me", handler.handleCurrentUser)
	api.GET("/categories/", handler.handleListCategories)
	api.POST("/categories/", handler.handleCreateCategory)
	api.GET("/products/", handler.handleListProducts)
	api.GET("/products/:id", handler.handleGetProduct)
	api.POST("/products/", handler.handleCreateProduct)
	api.POST("/orders/", handler.handleCreateOrder)
	api.GET("/orders/", handler.handleListOrders)
	api.PUT("/orders/:id/status", handler.handleUpdateOrderStatus)

	return router
}

func (handler *httpHandler) authenticate() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		telegramID, err := storefront.ParseAuthorizationHeader(ctx.GetHeader("Authorization"))
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "invalid authentication credentials"))
			return
		}
		user, err := handler.service.Authenticate(ctx.Request.Context(), shop.UserProfile{TelegramID: telegramID})
		if errors.Is(err, shop.ErrInvalidProfile) {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "invalid authentication credentials"))
			return
		}
		if err != nil {
			handler.logger.Error("authenticate failed", zap.Error(err))
			ctx.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse("internal_error", "user lookup failed"))
			return
		}
		ctx.Set(contextKeyUser, user)
		ctx.Next()
	}
}

func currentUser(ctx *gin.Context) (shop.User, bool) {
	value, ok := ctx.Get(contextKeyUser)
	if !ok {
		return shop.User{}, false
	}
	user, ok := value.(shop.User)
	return user, ok
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

type serviceLogger struct {
	logger *zap.Logger
}

func newServiceLogger(logger *zap.Logger) *serviceLogger {
	return &serviceLogger{logger: logger}
}

func (adapter *serviceLogger) LogOperation(_ context.Context, entry shop.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
		zap.Int64("telegram_id", entry.TelegramID.Int64()),
	}
	if entry.ProductID != 0 {
		fields = append(fields, zap.Int64("product_id", entry.ProductID))
	}
	if entry.OrderID != 0 {
		fields = append(fields, zap.Int64("order_id", entry.OrderID))
	}
	if entry.Error != nil {
		adapter.logger.Warn("shop operation", append(fields, zap.Error(entry.Error))...)
		return
	}
	adapter.logger.Info("shop operation", fields...)
}
