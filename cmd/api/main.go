package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/templeconnect/backend/api/controllers"
	"github.com/templeconnect/backend/api/routes"
	"github.com/templeconnect/backend/internal/auth"
	"github.com/templeconnect/backend/internal/bookings"
	"github.com/templeconnect/backend/internal/chat"
	"github.com/templeconnect/backend/internal/ledger"
	"github.com/templeconnect/backend/internal/notifications"
	"github.com/templeconnect/backend/internal/orders"
	"github.com/templeconnect/backend/internal/products"
	"github.com/templeconnect/backend/internal/temples"
	"github.com/templeconnect/backend/internal/users"
	"github.com/templeconnect/backend/internal/vendors"
	"github.com/templeconnect/backend/internal/ws"
	"github.com/templeconnect/backend/pkg/auth/session"
	"github.com/templeconnect/backend/pkg/config"
	"github.com/templeconnect/backend/pkg/db"
	"github.com/templeconnect/backend/pkg/logger"
	"github.com/templeconnect/backend/pkg/migrate"
	"github.com/templeconnect/backend/pkg/outbox"
	"github.com/templeconnect/backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	usersRepo := users.NewRepository(gormDB)
	vendorsRepo := vendors.NewRepository(gormDB)
	templesRepo := temples.NewRepository(gormDB)
	productsRepo := products.NewRepository(gormDB)
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		VendorRepo:     vendorsRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	vendorsService, err := vendors.NewService(vendorsRepo, usersRepo, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create vendors service", err)
		os.Exit(1)
	}

	templesService, err := temples.NewService(templesRepo, vendorsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create temples service", err)
		os.Exit(1)
	}

	productsService, err := products.NewService(productsRepo, vendorsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create products service", err)
		os.Exit(1)
	}

	bookingsService, err := bookings.NewService(bookings.NewRepository(gormDB), templesRepo, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create bookings service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(gormDB), dbClient, outboxService, vendorsRepo, cfg.Ledger, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.NewRepository(gormDB), productsRepo, vendorsRepo, ledgerService, dbClient, outboxService, cfg.Ledger)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	hub := ws.NewHub(logg)

	chatService, err := chat.NewService(chat.NewRepository(gormDB), dbClient, outboxService, hub)
	if err != nil {
		logg.Error(context.Background(), "failed to create chat service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(cfg, logg, redisClient,
		map[string]controllers.Pinger{
			"postgres": dbClient,
			"redis":    redisClient,
		},
		routes.Services{
			Sessions:      sessionManager,
			Auth:          authService,
			Vendors:       vendorsService,
			Temples:       templesService,
			Products:      productsService,
			Bookings:      bookingsService,
			Orders:        ordersService,
			Ledger:        ledgerService,
			Chat:          chatService,
			ChatHub:       hub,
			Notifications: notificationsService,
		})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	go hub.Run(ctx)

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logg.Info(ctx, "starting api server")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown error", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shutting down gracefully")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	}
}
