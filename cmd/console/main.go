package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-survey-console/internal/config"
	"go-survey-console/internal/confirm"
	"go-survey-console/internal/crud"
	"go-survey-console/internal/handler"
	"go-survey-console/internal/model"
	"go-survey-console/internal/obs"
	"go-survey-console/internal/rbac"
	"go-survey-console/internal/repository"
	"go-survey-console/internal/routes"
	"go-survey-console/internal/service"
	"go-survey-console/internal/session"
	"go-survey-console/internal/telemetry"
	"go-survey-console/internal/ws"
	"go-survey-console/pkg/apiclient"
	"go-survey-console/pkg/database"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("console stopped", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	shutdownTracing := telemetry.Setup(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint, logger)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracer shutdown", "err", err)
		}
	}()

	// 2. Setup database for wizard drafts
	db, err := database.Connect(database.Options{
		Driver:     cfg.Database.Driver,
		Host:       cfg.Database.Host,
		User:       cfg.Database.User,
		Password:   cfg.Database.Password,
		Name:       cfg.Database.Name,
		Port:       cfg.Database.Port,
		SSLMode:    cfg.Database.SSLMode,
		SQLitePath: cfg.Database.SQLitePath,
	})
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(&model.WizardDraft{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// 3. Session store
	var store session.Store
	switch cfg.Session.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		store = session.NewRedisStore(rdb, cfg.Session.TTL, logger)
	default:
		store = session.NewMemoryStore(cfg.Session.TTL)
	}

	// 4. Dependency Injection (Wiring Layers)
	metrics := obs.New()
	client := apiclient.New(cfg.API.BaseURL,
		apiclient.WithTimeout(cfg.API.Timeout),
		apiclient.WithObserver(metrics),
		apiclient.WithLogger(logger),
	)
	resolver := rbac.NewResolver(logger)
	gate := routes.NewGate(routes.Console, metrics.ObserveDecision)

	pages := crud.NewRegistry(crud.DefaultSchemas(cfg.Console.BannerTTL), cfg.Console.PageIdleTTL)
	pages.OnMutate = func(*crud.Schema) { resolver.InvalidateAll() }
	pages.Observe = metrics.ObserveCRUD
	confirms := confirm.NewRegistry(cfg.Console.ConfirmTTL)

	draftRepo := repository.NewDraftRepo(db)

	shellService := service.NewShellService(client, store, resolver, gate)
	authService := service.NewAuthService(client, store, resolver, pages, logger)
	enquiryService := service.NewEnquiryService()
	wizardService := service.NewWizardService(store, draftRepo, logger)
	dashService := service.NewDashboardService(enquiryService)
	profileService := service.NewProfileService(resolver)
	adminService := service.NewAdminService(resolver)

	hub := ws.NewHub(func(ctx context.Context, sid, path string) (any, error) {
		return shellService.Navigation(ctx, sid, path)
	}, logger)
	hub.OnConnect = metrics.ClientConnected
	hub.OnDisconnect = metrics.ClientDisconnected

	changes, err := store.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("session subscribe: %w", err)
	}
	go hub.Run(ctx)
	go hub.Watch(ctx, changes, resolver.Subscribe(ctx))
	go confirms.Run(ctx, 30*time.Second)
	go pages.Run(ctx, time.Minute)

	authHandler := handler.NewAuthHandler(authService, handler.CookieOptions{Secure: cfg.Server.CookieSecure, TTL: cfg.Session.TTL})
	shellHandler := handler.NewShellHandler(shellService, hub, logger)
	dashHandler := handler.NewDashboardHandler(dashService, shellService)
	enquiryHandler := handler.NewEnquiryHandler(enquiryService, shellService, confirms)
	wizardHandler := handler.NewWizardHandler(wizardService, shellService, store)
	settingsHandler := handler.NewSettingsHandler(pages, shellService, confirms)
	confirmHandler := handler.NewConfirmHandler(confirms)
	profileHandler := handler.NewProfileHandler(profileService, shellService)
	roleHandler := handler.NewRoleHandler(adminService, shellService)

	// 5. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:      "Survey Console",
		ErrorHandler: handler.ErrorHandler(logger),
		BodyLimit:    8 << 20,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowCredentials: cfg.Server.CORSOrigins != "*",
	}))
	app.Use(metrics.Middleware())

	app.Get("/metrics", metrics.Handler())
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })

	// 6. Routes
	registerRoutes(app, store, shellService, routeHandlers{
		auth:     authHandler,
		shell:    shellHandler,
		dash:     dashHandler,
		enquiry:  enquiryHandler,
		wizard:   wizardHandler,
		settings: settingsHandler,
		confirm:  confirmHandler,
		profile:  profileHandler,
		role:     roleHandler,
	})

	// 7. Graceful Shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr(), "api", cfg.API.BaseURL, "sessions", cfg.Session.Backend)
		errCh <- app.Listen(cfg.Addr())
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	logger.Info("shutting down server")
	stop()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server exited")
	return nil
}
