package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/4rubka/ClanMaster/internal/adapters/http/middleware"
	"github.com/4rubka/ClanMaster/internal/adapters/http/routes"
	"github.com/4rubka/ClanMaster/internal/config"
	"github.com/4rubka/ClanMaster/internal/core/services"

	"github.com/gofiber/fiber/v2"
)

// shutdownTimeout bounds the final save on exit
const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Open storage (snapshot file or database)
	storage, db, err := config.OpenStorage(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to open storage: %v", err)
	}
	defer func() {
		if err := storage.Close(); err != nil {
			log.Printf("❌ Error closing storage: %v", err)
		}
	}()

	bonuses, err := config.LoadBonuses(cfg.Clan.BonusFile)
	if err != nil {
		log.Fatalf("❌ Failed to load bonuses: %v", err)
	}

	hub := services.NewEventHub()
	notifyService := services.NewNotificationService(hub)

	// No external economy is attached; funds checks are disabled
	clanService := services.NewClanService(
		context.Background(),
		storage,
		services.NewBonusService(bonuses),
		services.ClanOptions{
			MaxMembers:    cfg.Clan.MaxMembers,
			MaxActiveWars: cfg.Clan.MaxActiveWars,
			XPPerLevel:    cfg.Clan.XPPerLevel,
			XPPerKill:     cfg.Clan.XPPerKill,
			WarWinPoints:  cfg.Clan.WarWinPoints,
			CreateCost:    cfg.Clan.CreateCost,
		},
		nil,
		notifyService,
		cfg.Storage.IOTimeout,
		cfg.Storage.IORetries,
	)
	clanService.Start()

	// Autosave and daily kill reset
	cronService, err := services.NewCronService(clanService, cfg.Storage.AutosaveInterval, cfg.Storage.DailyResetSpec, cfg.IsDev())
	if err != nil {
		log.Fatalf("❌ Failed to schedule jobs: %v", err)
	}
	cronService.Start()

	authService := services.NewAuthService(cfg.JWT.Secret, cfg.JWT.AccessTokenMins)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "ClanMaster API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes
	routes.Setup(app, routes.Deps{
		Config: cfg,
		DB:     db,
		Clans:  clanService,
		Hub:    hub,
		Auth:   authService,
	})

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Printf("❌ Server stopped: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	cronService.Stop(ctx)
	if err := clanService.Shutdown(ctx); err != nil {
		log.Printf("❌ Final save failed: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}

// gracefulShutdown stops accepting requests on SIGINT/SIGTERM
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
}
