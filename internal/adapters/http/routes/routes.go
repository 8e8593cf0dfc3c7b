package routes

import (
	"time"

	"github.com/4rubka/ClanMaster/internal/adapters/http/handlers"
	"github.com/4rubka/ClanMaster/internal/adapters/http/middleware"
	"github.com/4rubka/ClanMaster/internal/config"
	"github.com/4rubka/ClanMaster/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Deps are the services the HTTP layer is built on
type Deps struct {
	Config *config.Config
	DB     *gorm.DB // nil for the snapshot backend
	Clans  *services.ClanService
	Hub    *services.EventHub
	Auth   *services.AuthService
}

// Setup configures all routes for the application
func Setup(app *fiber.App, deps Deps) {
	cfg := deps.Config

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg, deps.DB, deps.Clans, deps.Hub)
	clanHandler := handlers.NewClanHandler(deps.Clans)
	warHandler := handlers.NewWarHandler(deps.Clans)
	adminHandler := handlers.NewAdminHandler(deps.Clans)
	eventsHandler := handlers.NewEventsHandler(deps.Clans, deps.Hub)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	apiV1.Get("/", healthHandler.APIInfo)

	auth := middleware.AuthMiddleware(cfg.JWT.Secret)

	// Public clan queries
	setupPublicRoutes(apiV1, clanHandler)

	// Chest access needs to know who is asking
	apiV1.Get("/chests/access", auth, middleware.NoCache(), clanHandler.ChestAccess)

	// Own clan (Authenticated actors)
	meRoutes := apiV1.Group("/me")
	meRoutes.Use(auth, middleware.NoCache())
	setupMeRoutes(meRoutes, middleware.ClanWriteLimiter(cfg.RateLimit), clanHandler, warHandler, eventsHandler)

	// Operator routes (Admin only)
	adminRoutes := apiV1.Group("/admin")
	adminRoutes.Use(auth, middleware.AdminOnly(), middleware.NoCache())
	setupAdminRoutes(adminRoutes, adminHandler, eventsHandler)

	// Token minting for local testing
	if cfg.IsDev() {
		devHandler := handlers.NewDevHandler(deps.Auth)
		apiV1.Post("/dev/token", middleware.TokenLimiter(cfg.RateLimit), devHandler.IssueToken)
	}
}

// setupPublicRoutes configures read-only clan routes
func setupPublicRoutes(router fiber.Router, handler *handlers.ClanHandler) {
	clans := router.Group("/clans")
	clans.Get("/", handler.ListClans)

	// Leaderboards are cached briefly
	clans.Get("/top", middleware.CacheControl(30*time.Second), handler.TopByLevel)
	clans.Get("/top/wars", middleware.CacheControl(30*time.Second), handler.TopByWarPoints)

	clans.Get("/:name", handler.GetClan)
	clans.Get("/:name/activity", handler.GetActivity)

	router.Get("/bonuses", middleware.CacheControl(5*time.Minute), handler.ListBonuses)
}

// setupMeRoutes configures routes acting on the caller's clan
func setupMeRoutes(
	router fiber.Router,
	clanWrites fiber.Handler,
	clanHandler *handlers.ClanHandler,
	warHandler *handlers.WarHandler,
	eventsHandler *handlers.EventsHandler,
) {
	router.Get("/stats", clanHandler.MyStats)
	router.Get("/events", eventsHandler.ClanStream)

	// Invites
	router.Get("/invite", clanHandler.PendingInvite)
	router.Post("/invite/accept", clanHandler.AcceptInvite)
	router.Post("/invite/decline", clanHandler.DeclineInvite)

	// Chat
	router.Post("/chat/toggle", clanHandler.ToggleChat)
	router.Get("/chat/recipients", clanHandler.ChatRecipients)

	clan := router.Group("/clan")

	// Lifecycle; create and rename share a per-IP budget
	clan.Get("/", clanHandler.MyClan)
	clan.Post("/", clanWrites, clanHandler.Create)
	clan.Delete("/", clanHandler.Disband)
	clan.Post("/leave", clanHandler.Leave)
	clan.Put("/name", clanWrites, clanHandler.Rename)

	// Membership
	clan.Post("/invite", clanHandler.Invite)
	clan.Post("/kick", clanHandler.Kick)
	clan.Post("/promote", clanHandler.Promote)
	clan.Post("/demote", clanHandler.Demote)
	clan.Post("/transfer", clanHandler.Transfer)

	// Metadata
	clan.Put("/prefix", clanHandler.SetPrefix)
	clan.Put("/description", clanHandler.SetDescription)
	clan.Put("/title", clanHandler.SetTitle)
	clan.Put("/motd", clanHandler.SetMotd)
	clan.Get("/home", clanHandler.GetHome)
	clan.Put("/home", clanHandler.SetHome)
	clan.Delete("/home", clanHandler.DelHome)
	clan.Post("/pvp", clanHandler.TogglePvp)
	clan.Post("/achievements", clanHandler.AddAchievement)

	// Points
	clan.Post("/points/deposit", clanHandler.Deposit)
	clan.Post("/points/withdraw", clanHandler.Withdraw)

	// Chests
	clan.Post("/chests/lock", clanHandler.LockChest)
	clan.Post("/chests/unlock", clanHandler.UnlockChest)

	// Wars & diplomacy
	clan.Get("/wars", warHandler.ListWars)
	clan.Post("/wars", warHandler.Declare)
	clan.Post("/wars/end", warHandler.End)
	clan.Post("/peace", warHandler.Peace)
	clan.Post("/allies", warHandler.AddAlly)
	clan.Delete("/allies/:clan", warHandler.RemoveAlly)
	clan.Post("/enemies", warHandler.AddEnemy)
	clan.Delete("/enemies/:clan", warHandler.RemoveEnemy)
}

// setupAdminRoutes configures operator routes
func setupAdminRoutes(router fiber.Router, handler *handlers.AdminHandler, eventsHandler *handlers.EventsHandler) {
	router.Post("/save", handler.Save)
	router.Post("/daily-reset", handler.ResetDaily)
	router.Get("/events", eventsHandler.AllStream)

	// Settings
	router.Get("/cost", handler.GetCost)
	router.Put("/cost", handler.SetCost)
	router.Post("/spy", handler.ToggleSpy)

	// Combat feed from the game server
	router.Post("/kills", handler.RecordKill)
	router.Post("/deaths", handler.RecordDeath)

	// Clans
	router.Delete("/clans/:name", handler.DeleteClan)
	router.Post("/clans/:name/xp", handler.AddXp)
	router.Put("/clans/:name/level", handler.SetLevel)
	router.Put("/clans/:name/war-points", handler.SetWarPoints)
	router.Post("/clans/:name/achievements", handler.GrantAchievement)
	router.Post("/clans/:name/members", handler.AddMember)
	router.Delete("/clans/:name/members/:actor", handler.KickMember)
}
