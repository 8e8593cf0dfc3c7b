package handlers

import (
	"github.com/4rubka/ClanMaster/internal/config"
	"github.com/4rubka/ClanMaster/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	cfg         *config.Config
	db          *gorm.DB
	clanService *services.ClanService
	hub         *services.EventHub
}

// NewHealthHandler creates a new health handler. db is nil for the snapshot backend.
func NewHealthHandler(cfg *config.Config, db *gorm.DB, clanService *services.ClanService, hub *services.EventHub) *HealthHandler {
	return &HealthHandler{
		cfg:         cfg,
		db:          db,
		clanService: clanService,
		hub:         hub,
	}
}

// Root handles root endpoint
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "running",
		"message": "🚀 ClanMaster API v1.0 is running",
		"mode":    h.cfg.AppMode,
	})
}

// HealthCheck reports storage health and registry counters
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	storageStatus := "healthy"
	if h.db != nil {
		if err := config.HealthCheck(h.db); err != nil {
			storageStatus = "unhealthy"
		}
	}

	status := "ok"
	code := fiber.StatusOK
	if storageStatus != "healthy" {
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"checks": fiber.Map{
			"api":     "healthy",
			"storage": storageStatus,
			"backend": h.cfg.Storage.Type,
		},
		"clans":          h.clanService.Count(),
		"pending_writes": h.clanService.Persister().Pending(),
		"event_clients":  h.hub.ClientCount(),
	})
}

// APIInfo handles API v1 info
func (h *HealthHandler) APIInfo(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "ClanMaster API v1.0",
		"version": "1.0.0",
	})
}
