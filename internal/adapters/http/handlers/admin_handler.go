package handlers

import (
	"context"
	"errors"
	"log"

	"github.com/4rubka/ClanMaster/internal/adapters/http/dto"
	"github.com/4rubka/ClanMaster/internal/core/services"
	"github.com/4rubka/ClanMaster/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler handles operator endpoints
type AdminHandler struct {
	clanService *services.ClanService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(clanService *services.ClanService) *AdminHandler {
	return &AdminHandler{
		clanService: clanService,
	}
}

// ============================================================
// Storage
// ============================================================

// Save POST /api/v1/admin/save
func (h *AdminHandler) Save(c *fiber.Ctx) error {
	if err := h.clanService.Save(c.UserContext()); err != nil {
		log.Printf("❌ Manual save failed: %v", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return response.Error(c, fiber.StatusGatewayTimeout, "Save timed out")
		}
		if errors.Is(err, services.ErrStorageNotLoaded) {
			return response.Error(c, fiber.StatusConflict, "Storage was never loaded, refusing to overwrite it")
		}
		return response.InternalServerError(c, "Failed to save clans")
	}
	return response.Success(c, "Clans saved", fiber.Map{"clans": h.clanService.Count()})
}

// ResetDaily POST /api/v1/admin/daily-reset
func (h *AdminHandler) ResetDaily(c *fiber.Ctx) error {
	reset := h.clanService.ResetDailyKills()
	return response.Success(c, "Daily kills reset", fiber.Map{"clans_reset": reset})
}

// ============================================================
// Clans
// ============================================================

// DeleteClan DELETE /api/v1/admin/clans/:name
func (h *AdminHandler) DeleteClan(c *fiber.Ctx) error {
	if err := h.clanService.DeleteClan(c.Params("name")); err != nil {
		return clanError(c, err)
	}
	return response.Success(c, "Clan deleted", nil)
}

// AddXp POST /api/v1/admin/clans/:name/xp
func (h *AdminHandler) AddXp(c *fiber.Ctx) error {
	var req dto.AmountRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	leveled, err := h.clanService.AddXp(c.Params("name"), req.Amount)
	if err != nil {
		return clanError(c, err)
	}
	return response.Success(c, "XP added", fiber.Map{"leveled_up": leveled})
}

// SetLevel PUT /api/v1/admin/clans/:name/level
func (h *AdminHandler) SetLevel(c *fiber.Ctx) error {
	var req dto.SetLevelRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	if err := h.clanService.SetLevel(c.Params("name"), req.Level); err != nil {
		return clanError(c, err)
	}
	return response.Success(c, "Level updated", nil)
}

// SetWarPoints PUT /api/v1/admin/clans/:name/war-points
func (h *AdminHandler) SetWarPoints(c *fiber.Ctx) error {
	var req dto.SetWarPointsRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	if err := h.clanService.SetWarPoints(c.Params("name"), req.WarPoints); err != nil {
		return clanError(c, err)
	}
	return response.Success(c, "War points updated", nil)
}

// GrantAchievement POST /api/v1/admin/clans/:name/achievements
func (h *AdminHandler) GrantAchievement(c *fiber.Ctx) error {
	var req dto.AchievementRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	if err := h.clanService.GrantAchievement(c.Params("name"), req.Achievement); err != nil {
		return clanError(c, err)
	}
	return response.Success(c, "Achievement granted", nil)
}

// AddMember POST /api/v1/admin/clans/:name/members
func (h *AdminHandler) AddMember(c *fiber.Ctx) error {
	var req dto.AddMemberRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	actorID, _ := parseActorID(req.ActorID)
	if err := h.clanService.AddMember(c.Params("name"), actorID); err != nil {
		return clanError(c, err)
	}
	return response.Success(c, "Member added", nil)
}

// KickMember DELETE /api/v1/admin/clans/:name/members/:actor
func (h *AdminHandler) KickMember(c *fiber.Ctx) error {
	actorID, ok := parseActorID(c.Params("actor"))
	if !ok {
		return response.BadRequest(c, "Invalid actor ID")
	}
	if err := h.clanService.KickMember(c.Params("name"), actorID); err != nil {
		return clanError(c, err)
	}
	return response.Success(c, "Member kicked", nil)
}

// ============================================================
// Settings & combat feed
// ============================================================

// GetCost GET /api/v1/admin/cost
func (h *AdminHandler) GetCost(c *fiber.Ctx) error {
	return response.Success(c, "Creation cost retrieved", fiber.Map{"cost": h.clanService.CreateCost()})
}

// SetCost PUT /api/v1/admin/cost
func (h *AdminHandler) SetCost(c *fiber.Ctx) error {
	var req dto.SetCostRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	if err := h.clanService.SetCreateCost(req.Cost); err != nil {
		return clanError(c, err)
	}
	return response.Success(c, "Creation cost updated", fiber.Map{"cost": req.Cost})
}

// RecordKill POST /api/v1/admin/kills
func (h *AdminHandler) RecordKill(c *fiber.Ctx) error {
	var req dto.KillRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	killerID, _ := parseActorID(req.KillerID)
	victimID, _ := parseActorID(req.VictimID)
	if killerID == victimID {
		return response.BadRequest(c, "Killer and victim must differ")
	}
	h.clanService.RecordKill(killerID, victimID)
	return response.Success(c, "Kill recorded", nil)
}

// RecordDeath POST /api/v1/admin/deaths
func (h *AdminHandler) RecordDeath(c *fiber.Ctx) error {
	var req dto.DeathRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	victimID, _ := parseActorID(req.VictimID)
	h.clanService.RecordDeath(victimID)
	return response.Success(c, "Death recorded", nil)
}

// ToggleSpy POST /api/v1/admin/spy
func (h *AdminHandler) ToggleSpy(c *fiber.Ctx) error {
	actorID, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	on := h.clanService.ToggleSpy(actorID)
	return response.Success(c, "Chat spy toggled", fiber.Map{"spy": on})
}
