package handlers

import (
	"sort"

	"github.com/4rubka/ClanMaster/internal/adapters/http/dto"
	"github.com/4rubka/ClanMaster/internal/core/domain"
	"github.com/4rubka/ClanMaster/internal/core/services"
	"github.com/4rubka/ClanMaster/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// WarHandler handles wars and diplomacy between clans
type WarHandler struct {
	clanService *services.ClanService
}

// NewWarHandler creates a new war handler
func NewWarHandler(clanService *services.ClanService) *WarHandler {
	return &WarHandler{
		clanService: clanService,
	}
}

// ListWars GET /api/v1/me/clan/wars
func (h *WarHandler) ListWars(c *fiber.Ctx) error {
	actorID, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	clan, ok := h.clanService.GetClanByActor(actorID)
	if !ok {
		return clanError(c, domain.ErrNotInClan)
	}

	wars := make([]*domain.War, 0, len(clan.ActiveWars))
	for _, war := range clan.ActiveWars {
		wars = append(wars, war)
	}
	sort.Slice(wars, func(i, j int) bool { return wars[i].StartTime.Before(wars[j].StartTime) })

	return response.Success(c, "Wars retrieved successfully", fiber.Map{
		"wars":       wars,
		"wins":       clan.Wins,
		"losses":     clan.Losses,
		"war_points": clan.WarPoints,
	})
}

// Declare POST /api/v1/me/clan/wars
func (h *WarHandler) Declare(c *fiber.Ctx) error {
	return h.clanAction(c, h.clanService.DeclareWar, "War declared")
}

// End POST /api/v1/me/clan/wars/end
func (h *WarHandler) End(c *fiber.Ctx) error {
	return h.clanAction(c, h.clanService.EndWar, "War ended")
}

// Peace POST /api/v1/me/clan/peace
func (h *WarHandler) Peace(c *fiber.Ctx) error {
	return h.clanAction(c, h.clanService.MakePeace, "Peace made")
}

// AddAlly POST /api/v1/me/clan/allies
func (h *WarHandler) AddAlly(c *fiber.Ctx) error {
	return h.clanAction(c, h.clanService.AllyAdd, "Ally added")
}

// RemoveAlly DELETE /api/v1/me/clan/allies/:clan
func (h *WarHandler) RemoveAlly(c *fiber.Ctx) error {
	return h.paramAction(c, h.clanService.AllyRemove, "Ally removed")
}

// AddEnemy POST /api/v1/me/clan/enemies
func (h *WarHandler) AddEnemy(c *fiber.Ctx) error {
	return h.clanAction(c, h.clanService.EnemyAdd, "Enemy added")
}

// RemoveEnemy DELETE /api/v1/me/clan/enemies/:clan
func (h *WarHandler) RemoveEnemy(c *fiber.Ctx) error {
	return h.paramAction(c, h.clanService.EnemyRemove, "Enemy removed")
}

func (h *WarHandler) clanAction(c *fiber.Ctx, fn func(actorID uuid.UUID, clan string) error, message string) error {
	actorID, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req dto.ClanTargetRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	if err := fn(actorID, req.Clan); err != nil {
		return clanError(c, err)
	}
	return response.Success(c, message, nil)
}

func (h *WarHandler) paramAction(c *fiber.Ctx, fn func(actorID uuid.UUID, clan string) error, message string) error {
	actorID, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	if err := fn(actorID, c.Params("clan")); err != nil {
		return clanError(c, err)
	}
	return response.Success(c, message, nil)
}
