package handlers

import (
	"strconv"

	"github.com/4rubka/ClanMaster/internal/adapters/http/dto"
	"github.com/4rubka/ClanMaster/internal/core/domain"
	"github.com/4rubka/ClanMaster/internal/core/services"
	"github.com/4rubka/ClanMaster/internal/pkg/pagination"
	"github.com/4rubka/ClanMaster/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ClanHandler handles clan endpoints for players
type ClanHandler struct {
	clanService *services.ClanService
}

// NewClanHandler creates a new clan handler
func NewClanHandler(clanService *services.ClanService) *ClanHandler {
	return &ClanHandler{
		clanService: clanService,
	}
}

// ClanView is a clan plus derived progress fields
type ClanView struct {
	*domain.Clan
	Leader   uuid.UUID       `json:"leader"`
	XPToNext float64         `json:"xp_to_next"`
	Activity domain.Activity `json:"activity"`
}

func (h *ClanHandler) view(clan *domain.Clan) ClanView {
	xp, _ := h.clanService.XPToNext(clan.Name)
	activity, _ := h.clanService.ActivityStatus(clan.Name)
	return ClanView{Clan: clan, Leader: clan.Leader(), XPToNext: xp, Activity: activity}
}

// ============================================================
// Public queries
// ============================================================

// ListClans GET /api/v1/clans
func (h *ClanHandler) ListClans(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	names := h.clanService.ListClans()
	return response.Success(c, "Clans retrieved successfully",
		pagination.NewResponse(pagination.Slice(names, params), params, int64(len(names))))
}

// GetClan GET /api/v1/clans/:name
func (h *ClanHandler) GetClan(c *fiber.Ctx) error {
	clan, ok := h.clanService.GetClanByName(c.Params("name"))
	if !ok {
		return response.NotFound(c, "Clan not found")
	}
	return response.Success(c, "Clan retrieved successfully", h.view(clan))
}

// GetActivity GET /api/v1/clans/:name/activity
func (h *ClanHandler) GetActivity(c *fiber.Ctx) error {
	activity, err := h.clanService.ActivityStatus(c.Params("name"))
	if err != nil {
		return clanError(c, err)
	}
	return response.Success(c, "Activity retrieved successfully", activity)
}

// TopByLevel GET /api/v1/clans/top?limit=10
func (h *ClanHandler) TopByLevel(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "10"))
	if err != nil || limit < 1 {
		return response.BadRequest(c, "Invalid limit")
	}
	if limit > pagination.MaxLimit {
		limit = pagination.MaxLimit
	}
	return response.Success(c, "Top clans retrieved successfully", h.clanService.TopByLevel(limit))
}

// TopByWarPoints GET /api/v1/clans/top/wars
func (h *ClanHandler) TopByWarPoints(c *fiber.Ctx) error {
	return response.Success(c, "Top war clans retrieved successfully", h.clanService.TopByWarPoints())
}

// ListBonuses GET /api/v1/bonuses
func (h *ClanHandler) ListBonuses(c *fiber.Ctx) error {
	return response.Success(c, "Bonuses retrieved successfully", h.clanService.Bonuses())
}

// ============================================================
// Own clan
// ============================================================

// Create POST /api/v1/me/clan
func (h *ClanHandler) Create(c *fiber.Ctx) error {
	actorID, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req dto.CreateClanRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	clan, err := h.clanService.CreateClan(req.Name, actorID)
	if err != nil {
		return clanError(c, err)
	}
	return response.Created(c, "Clan created successfully", h.view(clan))
}

// MyClan GET /api/v1/me/clan
func (h *ClanHandler) MyClan(c *fiber.Ctx) error {
	actorID, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	clan, ok := h.clanService.GetClanByActor(actorID)
	if !ok {
		return clanError(c, domain.ErrNotInClan)
	}
	return response.Success(c, "Clan retrieved successfully", h.view(clan))
}

// MyStats GET /api/v1/me/stats
func (h *ClanHandler) MyStats(c *fiber.Ctx) error {
	actorID, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	stats, err := h.clanService.Stats(actorID)
	if err != nil {
		return clanError(c, err)
	}
	return response.Success(c, "Stats retrieved successfully", stats)
}

// Disband DELETE /api/v1/me/clan
func (h *ClanHandler) Disband(c *fiber.Ctx) error {
	return h.actorAction(c, h.clanService.Disband, "Clan disbanded")
}

// Leave POST /api/v1/me/clan/leave
func (h *ClanHandler) Leave(c *fiber.Ctx) error {
	return h.actorAction(c, h.clanService.LeaveClan, "Left clan")
}

// Rename PUT /api/v1/me/clan/name
func (h *ClanHandler) Rename(c *fiber.Ctx) error {
	var req dto.RenameClanRequest
	return h.bodyAction(c, &req, func(actorID uuid.UUID) error {
		return h.clanService.Rename(actorID, req.Name)
	}, "Clan renamed")
}

// ============================================================
// Membership
// ============================================================

// Invite POST /api/v1/me/clan/invite
func (h *ClanHandler) Invite(c *fiber.Ctx) error {
	return h.targetAction(c, h.clanService.Invite, "Invite sent")
}

// Kick POST /api/v1/me/clan/kick
func (h *ClanHandler) Kick(c *fiber.Ctx) error {
	return h.targetAction(c, h.clanService.Kick, "Member kicked")
}

// Promote POST /api/v1/me/clan/promote
func (h *ClanHandler) Promote(c *fiber.Ctx) error {
	return h.targetAction(c, h.clanService.Promote, "Member promoted")
}

// Demote POST /api/v1/me/clan/demote
func (h *ClanHandler) Demote(c *fiber.Ctx) error {
	return h.targetAction(c, h.clanService.Demote, "Member demoted")
}

// Transfer POST /api/v1/me/clan/transfer
func (h *ClanHandler) Transfer(c *fiber.Ctx) error {
	return h.targetAction(c, h.clanService.Transfer, "Leadership transferred")
}

// PendingInvite GET /api/v1/me/invite
func (h *ClanHandler) PendingInvite(c *fiber.Ctx) error {
	actorID, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	clan, ok := h.clanService.PendingInvite(actorID)
	if !ok {
		return clanError(c, domain.ErrNoInvite)
	}
	return response.Success(c, "Invite retrieved successfully", fiber.Map{"clan": clan})
}

// AcceptInvite POST /api/v1/me/invite/accept
func (h *ClanHandler) AcceptInvite(c *fiber.Ctx) error {
	return h.actorAction(c, h.clanService.AcceptInvite, "Joined clan")
}

// DeclineInvite POST /api/v1/me/invite/decline
func (h *ClanHandler) DeclineInvite(c *fiber.Ctx) error {
	return h.actorAction(c, h.clanService.DeclineInvite, "Invite declined")
}

// ============================================================
// Metadata
// ============================================================

// SetPrefix PUT /api/v1/me/clan/prefix
func (h *ClanHandler) SetPrefix(c *fiber.Ctx) error {
	return h.textAction(c, h.clanService.SetPrefix, "Prefix updated")
}

// SetDescription PUT /api/v1/me/clan/description
func (h *ClanHandler) SetDescription(c *fiber.Ctx) error {
	return h.textAction(c, h.clanService.SetDescription, "Description updated")
}

// SetTitle PUT /api/v1/me/clan/title
func (h *ClanHandler) SetTitle(c *fiber.Ctx) error {
	return h.textAction(c, h.clanService.SetTitle, "Title updated")
}

// SetMotd PUT /api/v1/me/clan/motd
func (h *ClanHandler) SetMotd(c *fiber.Ctx) error {
	return h.textAction(c, h.clanService.SetMotd, "Message of the day updated")
}

// GetHome GET /api/v1/me/clan/home
func (h *ClanHandler) GetHome(c *fiber.Ctx) error {
	actorID, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	home, err := h.clanService.Home(actorID)
	if err != nil {
		return clanError(c, err)
	}
	return response.Success(c, "Home retrieved successfully", fiber.Map{"location": home})
}

// SetHome PUT /api/v1/me/clan/home
func (h *ClanHandler) SetHome(c *fiber.Ctx) error {
	var req dto.HomeRequest
	return h.bodyAction(c, &req, func(actorID uuid.UUID) error {
		return h.clanService.SetHome(actorID, req.Location)
	}, "Home set")
}

// DelHome DELETE /api/v1/me/clan/home
func (h *ClanHandler) DelHome(c *fiber.Ctx) error {
	return h.actorAction(c, h.clanService.DelHome, "Home removed")
}

// TogglePvp POST /api/v1/me/clan/pvp
func (h *ClanHandler) TogglePvp(c *fiber.Ctx) error {
	actorID, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	enabled, err := h.clanService.TogglePvp(actorID)
	if err != nil {
		return clanError(c, err)
	}
	return response.Success(c, "Friendly fire toggled", fiber.Map{"friendly_fire": enabled})
}

// AddAchievement POST /api/v1/me/clan/achievements
func (h *ClanHandler) AddAchievement(c *fiber.Ctx) error {
	var req dto.AchievementRequest
	return h.bodyAction(c, &req, func(actorID uuid.UUID) error {
		return h.clanService.AddAchievement(actorID, req.Achievement)
	}, "Achievement unlocked")
}

// ============================================================
// Points
// ============================================================

// Deposit POST /api/v1/me/clan/points/deposit
func (h *ClanHandler) Deposit(c *fiber.Ctx) error {
	var req dto.AmountRequest
	return h.bodyAction(c, &req, func(actorID uuid.UUID) error {
		return h.clanService.PointsDeposit(actorID, req.Amount)
	}, "Points deposited")
}

// Withdraw POST /api/v1/me/clan/points/withdraw
func (h *ClanHandler) Withdraw(c *fiber.Ctx) error {
	var req dto.AmountRequest
	return h.bodyAction(c, &req, func(actorID uuid.UUID) error {
		return h.clanService.PointsWithdraw(actorID, req.Amount)
	}, "Points withdrawn")
}

// ============================================================
// Chests & chat
// ============================================================

// LockChest POST /api/v1/me/clan/chests/lock
func (h *ClanHandler) LockChest(c *fiber.Ctx) error {
	var req dto.ChestRequest
	return h.bodyAction(c, &req, func(actorID uuid.UUID) error {
		return h.clanService.LockChest(actorID, req.Chest)
	}, "Chest locked")
}

// UnlockChest POST /api/v1/me/clan/chests/unlock
func (h *ClanHandler) UnlockChest(c *fiber.Ctx) error {
	var req dto.ChestRequest
	return h.bodyAction(c, &req, func(actorID uuid.UUID) error {
		return h.clanService.UnlockChest(actorID, req.Chest)
	}, "Chest unlocked")
}

// ChestAccess GET /api/v1/chests/access?chest=...
func (h *ClanHandler) ChestAccess(c *fiber.Ctx) error {
	actorID, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	chest := c.Query("chest")
	if chest == "" {
		return response.BadRequest(c, "chest is required")
	}
	owner, _ := h.clanService.ChestOwner(chest)
	return response.Success(c, "Chest access checked", fiber.Map{
		"chest":      chest,
		"owner":      owner,
		"can_access": h.clanService.CanAccessChest(actorID, chest),
	})
}

// ToggleChat POST /api/v1/me/chat/toggle
func (h *ClanHandler) ToggleChat(c *fiber.Ctx) error {
	actorID, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	on, err := h.clanService.ToggleClanChat(actorID)
	if err != nil {
		return clanError(c, err)
	}
	return response.Success(c, "Clan chat toggled", fiber.Map{"clan_chat": on})
}

// ChatRecipients GET /api/v1/me/chat/recipients
func (h *ClanHandler) ChatRecipients(c *fiber.Ctx) error {
	actorID, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	recipients, err := h.clanService.ChatRecipients(actorID)
	if err != nil {
		return clanError(c, err)
	}
	return response.Success(c, "Chat recipients retrieved", fiber.Map{
		"clan_chat":  h.clanService.IsClanChat(actorID),
		"recipients": recipients,
	})
}

// ============================================================
// Helpers
// ============================================================

func (h *ClanHandler) actorAction(c *fiber.Ctx, fn func(actorID uuid.UUID) error, message string) error {
	actorID, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	if err := fn(actorID); err != nil {
		return clanError(c, err)
	}
	return response.Success(c, message, nil)
}

func (h *ClanHandler) bodyAction(c *fiber.Ctx, req interface{}, fn func(actorID uuid.UUID) error, message string) error {
	actorID, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	if ok, err := parseBody(c, req); !ok {
		return err
	}
	if err := fn(actorID); err != nil {
		return clanError(c, err)
	}
	return response.Success(c, message, nil)
}

func (h *ClanHandler) targetAction(c *fiber.Ctx, fn func(actorID, targetID uuid.UUID) error, message string) error {
	var req dto.TargetRequest
	return h.bodyAction(c, &req, func(actorID uuid.UUID) error {
		targetID, ok := parseActorID(req.ActorID)
		if !ok {
			return domain.ErrNotMember
		}
		return fn(actorID, targetID)
	}, message)
}

func (h *ClanHandler) textAction(c *fiber.Ctx, fn func(actorID uuid.UUID, value string) error, message string) error {
	var req dto.TextRequest
	return h.bodyAction(c, &req, func(actorID uuid.UUID) error {
		return fn(actorID, req.Value)
	}, message)
}
