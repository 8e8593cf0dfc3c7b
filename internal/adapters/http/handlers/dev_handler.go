package handlers

import (
	"errors"

	"github.com/4rubka/ClanMaster/internal/adapters/http/dto"
	"github.com/4rubka/ClanMaster/internal/core/services"
	"github.com/4rubka/ClanMaster/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// DevHandler mints tokens for local testing. Only mounted in dev mode.
type DevHandler struct {
	authService *services.AuthService
}

// NewDevHandler creates a new dev handler
func NewDevHandler(authService *services.AuthService) *DevHandler {
	return &DevHandler{
		authService: authService,
	}
}

// IssueToken POST /api/v1/dev/token
// A missing actor_id mints a token for a fresh random actor.
func (h *DevHandler) IssueToken(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	actorID := uuid.New()
	if req.ActorID != "" {
		actorID, _ = parseActorID(req.ActorID)
	}

	token, err := h.authService.IssueToken(actorID, req.Role)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRole) {
			return response.BadRequest(c, err.Error())
		}
		return response.InternalServerError(c, "Failed to issue token")
	}
	return response.Created(c, "Token issued", token)
}
