package handlers

import (
	"errors"

	"github.com/4rubka/ClanMaster/internal/adapters/http/dto"
	"github.com/4rubka/ClanMaster/internal/adapters/http/middleware"
	"github.com/4rubka/ClanMaster/internal/core/domain"
	"github.com/4rubka/ClanMaster/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = dto.NewValidator()

// parseBody decodes and validates the request body. On failure the response
// is already written and ok is false.
func parseBody(c *fiber.Ctx, req interface{}) (ok bool, err error) {
	if err := c.BodyParser(req); err != nil {
		return false, response.BadRequest(c, "Invalid request body")
	}
	if errs := dto.ValidateStruct(validate, req); len(errs) > 0 {
		return false, response.ValidationError(c, errs)
	}
	return true, nil
}

// currentActor returns the authenticated actor id
func currentActor(c *fiber.Ctx) (uuid.UUID, bool) {
	return middleware.ActorID(c)
}

// clanError maps registry rejections to HTTP status codes
func clanError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrClanNotFound):
		return response.NotFound(c, "Clan not found")
	case isAny(err, domain.ErrNoInvite, domain.ErrNoHome):
		return response.NotFound(c, rootMessage(err))
	case isAny(err, domain.ErrClanExists, domain.ErrAlreadyInClan, domain.ErrAlreadyAtWar,
		domain.ErrClanFull, domain.ErrChestLocked, domain.ErrAchievementExists, domain.ErrWarLimit):
		return response.Conflict(c, rootMessage(err))
	case isAny(err, domain.ErrNoPermission, domain.ErrNotLeader):
		return response.Forbidden(c, rootMessage(err))
	case isAny(err, domain.ErrNotInClan, domain.ErrNotMember, domain.ErrLeaderMustTransfer,
		domain.ErrCannotDemoteLeader, domain.ErrRankLimit, domain.ErrNotAtWar,
		domain.ErrChestNotLocked, domain.ErrInsufficientFunds, domain.ErrInsufficientPoints):
		return response.UnprocessableEntity(c, rootMessage(err))
	case isAny(err, domain.ErrInvalidName, domain.ErrInvalidAmount, domain.ErrInvalidRank, domain.ErrSelfAction,
		domain.ErrSelfWar, domain.ErrSelfRelation, domain.ErrTextTooLong, domain.ErrEmptyValue):
		return response.BadRequest(c, err.Error())
	default:
		return response.InternalServerError(c, "Clan operation failed")
	}
}

func isAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// rootMessage hides wrapping context such as economy backend errors
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

// parseActorID parses an actor id from a body field or path parameter
func parseActorID(raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	return id, err == nil
}
