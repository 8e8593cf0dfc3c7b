package middleware

import (
	"strings"

	"github.com/4rubka/ClanMaster/internal/pkg/jwt"
	"github.com/4rubka/ClanMaster/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Locals keys set by AuthMiddleware
const (
	LocalActorID = "actorID"
	LocalRole    = "role"
)

// bearerToken reads the token from the access_token cookie or the Authorization header
func bearerToken(c *fiber.Ctx) string {
	if token := c.Cookies("access_token"); token != "" {
		return token
	}
	authHeader := c.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// AuthMiddleware creates authentication middleware
func AuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accessToken := bearerToken(c)
		if accessToken == "" {
			return response.Unauthorized(c, "Access token required")
		}

		claims, err := jwt.ValidateAccessToken(accessToken, secret)
		if err != nil {
			if err == jwt.ErrTokenExpired {
				return response.Unauthorized(c, "Access token expired")
			}
			return response.Unauthorized(c, "Invalid access token")
		}
		actorID, err := claims.ActorID()
		if err != nil {
			return response.Unauthorized(c, "Invalid access token")
		}

		c.Locals(LocalActorID, actorID)
		c.Locals(LocalRole, claims.Role)
		return c.Next()
	}
}

// ActorID returns the authenticated actor
func ActorID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(LocalActorID).(uuid.UUID)
	return id, ok
}

// RoleMiddleware creates role-based authorization middleware
func RoleMiddleware(allowedRoles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(LocalRole).(string)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}

		for _, allowedRole := range allowedRoles {
			if role == allowedRole {
				return c.Next()
			}
		}

		return response.Forbidden(c, "You don't have permission to access this resource")
	}
}

// AdminOnly middleware allows only ADMIN role
func AdminOnly() fiber.Handler {
	return RoleMiddleware(jwt.RoleAdmin)
}
