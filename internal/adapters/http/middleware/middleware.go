package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/4rubka/ClanMaster/internal/config"
	"github.com/4rubka/ClanMaster/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Methods the clan API actually routes
const allowedMethods = "GET,POST,PUT,DELETE,OPTIONS"

// Setup installs the chain every clan route passes through
func Setup(app *fiber.App, cfg *config.Config) {
	app.Use(recover.New(recover.Config{EnableStackTrace: cfg.IsDev()}))

	// event streams flush per message, compression would hold them back
	app.Use(compress.New(compress.Config{
		Next:  isEventStream,
		Level: compress.LevelBestSpeed,
	}))

	// JSON only: nothing here is meant to be framed, embedded or scripted
	app.Use(helmet.New(helmet.Config{
		XSSProtection:             "0",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		ContentSecurityPolicy:     "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:            "no-referrer",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		PermissionPolicy:          "geolocation=(), microphone=(), camera=()",
	}))

	app.Use(clanLimiter(cfg.RateLimit.General, cfg.RateLimit.Window, "api",
		"Too many requests, slow down", unlimited))

	format := "${time} ${method} ${path} -> ${status} in ${latency} [${ip} actor=${locals:" + LocalActorID + "}]"
	if cfg.IsDev() {
		app.Use(logger.New(logger.Config{Format: format + "\n"}))
	} else {
		app.Use(logger.New(logger.Config{
			Format:     format + " ${error}\n",
			TimeFormat: time.RFC3339,
		}))
	}

	// bearer tokens travel in a header, so credentials only matter for pinned origins
	origins := cfg.GetAllowedOrigins()
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     allowedMethods,
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           int((10 * time.Minute).Seconds()),
	}))
}

// ClanWriteLimiter guards clan creation and rename, both of which lock the
// whole registry. Create and rename share one bucket.
func ClanWriteLimiter(limits config.RateLimitConfig) fiber.Handler {
	return clanLimiter(limits.ClanWrite, limits.Window, "clan-write",
		"Too many clan changes, wait before creating or renaming again", nil)
}

// TokenLimiter guards dev token minting
func TokenLimiter(limits config.RateLimitConfig) fiber.Handler {
	return clanLimiter(limits.Token, limits.Window, "token",
		"Too many token requests, wait a minute", nil)
}

// clanLimiter counts requests per client IP in the named bucket.
// A non-positive limit leaves the route unlimited.
func clanLimiter(limit int, window time.Duration, bucket, message string, skip func(*fiber.Ctx) bool) fiber.Handler {
	if limit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Next:       skip,
		Max:        limit,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return bucket + ":" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return response.Error(c, fiber.StatusTooManyRequests, message)
		},
	})
}

func isEventStream(c *fiber.Ctx) bool {
	return strings.HasSuffix(c.Path(), "/events")
}

// unlimited skips health probes and long-lived event streams
func unlimited(c *fiber.Ctx) bool {
	return c.Path() == "/health" || isEventStream(c)
}

// CustomErrorHandler renders errors that escaped the handlers in the API envelope
func CustomErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return response.Error(c, fe.Code, fe.Message)
	}
	return response.InternalServerError(c, "Internal Server Error")
}
