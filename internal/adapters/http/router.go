package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/pawcircle/nearby/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// RouterOptions tune middleware that tests need to relax.
type RouterOptions struct {
	RateLimit int // requests per minute per IP, 0 disables limiting
}

// DefaultRouterOptions are used by the api binary.
var DefaultRouterOptions = RouterOptions{RateLimit: 120}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies, opts RouterOptions) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	if opts.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        opts.RateLimit,
			Expiration: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
			},
		}))
	}

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())
	app.Use(DeprecationMiddleware(DeprecatedRoutes))

	// no timeout: fast internal checks
	app.Get("/v1/health", HealthHandler())
	app.Get("/v1/ready", ReadyHandler(deps))

	admin := RequireRole(deps.Auth, RoleAdmin)
	optional := OptionalAuth(deps.Auth)
	withTimeout := func(h fiber.Handler) fiber.Handler {
		return timeout.NewWithContext(h, requestTimeout)
	}

	v1 := app.Group("/v1")
	v1.Get("/communities", withTimeout(ListCommunitiesHandler(deps)))
	v1.Get("/communities/locate", withTimeout(LocateCommunityHandler(deps)))
	v1.Get("/communities/:id", withTimeout(GetCommunityHandler(deps)))
	v1.Post("/communities", admin, withTimeout(CreateCommunityHandler(deps)))
	v1.Patch("/communities/:id/active", admin, withTimeout(SetCommunityActiveHandler(deps)))

	v1.Get("/orders/nearby", optional, withTimeout(NearbyOrdersHandler(deps)))
	v1.Post("/orders/:id/community", admin, withTimeout(AssignOrderHandler(deps)))
	v1.Get("/distance", withTimeout(DistanceHandler(deps)))

	// deprecated alias, see DeprecatedRoutes
	v1.Get("/services/nearby", optional, withTimeout(NearbyOrdersHandler(deps)))

	app.Post("/graphql", optional, GraphQLHandler(deps))

	SetupDocs(app)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
