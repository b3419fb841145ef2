package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/config"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/identity"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	resolver *identity.Resolver,
	caseHandler *handlers.CaseHandler,
	notificationHandler *handlers.NotificationHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	// Health (public)
	api.Get("/health", healthHandler.Check)

	// Everything below needs a verified token and a known user
	authed := []fiber.Handler{middleware.JWTProtected(cfg), middleware.Identify(resolver)}
	moderator := with(authed, middleware.ModeratorRequired())

	// Submissions: stricter limit, 10 req/min per IP
	submit := limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	})
	api.Post("/contributions", with(authed, submit, caseHandler.CreateContribution)...)
	api.Put("/contributions/:id", with(authed, submit, caseHandler.ResubmitContribution)...)
	api.Post("/reports/:kind", with(authed, submit, caseHandler.CreateReport)...)

	// Case review. Static segments are registered before /:kind/:id.
	cases := api.Group("/cases")
	cases.Get("/:kind/mine", with(authed, caseHandler.ListMine)...)
	cases.Get("/:kind/stats", with(moderator, caseHandler.Stats)...)
	cases.Get("/:kind", with(moderator, caseHandler.List)...)
	cases.Get("/:kind/:id", with(authed, caseHandler.Get)...)
	cases.Post("/:kind/:id/claim", with(moderator, caseHandler.Claim)...)
	cases.Post("/:kind/:id/release", with(moderator, caseHandler.Release)...)
	cases.Post("/:kind/:id/resolve", with(moderator, caseHandler.Resolve)...)

	// Notification inbox
	api.Get("/notifications", with(authed, notificationHandler.List)...)
	api.Post("/notifications/read-all", with(authed, notificationHandler.MarkAllRead)...)
	api.Post("/notifications/:id/read", with(authed, notificationHandler.MarkRead)...)
}

func with(chain []fiber.Handler, handlers ...fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(chain)+len(handlers))
	out = append(out, chain...)
	return append(out, handlers...)
}
