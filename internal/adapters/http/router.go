package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/trainschedule/internal/pkg/metrics"
)

const (
	requestTimeout = 30 * time.Second
	refreshTimeout = 2 * time.Minute
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(recover.New())

	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(cors.New())

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

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

	// Health & readiness, no timeout
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Get("/stations", timeout.NewWithContext(ListStationsHandler(deps), requestTimeout))
	v1.Get("/stations/:id", timeout.NewWithContext(GetStationHandler(deps), requestTimeout))
	v1.Get("/counties", timeout.NewWithContext(CountiesHandler(deps), requestTimeout))
	v1.Get("/lines", timeout.NewWithContext(ListLinesHandler(deps), requestTimeout))
	v1.Get("/lines/:id/stations", timeout.NewWithContext(LineStationsHandler(deps), requestTimeout))
	v1.Post("/catalog/refresh", timeout.NewWithContext(RefreshCatalogHandler(deps), refreshTimeout))

	v1.Get("/trips", timeout.NewWithContext(SearchTripsHandler(deps), requestTimeout))
	v1.Get("/timetables", timeout.NewWithContext(TimetablesHandler(deps), requestTimeout))
	v1.Get("/fares", timeout.NewWithContext(FaresHandler(deps), requestTimeout))
	v1.Get("/trains/:number/schedule", timeout.NewWithContext(TrainScheduleHandler(deps), requestTimeout))
	v1.Get("/trains/:number/liveboard", timeout.NewWithContext(TrainLiveBoardHandler(deps), requestTimeout))

	v1.Get("/preferences/path", GetCurrentPathHandler(deps))
	v1.Put("/preferences/path", timeout.NewWithContext(PutCurrentPathHandler(deps), requestTimeout))
	v1.Get("/preferences/datetime", GetSelectedDateTimeHandler(deps))
	v1.Put("/preferences/datetime", PutSelectedDateTimeHandler(deps))
	v1.Get("/favorites", ListFavoritesHandler(deps))
	v1.Post("/favorites", timeout.NewWithContext(AddFavoriteHandler(deps), requestTimeout))
	v1.Get("/favorites/:from/:to", IsFavoriteHandler(deps))
	v1.Delete("/favorites/:from/:to", DeleteFavoriteHandler(deps))

	// GraphQL
	app.Post("/graphql", timeout.NewWithContext(GraphQLHandler(deps), requestTimeout))

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/trains/:number", PrepareTrackingHandler(deps), websocket.New(TrackTrainHandler(deps)))
}
