package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/calendarinvite/event-management/internal/handler"
	"github.com/calendarinvite/event-management/internal/middleware"
	"github.com/calendarinvite/event-management/internal/repo/attendee"
	"github.com/calendarinvite/event-management/internal/repo/event"
	"github.com/calendarinvite/event-management/internal/repo/stats"
)

// Deps are the injected repositories behind the read API. All writes flow
// through the message queue; the HTTP surface only reads.
type Deps struct {
	Events *event.Store
	Ledger *attendee.Ledger
	Stats  *stats.Reader
}

// Setup builds the fiber app and serves it on port. Blocks until shutdown.
func Setup(deps Deps, port string) {
	app := fiber.New(fiber.Config{})
	app.Use(cors.New())
	app.Use(recover.New())
	setupRouter(app, deps)

	if port == "" {
		port = "3636"
	}
	logrus.WithField("port", port).Info("Serving read API")
	if err := app.Listen(":" + port); err != nil {
		logrus.WithError(err).Fatal("HTTP server stopped")
	}
}

func setupRouter(app *fiber.App, deps Deps) {
	api := app.Group("/api", logger.New(), middleware.APIKeyAuth())

	api.Get("/test.json", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": true, "message": "Pong"})
	})

	api.Get("/events/:uid", handler.GetEvent(deps.Events))
	api.Get("/events/:uid/attendees", handler.ListAttendees(deps.Ledger))
	api.Get("/events/:uid/statistics", handler.GetEventStatistics(deps.Stats))
	api.Get("/organizers/:mailto/statistics", handler.GetOrganizerStatistics(deps.Stats))
	api.Get("/statistics", handler.GetSystemStatistics(deps.Stats))
}
