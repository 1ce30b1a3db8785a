package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/calendarinvite/event-management/internal/repo/stats"
	"github.com/calendarinvite/event-management/internal/storage"
)

// GetEventStatistics serves the per-event counters.
func GetEventStatistics(reader *stats.Reader) fiber.Handler {
	return statisticsHandler(reader, func(c *fiber.Ctx) string {
		return storage.EventScopeKey(c.Params("uid"))
	})
}

// GetOrganizerStatistics serves the per-organizer counters.
func GetOrganizerStatistics(reader *stats.Reader) fiber.Handler {
	return statisticsHandler(reader, func(c *fiber.Ctx) string {
		return storage.OrganizerScopeKey(c.Params("mailto"))
	})
}

// GetSystemStatistics serves the system-wide counters.
func GetSystemStatistics(reader *stats.Reader) fiber.Handler {
	return statisticsHandler(reader, func(*fiber.Ctx) string {
		return storage.SystemScopeKey
	})
}

func statisticsHandler(reader *stats.Reader, scope func(*fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		view, err := reader.Get(c.Context(), scope(c))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": false, "error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": true, "data": view})
	}
}
