package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/calendarinvite/event-management/internal/repo/attendee"
	"github.com/calendarinvite/event-management/internal/repo/event"
	"github.com/calendarinvite/event-management/internal/storage"
)

// GetEvent serves one event record.
func GetEvent(events *event.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid := c.Params("uid")
		ev, err := events.Get(c.Context(), uid)
		if err != nil {
			if storage.IsNotFound(err) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"status": false, "error": "event not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": false, "error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": true, "data": ev})
	}
}

// ListAttendees serves the attendee ledger of one event.
func ListAttendees(ledger *attendee.Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid := c.Params("uid")
		records, err := ledger.List(c.Context(), uid)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": false, "error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": true, "data": records, "total": len(records)})
	}
}
