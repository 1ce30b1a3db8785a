package router

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/calendarinvite/event-management/internal/model"
	"github.com/calendarinvite/event-management/internal/repo/attendee"
	"github.com/calendarinvite/event-management/internal/repo/event"
	"github.com/calendarinvite/event-management/internal/repo/repotest"
	"github.com/calendarinvite/event-management/internal/repo/stats"
)

const testAPIKey = "test-key"

func newApp(t *testing.T) *fiber.App {
	t.Helper()
	t.Setenv("API_KEY", testAPIKey)

	db := repotest.NewDB(t)
	events := event.New(db, event.Config{})
	ledger := attendee.New(db, attendee.Config{})

	ctx := context.Background()
	_, err := events.Create(ctx, "orig-1", model.Event{
		UID:       "ev-1",
		Organizer: "Ann Example",
		Mailto:    "ann@example.com",
		Summary:   "Town hall",
	})
	if err != nil {
		t.Fatal("create event:", err)
	}
	_, err = ledger.RecordInvite(ctx, "ev-1", "bob@example.com", attendee.InviteMeta{
		Origin: model.OriginDirect,
		Name:   "Bob",
	})
	if err != nil {
		t.Fatal("record invite:", err)
	}

	app := fiber.New(fiber.Config{})
	setupRouter(app, Deps{
		Events: events,
		Ledger: ledger,
		Stats:  stats.NewReader(db),
	})
	return app
}

func get(t *testing.T, app *fiber.App, path, apiKey string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if apiKey != "" {
		req.Header.Set("X-API-KEY", apiKey)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return resp.StatusCode, body
}

func TestMissingAPIKeyIsUnauthorized(t *testing.T) {
	app := newApp(t)

	status, body := get(t, app, "/api/events/ev-1", "")
	if status != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want 401", status)
	}
	if body["status"] != false {
		t.Errorf("body = %v", body)
	}
}

func TestGetEvent(t *testing.T) {
	app := newApp(t)

	status, body := get(t, app, "/api/events/ev-1", testAPIKey)
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	data, ok := body["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("body = %v", body)
	}
	if data["uid"] != "ev-1" || data["summary"] != "Town hall" {
		t.Errorf("data = %v", data)
	}
}

func TestGetEventNotFound(t *testing.T) {
	app := newApp(t)

	status, _ := get(t, app, "/api/events/missing", testAPIKey)
	if status != fiber.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
}

func TestListAttendees(t *testing.T) {
	app := newApp(t)

	status, body := get(t, app, "/api/events/ev-1/attendees", testAPIKey)
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if total, ok := body["total"].(float64); !ok || total != 1 {
		t.Errorf("total = %v, want 1", body["total"])
	}
}

func TestEventStatistics(t *testing.T) {
	app := newApp(t)

	status, body := get(t, app, "/api/events/ev-1/statistics", testAPIKey)
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	data, ok := body["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("body = %v", body)
	}
	if attendees, ok := data["attendees"].(float64); !ok || attendees != 1 {
		t.Errorf("attendees = %v, want 1", data["attendees"])
	}
}

func TestSystemStatistics(t *testing.T) {
	app := newApp(t)

	status, body := get(t, app, "/api/statistics", testAPIKey)
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	data, ok := body["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("body = %v", body)
	}
	rsvp, ok := data["rsvp"].(map[string]interface{})
	if !ok {
		t.Fatalf("data = %v", data)
	}
	if noaction, ok := rsvp["noaction"].(float64); !ok || noaction != 1 {
		t.Errorf("noaction = %v, want 1", rsvp["noaction"])
	}
}
