package stats_test

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/calendarinvite/event-management/internal/model"
	"github.com/calendarinvite/event-management/internal/repo/repotest"
	"github.com/calendarinvite/event-management/internal/repo/stats"
	"github.com/calendarinvite/event-management/internal/storage"
)

func apply(t *testing.T, db *gorm.DB, scope string, d stats.Delta) {
	t.Helper()
	err := db.Transaction(func(tx *gorm.DB) error {
		return stats.Apply(tx, scope, d)
	})
	if err != nil {
		t.Fatal("apply delta:", err)
	}
}

func view(t *testing.T, db *gorm.DB, scope string) *stats.View {
	t.Helper()
	v, err := stats.NewReader(db).Get(context.Background(), scope)
	if err != nil {
		t.Fatal("read view:", err)
	}
	return v
}

func TestApplyInitializesScope(t *testing.T) {
	db := repotest.NewDB(t)
	scope := storage.EventScopeKey("ev-1")

	apply(t, db, scope, stats.Delta{
		Attendees: 1,
		Origin:    map[model.Origin]int64{model.OriginBulk: 1},
		Prodid:    map[string]int64{"-//client//mail//en": 1},
		RSVP:      map[model.RSVPStatus]int64{model.RSVPNoaction: 1},
	})

	v := view(t, db, scope)
	if v.Attendees != 1 {
		t.Errorf("attendees = %d, want 1", v.Attendees)
	}
	if v.RSVP[model.RSVPNoaction] != 1 {
		t.Errorf("noaction = %d, want 1", v.RSVP[model.RSVPNoaction])
	}
	if v.Origin[model.OriginBulk] != 1 {
		t.Errorf("origin bulk = %d, want 1", v.Origin[model.OriginBulk])
	}
	if v.Prodid["-//client//mail//en"] != 1 {
		t.Errorf("prodid count = %d, want 1", v.Prodid["-//client//mail//en"])
	}
}

func TestApplyAccumulates(t *testing.T) {
	db := repotest.NewDB(t)
	scope := storage.OrganizerScopeKey("ann@example.com")

	for i := 0; i < 3; i++ {
		apply(t, db, scope, stats.Delta{Events: 1})
	}

	if v := view(t, db, scope); v.Events != 3 {
		t.Errorf("events = %d, want 3", v.Events)
	}
}

func TestPairedRSVPDeltaKeepsBalance(t *testing.T) {
	db := repotest.NewDB(t)
	scope := storage.SystemScopeKey

	apply(t, db, scope, stats.Delta{
		Attendees: 1,
		RSVP:      map[model.RSVPStatus]int64{model.RSVPNoaction: 1},
	})
	apply(t, db, scope, stats.Delta{
		RSVP: map[model.RSVPStatus]int64{
			model.RSVPNoaction: -1,
			model.RSVPAccepted: 1,
		},
	})

	v := view(t, db, scope)
	if v.RSVP[model.RSVPNoaction] != 0 || v.RSVP[model.RSVPAccepted] != 1 {
		t.Errorf("rsvp = %v, want noaction 0 accepted 1", v.RSVP)
	}
	var sum int64
	for _, n := range v.RSVP {
		sum += n
	}
	if sum != v.Attendees {
		t.Errorf("sum(rsvp) = %d, attendees = %d", sum, v.Attendees)
	}
}

func TestApplyRejectsUnknownStatus(t *testing.T) {
	db := repotest.NewDB(t)

	err := db.Transaction(func(tx *gorm.DB) error {
		return stats.Apply(tx, storage.SystemScopeKey, stats.Delta{
			RSVP: map[model.RSVPStatus]int64{"maybe": 1},
		})
	})
	if err == nil {
		t.Fatal("expected error for unknown rsvp status")
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	db := repotest.NewDB(t)
	scope := storage.EventScopeKey("ev-2")

	for i := 0; i < 2; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			return stats.Seed(tx, scope, "primary", "ann@example.com")
		})
		if err != nil {
			t.Fatal("seed:", err)
		}
	}

	v := view(t, db, scope)
	if v.Tenant != "primary" || v.Mailto != "ann@example.com" {
		t.Errorf("seeded scope = %+v", v)
	}
	if v.Events != 0 || v.Attendees != 0 {
		t.Errorf("seeded scope not zeroed: events %d attendees %d", v.Events, v.Attendees)
	}
}

func TestReaderUnknownScopeReadsZero(t *testing.T) {
	db := repotest.NewDB(t)

	v := view(t, db, storage.EventScopeKey("never-written"))
	if v.Events != 0 || v.Attendees != 0 {
		t.Errorf("unknown scope = %+v, want zeroes", v)
	}
	for _, status := range model.RSVPStatuses {
		if n, ok := v.RSVP[status]; !ok || n != 0 {
			t.Errorf("rsvp[%s] = %d, %v; want 0, true", status, n, ok)
		}
	}
}
