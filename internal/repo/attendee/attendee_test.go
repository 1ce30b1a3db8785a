package attendee_test

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/calendarinvite/event-management/internal/model"
	"github.com/calendarinvite/event-management/internal/repo/attendee"
	"github.com/calendarinvite/event-management/internal/repo/event"
	"github.com/calendarinvite/event-management/internal/repo/repotest"
	"github.com/calendarinvite/event-management/internal/repo/stats"
	"github.com/calendarinvite/event-management/internal/storage"
)

const (
	eventUID  = "ev-1"
	organizer = "ann@example.com"
)

func newLedger(t *testing.T) (*attendee.Ledger, *gorm.DB) {
	t.Helper()
	db := repotest.NewDB(t)

	events := event.New(db, event.Config{})
	_, err := events.Create(context.Background(), "orig-1", model.Event{
		UID:       eventUID,
		Organizer: "Ann Example",
		Mailto:    organizer,
		Summary:   "Town hall",
	})
	if err != nil {
		t.Fatal("create event:", err)
	}

	return attendee.New(db, attendee.Config{}), db
}

func scopeView(t *testing.T, db *gorm.DB, scope string) *stats.View {
	t.Helper()
	v, err := stats.NewReader(db).Get(context.Background(), scope)
	if err != nil {
		t.Fatal("read stats:", err)
	}
	return v
}

func allScopes(eventUID, mailto string) []string {
	return []string{
		storage.EventScopeKey(eventUID),
		storage.OrganizerScopeKey(mailto),
		storage.SystemScopeKey,
	}
}

func inviteLimit(t *testing.T, db *gorm.DB) int {
	t.Helper()
	var ev model.Event
	if err := db.Where("uid = ?", eventUID).First(&ev).Error; err != nil {
		t.Fatal("get event:", err)
	}
	return ev.InviteLimit
}

func TestRecordInvite(t *testing.T) {
	ledger, db := newLedger(t)
	ctx := context.Background()

	result, err := ledger.RecordInvite(ctx, eventUID, "bob@example.com", attendee.InviteMeta{
		Origin: model.OriginBulk,
		Name:   "Bob",
	})
	if err != nil {
		t.Fatal("invite:", err)
	}
	if result != attendee.ResultRecorded {
		t.Fatalf("result = %s, want %s", result, attendee.ResultRecorded)
	}

	record, err := ledger.Get(ctx, eventUID, "bob@example.com")
	if err != nil {
		t.Fatal("get record:", err)
	}
	if record.Status != model.RSVPNoaction || record.Origin != model.OriginBulk {
		t.Errorf("status/origin = %s/%s", record.Status, record.Origin)
	}
	history, err := model.DecodeHistory(record.History)
	if err != nil {
		t.Fatal("decode history:", err)
	}
	if len(history) != 1 || history[0].Status != model.RSVPNoaction {
		t.Errorf("history = %+v, want single noaction entry", history)
	}

	if limit := inviteLimit(t, db); limit != 99 {
		t.Errorf("invite_limit = %d, want 99", limit)
	}

	for _, scope := range allScopes(eventUID, organizer) {
		v := scopeView(t, db, scope)
		if v.Attendees != 1 {
			t.Errorf("%s attendees = %d, want 1", scope, v.Attendees)
		}
		if v.RSVP[model.RSVPNoaction] != 1 {
			t.Errorf("%s noaction = %d, want 1", scope, v.RSVP[model.RSVPNoaction])
		}
		if v.Origin[model.OriginBulk] != 1 {
			t.Errorf("%s origin bulk = %d, want 1", scope, v.Origin[model.OriginBulk])
		}
		if v.Prodid[attendee.DefaultProdid] != 1 {
			t.Errorf("%s prodid = %d, want 1", scope, v.Prodid[attendee.DefaultProdid])
		}
	}
}

func TestRecordInviteRedeliveryIsAlreadySent(t *testing.T) {
	ledger, db := newLedger(t)
	ctx := context.Background()
	meta := attendee.InviteMeta{Origin: model.OriginDirect}

	if _, err := ledger.RecordInvite(ctx, eventUID, "bob@example.com", meta); err != nil {
		t.Fatal("invite:", err)
	}
	result, err := ledger.RecordInvite(ctx, eventUID, "bob@example.com", meta)
	if err != nil {
		t.Fatal("redelivered invite:", err)
	}
	if result != attendee.ResultAlreadySent {
		t.Fatalf("result = %s, want %s", result, attendee.ResultAlreadySent)
	}

	if limit := inviteLimit(t, db); limit != 99 {
		t.Errorf("invite_limit = %d, want 99", limit)
	}
	if v := scopeView(t, db, storage.EventScopeKey(eventUID)); v.Attendees != 1 {
		t.Errorf("attendees = %d, want 1", v.Attendees)
	}
}

func TestTestOriginResendWritesNothing(t *testing.T) {
	ledger, db := newLedger(t)
	ctx := context.Background()

	if _, err := ledger.RecordInvite(ctx, eventUID, "bob@example.com", attendee.InviteMeta{Origin: model.OriginDirect}); err != nil {
		t.Fatal("invite:", err)
	}

	result, err := ledger.RecordInvite(ctx, eventUID, "bob@example.com", attendee.InviteMeta{Origin: model.OriginTest})
	if err != nil {
		t.Fatal("test resend:", err)
	}
	if result != attendee.ResultRecorded {
		t.Fatalf("result = %s, want %s", result, attendee.ResultRecorded)
	}

	var n int64
	if err := db.Model(&model.Attendee{}).Count(&n).Error; err != nil {
		t.Fatal("count attendees:", err)
	}
	if n != 1 {
		t.Errorf("attendee records = %d, want 1", n)
	}
	if limit := inviteLimit(t, db); limit != 99 {
		t.Errorf("invite_limit = %d, want 99", limit)
	}
	if v := scopeView(t, db, storage.SystemScopeKey); v.Attendees != 1 {
		t.Errorf("system attendees = %d, want 1", v.Attendees)
	}
}

func TestRecordRSVPTransition(t *testing.T) {
	ledger, db := newLedger(t)
	ctx := context.Background()
	const clientProdid = "-//client//mail//en"

	if _, err := ledger.RecordInvite(ctx, eventUID, "bob@example.com", attendee.InviteMeta{Origin: model.OriginDirect}); err != nil {
		t.Fatal("invite:", err)
	}

	result, err := ledger.RecordRSVP(ctx, eventUID, "bob@example.com", model.RSVPAccepted, clientProdid)
	if err != nil {
		t.Fatal("rsvp:", err)
	}
	if result != attendee.ResultUpdated {
		t.Fatalf("result = %s, want %s", result, attendee.ResultUpdated)
	}

	record, err := ledger.Get(ctx, eventUID, "bob@example.com")
	if err != nil {
		t.Fatal("get record:", err)
	}
	if record.Status != model.RSVPAccepted || record.Prodid != clientProdid {
		t.Errorf("status/prodid = %s/%s", record.Status, record.Prodid)
	}
	history, err := model.DecodeHistory(record.History)
	if err != nil {
		t.Fatal("decode history:", err)
	}
	if len(history) != 2 || history[1].Status != model.RSVPAccepted {
		t.Errorf("history = %+v, want noaction then accepted", history)
	}

	// One unit moved between buckets in every scope; attendees untouched.
	for _, scope := range allScopes(eventUID, organizer) {
		v := scopeView(t, db, scope)
		if v.Attendees != 1 {
			t.Errorf("%s attendees = %d, want 1", scope, v.Attendees)
		}
		if v.RSVP[model.RSVPNoaction] != 0 || v.RSVP[model.RSVPAccepted] != 1 {
			t.Errorf("%s rsvp = %v, want noaction 0 accepted 1", scope, v.RSVP)
		}
	}

	var n int64
	if err := db.Model(&model.OutboxMessage{}).Where("topic = ?", "rsvp.recorded").Count(&n).Error; err != nil {
		t.Fatal("count outbox:", err)
	}
	if n != 1 {
		t.Errorf("rsvp.recorded notices = %d, want 1", n)
	}
}

func TestRecordRSVPDuplicateWritesNothing(t *testing.T) {
	ledger, db := newLedger(t)
	ctx := context.Background()
	const clientProdid = "-//client//mail//en"

	if _, err := ledger.RecordInvite(ctx, eventUID, "bob@example.com", attendee.InviteMeta{Origin: model.OriginDirect}); err != nil {
		t.Fatal("invite:", err)
	}
	if _, err := ledger.RecordRSVP(ctx, eventUID, "bob@example.com", model.RSVPAccepted, clientProdid); err != nil {
		t.Fatal("rsvp:", err)
	}

	result, err := ledger.RecordRSVP(ctx, eventUID, "bob@example.com", model.RSVPAccepted, clientProdid)
	if err != nil {
		t.Fatal("redelivered rsvp:", err)
	}
	if result != attendee.ResultDuplicate {
		t.Fatalf("result = %s, want %s", result, attendee.ResultDuplicate)
	}

	record, err := ledger.Get(ctx, eventUID, "bob@example.com")
	if err != nil {
		t.Fatal("get record:", err)
	}
	history, err := model.DecodeHistory(record.History)
	if err != nil {
		t.Fatal("decode history:", err)
	}
	if len(history) != 2 {
		t.Errorf("history length = %d, want 2", len(history))
	}
	if v := scopeView(t, db, storage.EventScopeKey(eventUID)); v.RSVP[model.RSVPAccepted] != 1 {
		t.Errorf("accepted = %d, want 1", v.RSVP[model.RSVPAccepted])
	}
}

func TestRecordRSVPWithoutInviteCreatesSharedRecord(t *testing.T) {
	ledger, db := newLedger(t)
	ctx := context.Background()
	const clientProdid = "-//client//mail//en"

	result, err := ledger.RecordRSVP(ctx, eventUID, "carol@example.com", model.RSVPDeclined, clientProdid)
	if err != nil {
		t.Fatal("rsvp:", err)
	}
	if result != attendee.ResultSharedCreated {
		t.Fatalf("result = %s, want %s", result, attendee.ResultSharedCreated)
	}

	record, err := ledger.Get(ctx, eventUID, "carol@example.com")
	if err != nil {
		t.Fatal("get record:", err)
	}
	if record.Origin != model.OriginShared || record.Status != model.RSVPDeclined {
		t.Errorf("origin/status = %s/%s", record.Origin, record.Status)
	}

	v := scopeView(t, db, storage.EventScopeKey(eventUID))
	if v.Attendees != 1 || v.RSVP[model.RSVPDeclined] != 1 {
		t.Errorf("attendees %d declined %d, want 1/1", v.Attendees, v.RSVP[model.RSVPDeclined])
	}
	if v.Origin[model.OriginShared] != 1 {
		t.Errorf("origin shared = %d, want 1", v.Origin[model.OriginShared])
	}
}

func TestRecordRSVPUnknownEvent(t *testing.T) {
	ledger, _ := newLedger(t)

	_, err := ledger.RecordRSVP(context.Background(), "missing", "bob@example.com", model.RSVPAccepted, "-//client//mail//en")
	if !storage.IsNotFound(err) {
		t.Errorf("err = %v, want not-found", err)
	}
}

func TestList(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx := context.Background()

	for _, email := range []string{"carol@example.com", "bob@example.com"} {
		if _, err := ledger.RecordInvite(ctx, eventUID, email, attendee.InviteMeta{Origin: model.OriginDirect}); err != nil {
			t.Fatal("invite:", err)
		}
	}

	records, err := ledger.List(ctx, eventUID)
	if err != nil {
		t.Fatal("list:", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].Email != "bob@example.com" || records[1].Email != "carol@example.com" {
		t.Errorf("order = %s, %s; want email ascending", records[0].Email, records[1].Email)
	}
}
