// Package attendee owns the per-attendee invite and RSVP ledger. Records are
// created at most once per (event, attendee) pair and mutated only by RSVP
// replies; every mutation carries its three-scope statistics delta in the
// same transaction so sum(rsvp) == attendees holds at every observable point.
package attendee

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/calendarinvite/event-management/internal/model"
	"github.com/calendarinvite/event-management/internal/repo/outbox"
	"github.com/calendarinvite/event-management/internal/repo/stats"
	"github.com/calendarinvite/event-management/internal/storage"
)

// Result of a ledger operation.
type Result string

const (
	ResultRecorded      Result = "recorded"
	ResultAlreadySent   Result = "already_sent"
	ResultUpdated       Result = "updated"
	ResultSharedCreated Result = "shared_created"
	ResultDuplicate     Result = "duplicate"
)

// DefaultProdid identifies invites generated by this service rather than a
// replying calendar client.
const DefaultProdid = "-//calendarinvite//event-management//en"

// Config tunes a Ledger.
type Config struct {
	Prodid    string
	TopicRSVP string
}

// Ledger is the attendee repository.
type Ledger struct {
	db  *gorm.DB
	cfg Config
}

// New returns a Ledger over db.
func New(db *gorm.DB, cfg Config) *Ledger {
	if cfg.Prodid == "" {
		cfg.Prodid = DefaultProdid
	}
	if cfg.TopicRSVP == "" {
		cfg.TopicRSVP = "rsvp.recorded"
	}
	return &Ledger{db: db, cfg: cfg}
}

// InviteMeta describes an invite send request.
type InviteMeta struct {
	Origin model.Origin
	Name   string
}

// RecordInvite records that an invite was sent to an attendee. An existing
// record means the invite already went out: the caller gets AlreadySent and
// must not send again. Test-origin sends are the exception; they may repeat
// for diagnostics and never write a second record. Otherwise one transaction
// inserts the record (status noaction, single-entry history), decrements the
// event's remaining invite allowance, and applies the three-scope statistics
// delta.
func (l *Ledger) RecordInvite(ctx context.Context, eventUID, email string, meta InviteMeta) (Result, error) {
	if eventUID == "" || email == "" || meta.Origin == "" {
		return "", fmt.Errorf("attendee: invite: missing event uid, email or origin")
	}

	existing, err := l.Get(ctx, eventUID, email)
	if err != nil && !storage.IsNotFound(err) {
		return "", err
	}
	if existing != nil {
		if meta.Origin == model.OriginTest {
			// Diagnostic resend: the invite goes out again, nothing is written.
			return ResultRecorded, nil
		}
		logrus.WithFields(logrus.Fields{"uid": eventUID, "attendee": email}).
			Warn("Invite already sent")
		return ResultAlreadySent, nil
	}

	var ev model.Event
	if err := l.db.WithContext(ctx).Where("uid = ?", eventUID).First(&ev).Error; err != nil {
		return "", fmt.Errorf("attendee: invite: event %s: %w", eventUID, err)
	}

	now := time.Now().Unix()
	history, err := model.EncodeHistory([]model.HistoryEntry{
		{Status: model.RSVPNoaction, Timestamp: now, Prodid: l.cfg.Prodid},
	})
	if err != nil {
		return "", fmt.Errorf("attendee: invite: %w", err)
	}

	name := meta.Name
	if name == "" {
		name = "customer"
	}
	record := model.Attendee{
		EventUID: eventUID,
		Email:    email,
		Mailto:   ev.Mailto,
		Name:     name,
		Status:   model.RSVPNoaction,
		Origin:   meta.Origin,
		Prodid:   l.cfg.Prodid,
		Created:  now,
		History:  history,
	}

	delta := stats.Delta{
		Attendees: 1,
		Origin:    map[model.Origin]int64{meta.Origin: 1},
		Prodid:    map[string]int64{l.cfg.Prodid: 1},
		RSVP:      map[model.RSVPStatus]int64{model.RSVPNoaction: 1},
	}

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		res := tx.Model(&model.Event{}).
			Where("uid = ?", eventUID).
			UpdateColumn("invite_limit", gorm.Expr("invite_limit - ?", 1))
		if res.Error != nil {
			return res.Error
		}
		return l.applyAllScopes(tx, eventUID, ev.Mailto, delta)
	})
	if err != nil {
		if storage.IsConditionFailed(err) {
			// Lost the race to another sender; the invite is on its way.
			return ResultAlreadySent, nil
		}
		return "", fmt.Errorf("attendee: invite %s/%s: %w", eventUID, email, err)
	}

	return ResultRecorded, nil
}

// RecordRSVP applies an attendee reply. A reply with no prior invite record
// creates a shared-origin record (forwarded invite); a reply repeating the
// current status is a duplicate delivery and writes nothing; a changed status
// appends to the history and moves one unit between rsvp buckets in all three
// scopes, as a single combined delta per scope.
func (l *Ledger) RecordRSVP(ctx context.Context, eventUID, email string, newStatus model.RSVPStatus, prodid string) (Result, error) {
	if eventUID == "" || email == "" || prodid == "" {
		return "", fmt.Errorf("attendee: rsvp: missing event uid, email or prodid")
	}
	if !model.ValidRSVPStatus(newStatus) {
		return "", fmt.Errorf("attendee: rsvp: unknown status %q", newStatus)
	}

	var ev model.Event
	if err := l.db.WithContext(ctx).Where("uid = ?", eventUID).First(&ev).Error; err != nil {
		return "", fmt.Errorf("attendee: rsvp: event %s: %w", eventUID, err)
	}

	record, err := l.Get(ctx, eventUID, email)
	if err != nil && !storage.IsNotFound(err) {
		return "", err
	}

	if record == nil {
		return l.recordSharedReply(ctx, &ev, email, newStatus, prodid)
	}
	if record.Status == newStatus {
		logrus.WithFields(logrus.Fields{"uid": eventUID, "attendee": email}).
			Warn("RSVP already processed")
		return ResultDuplicate, nil
	}
	return l.recordTransition(ctx, &ev, record, newStatus, prodid)
}

func (l *Ledger) recordSharedReply(ctx context.Context, ev *model.Event, email string, status model.RSVPStatus, prodid string) (Result, error) {
	now := time.Now().Unix()
	history, err := model.EncodeHistory([]model.HistoryEntry{
		{Status: status, Timestamp: now, Prodid: prodid},
	})
	if err != nil {
		return "", fmt.Errorf("attendee: rsvp: %w", err)
	}

	record := model.Attendee{
		EventUID: ev.UID,
		Email:    email,
		Mailto:   ev.Mailto,
		Name:     "customer",
		Status:   status,
		Origin:   model.OriginShared,
		Prodid:   prodid,
		Created:  now,
		History:  history,
	}

	delta := stats.Delta{
		Attendees: 1,
		Origin:    map[model.Origin]int64{model.OriginShared: 1},
		Prodid:    map[string]int64{prodid: 1},
		RSVP:      map[model.RSVPStatus]int64{status: 1},
	}

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		if err := l.applyAllScopes(tx, ev.UID, ev.Mailto, delta); err != nil {
			return err
		}
		return outbox.Append(tx, l.cfg.TopicRSVP, ev.UID, model.RSVPNotice{
			EventUID: ev.UID,
			Mailto:   ev.Mailto,
			Attendee: email,
			Name:     record.Name,
			Status:   status,
			Origin:   model.OriginShared,
			Prodid:   prodid,
		})
	})
	if err != nil {
		return "", fmt.Errorf("attendee: shared rsvp %s/%s: %w", ev.UID, email, err)
	}

	return ResultSharedCreated, nil
}

func (l *Ledger) recordTransition(ctx context.Context, ev *model.Event, record *model.Attendee, newStatus model.RSVPStatus, prodid string) (Result, error) {
	previous := record.Status
	now := time.Now().Unix()
	history, err := model.AppendHistory(record.History, model.HistoryEntry{
		Status: newStatus, Timestamp: now, Prodid: prodid,
	})
	if err != nil {
		return "", fmt.Errorf("attendee: rsvp: %w", err)
	}

	delta := stats.Delta{
		RSVP: map[model.RSVPStatus]int64{previous: -1, newStatus: 1},
	}

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Guarded by the previous status: a concurrent transition aborts the
		// whole delta and redelivery reconciles against the fresh record.
		res := tx.Model(&model.Attendee{}).
			Where("event_uid = ? AND email = ? AND status = ?", ev.UID, record.Email, previous).
			Updates(map[string]interface{}{
				"status":  newStatus,
				"prodid":  prodid,
				"created": now,
				"history": history,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return storage.ErrConditionFailed
		}
		if err := l.applyAllScopes(tx, ev.UID, ev.Mailto, delta); err != nil {
			return err
		}
		return outbox.Append(tx, l.cfg.TopicRSVP, ev.UID, model.RSVPNotice{
			EventUID: ev.UID,
			Mailto:   ev.Mailto,
			Attendee: record.Email,
			Name:     record.Name,
			Status:   newStatus,
			Origin:   record.Origin,
			Prodid:   prodid,
		})
	})
	if err != nil {
		if storage.IsConditionFailed(err) {
			// The record moved underneath us; re-read to classify.
			current, readErr := l.Get(ctx, ev.UID, record.Email)
			if readErr == nil && current.Status == newStatus {
				return ResultDuplicate, nil
			}
			return "", fmt.Errorf("attendee: rsvp %s/%s: %w", ev.UID, record.Email, storage.ErrConditionFailed)
		}
		return "", fmt.Errorf("attendee: rsvp %s/%s: %w", ev.UID, record.Email, err)
	}

	return ResultUpdated, nil
}

func (l *Ledger) applyAllScopes(tx *gorm.DB, eventUID, mailto string, delta stats.Delta) error {
	for _, scope := range []string{
		storage.EventScopeKey(eventUID),
		storage.OrganizerScopeKey(mailto),
		storage.SystemScopeKey,
	} {
		if err := stats.Apply(tx, scope, delta); err != nil {
			return err
		}
	}
	return nil
}

// Get loads one attendee record.
func (l *Ledger) Get(ctx context.Context, eventUID, email string) (*model.Attendee, error) {
	var record model.Attendee
	err := l.db.WithContext(ctx).
		Where("event_uid = ? AND email = ?", eventUID, email).
		First(&record).Error
	if err != nil {
		return nil, fmt.Errorf("attendee: get %s/%s: %w", eventUID, email, err)
	}
	return &record, nil
}

// List returns every attendee record for an event.
func (l *Ledger) List(ctx context.Context, eventUID string) ([]model.Attendee, error) {
	var records []model.Attendee
	err := l.db.WithContext(ctx).
		Where("event_uid = ?", eventUID).
		Order("email ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("attendee: list %s: %w", eventUID, err)
	}
	return records, nil
}
