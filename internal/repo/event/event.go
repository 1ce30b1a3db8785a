// Package event owns the event lifecycle: create, update, cancel, and the
// original-uid lookup. Every mutation is a single store transaction that also
// carries its statistics adjustments and outbound notification, so a partial
// write is never observable.
package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/calendarinvite/event-management/internal/model"
	"github.com/calendarinvite/event-management/internal/repo/outbox"
	"github.com/calendarinvite/event-management/internal/repo/stats"
	"github.com/calendarinvite/event-management/internal/storage"
)

// Result of an event store operation. Duplicate conditions are results, not
// errors: under at-least-once delivery the second racer treats them as
// success.
type Result string

const (
	ResultCreated          Result = "created"
	ResultAlreadyExists    Result = "already_exists"
	ResultUpdated          Result = "updated"
	ResultNoop             Result = "noop"
	ResultCancelled        Result = "cancelled"
	ResultAlreadyCancelled Result = "already_cancelled"
)

// Config tunes a Store.
type Config struct {
	Tenant         string
	InviteLimit    int
	TopicCreated   string
	TopicUpdated   string
	TopicCancelled string
}

// Store is the event repository. All handles are injected; the store keeps no
// mutable state of its own.
type Store struct {
	db  *gorm.DB
	cfg Config
}

// New returns a Store over db. Zero-valued config fields get defaults.
func New(db *gorm.DB, cfg Config) *Store {
	if cfg.Tenant == "" {
		cfg.Tenant = "primary"
	}
	if cfg.InviteLimit == 0 {
		cfg.InviteLimit = 100
	}
	if cfg.TopicCreated == "" {
		cfg.TopicCreated = "event.created"
	}
	if cfg.TopicUpdated == "" {
		cfg.TopicUpdated = "event.updated"
	}
	if cfg.TopicCancelled == "" {
		cfg.TopicCancelled = "event.cancelled"
	}
	return &Store{db: db, cfg: cfg}
}

var errAlreadyCancelled = errors.New("event: already cancelled")

// Create records a new event. One transaction inserts the original-uid
// lookup, the event record, the zeroed per-event statistics record, and
// bumps the organizer's sent-events counter (creating the organizer record on
// first use). A duplicate original uid or event uid is not an error: the
// event already exists and the caller routes the request to Update.
func (s *Store) Create(ctx context.Context, originalUID string, ev model.Event) (Result, error) {
	if originalUID == "" || ev.UID == "" || ev.Mailto == "" {
		return "", fmt.Errorf("event: create: missing original_uid, uid or mailto")
	}

	if ev.Tenant == "" {
		ev.Tenant = s.cfg.Tenant
	}
	ev.Status = model.StatusConfirmed
	ev.Method = model.MethodRequest
	ev.OriginalOrganizer = ev.Organizer
	ev.InviteLimit = s.cfg.InviteLimit
	ev.InviteLimitNotice = false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lookup := model.OriginalEvent{
			OriginalUID: originalUID,
			UID:         ev.UID,
			Mailto:      ev.Mailto,
		}
		if err := tx.Create(&lookup).Error; err != nil {
			return err
		}
		if err := tx.Create(&ev).Error; err != nil {
			return err
		}
		if err := stats.Seed(tx, storage.EventScopeKey(ev.UID), ev.Tenant, ev.Mailto); err != nil {
			return err
		}
		if err := stats.Apply(tx, storage.OrganizerScopeKey(ev.Mailto), stats.Delta{Events: 1}); err != nil {
			return err
		}
		return outbox.Append(tx, s.cfg.TopicCreated, ev.UID, model.NewEventNotice(&ev))
	})
	if err != nil {
		if storage.IsConditionFailed(err) {
			logrus.WithField("uid", ev.UID).Warn("Event record already exists")
			return ResultAlreadyExists, nil
		}
		return "", fmt.Errorf("event: create %s: %w", ev.UID, err)
	}

	return ResultCreated, nil
}

// UpdateFields is the whitelist of mutable event fields. Everything else is
// fixed at creation or owned by Cancel.
type UpdateFields struct {
	Summary         string
	SummaryHTML     string
	Location        string
	LocationHTML    string
	Dtstart         int64
	Dtend           int64
	Description     string
	DescriptionHTML string
}

func (f UpdateFields) equals(ev *model.Event) bool {
	return f.Summary == ev.Summary &&
		f.SummaryHTML == ev.SummaryHTML &&
		f.Location == ev.Location &&
		f.LocationHTML == ev.LocationHTML &&
		f.Dtstart == ev.Dtstart &&
		f.Dtend == ev.Dtend &&
		f.Description == ev.Description &&
		f.DescriptionHTML == ev.DescriptionHTML
}

// Update overwrites the mutable field set if anything changed, refreshing
// dtstamp/last_modified and incrementing sequence. Identical fields are a
// no-op with no write and no notification. The overwrite is blind (keyed by
// uid, no compare-and-swap on sequence): concurrent updates are
// last-write-wins. Cancelled events never change.
func (s *Store) Update(ctx context.Context, uid string, fields UpdateFields) (Result, *model.Event, error) {
	ev, err := s.Get(ctx, uid)
	if err != nil {
		return "", nil, err
	}
	if ev.Status == model.StatusCancelled || fields.equals(ev) {
		return ResultNoop, ev, nil
	}

	now := time.Now().Unix()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Event{}).
			Where("uid = ? AND status <> ?", uid, model.StatusCancelled).
			Updates(map[string]interface{}{
				"summary":          fields.Summary,
				"summary_html":     fields.SummaryHTML,
				"location":         fields.Location,
				"location_html":    fields.LocationHTML,
				"dtstart":          fields.Dtstart,
				"dtend":            fields.Dtend,
				"description":      fields.Description,
				"description_html": fields.DescriptionHTML,
				"dtstamp":          now,
				"last_modified":    now,
				"sequence":         gorm.Expr("sequence + ?", 1),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errAlreadyCancelled
		}

		ev.Summary = fields.Summary
		ev.SummaryHTML = fields.SummaryHTML
		ev.Location = fields.Location
		ev.LocationHTML = fields.LocationHTML
		ev.Dtstart = fields.Dtstart
		ev.Dtend = fields.Dtend
		ev.Description = fields.Description
		ev.DescriptionHTML = fields.DescriptionHTML
		ev.Dtstamp = now
		ev.LastModified = now
		ev.Sequence++
		return outbox.Append(tx, s.cfg.TopicUpdated, uid, model.NewEventNotice(ev))
	})
	if err != nil {
		if errors.Is(err, errAlreadyCancelled) {
			return ResultNoop, ev, nil
		}
		return "", nil, fmt.Errorf("event: update %s: %w", uid, err)
	}

	return ResultUpdated, ev, nil
}

// Cancel marks an event cancelled, refreshing dtstamp/last_modified and
// incrementing sequence. Cancelling a cancelled event changes nothing and
// sends nothing.
func (s *Store) Cancel(ctx context.Context, uid string) (Result, *model.Event, error) {
	ev, err := s.Get(ctx, uid)
	if err != nil {
		return "", nil, err
	}
	if ev.Status == model.StatusCancelled {
		logrus.WithField("uid", uid).Warn("Event already cancelled")
		return ResultAlreadyCancelled, ev, nil
	}

	now := time.Now().Unix()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Event{}).
			Where("uid = ? AND status <> ?", uid, model.StatusCancelled).
			Updates(map[string]interface{}{
				"method":        model.MethodCancel,
				"status":        model.StatusCancelled,
				"dtstamp":       now,
				"last_modified": now,
				"sequence":      gorm.Expr("sequence + ?", 1),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errAlreadyCancelled
		}

		ev.Method = model.MethodCancel
		ev.Status = model.StatusCancelled
		ev.Dtstamp = now
		ev.LastModified = now
		ev.Sequence++
		return outbox.Append(tx, s.cfg.TopicCancelled, uid, model.NewEventNotice(ev))
	})
	if err != nil {
		if errors.Is(err, errAlreadyCancelled) {
			return ResultAlreadyCancelled, ev, nil
		}
		return "", nil, fmt.Errorf("event: cancel %s: %w", uid, err)
	}

	return ResultCancelled, ev, nil
}

// Get loads one event record.
func (s *Store) Get(ctx context.Context, uid string) (*model.Event, error) {
	var ev model.Event
	if err := s.db.WithContext(ctx).Where("uid = ?", uid).First(&ev).Error; err != nil {
		return nil, fmt.Errorf("event: get %s: %w", uid, err)
	}
	return &ev, nil
}

// ResolveOriginalUID maps an externally supplied original identifier to the
// internal event uid.
func (s *Store) ResolveOriginalUID(ctx context.Context, originalUID string) (string, error) {
	var lookup model.OriginalEvent
	err := s.db.WithContext(ctx).Where("original_uid = ?", originalUID).First(&lookup).Error
	if err != nil {
		return "", fmt.Errorf("event: resolve %s: %w", originalUID, err)
	}
	return lookup.UID, nil
}
