// Package authz holds the read-only authorization gates consulted before a
// send is processed. The engine never writes these records; account
// management owns them.
package authz

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/calendarinvite/event-management/internal/model"
	"github.com/calendarinvite/event-management/internal/storage"
)

// Gate answers authorization questions from store lookups.
type Gate struct {
	db *gorm.DB
}

// New returns a Gate over db.
func New(db *gorm.DB) *Gate {
	return &Gate{db: db}
}

// OrganizerCanSend reports whether the organizer may create events or send
// invites at all. Event-count throttling is intentionally not enforced here;
// the statistics it would read are maintained regardless.
func (g *Gate) OrganizerCanSend(ctx context.Context, mailto string) (bool, error) {
	if mailto == "" {
		return false, nil
	}
	suspended, err := g.hasFlag(ctx, mailto, model.FlagSuspended)
	if err != nil {
		return false, err
	}
	return !suspended, nil
}

// InviteAllowed reports whether an invite with the given origin may be sent
// to the attendee: the attendee has not blocked the organizer, the organizer
// is not suspended, and bulk/vip sends come from an authorized bulk sender
// with invite allowance remaining on the event.
func (g *Gate) InviteAllowed(ctx context.Context, ev *model.Event, email string, origin model.Origin) (bool, error) {
	blocked, err := g.attendeeHasBlocked(ctx, email, ev.Mailto)
	if err != nil {
		return false, err
	}
	if blocked {
		return false, nil
	}

	ok, err := g.OrganizerCanSend(ctx, ev.Mailto)
	if err != nil || !ok {
		return false, err
	}

	if origin == model.OriginBulk || origin == model.OriginVIP {
		bulk, err := g.hasFlag(ctx, ev.Mailto, model.FlagBulk)
		if err != nil {
			return false, err
		}
		if !bulk || ev.InviteLimit <= 0 {
			return false, nil
		}
	}

	return true, nil
}

// IsPaidAccount reports whether the organizer holds a paid subscription.
func (g *Gate) IsPaidAccount(ctx context.Context, mailto string) (bool, error) {
	return g.hasFlag(ctx, mailto, model.FlagSubscription)
}

func (g *Gate) hasFlag(ctx context.Context, mailto, flag string) (bool, error) {
	var record model.OrganizerFlag
	err := g.db.WithContext(ctx).
		Where("mailto = ? AND flag = ?", mailto, flag).
		First(&record).Error
	if err != nil {
		if storage.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("authz: flag %s for %s: %w", flag, mailto, err)
	}
	return true, nil
}

func (g *Gate) attendeeHasBlocked(ctx context.Context, email, mailto string) (bool, error) {
	var record model.AttendeeBlock
	err := g.db.WithContext(ctx).
		Where("email = ? AND mailto = ?", email, mailto).
		First(&record).Error
	if err != nil {
		if storage.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("authz: block %s -> %s: %w", email, mailto, err)
	}
	return true, nil
}
