// Package stats owns the denormalized statistics records. Deltas are always
// applied inside a transaction opened by the event store or the attendee
// ledger; this package never opens its own.
package stats

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/calendarinvite/event-management/internal/model"
	"github.com/calendarinvite/event-management/internal/storage"
)

// Delta is one atomic adjustment to a statistics scope. Zero-valued fields
// are left untouched. RSVP may carry paired entries (for example tentative -1
// and accepted +1); they land in a single UPDATE so the scope is never
// observable with sum(rsvp) != attendees.
type Delta struct {
	Events    int64
	Attendees int64
	Origin    map[model.Origin]int64
	Prodid    map[string]int64
	RSVP      map[model.RSVPStatus]int64
}

var rsvpColumns = map[model.RSVPStatus]string{
	model.RSVPAccepted:  "rsvp_accepted",
	model.RSVPDeclined:  "rsvp_declined",
	model.RSVPTentative: "rsvp_tentative",
	model.RSVPNoaction:  "rsvp_noaction",
}

// Apply applies d to the scope identified by scopeKey as part of the caller's
// transaction. Every counter uses increment-or-initialize semantics, so the
// first touch of a scope, origin, prodid or status needs no separate create.
func Apply(tx *gorm.DB, scopeKey string, d Delta) error {
	seed := model.Statistics{
		ScopeKey:  scopeKey,
		Events:    d.Events,
		Attendees: d.Attendees,
	}
	assignments := map[string]interface{}{
		"events":    gorm.Expr("events + ?", d.Events),
		"attendees": gorm.Expr("attendees + ?", d.Attendees),
	}
	for status, delta := range d.RSVP {
		column, ok := rsvpColumns[status]
		if !ok {
			return fmt.Errorf("stats: unknown rsvp status %q", status)
		}
		switch status {
		case model.RSVPAccepted:
			seed.RSVPAccepted = delta
		case model.RSVPDeclined:
			seed.RSVPDeclined = delta
		case model.RSVPTentative:
			seed.RSVPTentative = delta
		case model.RSVPNoaction:
			seed.RSVPNoaction = delta
		}
		assignments[column] = gorm.Expr(column+" + ?", delta)
	}

	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope_key"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(&seed).Error; err != nil {
		return fmt.Errorf("stats: apply %s: %w", scopeKey, err)
	}

	for origin, delta := range d.Origin {
		if err := bump(tx, scopeKey, model.DimensionOrigin, string(origin), delta); err != nil {
			return err
		}
	}
	for prodid, delta := range d.Prodid {
		if err := bump(tx, scopeKey, model.DimensionProdid, prodid, delta); err != nil {
			return err
		}
	}

	return nil
}

// Seed inserts a zeroed statistics record for scopeKey inside the caller's
// transaction. Used at event creation so the per-event record exists from the
// start; racing creators are tolerated.
func Seed(tx *gorm.DB, scopeKey, tenant, mailto string) error {
	record := model.Statistics{ScopeKey: scopeKey, Tenant: tenant, Mailto: mailto}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope_key"}},
		DoNothing: true,
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("stats: seed %s: %w", scopeKey, err)
	}
	return nil
}

func bump(tx *gorm.DB, scopeKey, dimension, name string, delta int64) error {
	counter := model.StatisticCounter{
		ScopeKey:  scopeKey,
		Dimension: dimension,
		Name:      name,
		Count:     delta,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "scope_key"}, {Name: "dimension"}, {Name: "name"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count": gorm.Expr("count + ?", delta),
		}),
	}).Create(&counter).Error
	if err != nil {
		return fmt.Errorf("stats: bump %s %s[%s]: %w", scopeKey, dimension, name, err)
	}
	return nil
}

// View is the read-side shape of one statistics scope. RSVP always contains
// all four statuses, defaulting to zero.
type View struct {
	ScopeKey  string                      `json:"scope_key"`
	Tenant    string                      `json:"tenant,omitempty"`
	Mailto    string                      `json:"mailto,omitempty"`
	Events    int64                       `json:"events"`
	Attendees int64                       `json:"attendees"`
	Origin    map[model.Origin]int64      `json:"origin"`
	Prodid    map[string]int64            `json:"prodid"`
	RSVP      map[model.RSVPStatus]int64  `json:"rsvp"`
}

// Reader serves statistics views for the HTTP surface and tests.
type Reader struct {
	db *gorm.DB
}

// NewReader returns a Reader over db.
func NewReader(db *gorm.DB) *Reader {
	return &Reader{db: db}
}

// Get assembles the view of one scope. A scope nobody has written yet reads
// as all zeroes rather than an error.
func (r *Reader) Get(ctx context.Context, scopeKey string) (*View, error) {
	view := &View{
		ScopeKey: scopeKey,
		Origin:   map[model.Origin]int64{},
		Prodid:   map[string]int64{},
		RSVP:     map[model.RSVPStatus]int64{},
	}
	for _, status := range model.RSVPStatuses {
		view.RSVP[status] = 0
	}

	var record model.Statistics
	err := r.db.WithContext(ctx).Where("scope_key = ?", scopeKey).First(&record).Error
	switch {
	case err == nil:
		view.Tenant = record.Tenant
		view.Mailto = record.Mailto
		view.Events = record.Events
		view.Attendees = record.Attendees
		for _, status := range model.RSVPStatuses {
			view.RSVP[status] = record.RSVP(status)
		}
	case storage.IsNotFound(err):
		// Lazily created scope with no writes yet.
	default:
		return nil, fmt.Errorf("stats: read %s: %w", scopeKey, err)
	}

	var counters []model.StatisticCounter
	if err := r.db.WithContext(ctx).Where("scope_key = ?", scopeKey).Find(&counters).Error; err != nil {
		return nil, fmt.Errorf("stats: read counters %s: %w", scopeKey, err)
	}
	for _, counter := range counters {
		switch counter.Dimension {
		case model.DimensionOrigin:
			view.Origin[model.Origin(counter.Name)] = counter.Count
		case model.DimensionProdid:
			view.Prodid[counter.Name] = counter.Count
		}
	}

	return view, nil
}
