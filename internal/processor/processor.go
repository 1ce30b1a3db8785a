// Package processor drives the engine from inbound transport messages. Each
// message is decoded, resolved to its target event, checked against the
// authorization gates, and dispatched to the event store or attendee ledger.
// Success (including every duplicate-condition result) acknowledges the
// message; any error leaves it unacknowledged so the transport redelivers it.
package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/calendarinvite/event-management/internal/model"
	"github.com/calendarinvite/event-management/internal/repo/attendee"
	"github.com/calendarinvite/event-management/internal/repo/authz"
	"github.com/calendarinvite/event-management/internal/repo/event"
	"github.com/calendarinvite/event-management/internal/storage"
)

// ErrMalformed marks a message that can never succeed as delivered: a missing
// required field or an unresolvable uid. It still counts as a batch failure
// and is redelivered; dead-lettering is the transport's job.
var ErrMalformed = errors.New("processor: malformed request")

// Message is the flat inbound request decoded from the transport envelope.
// Timestamps arrive in ical basic format (20060102T150405Z) and are parsed at
// this boundary.
type Message struct {
	Method      string `json:"method"`
	UID         string `json:"uid,omitempty"`
	OriginalUID string `json:"original_uid,omitempty"`

	Mailto    string `json:"mailto,omitempty"`
	Organizer string `json:"organizer,omitempty"`
	Tenant    string `json:"tenant,omitempty"`
	Sequence  int    `json:"sequence,omitempty"`

	Attendee string `json:"attendee,omitempty"`
	Name     string `json:"name,omitempty"`
	Partstat string `json:"partstat,omitempty"`
	Origin   string `json:"origin,omitempty"`
	Prodid   string `json:"prodid,omitempty"`

	Summary         string `json:"summary,omitempty"`
	SummaryHTML     string `json:"summary_html,omitempty"`
	Description     string `json:"description,omitempty"`
	DescriptionHTML string `json:"description_html,omitempty"`
	Location        string `json:"location,omitempty"`
	LocationHTML    string `json:"location_html,omitempty"`

	Dtstart      string `json:"dtstart,omitempty"`
	Dtend        string `json:"dtend,omitempty"`
	Dtstamp      string `json:"dtstamp,omitempty"`
	Created      string `json:"created,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
}

// Inbound message methods.
const (
	MethodRequest = "request"
	MethodUpdate  = "update"
	MethodCancel  = "cancel"
	MethodInvite  = "invite"
	MethodReply   = "reply"
)

// Processor dispatches inbound messages to the repositories.
type Processor struct {
	events *event.Store
	ledger *attendee.Ledger
	gate   *authz.Gate
}

// New returns a Processor over injected repositories.
func New(events *event.Store, ledger *attendee.Ledger, gate *authz.Gate) *Processor {
	return &Processor{events: events, ledger: ledger, gate: gate}
}

// Handle processes one inbound message. A nil return acknowledges the
// message. Refused sends (failed authorization) are acknowledged with a
// warning: redelivery cannot change the verdict.
func (p *Processor) Handle(ctx context.Context, msg Message) error {
	switch msg.Method {
	case MethodRequest:
		return p.handleRequest(ctx, msg)
	case MethodUpdate:
		return p.handleUpdate(ctx, msg)
	case MethodCancel:
		return p.handleCancel(ctx, msg)
	case MethodInvite:
		return p.handleInvite(ctx, msg)
	case MethodReply:
		return p.handleReply(ctx, msg)
	default:
		return fmt.Errorf("%w: unknown method %q", ErrMalformed, msg.Method)
	}
}

func (p *Processor) handleRequest(ctx context.Context, msg Message) error {
	if msg.OriginalUID == "" || msg.UID == "" || msg.Mailto == "" {
		return fmt.Errorf("%w: request needs original_uid, uid and mailto", ErrMalformed)
	}

	ok, err := p.gate.OrganizerCanSend(ctx, msg.Mailto)
	if err != nil {
		return err
	}
	if !ok {
		logrus.WithField("mailto", msg.Mailto).Warn("Organizer not authorized to send")
		return nil
	}

	ev, err := eventFromMessage(msg)
	if err != nil {
		return err
	}

	result, err := p.events.Create(ctx, msg.OriginalUID, *ev)
	if err != nil {
		return err
	}
	if result == event.ResultAlreadyExists {
		// Redelivery or an update addressed as a request; route to update.
		return p.handleUpdate(ctx, msg)
	}
	return nil
}

func (p *Processor) handleUpdate(ctx context.Context, msg Message) error {
	uid, err := p.resolveUID(ctx, msg)
	if err != nil {
		return err
	}
	fields, err := updateFieldsFromMessage(msg)
	if err != nil {
		return err
	}
	_, _, err = p.events.Update(ctx, uid, fields)
	if storage.IsNotFound(err) {
		return fmt.Errorf("%w: unknown event %s", ErrMalformed, uid)
	}
	return err
}

func (p *Processor) handleCancel(ctx context.Context, msg Message) error {
	uid, err := p.resolveUID(ctx, msg)
	if err != nil {
		return err
	}
	_, _, err = p.events.Cancel(ctx, uid)
	if storage.IsNotFound(err) {
		return fmt.Errorf("%w: unknown event %s", ErrMalformed, uid)
	}
	return err
}

func (p *Processor) handleInvite(ctx context.Context, msg Message) error {
	if msg.UID == "" || msg.Attendee == "" || msg.Origin == "" {
		return fmt.Errorf("%w: invite needs uid, attendee and origin", ErrMalformed)
	}

	ev, err := p.events.Get(ctx, msg.UID)
	if err != nil {
		if storage.IsNotFound(err) {
			return fmt.Errorf("%w: unknown event %s", ErrMalformed, msg.UID)
		}
		return err
	}

	origin := model.Origin(msg.Origin)
	ok, err := p.gate.InviteAllowed(ctx, ev, msg.Attendee, origin)
	if err != nil {
		return err
	}
	if !ok {
		logrus.WithFields(logrus.Fields{"uid": msg.UID, "attendee": msg.Attendee}).
			Warn("Invite send unauthorized")
		return nil
	}

	_, err = p.ledger.RecordInvite(ctx, msg.UID, msg.Attendee, attendee.InviteMeta{
		Origin: origin,
		Name:   msg.Name,
	})
	return err
}

func (p *Processor) handleReply(ctx context.Context, msg Message) error {
	if msg.UID == "" || msg.Attendee == "" || msg.Partstat == "" || msg.Prodid == "" {
		return fmt.Errorf("%w: reply needs uid, attendee, partstat and prodid", ErrMalformed)
	}
	status := model.RSVPStatus(msg.Partstat)
	if !model.ValidRSVPStatus(status) {
		return fmt.Errorf("%w: unknown partstat %q", ErrMalformed, msg.Partstat)
	}

	_, err := p.ledger.RecordRSVP(ctx, msg.UID, msg.Attendee, status, msg.Prodid)
	if storage.IsNotFound(err) {
		return fmt.Errorf("%w: unknown event %s", ErrMalformed, msg.UID)
	}
	return err
}

// resolveUID prefers the original-uid lookup and falls back to a directly
// addressed uid.
func (p *Processor) resolveUID(ctx context.Context, msg Message) (string, error) {
	if msg.OriginalUID != "" {
		uid, err := p.events.ResolveOriginalUID(ctx, msg.OriginalUID)
		if err != nil {
			if storage.IsNotFound(err) {
				return "", fmt.Errorf("%w: unknown original uid %s", ErrMalformed, msg.OriginalUID)
			}
			return "", err
		}
		return uid, nil
	}
	if msg.UID != "" {
		return msg.UID, nil
	}
	return "", fmt.Errorf("%w: no uid or original_uid", ErrMalformed)
}
