package processor

import (
	"fmt"
	"time"

	"github.com/calendarinvite/event-management/internal/model"
	"github.com/calendarinvite/event-management/internal/repo/event"
)

// icalTimeLayout is the basic-format UTC timestamp used on the wire.
const icalTimeLayout = "20060102T150405Z"

// parseICalTime converts a wire timestamp to epoch seconds. Empty values are
// zero; anything unparsable is a malformed request.
func parseICalTime(value string) (int64, error) {
	if value == "" {
		return 0, nil
	}
	t, err := time.Parse(icalTimeLayout, value)
	if err != nil {
		return 0, fmt.Errorf("%w: bad timestamp %q", ErrMalformed, value)
	}
	return t.UTC().Unix(), nil
}

func eventFromMessage(msg Message) (*model.Event, error) {
	ev := &model.Event{
		UID:             msg.UID,
		Tenant:          msg.Tenant,
		Organizer:       msg.Organizer,
		Mailto:          msg.Mailto,
		Sequence:        msg.Sequence,
		Summary:         msg.Summary,
		SummaryHTML:     msg.SummaryHTML,
		Description:     msg.Description,
		DescriptionHTML: msg.DescriptionHTML,
		Location:        msg.Location,
		LocationHTML:    msg.LocationHTML,
	}

	var err error
	if ev.Dtstart, err = parseICalTime(msg.Dtstart); err != nil {
		return nil, err
	}
	if ev.Dtend, err = parseICalTime(msg.Dtend); err != nil {
		return nil, err
	}
	if ev.Dtstamp, err = parseICalTime(msg.Dtstamp); err != nil {
		return nil, err
	}
	if ev.Created, err = parseICalTime(msg.Created); err != nil {
		return nil, err
	}
	if ev.LastModified, err = parseICalTime(msg.LastModified); err != nil {
		return nil, err
	}

	return ev, nil
}

func updateFieldsFromMessage(msg Message) (event.UpdateFields, error) {
	dtstart, err := parseICalTime(msg.Dtstart)
	if err != nil {
		return event.UpdateFields{}, err
	}
	dtend, err := parseICalTime(msg.Dtend)
	if err != nil {
		return event.UpdateFields{}, err
	}

	return event.UpdateFields{
		Summary:         msg.Summary,
		SummaryHTML:     msg.SummaryHTML,
		Location:        msg.Location,
		LocationHTML:    msg.LocationHTML,
		Dtstart:         dtstart,
		Dtend:           dtend,
		Description:     msg.Description,
		DescriptionHTML: msg.DescriptionHTML,
	}, nil
}
