package model

// EventNotice is the fixed projection of an event carried by outbound
// "event created", "event updated" and "event cancelled" notifications.
type EventNotice struct {
	UID               string      `json:"uid"`
	Mailto            string      `json:"mailto"`
	Organizer         string      `json:"organizer"`
	OriginalOrganizer string      `json:"original_organizer"`
	Status            EventStatus `json:"status"`
	Method            Method      `json:"method"`
	Sequence          int         `json:"sequence"`
	Dtstart           int64       `json:"dtstart"`
	Dtend             int64       `json:"dtend"`
	Dtstamp           int64       `json:"dtstamp"`
	LastModified      int64       `json:"last_modified"`
	Summary           string      `json:"summary"`
	SummaryHTML       string      `json:"summary_html,omitempty"`
	Description       string      `json:"description,omitempty"`
	DescriptionHTML   string      `json:"description_html,omitempty"`
	Location          string      `json:"location"`
	LocationHTML      string      `json:"location_html,omitempty"`
}

// NewEventNotice projects an event record for outbound notification.
func NewEventNotice(ev *Event) EventNotice {
	return EventNotice{
		UID:               ev.UID,
		Mailto:            ev.Mailto,
		Organizer:         ev.Organizer,
		OriginalOrganizer: ev.OriginalOrganizer,
		Status:            ev.Status,
		Method:            ev.Method,
		Sequence:          ev.Sequence,
		Dtstart:           ev.Dtstart,
		Dtend:             ev.Dtend,
		Dtstamp:           ev.Dtstamp,
		LastModified:      ev.LastModified,
		Summary:           ev.Summary,
		SummaryHTML:       ev.SummaryHTML,
		Description:       ev.Description,
		DescriptionHTML:   ev.DescriptionHTML,
		Location:          ev.Location,
		LocationHTML:      ev.LocationHTML,
	}
}

// RSVPNotice is the fixed projection carried by outbound "rsvp recorded"
// notifications.
type RSVPNotice struct {
	EventUID string     `json:"event_uid"`
	Mailto   string     `json:"mailto"`
	Attendee string     `json:"attendee"`
	Name     string     `json:"name,omitempty"`
	Status   RSVPStatus `json:"status"`
	Origin   Origin     `json:"origin"`
	Prodid   string     `json:"prodid"`
}
