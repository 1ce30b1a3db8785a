package model

// EventStatus is the lifecycle state of a calendar event.
type EventStatus string

const (
	StatusConfirmed EventStatus = "confirmed"
	StatusCancelled EventStatus = "cancelled"
)

// Method is the last calendaring operation applied to an event.
type Method string

const (
	MethodRequest Method = "request"
	MethodUpdate  Method = "update"
	MethodCancel  Method = "cancel"
)

// Event is the durable record of a calendar event. Timestamps are stored as
// Unix epoch seconds. Sequence never decreases; once Status is cancelled the
// record only changes through idempotent redelivery handling.
type Event struct {
	UID               string      `gorm:"primaryKey;size:191" json:"uid"`
	Tenant            string      `gorm:"size:64" json:"tenant"`
	Organizer         string      `gorm:"size:191" json:"organizer"`
	OriginalOrganizer string      `gorm:"size:191" json:"original_organizer"`
	Mailto            string      `gorm:"size:191;index" json:"mailto"`
	Status            EventStatus `gorm:"size:16" json:"status"`
	Method            Method      `gorm:"size:16" json:"method"`
	Sequence          int         `json:"sequence"`
	Dtstart           int64       `json:"dtstart"`
	Dtend             int64       `json:"dtend"`
	Dtstamp           int64       `json:"dtstamp"`
	Created           int64       `json:"created"`
	LastModified      int64       `gorm:"column:last_modified" json:"last_modified"`
	Summary           string      `gorm:"type:text" json:"summary"`
	SummaryHTML       string      `gorm:"column:summary_html;type:text" json:"summary_html"`
	Description       string      `gorm:"type:text" json:"description"`
	DescriptionHTML   string      `gorm:"column:description_html;type:text" json:"description_html"`
	Location          string      `gorm:"type:text" json:"location"`
	LocationHTML      string      `gorm:"column:location_html;type:text" json:"location_html"`
	InviteLimit       int         `json:"invite_limit"`
	InviteLimitNotice bool        `json:"invite_limit_notice"`
}

// OriginalEvent maps the externally supplied original identifier to the
// internal event UID. Written exactly once, atomically with the event record.
type OriginalEvent struct {
	OriginalUID string `gorm:"primaryKey;size:191" json:"original_uid"`
	UID         string `gorm:"size:191" json:"uid"`
	Mailto      string `gorm:"size:191" json:"mailto"`
}

func (OriginalEvent) TableName() string { return "original_events" }
