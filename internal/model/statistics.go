package model

// Statistics is a denormalized counter record for one aggregation scope.
// ScopeKey carries the scope and its subject: event_statistics#<uid>,
// organizer_statistics#<mailto>, or system_statistics# (singleton).
//
// The four RSVP statuses are fixed columns so a status transition is a single
// paired decrement/increment statement; sum of the four always equals
// Attendees. Open-ended origin/prodid counts live in StatisticCounter rows.
type Statistics struct {
	ScopeKey      string `gorm:"primaryKey;size:191;column:scope_key" json:"scope_key"`
	Tenant        string `gorm:"size:64" json:"tenant"`
	Mailto        string `gorm:"size:191" json:"mailto"`
	Events        int64  `json:"events"`
	Attendees     int64  `json:"attendees"`
	RSVPAccepted  int64  `gorm:"column:rsvp_accepted" json:"rsvp_accepted"`
	RSVPDeclined  int64  `gorm:"column:rsvp_declined" json:"rsvp_declined"`
	RSVPTentative int64  `gorm:"column:rsvp_tentative" json:"rsvp_tentative"`
	RSVPNoaction  int64  `gorm:"column:rsvp_noaction" json:"rsvp_noaction"`
}

// RSVP returns the counter for one reply status.
func (s *Statistics) RSVP(status RSVPStatus) int64 {
	switch status {
	case RSVPAccepted:
		return s.RSVPAccepted
	case RSVPDeclined:
		return s.RSVPDeclined
	case RSVPTentative:
		return s.RSVPTentative
	case RSVPNoaction:
		return s.RSVPNoaction
	}
	return 0
}

// StatisticCounter is one keyed sub-counter of a statistics record, for the
// open-ended dimensions (origin, prodid). Created on first use with
// increment-or-initialize semantics.
type StatisticCounter struct {
	ScopeKey  string `gorm:"primaryKey;size:191;column:scope_key" json:"scope_key"`
	Dimension string `gorm:"primaryKey;size:32" json:"dimension"`
	Name      string `gorm:"primaryKey;size:191" json:"name"`
	Count     int64  `json:"count"`
}

// Counter dimensions.
const (
	DimensionOrigin = "origin"
	DimensionProdid = "prodid"
)
