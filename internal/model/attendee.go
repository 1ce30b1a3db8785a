package model

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// RSVPStatus is an attendee's reply status (ical PARTSTAT).
type RSVPStatus string

const (
	RSVPAccepted  RSVPStatus = "accepted"
	RSVPDeclined  RSVPStatus = "declined"
	RSVPTentative RSVPStatus = "tentative"
	RSVPNoaction  RSVPStatus = "noaction"
)

// RSVPStatuses lists every reply status. Statistics views report all of them,
// defaulting to zero.
var RSVPStatuses = []RSVPStatus{RSVPAccepted, RSVPDeclined, RSVPTentative, RSVPNoaction}

// ValidRSVPStatus reports whether s is a known reply status.
func ValidRSVPStatus(s RSVPStatus) bool {
	switch s {
	case RSVPAccepted, RSVPDeclined, RSVPTentative, RSVPNoaction:
		return true
	}
	return false
}

// Origin is the provenance of an invite or reply.
type Origin string

const (
	OriginDirect Origin = "direct"
	OriginBulk   Origin = "bulk"
	OriginVIP    Origin = "vip"
	OriginShared Origin = "shared"
	OriginTest   Origin = "test"
)

// Attendee is the per-(event, attendee) invite and RSVP record. At most one
// row exists per pair; Status always equals the last History entry.
type Attendee struct {
	EventUID string         `gorm:"primaryKey;size:191;column:event_uid" json:"event_uid"`
	Email    string         `gorm:"primaryKey;size:191" json:"email"`
	Mailto   string         `gorm:"size:191" json:"mailto"`
	Name     string         `gorm:"size:191" json:"name"`
	Status   RSVPStatus     `gorm:"size:16" json:"status"`
	Origin   Origin         `gorm:"size:16" json:"origin"`
	Prodid   string         `gorm:"size:191" json:"prodid"`
	Created  int64          `json:"created"`
	History  datatypes.JSON `json:"history"`
}

// HistoryEntry is one element of an attendee's append-only RSVP history.
type HistoryEntry struct {
	Status    RSVPStatus `json:"status"`
	Timestamp int64      `json:"timestamp"`
	Prodid    string     `json:"prodid"`
}

// EncodeHistory marshals history entries for storage.
func EncodeHistory(entries []HistoryEntry) (datatypes.JSON, error) {
	raw, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// DecodeHistory unmarshals a stored history column.
func DecodeHistory(raw datatypes.JSON) ([]HistoryEntry, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var entries []HistoryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// AppendHistory returns the stored history with entry appended. Entries are
// never truncated or reordered.
func AppendHistory(raw datatypes.JSON, entry HistoryEntry) (datatypes.JSON, error) {
	entries, err := DecodeHistory(raw)
	if err != nil {
		return nil, err
	}
	return EncodeHistory(append(entries, entry))
}
