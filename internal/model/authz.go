package model

// Organizer account flags. The engine reads these records and never writes
// them; account management lives outside this service.
const (
	FlagSuspended    = "suspended"
	FlagBulk         = "bulk"
	FlagSubscription = "subscription"
)

// OrganizerFlag marks an organizer account: suspended, authorized for bulk
// sends, or holding a paid subscription.
type OrganizerFlag struct {
	Mailto string `gorm:"primaryKey;size:191" json:"mailto"`
	Flag   string `gorm:"primaryKey;size:32" json:"flag"`
}

// AttendeeBlock records that an attendee has blocked an organizer.
type AttendeeBlock struct {
	Email  string `gorm:"primaryKey;size:191" json:"email"`
	Mailto string `gorm:"primaryKey;size:191" json:"mailto"`
}
