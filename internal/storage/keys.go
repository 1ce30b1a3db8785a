package storage

// Statistics scope keys. Three aggregation scopes share one table; the key
// prefix carries the scope and the suffix its subject.
const (
	eventScopePrefix     = "event_statistics#"
	organizerScopePrefix = "organizer_statistics#"

	// SystemScopeKey is the key of the singleton system-wide record.
	SystemScopeKey = "system_statistics#"
)

// EventScopeKey returns the statistics key for one event.
func EventScopeKey(uid string) string { return eventScopePrefix + uid }

// OrganizerScopeKey returns the statistics key for one organizer.
func OrganizerScopeKey(mailto string) string { return organizerScopePrefix + mailto }
