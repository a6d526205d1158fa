package enums

import "fmt"

// EntryStatus tracks a queue entry through its replay lifecycle.
// There is no succeeded status: a successful replay removes the entry.
type EntryStatus string

const (
	EntryPending EntryStatus = "pending"
	EntrySyncing EntryStatus = "syncing"
	EntryFailed  EntryStatus = "failed"
)

var validEntryStatuses = []EntryStatus{
	EntryPending,
	EntrySyncing,
	EntryFailed,
}

// IsValid reports whether the value matches a known entry status.
func (s EntryStatus) IsValid() bool {
	for _, candidate := range validEntryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseEntryStatus converts raw input into EntryStatus.
func ParseEntryStatus(value string) (EntryStatus, error) {
	for _, candidate := range validEntryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entry status %q", value)
}
