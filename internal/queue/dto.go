package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/packfinderz-field/pkg/enums"
)

// documentVersion is the current persisted envelope version.
const documentVersion = 1

// Entry is one durable unit of deferred work. It stays in the store until
// the remote system durably confirms it; success means removal, so there is
// no succeeded status.
type Entry struct {
	ID         string              `json:"id"`
	Type       enums.OperationType `json:"type"`
	Payload    json.RawMessage     `json:"payload"`
	QueuedAt   time.Time           `json:"queuedAt"`
	RetryCount int                 `json:"retryCount"`
	LastError  *string             `json:"lastError"`
	Status     enums.EntryStatus   `json:"status"`
}

// Counts summarizes the queue for the inspector UI.
type Counts struct {
	Pending int `json:"pending"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}

// document is the persisted envelope. Earlier builds stored a bare JSON
// array; those decode as version 1.
type document struct {
	Version int     `json:"version"`
	Entries []Entry `json:"entries"`
}

func (d *document) UnmarshalJSON(data []byte) error {
	type alias document
	var versioned alias
	if err := json.Unmarshal(data, &versioned); err == nil && versioned.Version > 0 {
		*d = document(versioned)
		return nil
	}

	var legacy []Entry
	if err := json.Unmarshal(data, &legacy); err != nil {
		return fmt.Errorf("decoding queue document: %w", err)
	}
	d.Version = documentVersion
	d.Entries = legacy
	return nil
}

func newDocument(entries []Entry) document {
	return document{Version: documentVersion, Entries: entries}
}
