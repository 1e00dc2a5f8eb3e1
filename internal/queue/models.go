package queue

import (
	"encoding/json"
	"time"
)

// Status mirrors the export job state machine.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusPreparing Status = "preparing"
	StatusEncoding  Status = "encoding"
	StatusMuxing    Status = "muxing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

var allStatuses = []Status{
	StatusQueued,
	StatusPreparing,
	StatusEncoding,
	StatusMuxing,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var processingStatuses = map[Status]struct{}{
	StatusPreparing: {},
	StatusEncoding:  {},
	StatusMuxing:    {},
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Processing reports whether the status marks in-flight work.
func (s Status) Processing() bool {
	_, ok := processingStatuses[s]
	return ok
}

// Valid reports whether the status is known.
func (s Status) Valid() bool {
	for _, status := range allStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ParseStatus maps a raw string onto a known status.
func ParseStatus(raw string) (Status, bool) {
	status := Status(raw)
	if status.Valid() {
		return status, true
	}
	return "", false
}

// Item is one persisted export job.
type Item struct {
	ID           int64
	JobID        string
	Title        string
	TimelineJSON string
	SettingsJSON string
	Status       Status
	Progress     float64
	Backend      string
	OutputPath   string
	ErrorMessage string
	WarningsJSON string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Warnings decodes the stored warning list, empty on malformed data.
func (i *Item) Warnings() []string {
	if i.WarningsJSON == "" {
		return nil
	}
	var warnings []string
	if err := json.Unmarshal([]byte(i.WarningsJSON), &warnings); err != nil {
		return nil
	}
	return warnings
}

// SetWarnings encodes the warning list for storage.
func (i *Item) SetWarnings(warnings []string) {
	if len(warnings) == 0 {
		i.WarningsJSON = ""
		return
	}
	data, err := json.Marshal(warnings)
	if err != nil {
		return
	}
	i.WarningsJSON = string(data)
}
