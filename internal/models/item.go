package models

import "time"

// NormalizedItem is the display-ready form of a RawEvent.
// It is built from a copy of the raw event; Location and OnlineMeetingURL on
// the embedded RawEvent hold the derived values.
type NormalizedItem struct {
	RawEvent

	Date           string `json:"date"`
	Duration       string `json:"duration"`
	ShowDetails    bool   `json:"showDetails"`
	RecurrenceRule string `json:"recurrenceRule,omitempty"`

	// StartTime is the parsed start instant backing Date.
	StartTime time.Time `json:"-"`
}

// LocationKind tags the outcome of deriving a location and meeting link.
type LocationKind int

const (
	// PlainLocation keeps the raw location (possibly nil) unchanged.
	PlainLocation LocationKind = iota
	// MapLink keeps the location and attaches a map search link.
	MapLink
	// ExtractedMeetingURL drops the location; its display name was a meeting link.
	ExtractedMeetingURL
)

func (k LocationKind) String() string {
	switch k {
	case MapLink:
		return "map-link"
	case ExtractedMeetingURL:
		return "extracted-meeting-url"
	default:
		return "plain-location"
	}
}

// LocationOutcome is the result of location derivation for one event.
type LocationOutcome struct {
	Kind       LocationKind
	Location   *Location
	MeetingURL string
}
