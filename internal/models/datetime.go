package models

import (
	"fmt"
	"time"
)

const (
	localDateTimeLayout = "2006-01-02T15:04:05"
	dateOnlyLayout      = "2006-01-02"
)

// DateTimeTimeZone is a wall-clock date-time plus the zone it is expressed in.
// DateTime is either a zone-less value such as "2024-01-01T10:00:00.0000000"
// or a full RFC 3339 timestamp carrying its own offset.
type DateTimeTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// Time parses the value. Zone-less values are read in TimeZone when it names a
// known IANA zone and in fallback otherwise.
func (d DateTimeTimeZone) Time(fallback *time.Location) (time.Time, error) {
	if d.DateTime == "" {
		return time.Time{}, fmt.Errorf("empty dateTime")
	}
	if t, err := time.Parse(time.RFC3339Nano, d.DateTime); err == nil {
		return t, nil
	}

	loc := fallback
	if loc == nil {
		loc = time.Local
	}
	if d.TimeZone != "" {
		if zone, err := time.LoadLocation(d.TimeZone); err == nil {
			loc = zone
		}
	}

	if t, err := time.ParseInLocation(localDateTimeLayout, d.DateTime, loc); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(dateOnlyLayout, d.DateTime, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid dateTime %q: %w", d.DateTime, err)
	}
	return t, nil
}
