package agenda

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"daycal/internal/models"
	"daycal/internal/recurrence"
)

const (
	mapSearchBaseURL = "https://www.google.com/maps/search/?api=1&query="
	isoLayout        = "2006-01-02T15:04:05.000Z07:00"
)

// Normalize builds the display item for raw. Zone-less start and end values
// are read in loc. raw is not modified.
func Normalize(raw models.RawEvent, loc *time.Location) (models.NormalizedItem, error) {
	start, err := raw.Start.Time(loc)
	if err != nil {
		return models.NormalizedItem{}, fmt.Errorf("event %q has invalid start: %w", raw.ID, err)
	}
	end, err := raw.End.Time(loc)
	if err != nil {
		return models.NormalizedItem{}, fmt.Errorf("event %q has invalid end: %w", raw.ID, err)
	}

	item := models.NormalizedItem{
		RawEvent:  cloneEvent(raw),
		Date:      FormatISO(start),
		Duration:  FormatDuration(start, end),
		StartTime: start,
	}

	outcome := DeriveLocation(raw)
	switch outcome.Kind {
	case models.MapLink, models.PlainLocation:
		item.Location = outcome.Location
	case models.ExtractedMeetingURL:
		item.Location = nil
		item.OnlineMeetingURL = outcome.MeetingURL
	}

	if item.OnlineMeetingURL == "" {
		if u, ok := ExtractURL(raw.BodyPreview); ok {
			item.OnlineMeetingURL = u
		}
	}

	if raw.Recurrence != nil {
		if rule, err := recurrence.RRule(raw.Recurrence); err == nil {
			item.RecurrenceRule = rule
		}
	}

	return item, nil
}

// DeriveLocation decides between a map link, a meeting URL hidden in the
// location name, and the location as-is. The returned location is a copy.
func DeriveLocation(raw models.RawEvent) models.LocationOutcome {
	if raw.Location == nil {
		return models.LocationOutcome{Kind: models.PlainLocation}
	}

	loc := *raw.Location
	loc.Address = clonePtr(raw.Location.Address)
	loc.Coordinates = clonePtr(raw.Location.Coordinates)

	if loc.HasCoordinates() {
		loc.Link = MapSearchURL(*loc.Coordinates.Latitude, *loc.Coordinates.Longitude)
		return models.LocationOutcome{Kind: models.MapLink, Location: &loc}
	}

	if raw.OnlineMeetingURL == "" {
		if u, ok := ExtractURL(loc.DisplayName); ok {
			return models.LocationOutcome{Kind: models.ExtractedMeetingURL, MeetingURL: u}
		}
	}

	return models.LocationOutcome{Kind: models.PlainLocation, Location: &loc}
}

// MapSearchURL links to a map search for the given point.
func MapSearchURL(lat, lng float64) string {
	return mapSearchBaseURL + strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
}

// FormatISO renders t as a UTC instant with millisecond precision.
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

func cloneEvent(raw models.RawEvent) models.RawEvent {
	ev := raw
	ev.Body = clonePtr(raw.Body)
	ev.Organizer = clonePtr(raw.Organizer)
	ev.ResponseStatus = clonePtr(raw.ResponseStatus)
	ev.Location = nil
	ev.Attendees = slices.Clone(raw.Attendees)
	if raw.Recurrence != nil {
		r := *raw.Recurrence
		r.Pattern.DaysOfWeek = slices.Clone(raw.Recurrence.Pattern.DaysOfWeek)
		ev.Recurrence = &r
	}
	return ev
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
