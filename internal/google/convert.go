package google

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"google.golang.org/api/calendar/v3"

	"daycal/internal/models"
	"daycal/internal/recurrence"
)

const previewLength = 255

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

var responseNames = map[string]string{
	"needsAction": "notResponded",
	"declined":    "declined",
	"tentative":   "tentativelyAccepted",
	"accepted":    "accepted",
}

// toRawEvents converts Google events into the shared event model. Events
// without a start are skipped.
func (c *CalendarClient) toRawEvents(items []*calendar.Event) []models.RawEvent {
	events := make([]models.RawEvent, 0, len(items))
	for _, item := range items {
		if item == nil || item.Start == nil {
			continue
		}
		events = append(events, c.toRawEvent(item))
	}
	return events
}

func (c *CalendarClient) toRawEvent(item *calendar.Event) models.RawEvent {
	start := c.dateTime(item.Start)
	end := start
	if item.End != nil {
		end = c.dateTime(item.End)
	}

	ev := models.RawEvent{
		ID:                   item.Id,
		Subject:              item.Summary,
		BodyPreview:          preview(item.Description),
		Start:                start,
		End:                  end,
		IsCancelled:          item.Status == "cancelled",
		WebLink:              item.HtmlLink,
		OnlineMeetingURL:     meetingURL(item),
		CreatedDateTime:      item.Created,
		LastModifiedDateTime: item.Updated,
	}

	if item.Description != "" {
		ev.Body = &models.ItemBody{ContentType: "html", Content: item.Description}
	}
	if item.Location != "" {
		ev.Location = &models.Location{DisplayName: item.Location}
	}
	if item.Organizer != nil {
		ev.Organizer = &models.Recipient{EmailAddress: models.EmailAddress{Name: item.Organizer.DisplayName, Address: item.Organizer.Email}}
		if item.Organizer.Self {
			ev.ResponseStatus = &models.ResponseStatus{Response: "organizer"}
		}
	}

	for _, a := range item.Attendees {
		if a == nil {
			continue
		}
		attendee := models.Attendee{
			Type:         attendeeType(a),
			Status:       &models.ResponseStatus{Response: responseName(a.ResponseStatus)},
			EmailAddress: models.EmailAddress{Name: a.DisplayName, Address: a.Email},
		}
		ev.Attendees = append(ev.Attendees, attendee)

		if a.Self && !a.Organizer {
			ev.ResponseRequested = true
			ev.ResponseStatus = &models.ResponseStatus{Response: attendee.Status.Response}
		}
	}

	if item.Reminders != nil {
		switch {
		case len(item.Reminders.Overrides) > 0 && item.Reminders.Overrides[0] != nil:
			ev.IsReminderOn = true
			ev.ReminderMinutesBeforeStart = int(item.Reminders.Overrides[0].Minutes)
		case item.Reminders.UseDefault:
			ev.IsReminderOn = true
		}
	}

	ev.Recurrence = c.recurrence(item, start)
	return ev
}

func (c *CalendarClient) dateTime(dt *calendar.EventDateTime) models.DateTimeTimeZone {
	tz := dt.TimeZone
	if dt.DateTime != "" {
		return models.DateTimeTimeZone{DateTime: dt.DateTime, TimeZone: tz}
	}
	if tz == "" {
		tz = c.location.String()
	}
	return models.DateTimeTimeZone{DateTime: dt.Date, TimeZone: tz}
}

// recurrence maps the first RRULE line of a series. A rule that cannot be
// represented still marks the event as recurring.
func (c *CalendarClient) recurrence(item *calendar.Event, start models.DateTimeTimeZone) *models.PatternedRecurrence {
	for _, line := range item.Recurrence {
		if !strings.HasPrefix(line, "RRULE:") {
			continue
		}
		first, err := start.Time(c.location)
		if err != nil {
			c.logger.Warn("Recurring event has an unreadable start", "id", item.Id, "error", err)
			return &models.PatternedRecurrence{}
		}
		r, err := recurrence.FromRRule(line, first)
		if err != nil {
			c.logger.Warn("Could not map recurrence rule", "id", item.Id, "rule", line, "error", err)
			return &models.PatternedRecurrence{}
		}
		return r
	}
	if len(item.Recurrence) > 0 {
		return &models.PatternedRecurrence{}
	}
	return nil
}

func meetingURL(item *calendar.Event) string {
	if item.HangoutLink != "" {
		return item.HangoutLink
	}
	if item.ConferenceData != nil {
		for _, ep := range item.ConferenceData.EntryPoints {
			if ep != nil && ep.EntryPointType == "video" && ep.Uri != "" {
				return ep.Uri
			}
		}
	}
	return ""
}

func attendeeType(a *calendar.EventAttendee) string {
	switch {
	case a.Resource:
		return "resource"
	case a.Optional:
		return "optional"
	default:
		return "required"
	}
}

func responseName(status string) string {
	if name, ok := responseNames[status]; ok {
		return name
	}
	return "none"
}

// preview flattens an HTML description into at most previewLength characters
// of plain text.
func preview(description string) string {
	text := tagPattern.ReplaceAllString(description, " ")
	text = html.UnescapeString(text)
	text = strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
	if utf8.RuneCountInString(text) <= previewLength {
		return text
	}
	return string([]rune(text)[:previewLength])
}
