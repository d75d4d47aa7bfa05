package icloud

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"daycal/internal/models"
	"daycal/internal/recurrence"
)

var partStats = map[string]string{
	"NEEDS-ACTION": "notResponded",
	"ACCEPTED":     "accepted",
	"DECLINED":     "declined",
	"TENTATIVE":    "tentativelyAccepted",
}

// masters converts the events of one calendar object, skipping overridden
// occurrences of a series.
func (c *CalDAVClient) masters(cal *ical.Calendar) []models.RawEvent {
	var events []models.RawEvent
	for _, ev := range cal.Events() {
		if ev.Props.Get(ical.PropRecurrenceID) != nil {
			continue
		}
		raw, err := c.toRawEvent(ev)
		if err != nil {
			c.logger.Warn("Skipping unreadable event", "error", err)
			continue
		}
		events = append(events, raw)
	}
	return events
}

// occurrences expands the series uid inside [start, end].
func (c *CalDAVClient) occurrences(cal *ical.Calendar, uid string, start, end time.Time) ([]models.RawEvent, error) {
	var master *ical.Event
	var value []models.RawEvent
	moved := make(map[int64]bool)

	for _, ev := range cal.Events() {
		ev := ev // per-iteration copy: master keeps &ev (go.mod targets go1.21 loop semantics)
		if eventUID(ev) != uid {
			continue
		}
		rid := ev.Props.Get(ical.PropRecurrenceID)
		if rid == nil {
			master = &ev
			continue
		}
		if t, err := rid.DateTime(c.location); err == nil {
			moved[t.Unix()] = true
		}
		raw, err := c.toRawEvent(ev)
		if err != nil {
			c.logger.Warn("Skipping unreadable occurrence", "uid", uid, "error", err)
			continue
		}
		if t, err := raw.Start.Time(c.location); err == nil && !t.Before(start) && !t.After(end) {
			value = append(value, raw)
		}
	}

	if master == nil {
		return value, nil
	}

	set, err := master.RecurrenceSet(c.location)
	if err != nil {
		return nil, fmt.Errorf("failed to expand recurrence of %q: %w", uid, err)
	}
	if set == nil {
		return value, nil
	}

	base, err := c.toRawEvent(*master)
	if err != nil {
		return nil, err
	}
	first, err := master.DateTimeStart(c.location)
	if err != nil {
		return nil, fmt.Errorf("event %q has invalid start: %w", uid, err)
	}
	length := time.Duration(0)
	if last, err := master.DateTimeEnd(c.location); err == nil && last.After(first) {
		length = last.Sub(first)
	}

	for _, t := range set.Between(start, end, true) {
		if moved[t.Unix()] {
			continue
		}
		occ := base
		occ.Start = dateTime(t)
		occ.End = dateTime(t.Add(length))
		value = append(value, occ)
	}
	return value, nil
}

func hasUID(cal *ical.Calendar, uid string) bool {
	for _, ev := range cal.Events() {
		if eventUID(ev) == uid {
			return true
		}
	}
	return false
}

func eventUID(ev ical.Event) string {
	uid, _ := ev.Props.Text(ical.PropUID)
	return uid
}

func (c *CalDAVClient) toRawEvent(ev ical.Event) (models.RawEvent, error) {
	uid := eventUID(ev)
	start, err := ev.DateTimeStart(c.location)
	if err != nil {
		return models.RawEvent{}, fmt.Errorf("event %q has invalid start: %w", uid, err)
	}
	end, err := ev.DateTimeEnd(c.location)
	if err != nil || end.IsZero() {
		end = start
	}

	raw := models.RawEvent{
		ID:      uid,
		Subject: text(ev, ical.PropSummary),
		Start:   dateTime(start),
		End:     dateTime(end),
	}

	if desc := text(ev, ical.PropDescription); desc != "" {
		raw.Body = &models.ItemBody{ContentType: "text", Content: desc}
		raw.BodyPreview = desc
	}
	if loc := text(ev, ical.PropLocation); loc != "" {
		raw.Location = &models.Location{DisplayName: loc}
	}
	if geo := ev.Props.Get(ical.PropGeo); geo != nil {
		if coords := parseGeo(geo.Value); coords != nil {
			if raw.Location == nil {
				raw.Location = &models.Location{}
			}
			raw.Location.Coordinates = coords
		}
	}
	if u := ev.Props.Get(ical.PropURL); u != nil {
		raw.OnlineMeetingURL = u.Value
	}
	raw.IsCancelled = strings.EqualFold(text(ev, ical.PropStatus), "CANCELLED")

	if p := ev.Props.Get(ical.PropCreated); p != nil {
		if t, err := p.DateTime(time.UTC); err == nil {
			raw.CreatedDateTime = t.Format(time.RFC3339)
		}
	}
	if p := ev.Props.Get(ical.PropLastModified); p != nil {
		if t, err := p.DateTime(time.UTC); err == nil {
			raw.LastModifiedDateTime = t.Format(time.RFC3339)
		}
	}

	if org := ev.Props.Get(ical.PropOrganizer); org != nil {
		raw.Organizer = &models.Recipient{EmailAddress: address(org)}
	}
	for _, p := range ev.Props.Values(ical.PropAttendee) {
		raw.Attendees = append(raw.Attendees, models.Attendee{
			Type:         attendeeType(&p),
			Status:       &models.ResponseStatus{Response: partStat(p.Params.Get(ical.ParamParticipationStatus))},
			EmailAddress: address(&p),
		})
	}

	for _, child := range ev.Children {
		if child.Name != ical.CompAlarm {
			continue
		}
		trigger := child.Props.Get(ical.PropTrigger)
		if trigger == nil {
			continue
		}
		if d, err := trigger.Duration(); err == nil && d <= 0 {
			raw.IsReminderOn = true
			raw.ReminderMinutesBeforeStart = int(-d / time.Minute)
			break
		}
	}

	if rule := ev.Props.Get(ical.PropRecurrenceRule); rule != nil {
		r, err := recurrence.FromRRule(rule.Value, start)
		if err != nil {
			c.logger.Warn("Could not map recurrence rule", "uid", uid, "rule", rule.Value, "error", err)
			r = &models.PatternedRecurrence{}
		}
		raw.Recurrence = r
	}

	return raw, nil
}

func dateTime(t time.Time) models.DateTimeTimeZone {
	return models.DateTimeTimeZone{DateTime: t.Format(time.RFC3339), TimeZone: t.Location().String()}
}

func text(ev ical.Event, name string) string {
	v, _ := ev.Props.Text(name)
	return v
}

func address(p *ical.Prop) models.EmailAddress {
	addr := p.Value
	if len(addr) > len("mailto:") && strings.EqualFold(addr[:len("mailto:")], "mailto:") {
		addr = addr[len("mailto:"):]
	}
	return models.EmailAddress{Name: p.Params.Get(ical.ParamCommonName), Address: addr}
}

func attendeeType(p *ical.Prop) string {
	switch {
	case strings.EqualFold(p.Params.Get(ical.ParamCalendarUserType), "RESOURCE"),
		strings.EqualFold(p.Params.Get(ical.ParamCalendarUserType), "ROOM"):
		return "resource"
	case strings.EqualFold(p.Params.Get(ical.ParamRole), "OPT-PARTICIPANT"):
		return "optional"
	default:
		return "required"
	}
}

func partStat(v string) string {
	if name, ok := partStats[strings.ToUpper(v)]; ok {
		return name
	}
	return "none"
}

// parseGeo reads a GEO value ("lat;lon").
func parseGeo(v string) *models.GeoCoordinates {
	lat, lon, ok := strings.Cut(v, ";")
	if !ok {
		return nil
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return nil
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return nil
	}
	return &models.GeoCoordinates{Latitude: &la, Longitude: &lo}
}
