// Package ics renders agenda items as an iCalendar document.
package ics

import (
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"daycal/internal/models"
)

const productID = "-//daycal//EN"

var emptyCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + productID + "\r\nEND:VCALENDAR\r\n"

// Encode writes items as a VCALENDAR. Zone-less event times are read in loc.
func Encode(w io.Writer, items []models.NormalizedItem, loc *time.Location) error {
	if len(items) == 0 {
		// go-ical refuses to encode a calendar without components.
		if _, err := io.WriteString(w, emptyCalendar); err != nil {
			return fmt.Errorf("failed to write calendar: %w", err)
		}
		return nil
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	stamp := time.Now().UTC()
	for _, item := range items {
		ve, err := toICal(item, loc, stamp)
		if err != nil {
			return err
		}
		cal.Children = append(cal.Children, ve)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

// toICal converts a normalized item to a VEVENT.
func toICal(item models.NormalizedItem, loc *time.Location, stamp time.Time) (*ical.Component, error) {
	start := item.StartTime
	if start.IsZero() {
		var err error
		if start, err = item.Start.Time(loc); err != nil {
			return nil, fmt.Errorf("event %q has invalid start: %w", item.ID, err)
		}
	}
	end, err := item.End.Time(loc)
	if err != nil {
		return nil, fmt.Errorf("event %q has invalid end: %w", item.ID, err)
	}

	uid := item.ID
	if uid == "" {
		uid = uuid.NewString()
	}

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, uid)
	ve.Props.SetText(ical.PropSummary, item.Subject)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
	ve.Props.SetDateTime(ical.PropDateTimeStart, start)
	ve.Props.SetDateTime(ical.PropDateTimeEnd, end)

	if item.IsCancelled {
		ve.Props.SetText(ical.PropStatus, "CANCELLED")
	}
	if item.BodyPreview != "" {
		ve.Props.SetText(ical.PropDescription, item.BodyPreview)
	}
	if item.Location != nil && item.Location.DisplayName != "" {
		ve.Props.SetText(ical.PropLocation, item.Location.DisplayName)
	}
	if item.OnlineMeetingURL != "" {
		if u, err := url.Parse(item.OnlineMeetingURL); err == nil {
			ve.Props.SetURI(ical.PropURL, u)
		}
	}
	if item.Organizer != nil && item.Organizer.EmailAddress.Address != "" {
		ve.Props.Add(address(ical.PropOrganizer, item.Organizer.EmailAddress))
	}
	for _, a := range item.Attendees {
		if a.EmailAddress.Address == "" {
			continue
		}
		ve.Props.Add(address(ical.PropAttendee, a.EmailAddress))
	}
	return ve, nil
}

func address(name string, addr models.EmailAddress) *ical.Prop {
	p := ical.NewProp(name)
	p.Value = "mailto:" + addr.Address
	if addr.Name != "" {
		p.Params.Set(ical.ParamCommonName, addr.Name)
	}
	return p
}
