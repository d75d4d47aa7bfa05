package ics

import (
	"bytes"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daycal/internal/models"
)

func TestEncode(t *testing.T) {
	start := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	items := []models.NormalizedItem{
		{
			RawEvent: models.RawEvent{
				ID:               "AAMk-1",
				Subject:          "Planning",
				BodyPreview:      "Quarterly planning",
				Start:            models.DateTimeTimeZone{DateTime: "2024-03-15T10:00:00", TimeZone: "UTC"},
				End:              models.DateTimeTimeZone{DateTime: "2024-03-15T11:30:00", TimeZone: "UTC"},
				Location:         &models.Location{DisplayName: "HQ"},
				OnlineMeetingURL: "https://teams.microsoft.com/l/meetup-join/abc",
				Organizer:        &models.Recipient{EmailAddress: models.EmailAddress{Name: "Ada", Address: "ada@example.com"}},
				Attendees: []models.Attendee{
					{EmailAddress: models.EmailAddress{Address: "bob@example.com"}},
					{EmailAddress: models.EmailAddress{Name: "No mail"}},
				},
			},
			StartTime: start,
		},
		{
			RawEvent: models.RawEvent{
				Subject:     "Lunch",
				IsCancelled: true,
				Start:       models.DateTimeTimeZone{DateTime: "2024-03-15T12:00:00", TimeZone: "UTC"},
				End:         models.DateTimeTimeZone{DateTime: "2024-03-15T13:00:00", TimeZone: "UTC"},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, items, time.UTC))

	cal, err := ical.NewDecoder(&buf).Decode()
	require.NoError(t, err)

	prodID, err := cal.Props.Text(ical.PropProductID)
	require.NoError(t, err)
	assert.Equal(t, productID, prodID)

	events := cal.Events()
	require.Len(t, events, 2)

	first := events[0]
	uid, err := first.Props.Text(ical.PropUID)
	require.NoError(t, err)
	assert.Equal(t, "AAMk-1", uid)

	gotStart, err := first.DateTimeStart(time.UTC)
	require.NoError(t, err)
	assert.True(t, start.Equal(gotStart))

	gotEnd, err := first.DateTimeEnd(time.UTC)
	require.NoError(t, err)
	assert.True(t, start.Add(90*time.Minute).Equal(gotEnd))

	loc, err := first.Props.Text(ical.PropLocation)
	require.NoError(t, err)
	assert.Equal(t, "HQ", loc)

	meeting, err := first.Props.URI(ical.PropURL)
	require.NoError(t, err)
	assert.Equal(t, "https://teams.microsoft.com/l/meetup-join/abc", meeting.String())

	organizer := first.Props.Get(ical.PropOrganizer)
	require.NotNil(t, organizer)
	assert.Equal(t, "mailto:ada@example.com", organizer.Value)
	assert.Equal(t, "Ada", organizer.Params.Get(ical.ParamCommonName))
	assert.Len(t, first.Props.Values(ical.PropAttendee), 1)

	second := events[1]
	uid, err = second.Props.Text(ical.PropUID)
	require.NoError(t, err)
	assert.NotEmpty(t, uid)
	status, err := second.Props.Text(ical.PropStatus)
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", status)
	assert.Nil(t, second.Props.Get(ical.PropURL))
}

func TestEncodeInvalidEnd(t *testing.T) {
	items := []models.NormalizedItem{{
		RawEvent: models.RawEvent{
			ID:    "bad",
			Start: models.DateTimeTimeZone{DateTime: "2024-03-15T12:00:00"},
			End:   models.DateTimeTimeZone{DateTime: "not a date"},
		},
	}}

	var buf bytes.Buffer
	assert.ErrorContains(t, Encode(&buf, items, time.UTC), `event "bad" has invalid end`)
}

func TestEncodeEmpty(t *testing.T) {
	for _, items := range [][]models.NormalizedItem{nil, {}} {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, items, time.UTC))
		assert.Equal(t, "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//daycal//EN\r\nEND:VCALENDAR\r\n", buf.String())
	}
}
