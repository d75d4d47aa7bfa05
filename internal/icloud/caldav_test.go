package icloud

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seriesICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:standup-1
DTSTAMP:20240301T000000Z
DTSTART:20240311T090000Z
DTEND:20240311T091500Z
SUMMARY:Standup
DESCRIPTION:Daily sync
URL:https://meet.example.com/standup
RRULE:FREQ=DAILY;COUNT=10
EXDATE:20240314T090000Z
BEGIN:VALARM
ACTION:DISPLAY
TRIGGER:-PT10M
END:VALARM
END:VEVENT
BEGIN:VEVENT
UID:standup-1
DTSTAMP:20240301T000000Z
RECURRENCE-ID:20240315T090000Z
DTSTART:20240315T100000Z
DTEND:20240315T101500Z
SUMMARY:Standup (moved)
END:VEVENT
END:VCALENDAR
`

const meetingICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:review-1
DTSTAMP:20240301T000000Z
DTSTART:20240315T130000Z
DTEND:20240315T143000Z
SUMMARY:Design review
LOCATION:Office
GEO:52.52;13.405
STATUS:CANCELLED
CREATED:20240301T080000Z
ORGANIZER;CN=Ada:mailto:ada@example.com
ATTENDEE;PARTSTAT=ACCEPTED;ROLE=REQ-PARTICIPANT:mailto:bob@example.com
ATTENDEE;PARTSTAT=TENTATIVE;ROLE=OPT-PARTICIPANT:mailto:eve@example.com
ATTENDEE;CUTYPE=ROOM:mailto:room4@example.com
END:VEVENT
END:VCALENDAR
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

func decode(t *testing.T, s string) *ical.Calendar {
	t.Helper()
	cal, err := ical.NewDecoder(strings.NewReader(crlf(s))).Decode()
	require.NoError(t, err)
	return cal
}

func testClient() *CalDAVClient {
	return &CalDAVClient{logger: testLogger(), location: time.UTC}
}

func day(d int) (time.Time, time.Time) {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, d, 23, 59, 0, 0, time.UTC)
}

func TestMastersSkipOverrides(t *testing.T) {
	events := testClient().masters(decode(t, seriesICS))

	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "standup-1", ev.ID)
	assert.Equal(t, "Standup", ev.Subject)
	assert.Equal(t, "Daily sync", ev.BodyPreview)
	assert.Equal(t, "https://meet.example.com/standup", ev.OnlineMeetingURL)
	assert.True(t, ev.IsReminderOn)
	assert.Equal(t, 10, ev.ReminderMinutesBeforeStart)
	require.NotNil(t, ev.Recurrence)
	assert.Equal(t, "daily", ev.Recurrence.Pattern.Type)
	assert.Equal(t, "numbered", ev.Recurrence.Range.Type)
	assert.Equal(t, 10, ev.Recurrence.Range.NumberOfOccurrences)
}

func TestOccurrences(t *testing.T) {
	cal := decode(t, seriesICS)
	c := testClient()

	start, end := day(13)
	occ, err := c.occurrences(cal, "standup-1", start, end)
	require.NoError(t, err)
	require.Len(t, occ, 1)
	assert.Equal(t, "Standup", occ[0].Subject)
	assert.Equal(t, "2024-03-13T09:00:00Z", occ[0].Start.DateTime)
	assert.Equal(t, "2024-03-13T09:15:00Z", occ[0].End.DateTime)

	// Excluded date.
	start, end = day(14)
	occ, err = c.occurrences(cal, "standup-1", start, end)
	require.NoError(t, err)
	assert.Empty(t, occ)

	// The moved occurrence replaces the expanded one.
	start, end = day(15)
	occ, err = c.occurrences(cal, "standup-1", start, end)
	require.NoError(t, err)
	require.Len(t, occ, 1)
	assert.Equal(t, "Standup (moved)", occ[0].Subject)
	assert.Equal(t, "2024-03-15T10:00:00Z", occ[0].Start.DateTime)

	// After COUNT runs out.
	start, end = day(25)
	occ, err = c.occurrences(cal, "standup-1", start, end)
	require.NoError(t, err)
	assert.Empty(t, occ)
}

func TestToRawEvent(t *testing.T) {
	events := testClient().masters(decode(t, meetingICS))
	require.Len(t, events, 1)
	ev := events[0]

	assert.Equal(t, "review-1", ev.ID)
	assert.True(t, ev.IsCancelled)
	assert.Equal(t, "2024-03-01T08:00:00Z", ev.CreatedDateTime)
	require.NotNil(t, ev.Location)
	assert.Equal(t, "Office", ev.Location.DisplayName)
	assert.True(t, ev.Location.HasCoordinates())
	assert.InDelta(t, 13.405, *ev.Location.Coordinates.Longitude, 1e-9)

	require.NotNil(t, ev.Organizer)
	assert.Equal(t, "Ada", ev.Organizer.EmailAddress.Name)
	assert.Equal(t, "ada@example.com", ev.Organizer.EmailAddress.Address)

	require.Len(t, ev.Attendees, 3)
	assert.Equal(t, "required", ev.Attendees[0].Type)
	assert.Equal(t, "accepted", ev.Attendees[0].Status.Response)
	assert.Equal(t, "optional", ev.Attendees[1].Type)
	assert.Equal(t, "tentativelyAccepted", ev.Attendees[1].Status.Response)
	assert.Equal(t, "resource", ev.Attendees[2].Type)
	assert.Equal(t, "none", ev.Attendees[2].Status.Response)
	assert.Nil(t, ev.Recurrence)
}

func TestParseGeo(t *testing.T) {
	assert.Nil(t, parseGeo("52.5"))
	assert.Nil(t, parseGeo("x;13.4"))
	assert.Nil(t, parseGeo("52.5;y"))

	g := parseGeo("52.5; 13.4")
	require.NotNil(t, g)
	assert.Equal(t, 52.5, *g.Latitude)
	assert.Equal(t, 13.4, *g.Longitude)
}

// multistatus wraps calendar data in a CalDAV REPORT reply. Carriage returns
// are escaped so the XML decoder keeps them.
func multistatus(href, data string) string {
	data = strings.ReplaceAll(data, "\n", "&#13;\n")
	return `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:response>
    <d:href>` + href + `</d:href>
    <d:propstat>
      <d:prop>
        <d:getetag>"1"</d:getetag>
        <c:calendar-data>` + data + `</c:calendar-data>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`
}

func TestCalDAVClientEventsAndInstances(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method+" "+r.URL.Path)
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		w.WriteHeader(http.StatusMultiStatus)
		_, _ = io.WriteString(w, multistatus("/cal/work/standup-1.ics", seriesICS))
	}))
	defer srv.Close()

	c, err := newClient(testLogger(), srv.Client(), srv.URL, "/cal/work/", time.UTC)
	require.NoError(t, err)

	resp, err := c.Events(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, resp.OK())
	require.Len(t, resp.Value, 1)
	assert.Equal(t, "standup-1", resp.Value[0].ID)

	start, end := day(13)
	resp, err = c.Instances(context.Background(), "standup-1", start, end)
	require.NoError(t, err)
	require.Len(t, resp.Value, 1)
	assert.Equal(t, "2024-03-13T09:00:00Z", resp.Value[0].Start.DateTime)

	resp, err = c.Instances(context.Background(), "unknown", start, end)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	assert.Equal(t, []string{"REPORT /cal/work/", "REPORT /cal/work/", "REPORT /cal/work/"}, methods)
}

func TestCalDAVClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := newClient(testLogger(), srv.Client(), srv.URL, "/cal/work/", time.UTC)
	require.NoError(t, err)

	_, err = c.Events(context.Background(), nil)
	assert.ErrorContains(t, err, "failed to query calendar")
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(context.Background(), testLogger(), "", "", "", "Work", time.UTC)
	assert.ErrorContains(t, err, "ICLOUD_USERNAME")
}

func TestCustomTransport(t *testing.T) {
	var user, pass, agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ = r.BasicAuth()
		agent = r.UserAgent()
	}))
	defer srv.Close()

	client := &http.Client{Transport: &customTransport{Username: "me", Password: "secret", Transport: http.DefaultTransport}}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "me", user)
	assert.Equal(t, "secret", pass)
	assert.Equal(t, "daycal/1.0", agent)
}
