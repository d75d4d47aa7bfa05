// Package icloud reads calendar events from a CalDAV server, iCloud by default.
package icloud

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"

	"daycal/internal/agenda"
	"daycal/internal/models"
)

const (
	// ProviderName selects this source on the command line.
	ProviderName = "caldav"

	ICloudCalDAVEndpoint = "https://caldav.icloud.com/"
)

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "daycal/1.0")
	return t.Transport.RoundTrip(req)
}

// CalDAVClient is an agenda.Source over one CalDAV calendar collection.
type CalDAVClient struct {
	caldavClient *caldav.Client
	logger       *slog.Logger
	calendarPath string
	location     *time.Location
}

// NewClient logs in with an app-specific password and looks up the calendar
// named calendarName. An empty endpoint means iCloud.
func NewClient(ctx context.Context, logger *slog.Logger, endpoint, username, password, calendarName string, loc *time.Location) (*CalDAVClient, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("ICLOUD_USERNAME and ICLOUD_APP_SPECIFIC_PASSWORD must be set")
	}
	if endpoint == "" {
		endpoint = ICloudCalDAVEndpoint
	}

	transport := &customTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}
	httpClient := &http.Client{Transport: transport, Timeout: 30 * time.Second}

	c, err := newClient(logger, httpClient, endpoint, "", loc)
	if err != nil {
		return nil, err
	}

	logger.Info("Finding CalDAV calendar", "calendarName", calendarName)
	calendarPath, err := c.findCalendar(ctx, calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", calendarName, err)
	}
	c.calendarPath = calendarPath
	logger.Info("Successfully found CalDAV calendar", "path", calendarPath)

	return c, nil
}

func newClient(logger *slog.Logger, httpClient *http.Client, endpoint, calendarPath string, loc *time.Location) (*CalDAVClient, error) {
	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &CalDAVClient{
		caldavClient: caldavClient,
		logger:       logger,
		calendarPath: calendarPath,
		location:     loc,
	}, nil
}

// Events lists every event in the calendar. Recurring series are returned
// once, as their master event. fields is ignored.
func (c *CalDAVClient) Events(ctx context.Context, _ []string) (*agenda.Response, error) {
	c.logger.Debug("Fetching events", "calendar", c.calendarPath)

	objects, err := c.caldavClient.QueryCalendar(ctx, c.calendarPath, eventQuery(time.Time{}, time.Time{}))
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}

	value := make([]models.RawEvent, 0, len(objects))
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		value = append(value, c.masters(obj.Data)...)
	}

	c.logger.Info("Successfully fetched events from CalDAV", "count", len(value), "calendar", c.calendarPath)
	return &agenda.Response{StatusCode: http.StatusOK, Value: value}, nil
}

// Instances returns the occurrences of the series with UID eventID that start
// inside [start, end]. Overridden occurrences win over the expanded rule.
func (c *CalDAVClient) Instances(ctx context.Context, eventID string, start, end time.Time) (*agenda.Response, error) {
	objects, err := c.caldavClient.QueryCalendar(ctx, c.calendarPath, eventQuery(start, end))
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}

	var cal *ical.Calendar
	for _, obj := range objects {
		if obj.Data != nil && hasUID(obj.Data, eventID) {
			cal = obj.Data
			break
		}
	}
	if cal == nil {
		return &agenda.Response{StatusCode: http.StatusNotFound}, nil
	}

	value, err := c.occurrences(cal, eventID, start, end)
	if err != nil {
		return nil, err
	}
	return &agenda.Response{StatusCode: http.StatusOK, Value: value}, nil
}

// eventQuery asks for whole VEVENT objects, limited to [start, end] unless
// both are zero.
func eventQuery(start, end time.Time) *caldav.CalendarQuery {
	return &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name:  ical.CompCalendar,
			Comps: []caldav.CompFilter{{Name: ical.CompEvent, Start: start, End: end}},
		},
	}
}

// findCalendar discovers the user's calendars and returns the path of the one with the matching name.
func (c *CalDAVClient) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	var names []string
	for _, cal := range calendars {
		if cal.Name == name {
			return cal.Path, nil
		}
		names = append(names, cal.Name)
	}

	return "", fmt.Errorf("no calendar found with name '%s' (have: %s)", name, strings.Join(names, ", "))
}
