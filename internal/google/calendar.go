package google

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"daycal/internal/agenda"
)

const (
	// ProviderName keys Google tokens in the token store.
	ProviderName = "google"

	credentialsFile = "credentials.json"
	primaryCalendar = "primary"
	maxResults      = 250
)

// CalendarClient is an agenda.Source over the Google Calendar API.
type CalendarClient struct {
	service    *calendar.Service
	calendarID string
	logger     *slog.Logger
	location   *time.Location
}

// NewClient creates a Google Calendar client for an authenticated account.
// Events are read from the primary calendar; loc is used for all-day dates.
func NewClient(ctx context.Context, logger *slog.Logger, config *oauth2.Config, token *oauth2.Token, loc *time.Location) (*CalendarClient, error) {
	if token == nil {
		return nil, fmt.Errorf("token cannot be nil")
	}
	return NewClientWithOptions(ctx, logger, loc, option.WithHTTPClient(config.Client(ctx, token)))
}

// NewClientWithOptions creates a client from raw API options.
func NewClientWithOptions(ctx context.Context, logger *slog.Logger, loc *time.Location, opts ...option.ClientOption) (*CalendarClient, error) {
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &CalendarClient{service: service, calendarID: primaryCalendar, logger: logger, location: loc}, nil
}

// Events lists the primary calendar's events. Recurring series come back as
// a single master event carrying their RRULE. fields is ignored; every
// event property is converted.
func (c *CalendarClient) Events(ctx context.Context, _ []string) (*agenda.Response, error) {
	c.logger.Debug("Fetching events", "calendarID", c.calendarID)

	events, err := c.service.Events.List(c.calendarID).
		ShowDeleted(false).
		SingleEvents(false).
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return statusResponse(err)
	}

	c.logger.Info("Successfully fetched events from Google Calendar", "count", len(events.Items), "calendarID", c.calendarID)
	return &agenda.Response{StatusCode: http.StatusOK, Value: c.toRawEvents(events.Items)}, nil
}

// Instances lists the occurrences of a recurring event between start and end.
func (c *CalendarClient) Instances(ctx context.Context, eventID string, start, end time.Time) (*agenda.Response, error) {
	events, err := c.service.Events.Instances(c.calendarID, eventID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		Context(ctx).
		Do()
	if err != nil {
		return statusResponse(err)
	}
	return &agenda.Response{StatusCode: http.StatusOK, Value: c.toRawEvents(events.Items)}, nil
}

// statusResponse turns an API error status into a completed response; other
// errors are returned as-is.
func statusResponse(err error) (*agenda.Response, error) {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &agenda.Response{StatusCode: apiErr.Code}, nil
	}
	return nil, fmt.Errorf("failed to retrieve events: %w", err)
}

// GetOAuthConfig returns the OAuth2 config for the auth flow. Explicit client
// credentials win over a local credentials.json file.
func GetOAuthConfig(clientID, clientSecret string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  "http://localhost",
			Scopes:       []string{calendar.CalendarReadonlyScope},
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("credentials.json not found. Please provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars or place credentials.json in the working directory")
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = "http://localhost"
	return config, nil
}

// TokenFromWeb exchanges the authorization code pasted by the user.
func TokenFromWeb(ctx context.Context, config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(ctx, authCode)
}
