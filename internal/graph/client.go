// Package graph reads calendar events from Microsoft Graph.
package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"daycal/internal/agenda"
	"daycal/internal/models"
)

const (
	DefaultBaseURL = "https://graph.microsoft.com/v1.0"

	requestTimeout = 30 * time.Second
	userAgent      = "daycal/1.0"
)

// APIError is a failed Graph call that never produced an API response, such
// as a rejected token refresh.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("graph request failed with status %d", e.StatusCode)
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error { return e.Err }

// HTTPStatus is the status code reported in the error envelope.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// Client is an agenda.Source backed by the Graph REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeZone   string
	logger     *slog.Logger
}

// NewClient wraps an HTTP client that already authenticates requests.
// timeZone is sent in the Prefer header so date-times come back in that zone;
// leave it empty to get UTC.
func NewClient(logger *slog.Logger, httpClient *http.Client, baseURL, timeZone string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		timeZone:   timeZone,
		logger:     logger,
	}
}

// NewAuthenticatedClient builds a Client that signs requests with token and
// refreshes it through config.
func NewAuthenticatedClient(ctx context.Context, logger *slog.Logger, config *oauth2.Config, token *oauth2.Token, baseURL, timeZone string) (*Client, error) {
	if token == nil {
		return nil, fmt.Errorf("token cannot be nil")
	}
	httpClient := config.Client(ctx, token)
	httpClient.Timeout = requestTimeout
	return NewClient(logger, httpClient, baseURL, timeZone), nil
}

// Events lists the signed-in user's events.
func (c *Client) Events(ctx context.Context, fields []string) (*agenda.Response, error) {
	query := url.Values{}
	if len(fields) > 0 {
		query.Set("$select", strings.Join(fields, ","))
	}
	return c.Get(ctx, "/me/events", query)
}

// Instances lists the occurrences of a series inside [start, end].
func (c *Client) Instances(ctx context.Context, eventID string, start, end time.Time) (*agenda.Response, error) {
	query := url.Values{}
	query.Set("startDateTime", agenda.FormatISO(start))
	query.Set("endDateTime", agenda.FormatISO(end))
	return c.Get(ctx, "/me/events/"+url.PathEscape(eventID)+"/instances", query)
}

// Get issues a GET for an event collection. A completed call with a non-2xx
// status is returned as a Response, not an error.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*agenda.Response, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.timeZone != "" {
		req.Header.Set("Prefer", fmt.Sprintf("outlook.timezone=%q", c.timeZone))
	}

	c.logger.Debug("Graph request", "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return nil, &APIError{StatusCode: re.Response.StatusCode, Code: re.ErrorCode, Message: re.ErrorDescription, Err: err}
		}
		return nil, fmt.Errorf("graph request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(resp)
		c.logger.Warn("Graph request returned an error status", "path", path, "status", resp.StatusCode, "code", apiErr.Code, "message", apiErr.Message)
		return &agenda.Response{StatusCode: resp.StatusCode}, nil
	}

	var payload struct {
		Value []models.RawEvent `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode graph response for %s: %w", path, err)
	}

	c.logger.Debug("Graph response", "path", path, "status", resp.StatusCode, "count", len(payload.Value))
	return &agenda.Response{StatusCode: resp.StatusCode, Value: payload.Value}, nil
}

// decodeError reads the Graph error body, if any.
func decodeError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Code = payload.Error.Code
		apiErr.Message = payload.Error.Message
	}
	return apiErr
}
