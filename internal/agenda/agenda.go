// Package agenda builds the list of today's calendar events from a Source.
package agenda

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"time"

	"daycal/internal/models"
)

const (
	NoEventsMessage   = "No events found for current date"
	BadRequestMessage = "Bad request or no events returned"
)

// Result mirrors the activity envelope: Data holds ItemsData, BadFetchData
// or ErrorData, and ErrorCode is set only alongside ErrorData.
type Result struct {
	ErrorCode int `json:"ErrorCode,omitempty"`
	Data      any `json:"Data"`
}

type ItemsData struct {
	Message string                  `json:"message,omitempty"`
	Items   []models.NormalizedItem `json:"items"`
}

// BadFetchData answers an events query that completed without a usable list.
// StatusCode is always present, 0 when the source gave no status.
type BadFetchData struct {
	StatusCode int                     `json:"statusCode"`
	Message    string                  `json:"message"`
	Items      []models.NormalizedItem `json:"items"`
}

type ErrorData struct {
	ErrorText string `json:"ErrorText"`
}

// Failed reports whether the response carries an error envelope.
func (r Result) Failed() bool {
	return r.ErrorCode != 0
}

// Items returns the event items of a non-error response.
func (r Result) Items() []models.NormalizedItem {
	switch d := r.Data.(type) {
	case ItemsData:
		return d.Items
	case BadFetchData:
		return d.Items
	}
	return nil
}

// Service assembles today's agenda. It keeps no state between calls.
type Service struct {
	logger   *slog.Logger
	source   Source
	location *time.Location
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service. Calendar days are evaluated in loc
// (time.Local when nil).
func NewService(logger *slog.Logger, source Source, loc *time.Location, opts ...Option) *Service {
	if loc == nil {
		loc = time.Local
	}
	s := &Service{
		logger:   logger,
		source:   source,
		location: loc,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today runs the whole pipeline and shapes the outcome into a Result.
// It never returns an error; failures become the error envelope.
func (s *Service) Today(ctx context.Context) (resp Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Agenda pipeline panicked", "panic", r)
			resp = failure(fmt.Errorf("%v", r), debug.Stack())
		}
	}()

	items, err := s.Items(ctx)

	var bad *BadResponseError
	switch {
	case errors.As(err, &bad):
		s.logger.Warn("Calendar source returned no event list", "status", bad.StatusCode)
		return Result{Data: BadFetchData{
			StatusCode: bad.StatusCode,
			Message:    BadRequestMessage,
			Items:      []models.NormalizedItem{},
		}}
	case err != nil:
		s.logger.Error("Failed to build agenda", "error", err)
		return failure(err, nil)
	case len(items) == 0:
		return Result{Data: ItemsData{Items: []models.NormalizedItem{}, Message: NoEventsMessage}}
	}

	return Result{Data: ItemsData{Items: items}}
}

// Items fetches, normalizes, filters and sorts today's events.
func (s *Service) Items(ctx context.Context) ([]models.NormalizedItem, error) {
	raws, err := s.FetchTodayEvents(ctx)
	if err != nil {
		return nil, err
	}

	today := s.now().In(s.location)
	items := make([]models.NormalizedItem, 0, len(raws))
	for _, raw := range raws {
		item, err := Normalize(raw, s.location)
		if err != nil {
			return nil, err
		}
		if !sameDay(item.StartTime, today, s.location) {
			s.logger.Debug("Skipping event outside today", "subject", item.Subject, "date", item.Date)
			continue
		}
		items = append(items, item)
	}

	SortByDate(items)
	s.logger.Info("Built agenda", "fetched", len(raws), "items", len(items))
	return items, nil
}

// FetchTodayEvents lists the user's events and swaps recurring series whose
// first occurrence is on another day for today's occurrence. Series with no
// occurrence today are dropped.
func (s *Service) FetchTodayEvents(ctx context.Context) ([]models.RawEvent, error) {
	resp, err := s.source.Events(ctx, Fields)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}
	if !resp.OK() {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return nil, &BadResponseError{StatusCode: status}
	}

	s.logger.Debug("Fetched events", "count", len(resp.Value))

	today := s.now().In(s.location)
	events := make([]models.RawEvent, 0, len(resp.Value))
	for _, raw := range resp.Value {
		if raw.Recurrence != nil {
			start, err := raw.Start.Time(s.location)
			if err != nil {
				return nil, fmt.Errorf("event %q has invalid start: %w", raw.ID, err)
			}
			if !sameDay(start, today, s.location) {
				occ := s.resolveRecurrence(ctx, raw.ID, today)
				if occ == nil {
					continue
				}
				if occ.Recurrence == nil {
					occ.Recurrence = raw.Recurrence
				}
				raw = *occ
			}
		}
		events = append(events, raw)
	}
	return events, nil
}

// resolveRecurrence returns the occurrence of a series on today's date, or nil.
// Failures are logged and treated as no occurrence.
func (s *Service) resolveRecurrence(ctx context.Context, eventID string, today time.Time) *models.RawEvent {
	y, m, d := today.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, s.location)
	end := time.Date(y, m, d, 23, 59, 0, 0, s.location)

	resp, err := s.source.Instances(ctx, eventID, start, end)
	if err != nil {
		s.logger.Warn("Could not resolve recurring event", "id", eventID, "error", err)
		return nil
	}
	if resp == nil || resp.StatusCode != http.StatusOK || len(resp.Value) == 0 {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		s.logger.Debug("No occurrence of recurring event today", "id", eventID, "status", status)
		return nil
	}
	if len(resp.Value) > 1 {
		// Only one occurrence per series and day is expected; keep the first.
		s.logger.Debug("Recurring event has several occurrences today, using the first", "id", eventID, "count", len(resp.Value))
	}

	occ := resp.Value[0]
	return &occ
}

// CompareByDate orders items by start instant.
func CompareByDate(a, b models.NormalizedItem) int {
	return a.StartTime.Compare(b.StartTime)
}

// SortByDate sorts items ascending by date, keeping equal dates in order.
func SortByDate(items []models.NormalizedItem) {
	slices.SortStableFunc(items, CompareByDate)
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// failure builds the error envelope. The code comes from the first error in
// the chain with an HTTPStatus method, else 500.
func failure(err error, stack []byte) Result {
	code := http.StatusInternalServerError
	var sc interface{ HTTPStatus() int }
	if errors.As(err, &sc) && sc.HTTPStatus() != 0 {
		code = sc.HTTPStatus()
	}

	text := err.Error()
	if len(stack) > 0 {
		text += ": " + string(stack)
	}
	return Result{ErrorCode: code, Data: ErrorData{ErrorText: text}}
}
