package agenda

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"daycal/internal/models"
)

// Fields is the fixed set of event properties requested from the source.
var Fields = []string{
	"subject",
	"body",
	"bodyPreview",
	"organizer",
	"attendees",
	"start",
	"end",
	"location",
	"isCancelled",
	"webLink",
	"onlineMeetingUrl",
	"createdDateTime",
	"lastModifiedDateTime",
	"reminderMinutesBeforeStart",
	"isReminderOn",
	"responseRequested",
	"responseStatus",
	"recurrence",
}

// Source is the calendar API the agenda is built from. Implementations handle
// authentication before the first call.
type Source interface {
	// Events lists the authenticated user's events, selecting fields.
	Events(ctx context.Context, fields []string) (*Response, error)
	// Instances lists the occurrences of a series between start and end.
	Instances(ctx context.Context, eventID string, start, end time.Time) (*Response, error)
}

// Response is a completed call to a Source. Value is nil when the payload
// carried no event list.
type Response struct {
	StatusCode int
	Value      []models.RawEvent
}

// OK reports whether the call succeeded with a list payload.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode == http.StatusOK && r.Value != nil
}

// BadResponseError is returned when the events query completed without a
// usable list.
type BadResponseError struct {
	StatusCode int
}

func (e *BadResponseError) Error() string {
	return fmt.Sprintf("bad response from calendar source: status %d", e.StatusCode)
}
