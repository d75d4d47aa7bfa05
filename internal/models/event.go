package models

// RawEvent is a calendar event as the remote API returns it.
// Field names and JSON keys follow the Microsoft Graph event resource; other
// providers convert into this shape.
type RawEvent struct {
	ID                         string               `json:"id,omitempty"`
	Subject                    string               `json:"subject"`
	Body                       *ItemBody            `json:"body,omitempty"`
	BodyPreview                string               `json:"bodyPreview"`
	Organizer                  *Recipient           `json:"organizer,omitempty"`
	Attendees                  []Attendee           `json:"attendees"`
	Start                      DateTimeTimeZone     `json:"start"`
	End                        DateTimeTimeZone     `json:"end"`
	Location                   *Location            `json:"location"`
	IsCancelled                bool                 `json:"isCancelled"`
	WebLink                    string               `json:"webLink,omitempty"`
	OnlineMeetingURL           string               `json:"onlineMeetingUrl,omitempty"`
	CreatedDateTime            string               `json:"createdDateTime,omitempty"`
	LastModifiedDateTime       string               `json:"lastModifiedDateTime,omitempty"`
	ReminderMinutesBeforeStart int                  `json:"reminderMinutesBeforeStart"`
	IsReminderOn               bool                 `json:"isReminderOn"`
	ResponseRequested          bool                 `json:"responseRequested"`
	ResponseStatus             *ResponseStatus      `json:"responseStatus,omitempty"`
	Recurrence                 *PatternedRecurrence `json:"recurrence,omitempty"`
}

// ItemBody is the event body together with its content type ("text" or "html").
type ItemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type EmailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

type Attendee struct {
	Type         string          `json:"type,omitempty"`
	Status       *ResponseStatus `json:"status,omitempty"`
	EmailAddress EmailAddress    `json:"emailAddress"`
}

type ResponseStatus struct {
	Response string `json:"response"`
	Time     string `json:"time,omitempty"`
}

// Location is where an event takes place. Link is only ever set by the
// normalizer, never by the remote API.
type Location struct {
	DisplayName  string           `json:"displayName"`
	LocationType string           `json:"locationType,omitempty"`
	LocationURI  string           `json:"locationUri,omitempty"`
	Address      *PhysicalAddress `json:"address,omitempty"`
	Coordinates  *GeoCoordinates  `json:"coordinates,omitempty"`
	Link         string           `json:"link,omitempty"`
}

type PhysicalAddress struct {
	Street          string `json:"street,omitempty"`
	City            string `json:"city,omitempty"`
	State           string `json:"state,omitempty"`
	CountryOrRegion string `json:"countryOrRegion,omitempty"`
	PostalCode      string `json:"postalCode,omitempty"`
}

// GeoCoordinates fields are nil when the API sends an empty coordinates object.
type GeoCoordinates struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// HasCoordinates reports whether the location carries a usable latitude and longitude.
func (l *Location) HasCoordinates() bool {
	return l != nil && l.Coordinates != nil && l.Coordinates.Latitude != nil && l.Coordinates.Longitude != nil
}

// PatternedRecurrence describes how a series repeats.
type PatternedRecurrence struct {
	Pattern RecurrencePattern `json:"pattern"`
	Range   RecurrenceRange   `json:"range"`
}

// RecurrencePattern.Type is one of daily, weekly, absoluteMonthly,
// relativeMonthly, absoluteYearly, relativeYearly.
type RecurrencePattern struct {
	Type           string   `json:"type"`
	Interval       int      `json:"interval"`
	Month          int      `json:"month,omitempty"`
	DayOfMonth     int      `json:"dayOfMonth,omitempty"`
	DaysOfWeek     []string `json:"daysOfWeek,omitempty"`
	FirstDayOfWeek string   `json:"firstDayOfWeek,omitempty"`
	Index          string   `json:"index,omitempty"`
}

// RecurrenceRange.Type is one of endDate, noEnd, numbered.
type RecurrenceRange struct {
	Type                string `json:"type"`
	StartDate           string `json:"startDate,omitempty"`
	EndDate             string `json:"endDate,omitempty"`
	RecurrenceTimeZone  string `json:"recurrenceTimeZone,omitempty"`
	NumberOfOccurrences int    `json:"numberOfOccurrences,omitempty"`
}
