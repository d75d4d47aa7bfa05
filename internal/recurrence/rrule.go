// Package recurrence converts between the Graph recurrence model and RFC 5545
// RRULE text.
package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"daycal/internal/models"
)

const dateLayout = "2006-01-02"

var weekdays = map[string]rrule.Weekday{
	"monday":    rrule.MO,
	"tuesday":   rrule.TU,
	"wednesday": rrule.WE,
	"thursday":  rrule.TH,
	"friday":    rrule.FR,
	"saturday":  rrule.SA,
	"sunday":    rrule.SU,
}

var weekdayNames = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

var indexes = map[string]int{
	"first":  1,
	"second": 2,
	"third":  3,
	"fourth": 4,
	"last":   -1,
}

// Options builds rrule options for a Graph recurrence. Dtstart is left unset.
func Options(r *models.PatternedRecurrence) (*rrule.ROption, error) {
	if r == nil {
		return nil, fmt.Errorf("nil recurrence")
	}
	p := r.Pattern

	opt := &rrule.ROption{Interval: p.Interval}
	if opt.Interval <= 0 {
		opt.Interval = 1
	}
	if p.FirstDayOfWeek != "" {
		wkst, ok := weekdays[strings.ToLower(p.FirstDayOfWeek)]
		if !ok {
			return nil, fmt.Errorf("unknown first day of week %q", p.FirstDayOfWeek)
		}
		opt.Wkst = wkst
	}

	days, err := weekdayList(p.DaysOfWeek, p.Index)
	if err != nil {
		return nil, err
	}

	switch p.Type {
	case "daily":
		opt.Freq = rrule.DAILY
	case "weekly":
		opt.Freq = rrule.WEEKLY
		opt.Byweekday = days
	case "absoluteMonthly":
		opt.Freq = rrule.MONTHLY
		opt.Bymonthday = []int{p.DayOfMonth}
	case "relativeMonthly":
		opt.Freq = rrule.MONTHLY
		opt.Byweekday = days
	case "absoluteYearly":
		opt.Freq = rrule.YEARLY
		opt.Bymonth = []int{p.Month}
		opt.Bymonthday = []int{p.DayOfMonth}
	case "relativeYearly":
		opt.Freq = rrule.YEARLY
		opt.Bymonth = []int{p.Month}
		opt.Byweekday = days
	default:
		return nil, fmt.Errorf("unsupported recurrence pattern %q", p.Type)
	}

	switch r.Range.Type {
	case "numbered":
		opt.Count = r.Range.NumberOfOccurrences
	case "endDate":
		until, err := time.Parse(dateLayout, r.Range.EndDate)
		if err != nil {
			return nil, fmt.Errorf("invalid recurrence end date %q: %w", r.Range.EndDate, err)
		}
		// The end date is inclusive.
		opt.Until = until.Add(24*time.Hour - time.Second)
	}

	return opt, nil
}

// RRule renders a Graph recurrence as RRULE text, e.g. "FREQ=WEEKLY;INTERVAL=1;BYDAY=MO,WE".
func RRule(r *models.PatternedRecurrence) (string, error) {
	opt, err := Options(r)
	if err != nil {
		return "", err
	}
	if _, err := rrule.NewRRule(*opt); err != nil {
		return "", fmt.Errorf("invalid recurrence: %w", err)
	}
	return opt.RRuleString(), nil
}

// FromRRule converts an RRULE line (with or without the "RRULE:" prefix) to
// the Graph model. start is the first occurrence of the series.
func FromRRule(line string, start time.Time) (*models.PatternedRecurrence, error) {
	opt, err := rrule.StrToROptionInLocation(line, start.Location())
	if err != nil {
		return nil, fmt.Errorf("invalid RRULE %q: %w", line, err)
	}

	r := &models.PatternedRecurrence{
		Pattern: models.RecurrencePattern{
			Interval:       opt.Interval,
			FirstDayOfWeek: weekdayNames[opt.Wkst.Day()],
		},
		Range: models.RecurrenceRange{
			Type:               "noEnd",
			StartDate:          start.Format(dateLayout),
			RecurrenceTimeZone: start.Location().String(),
		},
	}
	if r.Pattern.Interval == 0 {
		r.Pattern.Interval = 1
	}

	index := 0
	if len(opt.Bysetpos) > 0 {
		index = opt.Bysetpos[0]
	}
	for _, wd := range opt.Byweekday {
		r.Pattern.DaysOfWeek = append(r.Pattern.DaysOfWeek, weekdayNames[wd.Day()])
		if wd.N() != 0 {
			index = wd.N()
		}
	}
	if index != 0 {
		r.Pattern.Index = indexName(index)
	}
	if len(opt.Bymonthday) > 0 {
		r.Pattern.DayOfMonth = opt.Bymonthday[0]
	}
	if len(opt.Bymonth) > 0 {
		r.Pattern.Month = opt.Bymonth[0]
	}

	relative := len(opt.Byweekday) > 0 && len(opt.Bymonthday) == 0
	switch opt.Freq {
	case rrule.DAILY:
		r.Pattern.Type = "daily"
	case rrule.WEEKLY:
		r.Pattern.Type = "weekly"
		if len(r.Pattern.DaysOfWeek) == 0 {
			r.Pattern.DaysOfWeek = []string{weekdayName(start.Weekday())}
		}
	case rrule.MONTHLY:
		if relative {
			r.Pattern.Type = "relativeMonthly"
		} else {
			r.Pattern.Type = "absoluteMonthly"
			if r.Pattern.DayOfMonth == 0 {
				r.Pattern.DayOfMonth = start.Day()
			}
		}
	case rrule.YEARLY:
		if r.Pattern.Month == 0 {
			r.Pattern.Month = int(start.Month())
		}
		if relative {
			r.Pattern.Type = "relativeYearly"
		} else {
			r.Pattern.Type = "absoluteYearly"
			if r.Pattern.DayOfMonth == 0 {
				r.Pattern.DayOfMonth = start.Day()
			}
		}
	default:
		return nil, fmt.Errorf("unsupported RRULE frequency %s", opt.Freq)
	}

	switch {
	case opt.Count > 0:
		r.Range.Type = "numbered"
		r.Range.NumberOfOccurrences = opt.Count
	case !opt.Until.IsZero():
		r.Range.Type = "endDate"
		r.Range.EndDate = opt.Until.In(start.Location()).Format(dateLayout)
	}

	return r, nil
}

func weekdayList(names []string, index string) ([]rrule.Weekday, error) {
	n := 0
	if index != "" {
		var ok bool
		if n, ok = indexes[strings.ToLower(index)]; !ok {
			return nil, fmt.Errorf("unknown week index %q", index)
		}
	}

	days := make([]rrule.Weekday, 0, len(names))
	for _, name := range names {
		wd, ok := weekdays[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		if n != 0 {
			wd = wd.Nth(n)
		}
		days = append(days, wd)
	}
	return days, nil
}

func indexName(n int) string {
	for name, i := range indexes {
		if i == n {
			return name
		}
	}
	return "last"
}

// weekdayName maps time.Weekday (Sunday first) to the Graph name.
func weekdayName(d time.Weekday) string {
	return weekdayNames[(int(d)+6)%7]
}
