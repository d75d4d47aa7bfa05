package agenda

import (
	"strconv"
	"strings"
	"time"
)

// FormatDuration renders the span from start to end as "1y 2mo 3d 4h 5m",
// leaving out zero units. Years and months are calendar units counted from
// start. An empty or negative span yields "".
func FormatDuration(start, end time.Time) string {
	if !end.After(start) {
		return ""
	}
	end = end.In(start.Location())

	years := end.Year() - start.Year()
	for years > 0 && start.AddDate(years, 0, 0).After(end) {
		years--
	}

	anchor := start.AddDate(years, 0, 0)
	months := (end.Year()-anchor.Year())*12 + int(end.Month()) - int(anchor.Month())
	for months > 0 && start.AddDate(years, months, 0).After(end) {
		months--
	}

	days := 0
	for !start.AddDate(years, months, days+1).After(end) {
		days++
	}

	rest := end.Sub(start.AddDate(years, months, days))
	hours := int(rest / time.Hour)
	minutes := int(rest % time.Hour / time.Minute)

	var parts []string
	for _, u := range []struct {
		n    int
		unit string
	}{
		{years, "y"},
		{months, "mo"},
		{days, "d"},
		{hours, "h"},
		{minutes, "m"},
	} {
		if u.n > 0 {
			parts = append(parts, strconv.Itoa(u.n)+u.unit)
		}
	}
	return strings.Join(parts, " ")
}
