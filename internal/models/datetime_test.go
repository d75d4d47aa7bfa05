package models

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateTimeTimeZoneTime(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	tests := []struct {
		name     string
		in       DateTimeTimeZone
		fallback *time.Location
		want     time.Time
	}{
		{
			name: "graph UTC value with seven digit fraction",
			in:   DateTimeTimeZone{DateTime: "2024-01-01T10:00:00.0000000", TimeZone: "UTC"},
			want: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name: "IANA zone wins over fallback",
			in:   DateTimeTimeZone{DateTime: "2024-01-01T10:00:00", TimeZone: "Europe/Berlin"},
			want: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			name:     "unknown zone name uses fallback",
			in:       DateTimeTimeZone{DateTime: "2024-01-01T10:00:00", TimeZone: "W. Europe Standard Time"},
			fallback: berlin,
			want:     time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "RFC 3339 offset is honoured",
			in:   DateTimeTimeZone{DateTime: "2024-01-01T10:00:00+02:00", TimeZone: "UTC"},
			want: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		},
		{
			name:     "date only",
			in:       DateTimeTimeZone{DateTime: "2024-01-01"},
			fallback: time.UTC,
			want:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.in.Time(tc.fallback)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "want %s, got %s", tc.want, got)
		})
	}
}

func TestDateTimeTimeZoneTimeInvalid(t *testing.T) {
	_, err := DateTimeTimeZone{}.Time(time.UTC)
	assert.Error(t, err)

	_, err = DateTimeTimeZone{DateTime: "tomorrow-ish"}.Time(time.UTC)
	assert.Error(t, err)
}

func TestLocationHasCoordinates(t *testing.T) {
	lat, lng := 1.0, 2.0

	var nilLoc *Location
	assert.False(t, nilLoc.HasCoordinates())
	assert.False(t, (&Location{DisplayName: "Room 4"}).HasCoordinates())
	assert.False(t, (&Location{Coordinates: &GeoCoordinates{}}).HasCoordinates())
	assert.False(t, (&Location{Coordinates: &GeoCoordinates{Latitude: &lat}}).HasCoordinates())
	assert.True(t, (&Location{Coordinates: &GeoCoordinates{Latitude: &lat, Longitude: &lng}}).HasCoordinates())
}
