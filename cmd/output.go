package main

import (
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"

	"daycal/internal/agenda"
	"daycal/internal/ics"
)

const (
	formatJSON = "json"
	formatICS  = "ics"
)

// writeResponse prints the agenda envelope. The ics format only covers item
// lists; error envelopes are always printed as JSON.
func writeResponse(w io.Writer, format string, resp agenda.Result, loc *time.Location) error {
	if format == formatICS && !resp.Failed() {
		return ics.Encode(w, resp.Items(), loc)
	}

	b, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	if _, err := fmt.Fprintln(w, string(b)); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}
