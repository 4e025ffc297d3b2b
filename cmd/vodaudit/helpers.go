package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// formatTimestamp renders a stored timestamp with its age, or "unknown".
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return fmt.Sprintf("%s (%s)", t.Local().Format("2006-01-02 15:04:05"), humanize.Time(t))
}
