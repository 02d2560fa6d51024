// Package timeutil holds the date layouts and human-readable time
// formatting shared by the gradebook views.
package timeutil

import (
	"fmt"
	"time"
)

// Layouts used across the gradebook.
const (
	// DayLayout is the score event date format.
	DayLayout = "2006-01-02"
	// StampLayout is how journal timestamps are printed.
	StampLayout = "2006-01-02 15:04"
)

// Stamp formats t in the local zone with StampLayout. The zero time formats
// as an empty string.
func Stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(StampLayout)
}

// FormatRelative describes t relative to now: "just now", "5 min ago",
// "yesterday", "in 2 h" and so on.
func FormatRelative(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	if d < 0 {
		return formatFuture(-d)
	}
	return formatPast(d)
}

func formatPast(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d min ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d h ago", int(d.Hours()))
	case d < 48*time.Hour:
		return "yesterday"
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	case d < 30*24*time.Hour:
		return plural(int(d.Hours()/24/7), "week") + " ago"
	default:
		months := int(d.Hours() / 24 / 30)
		if months < 12 {
			return plural(months, "month") + " ago"
		}
		return plural(months/12, "year") + " ago"
	}
}

func formatFuture(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("in %d min", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("in %d h", int(d.Hours()))
	case d < 48*time.Hour:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", int(d.Hours()/24))
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
