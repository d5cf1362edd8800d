package uptime

import "time"

// WindowLabel identifies a trailing window
type WindowLabel string

const (
	WindowHour WindowLabel = "hour"
	WindowDay  WindowLabel = "day"
	WindowWeek WindowLabel = "week"
)

// Window trailing interval ending at the reference instant
type Window struct {
	Label WindowLabel `json:"label"`
	Interval
}

var windowLengths = []struct {
	label  WindowLabel
	length time.Duration
}{
	{WindowHour, time.Hour},
	{WindowDay, 24 * time.Hour},
	{WindowWeek, 7 * 24 * time.Hour},
}

// ResolveWindows returns the hour, day and week windows, in that order, all ending at reference.
func ResolveWindows(reference time.Time) []Window {
	end := reference.UTC()
	windows := make([]Window, 0, len(windowLengths))
	for _, wl := range windowLengths {
		windows = append(windows, Window{
			Label:    wl.label,
			Interval: Interval{Start: end.Add(-wl.length), End: end},
		})
	}
	return windows
}

// Widest returns the union of the windows, which is the week window for ResolveWindows output
func Widest(windows []Window) Interval {
	var widest Interval
	for i, w := range windows {
		if i == 0 || w.Start.Before(widest.Start) {
			widest.Start = w.Start
		}
		if i == 0 || w.End.After(widest.End) {
			widest.End = w.End
		}
	}
	return widest
}
