package uptime

import (
	"sort"
	"time"
)

// Interval half-open UTC interval [Start, End)
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Empty reports whether the interval contains no instant
func (i Interval) Empty() bool {
	return !i.End.After(i.Start)
}

// Duration length of the interval, zero when empty
func (i Interval) Duration() time.Duration {
	if i.Empty() {
		return 0
	}
	return i.End.Sub(i.Start)
}

// Clip intersects the interval with bounds; ok is false when the intersection is empty
func (i Interval) Clip(bounds Interval) (Interval, bool) {
	clipped := i
	if clipped.Start.Before(bounds.Start) {
		clipped.Start = bounds.Start
	}
	if clipped.End.After(bounds.End) {
		clipped.End = bounds.End
	}
	if clipped.Empty() {
		return Interval{}, false
	}
	return clipped, true
}

// normalize sorts intervals and merges the ones that overlap or touch,
// so the result is ascending and pairwise disjoint.
func normalize(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}
	sorted := append([]Interval(nil), intervals...)
	sort.Slice(sorted, func(a, b int) bool {
		if sorted[a].Start.Equal(sorted[b].Start) {
			return sorted[a].End.Before(sorted[b].End)
		}
		return sorted[a].Start.Before(sorted[b].Start)
	})

	merged := make([]Interval, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		if !next.Start.After(current.End) {
			if next.End.After(current.End) {
				current.End = next.End
			}
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}
