package uptime

import (
	"fmt"
	"sort"
	"time"

	"storepulse/internal/model"
)

// NoDataPolicy decides how time is classified for a store that has no observation at all
type NoDataPolicy string

const (
	NoDataActive   NoDataPolicy = "active"   // count every business second as uptime
	NoDataInactive NoDataPolicy = "inactive" // count every business second as downtime
	NoDataExclude  NoDataPolicy = "exclude"  // count nothing and flag the row
)

// ParseNoDataPolicy validates a configured policy name
func ParseNoDataPolicy(s string) (NoDataPolicy, error) {
	switch p := NoDataPolicy(s); p {
	case NoDataActive, NoDataInactive, NoDataExclude:
		return p, nil
	case "":
		return NoDataActive, nil
	default:
		return "", fmt.Errorf("unknown no-data policy %q", s)
	}
}

// Coverage active/inactive split of some business time
type Coverage struct {
	Active   time.Duration
	Inactive time.Duration
	Excluded bool
}

// Total active plus inactive time
func (c Coverage) Total() time.Duration {
	return c.Active + c.Inactive
}

// Add accumulates another coverage
func (c Coverage) Add(o Coverage) Coverage {
	return Coverage{
		Active:   c.Active + o.Active,
		Inactive: c.Inactive + o.Inactive,
		Excluded: c.Excluded || o.Excluded,
	}
}

// Timeline a store's observations sorted by timestamp, defining a step function of status over time
type Timeline struct {
	points []model.Observation
}

// NewTimeline copies and sorts observations. Observations sharing a timestamp keep their input
// order, and the last of them wins.
func NewTimeline(observations []model.Observation) *Timeline {
	points := append([]model.Observation(nil), observations...)
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	return &Timeline{points: points}
}

// Len number of observations
func (t *Timeline) Len() int {
	return len(t.points)
}

// StatusAt returns the extrapolated status at instant at: the latest observation at or before it,
// otherwise the earliest one after it. ok is false when there is no observation at all.
func (t *Timeline) StatusAt(at time.Time) (active bool, ok bool) {
	if len(t.points) == 0 {
		return false, false
	}
	i := t.firstAfter(at)
	if i == 0 {
		// carry the earliest status backward
		i = t.firstAfter(t.points[0].Timestamp)
	}
	return t.points[i-1].Active(), true
}

// firstAfter index of the first observation strictly after at
func (t *Timeline) firstAfter(at time.Time) int {
	return sort.Search(len(t.points), func(k int) bool {
		return t.points[k].Timestamp.After(at)
	})
}

// Estimate partitions iv into active and inactive time. Breakpoints are the observations inside
// (iv.Start, iv.End); Active+Inactive always equals iv.Duration() unless the store has no data
// and policy is NoDataExclude.
func (t *Timeline) Estimate(iv Interval, policy NoDataPolicy) Coverage {
	if iv.Empty() {
		return Coverage{}
	}

	if len(t.points) == 0 {
		switch policy {
		case NoDataInactive:
			return Coverage{Inactive: iv.Duration()}
		case NoDataExclude:
			return Coverage{Excluded: true}
		default:
			return Coverage{Active: iv.Duration()}
		}
	}

	var cov Coverage
	add := func(active bool, d time.Duration) {
		if active {
			cov.Active += d
		} else {
			cov.Inactive += d
		}
	}

	current, _ := t.StatusAt(iv.Start)
	cursor := iv.Start
	for i := t.firstAfter(iv.Start); i < len(t.points) && t.points[i].Timestamp.Before(iv.End); i++ {
		ts := t.points[i].Timestamp
		add(current, ts.Sub(cursor))
		cursor = ts
		current = t.points[i].Active()
	}
	add(current, iv.End.Sub(cursor))
	return cov
}
