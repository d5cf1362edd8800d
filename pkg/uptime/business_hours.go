package uptime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"storepulse/internal/model"
)

var timeOfDayRegex = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2})(?:\.(\d{1,9}))?)?$`)

const fullDay = 24 * time.Hour

// ParseTimeOfDay parses "HH:MM", "HH:MM:SS" or "HH:MM:SS.fraction" into an offset from local midnight.
// "24:00:00" is accepted as the end of the day.
func ParseTimeOfDay(s string) (time.Duration, error) {
	m := timeOfDayRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	second := 0
	if m[3] != "" {
		second, _ = strconv.Atoi(m[3])
	}
	nanos := 0
	if m[4] != "" {
		frac := m[4] + strings.Repeat("0", 9-len(m[4]))
		nanos, _ = strconv.Atoi(frac)
	}

	if minute > 59 || second > 59 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	offset := time.Duration(hour)*time.Hour +
		time.Duration(minute)*time.Minute +
		time.Duration(second)*time.Second +
		time.Duration(nanos)
	if offset > fullDay {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return offset, nil
}

// DailyRule a parsed opening interval, offsets relative to local midnight
type DailyRule struct {
	DayOfWeek int // 0=Monday ... 6=Sunday
	Start     time.Duration
	End       time.Duration
}

// Schedule a store's weekly business hours
type Schedule struct {
	alwaysOpen bool
	byDay      [7][]DailyRule
}

// AlwaysOpen reports whether the store had no rules at all and is open 24x7
func (s *Schedule) AlwaysOpen() bool {
	return s.alwaysOpen
}

// NewSchedule parses a store's rules. A store without any rule is open every instant of every day.
// Malformed rules, including the ones that wrap past midnight, are skipped and reported.
func NewSchedule(rules []model.BusinessHourRule) (*Schedule, []error) {
	s := &Schedule{alwaysOpen: len(rules) == 0}
	if s.alwaysOpen {
		for day := 0; day < 7; day++ {
			s.byDay[day] = []DailyRule{{DayOfWeek: day, Start: 0, End: fullDay}}
		}
		return s, nil
	}

	var errs []error
	for _, r := range rules {
		if r.DayOfWeek < 0 || r.DayOfWeek > 6 {
			errs = append(errs, fmt.Errorf("day_of_week %d out of range", r.DayOfWeek))
			continue
		}
		start, err := ParseTimeOfDay(r.StartTimeLocal)
		if err != nil {
			errs = append(errs, fmt.Errorf("day %d start: %w", r.DayOfWeek, err))
			continue
		}
		end, err := ParseTimeOfDay(r.EndTimeLocal)
		if err != nil {
			errs = append(errs, fmt.Errorf("day %d end: %w", r.DayOfWeek, err))
			continue
		}
		if end <= start {
			errs = append(errs, fmt.Errorf("day %d: rule %s-%s wraps past midnight", r.DayOfWeek, r.StartTimeLocal, r.EndTimeLocal))
			continue
		}
		s.byDay[r.DayOfWeek] = append(s.byDay[r.DayOfWeek], DailyRule{DayOfWeek: r.DayOfWeek, Start: start, End: end})
	}
	return s, errs
}

// Project returns the business-hours sub-intervals of window, in UTC, sorted ascending and disjoint.
// Every local calendar date the window touches is localized through loc, so the offset in force on
// that date (standard or daylight saving) is the one applied.
func (s *Schedule) Project(loc *time.Location, window Interval) []Interval {
	if window.Empty() {
		return nil
	}

	startLocal := window.Start.In(loc)
	endLocal := window.End.In(loc)
	y, m, d := startLocal.Date()
	lastY, lastM, lastD := endLocal.Date()
	last := civilDate(lastY, lastM, lastD)

	var projected []Interval
	for day := civilDate(y, m, d); !day.After(last); day = day.AddDate(0, 0, 1) {
		weekday := mondayFirst(day.Weekday())
		for _, rule := range s.byDay[weekday] {
			iv := Interval{
				Start: localInstant(day, rule.Start, loc).UTC(),
				End:   localInstant(day, rule.End, loc).UTC(),
			}
			if clipped, ok := iv.Clip(window); ok {
				projected = append(projected, clipped)
			}
		}
	}
	return normalize(projected)
}

// civilDate represents a calendar date as UTC midnight so day arithmetic never crosses a DST shift
func civilDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// localInstant combines a calendar date with an offset from local midnight
func localInstant(day time.Time, offset time.Duration, loc *time.Location) time.Time {
	y, m, d := day.Date()
	if offset >= fullDay {
		return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	}
	hour := int(offset / time.Hour)
	minute := int(offset % time.Hour / time.Minute)
	second := int(offset % time.Minute / time.Second)
	nanos := int(offset % time.Second)
	return time.Date(y, m, d, hour, minute, second, nanos, loc)
}

// mondayFirst maps time.Weekday (Sunday=0) to 0=Monday ... 6=Sunday
func mondayFirst(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// LocationResolver loads IANA timezones once and substitutes a default for unmapped stores
type LocationResolver struct {
	fallbackName string
	fallback     *time.Location
	cache        sync.Map // name -> locationEntry
}

type locationEntry struct {
	loc *time.Location
	err error
}

// NewLocationResolver creates a resolver; fallback must be a valid IANA name
func NewLocationResolver(fallback string) (*LocationResolver, error) {
	loc, err := time.LoadLocation(fallback)
	if err != nil {
		return nil, fmt.Errorf("invalid default timezone %q: %w", fallback, err)
	}
	return &LocationResolver{fallbackName: fallback, fallback: loc}, nil
}

// Fallback returns the default timezone name
func (r *LocationResolver) Fallback() string {
	return r.fallbackName
}

// Resolve returns the location for name; an empty name resolves to the fallback
func (r *LocationResolver) Resolve(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return r.fallback, nil
	}
	if cached, ok := r.cache.Load(name); ok {
		entry := cached.(locationEntry)
		return entry.loc, entry.err
	}

	var entry locationEntry
	// "Local" would silently pick up the host timezone
	if name == "Local" {
		entry.err = fmt.Errorf("unknown time zone %s", name)
	} else {
		entry.loc, entry.err = time.LoadLocation(name)
	}
	r.cache.Store(name, entry)
	return entry.loc, entry.err
}
