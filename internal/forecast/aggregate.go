package forecast

import (
	"sort"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ParseDate reads the ISO-8601 date prefix of s as a UTC calendar date.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Aggregate groups records into one DayProfile per date. Records with a blank
// or unparseable date, or an hour outside [0,23], are dropped. A later record
// for the same (date, hour) replaces an earlier one. Days are returned in date
// order.
func Aggregate(records []Record) []DayProfile {
	byDate := make(map[time.Time]*DayProfile)
	for _, r := range records {
		if r.Hour < 0 || r.Hour >= HoursPerDay {
			continue
		}
		date, ok := ParseDate(r.Date)
		if !ok {
			continue
		}
		day, ok := byDate[date]
		if !ok {
			day = &DayProfile{Date: date, Weekday: date.Weekday()}
			byDate[date] = day
		}
		day.Hours[r.Hour] = r.Value
	}

	days := make([]DayProfile, 0, len(byDate))
	for _, d := range byDate {
		days = append(days, *d)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.Before(days[j].Date)
	})
	return days
}

// DaysOn filters days to a single weekday.
func DaysOn(days []DayProfile, wd time.Weekday) []DayProfile {
	out := make([]DayProfile, 0, len(days)/7+1)
	for _, d := range days {
		if d.Weekday == wd {
			out = append(out, d)
		}
	}
	return out
}
