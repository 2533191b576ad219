// Package forecast builds weekday baselines from day×hour history and projects
// end-of-day revenue from a partial day. Everything here is a pure function of
// its inputs: no I/O, no logging, no shared state outside StatisticsCache.
package forecast

import (
	"fmt"
	"strings"
	"time"
)

// HoursPerDay is the number of hourly slots in a DayProfile.
const HoursPerDay = 24

// MetricKind enumerates the tracked measures.
type MetricKind int

const (
	Revenue MetricKind = iota
	Impressions
	Clicks
	Sessions

	// NumMetrics is the number of MetricKind values.
	NumMetrics
)

// Metrics lists every MetricKind in declaration order.
var Metrics = [NumMetrics]MetricKind{Revenue, Impressions, Clicks, Sessions}

// TrafficMetrics are the optional inputs checked for anomalies.
var TrafficMetrics = [...]MetricKind{Impressions, Clicks, Sessions}

func (k MetricKind) String() string {
	switch k {
	case Revenue:
		return "revenue"
	case Impressions:
		return "impressions"
	case Clicks:
		return "clicks"
	case Sessions:
		return "sessions"
	default:
		return fmt.Sprintf("metric(%d)", int(k))
	}
}

// HourlyMetrics holds the four measures of one calendar hour.
type HourlyMetrics struct {
	Revenue     float64
	Impressions float64
	Clicks      float64
	Sessions    float64
}

// Get returns the value of metric k.
func (m HourlyMetrics) Get(k MetricKind) float64 {
	switch k {
	case Revenue:
		return m.Revenue
	case Impressions:
		return m.Impressions
	case Clicks:
		return m.Clicks
	case Sessions:
		return m.Sessions
	default:
		panic(fmt.Sprintf("forecast: unknown metric %d", int(k)))
	}
}

// Add returns the element-wise sum of m and o.
func (m HourlyMetrics) Add(o HourlyMetrics) HourlyMetrics {
	return HourlyMetrics{
		Revenue:     m.Revenue + o.Revenue,
		Impressions: m.Impressions + o.Impressions,
		Clicks:      m.Clicks + o.Clicks,
		Sessions:    m.Sessions + o.Sessions,
	}
}

// Record is one normalized input row. Date is an ISO-8601 date (only the
// first 10 characters are read); Hour is expected in [0,23].
type Record struct {
	Date  string
	Hour  int
	Value HourlyMetrics
}

// DayProfile is one calendar day split into 24 hourly slots.
type DayProfile struct {
	Date    time.Time
	Weekday time.Weekday
	Hours   [HoursPerDay]HourlyMetrics
}

// Total sums metric k over all slots.
func (d *DayProfile) Total(k MetricKind) float64 {
	return d.SumThrough(k, HoursPerDay-1)
}

// SumThrough sums metric k over slots [0..hour].
func (d *DayProfile) SumThrough(k MetricKind, hour int) float64 {
	if hour >= HoursPerDay {
		hour = HoursPerDay - 1
	}
	sum := 0.0
	for h := 0; h <= hour; h++ {
		sum += d.Hours[h].Get(k)
	}
	return sum
}

// SoFar sums every metric over slots [0..hour].
func (d *DayProfile) SoFar(hour int) HourlyMetrics {
	var out HourlyMetrics
	for h := 0; h <= hour && h < HoursPerDay; h++ {
		out = out.Add(d.Hours[h])
	}
	return out
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseWeekday accepts 0..6 (0=Sunday) or an English day name or abbreviation.
func ParseWeekday(s string) (time.Weekday, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if len(v) == 1 && v[0] >= '0' && v[0] <= '6' {
		return time.Weekday(v[0] - '0'), nil
	}
	if wd, ok := weekdayNames[v]; ok {
		return wd, nil
	}
	return 0, fmt.Errorf("invalid weekday %q", s)
}

// DisplayWeekdays is the Monday-first order used for listings.
var DisplayWeekdays = [7]time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}
