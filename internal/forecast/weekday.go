package forecast

import "time"

// MetricStatistics summarizes one metric across the days of a weekday.
type MetricStatistics struct {
	// Daily summarizes daily totals.
	Daily DistributionSummary
	// Hourly summarizes the raw value of each hour slot.
	Hourly [HoursPerDay]DistributionSummary
	// Share summarizes slot[h] / daily total.
	Share [HoursPerDay]DistributionSummary
	// Completion summarizes sum(slot[0..h]) / daily total.
	Completion [HoursPerDay]DistributionSummary
}

// WeekdayStatistics is the baseline for one weekday. It is never mutated
// after BuildStatistics returns.
type WeekdayStatistics struct {
	Weekday  time.Weekday
	DayCount int
	Metrics  [NumMetrics]MetricStatistics
}

// Metric returns the statistics of metric k.
func (w *WeekdayStatistics) Metric(k MetricKind) *MetricStatistics {
	return &w.Metrics[k]
}

// Statistics holds the seven weekday baselines, indexed by time.Weekday.
type Statistics [7]WeekdayStatistics

// Weekday returns the baseline of wd.
func (s *Statistics) Weekday(wd time.Weekday) *WeekdayStatistics {
	return &s[wd]
}

// TotalDays counts the days across all weekdays.
func (s *Statistics) TotalDays() int {
	n := 0
	for i := range s {
		n += s[i].DayCount
	}
	return n
}

type metricSamples struct {
	daily      []float64
	hourly     [HoursPerDay][]float64
	share      [HoursPerDay][]float64
	completion [HoursPerDay][]float64
}

type weekdaySamples struct {
	days    int
	metrics [NumMetrics]metricSamples
}

func (ws *weekdaySamples) add(d *DayProfile) {
	ws.days++
	for _, k := range Metrics {
		ms := &ws.metrics[k]
		total := d.Total(k)
		ms.daily = append(ms.daily, total)

		cum := 0.0
		for h := 0; h < HoursPerDay; h++ {
			v := d.Hours[h].Get(k)
			cum += v
			ms.hourly[h] = append(ms.hourly[h], v)
			ms.share[h] = append(ms.share[h], safeDiv(v, total))
			ms.completion[h] = append(ms.completion[h], safeDiv(cum, total))
		}
	}
}

func (ws *weekdaySamples) summarize(wd time.Weekday) WeekdayStatistics {
	out := WeekdayStatistics{Weekday: wd, DayCount: ws.days}
	for _, k := range Metrics {
		ms := &ws.metrics[k]
		st := &out.Metrics[k]
		st.Daily = Summarize(ms.daily)
		for h := 0; h < HoursPerDay; h++ {
			st.Hourly[h] = Summarize(ms.hourly[h])
			st.Share[h] = Summarize(ms.share[h])
			st.Completion[h] = Summarize(ms.completion[h])
		}
	}
	return out
}

// BuildStatistics computes the baseline of every weekday from days. Weekdays
// without history get DayCount 0 and NaN summaries.
func BuildStatistics(days []DayProfile) *Statistics {
	var samples [7]weekdaySamples
	for i := range days {
		samples[days[i].Weekday].add(&days[i])
	}

	var stats Statistics
	for wd := range samples {
		stats[wd] = samples[wd].summarize(time.Weekday(wd))
	}
	return &stats
}
